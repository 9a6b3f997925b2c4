package experiment

import (
	"testing"

	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/ppo"
	"github.com/samuelfneumann/goppo/environment/bandit"
	"github.com/samuelfneumann/goppo/experiment/trackers"
	"github.com/samuelfneumann/goppo/initwfn"
	"github.com/samuelfneumann/goppo/network"
	"gonum.org/v1/gonum/mat"
)

const (
	testAgents        = 2
	testArms          = 2
	testEpisodeLength = 4
)

func testHParams() ppo.HParams {
	hp := ppo.DefaultHParams()
	hp.EpochLength = 9
	hp.OptimizationEpochs = 1
	hp.OptimizationBatchSize = 1
	hp.PolicyNetwork = "pv"
	return hp
}

// testNetworks returns a network to train on batches of hp and a copy
// of it which acts in the bandit
func testNetworks(t *testing.T, hp ppo.HParams) (train,
	behaviour *network.PolicyValue) {
	init, err := initwfn.NewSeededGlorotU(1.0, 7)
	if err != nil {
		t.Fatal(err)
	}
	config := network.Config{
		PolicyLayers:      []int{8},
		PolicyBiases:      []bool{true},
		PolicyActivations: []*network.Activation{network.TanH()},
		ValueLayers:       []int{8},
		ValueBiases:       []bool{true},
		ValueActivations:  []*network.Activation{network.TanH()},
		InitWFn:           init,
	}

	train, err = network.NewPolicyValue(hp.PolicyNetwork, testArms,
		hp.OptimizationBatchSize*testAgents, testArms,
		hp.Distributional.Outputs(), config)
	if err != nil {
		t.Fatal(err)
	}
	behaviour, err = train.CloneWithBatch(testAgents)
	if err != nil {
		t.Fatal(err)
	}
	return train, behaviour
}

func testCollector(t *testing.T, behaviour *network.PolicyValue, steps int,
	tr *trackers.Scalars) *Collector {
	env, err := bandit.New(testAgents, testArms, testEpisodeLength, 0, 3)
	if err != nil {
		t.Fatal(err)
	}

	var c *Collector
	if tr == nil {
		c, err = NewCollector(env, behaviour, steps, 11, nil)
	} else {
		c, err = NewCollector(env, behaviour, steps, 11, tr)
	}
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCollect(t *testing.T) {
	hp := testHParams()
	_, behaviour := testNetworks(t, hp)
	tr := trackers.NewScalars("")
	c := testCollector(t, behaviour, hp.EpochLength, tr)

	batch, err := c.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if err := batch.Validate(); err != nil {
		t.Fatal(err)
	}

	steps, agents := batch.Dims()
	if steps != hp.EpochLength || agents != testAgents {
		t.Fatalf("expected batch of shape (%d, %d) but got (%d, %d)",
			hp.EpochLength, testAgents, steps, agents)
	}
	if batch.Features() != testArms || batch.ValueOutputs() != 1 {
		t.Errorf("unexpected batch widths (%d, %d)", batch.Features(),
			batch.ValueOutputs())
	}

	for step := 0; step < steps; step++ {
		for a := 0; a < agents; a++ {
			// Episodes end after steps 3 and 7, so the observations at
			// steps 4 and 8 start new episodes
			want := 0.0
			if step == 4 || step == 8 {
				want = 1
			}
			if got := batch.Done.At(step, a); got != want {
				t.Errorf("done(%d, %d): expected %v but got %v", step, a,
					want, got)
			}

			obs := batch.ObservationAt(step, a)
			if obs[0]+obs[1] != 1 {
				t.Errorf("observation(%d, %d) is not one-hot: %v", step, a,
					obs)
			}
			action := int(batch.Action.At(step, a))
			if action < 0 || action >= testArms {
				t.Errorf("action(%d, %d) out of range: %d", step, a, action)
			}
		}
	}

	returns := tr.Data()["episode_return"]
	if len(returns) != 2*testAgents {
		t.Fatalf("expected %d episode returns but got %v", 2*testAgents,
			returns)
	}
	for _, r := range returns {
		if r < 0 || r > testEpisodeLength {
			t.Errorf("episode return out of range: %v", r)
		}
	}
}

func TestCollectReproducible(t *testing.T) {
	hp := testHParams()

	collect := func() []*mat.Dense {
		_, behaviour := testNetworks(t, hp)
		c := testCollector(t, behaviour, hp.EpochLength, nil)

		var out []*mat.Dense
		for i := 0; i < 2; i++ {
			batch, err := c.Collect()
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, batch.Observation, batch.Action,
				batch.OldPdf, batch.Value)
		}
		return out
	}

	first, second := collect(), collect()
	for i := range first {
		if !mat.Equal(first[i], second[i]) {
			t.Errorf("field %d differs across collectors with the same "+
				"seed", i)
		}
	}
}

func TestNewCollectorMismatch(t *testing.T) {
	hp := testHParams()
	train, _ := testNetworks(t, hp)

	env, err := bandit.New(testAgents+1, testArms, testEpisodeLength, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewCollector(env, train, hp.EpochLength, 1, nil); err == nil {
		t.Error("expected error for behaviour network with wrong batch size")
	}
}
