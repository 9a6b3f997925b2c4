package experiment

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/ppo"
	"github.com/samuelfneumann/goppo/buffer/trajectory"
	"github.com/samuelfneumann/goppo/experiment/tracker"
	"github.com/samuelfneumann/goppo/experiment/trackers"
	"github.com/samuelfneumann/goppo/network"
	"github.com/samuelfneumann/goppo/solver"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

// poisonedSource returns batches whose rewards overflow the advantage
// for its first poisoned batches
type poisonedSource struct {
	Source
	poisoned int
}

func (p *poisonedSource) Collect() (*trajectory.Batch, error) {
	batch, err := p.Source.Collect()
	if err != nil || p.poisoned <= 0 {
		return batch, err
	}
	p.poisoned--

	batch.Reward.Apply(func(_, _ int, _ float64) float64 {
		return math.MaxFloat64
	}, batch.Reward)
	return batch, nil
}

func testTrainer(t *testing.T, epochs int, source func(Source) Source,
	opts ...TrainerOption) (*Trainer, *network.PolicyValue,
	*network.PolicyValue, *trackers.Scalars) {
	hp := testHParams()
	train, behaviour := testNetworks(t, hp)

	opt, err := solver.NewDefaultAdam(1e-2, 1)
	if err != nil {
		t.Fatal(err)
	}
	tr := trackers.NewScalars(filepath.Join(t.TempDir(), "summaries.bin"))
	p, err := ppo.New(train, opt, ppo.Constant(1e-2), hp,
		ppo.ActionSpace{N: testArms}, 5, ppo.WithSink(tr))
	if err != nil {
		t.Fatal(err)
	}

	var s Source = testCollector(t, behaviour, hp.EpochLength, nil)
	if source != nil {
		s = source(s)
	}

	opts = append(opts, WithTracker(tr))
	trainer, err := NewTrainer(s, p, train, behaviour, epochs, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return trainer, train, behaviour, tr
}

func weights(t *testing.T, net network.NeuralNet) map[string][]float64 {
	out := make(map[string][]float64)
	for name, node := range network.Params(net) {
		out[name] = append([]float64(nil),
			node.Value().(*tensor.Dense).Data().([]float64)...)
	}
	return out
}

func TestTrainerRun(t *testing.T) {
	var progress bytes.Buffer
	trainer, train, behaviour, tr := testTrainer(t, 3, nil,
		WithProgress(&progress))

	before := weights(t, train)
	summaries, err := trainer.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries but got %d", len(summaries))
	}

	after := weights(t, train)
	synced := weights(t, behaviour)
	changed := false
	for name, w := range after {
		if !floats.Equal(w, synced[name]) {
			t.Errorf("behaviour weights %v not synced with trained weights",
				name)
		}
		if !floats.Equal(w, before[name]) {
			changed = true
		}
	}
	if !changed {
		t.Error("training did not change any weights")
	}

	data, err := tracker.LoadData(tr.Filename())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"policy_loss", "value_loss",
		"entropy_loss", "learning_rate"} {
		if len(data[name]) != 3 {
			t.Errorf("expected 3 saved values of %v but got %v", name,
				data[name])
		}
	}

	if !bytes.Contains(progress.Bytes(), []byte("100.00%")) {
		t.Errorf("progress bar did not finish: %q", progress.String())
	}
}

func TestTrainerSkipNumericErrors(t *testing.T) {
	poison := func(s Source) Source { return &poisonedSource{s, 1} }

	trainer, _, _, _ := testTrainer(t, 3, poison, SkipNumericErrors())
	summaries, err := trainer.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Errorf("expected 2 summaries after skipping an epoch but got %d",
			len(summaries))
	}

	trainer, _, _, _ = testTrainer(t, 3, poison)
	summaries, err = trainer.Run()
	if err == nil {
		t.Fatal("expected error from poisoned batch")
	}
	if !ppo.IsNumericError(err) {
		t.Errorf("expected numeric error but got %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("expected no summaries but got %d", len(summaries))
	}
}

func TestNewTrainerInvalid(t *testing.T) {
	trainer, train, behaviour, _ := testTrainer(t, 1, nil)
	if _, err := NewTrainer(trainer.source, trainer.ppo, train, behaviour,
		0); err == nil {
		t.Error("expected error for zero epochs")
	}
	if _, err := NewTrainer(nil, trainer.ppo, train, behaviour,
		1); err == nil {
		t.Error("expected error for nil source")
	}
}
