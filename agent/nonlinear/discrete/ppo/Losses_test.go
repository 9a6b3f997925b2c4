package ppo

import (
	"math"
	"testing"

	"github.com/samuelfneumann/goppo/buffer/gae"
	"github.com/samuelfneumann/goppo/buffer/trajectory"
	"github.com/samuelfneumann/goppo/initwfn"
	"github.com/samuelfneumann/goppo/network"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

// frozenOptimizer leaves the parameters unchanged, so every minibatch
// of an epoch sees the same network
type frozenOptimizer struct{}

func (frozenOptimizer) Update(float64, []G.ValueGrad) error { return nil }

// zeroNetwork returns a network whose weights and biases are all zero.
// Its policy is uniform and all of its value outputs are zero.
func zeroNetwork(t *testing.T, hp HParams) *network.PolicyValue {
	init, err := initwfn.NewZeroes()
	if err != nil {
		t.Fatal(err)
	}
	config := network.Config{
		PolicyLayers:      []int{4},
		PolicyBiases:      []bool{true},
		PolicyActivations: []*network.Activation{network.TanH()},
		ValueLayers:       []int{4},
		ValueBiases:       []bool{true},
		ValueActivations:  []*network.Activation{network.TanH()},
		InitWFn:           init,
	}

	net, err := network.NewPolicyValue(hp.PolicyNetwork, testFeatures,
		hp.OptimizationBatchSize*testAgents, testActions,
		hp.Distributional.Outputs(), config)
	if err != nil {
		t.Fatal(err)
	}
	return net
}

// expectedTargets returns the value targets of each time step but the
// last: advantage plus value for a scalar value, and the discounted
// return bootstrapped from the unthresholded last value otherwise
func expectedTargets(t *testing.T, b *trajectory.Batch,
	hp HParams) *mat.Dense {
	steps, agents := b.Dims()

	if !hp.Distributional.Enabled() {
		value := mat.NewDense(steps, agents, mat.Col(nil, 0, b.Value))
		adv, err := gae.Advantage(b.Reward, value, b.Done, hp.GAEGamma,
			hp.GAELambda)
		if err != nil {
			t.Fatal(err)
		}
		target := mat.NewDense(steps-1, agents, nil)
		target.Add(adv, value.Slice(0, steps-1, 0, agents))
		return target
	}

	decoded, err := DistributionalToValue(b.Value,
		hp.Distributional.Subscale, 0)
	if err != nil {
		t.Fatal(err)
	}
	plain := mat.NewDense(steps, agents, decoded)
	ret, err := gae.DiscountedRewards(b.Reward, b.Done, hp.GAEGamma,
		mat.Row(nil, steps-1, plain))
	if err != nil {
		t.Fatal(err)
	}
	return mat.DenseCopyOf(ret.Slice(0, steps-1, 0, agents))
}

func TestEpochLossValues(t *testing.T) {
	tests := []struct {
		name string
		dist Distributional
	}{
		{"scalar value", Distributional{Size: 1, Subscale: 0.04}},
		{"distributional value", Distributional{Size: 11, Subscale: 0.5}},
	}

	for _, test := range tests {
		hp := testHParams()
		hp.Distributional = test.dist

		p, err := New(zeroNetwork(t, hp), frozenOptimizer{}, Constant(1e-3),
			hp, ActionSpace{N: testActions}, 3)
		if err != nil {
			t.Fatal(err)
		}
		batch := banditBatch(t, 5, hp.EpochLength, test.dist.Outputs())

		summary, err := p.Epoch(batch)
		if err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}

		// Every time step but the last is visited exactly once, so the
		// mean over minibatches is the mean over all targets. The network
		// predicts a value of zero, or a uniform value distribution.
		target := expectedTargets(t, batch, hp)
		rows, cols := target.Dims()
		var want float64
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				v := target.At(i, j)
				if !test.dist.Enabled() {
					want += v * v
					continue
				}

				// Targets outside the distribution's range contribute
				// no cross-entropy
				size := test.dist.Size
				if q := Quantize(v, size, test.dist.Subscale); q >= 0 &&
					q < size {
					want += math.Log(float64(size))
				}
			}
		}
		want *= hp.ValueLossCoef / float64(rows*cols)

		if math.Abs(summary.ValueLoss-want) > 1e-9 {
			t.Errorf("%s: expected value loss %v but got %v", test.name,
				want, summary.ValueLoss)
		}

		wantEntropy := -hp.EntropyLossCoef * math.Log(testActions)
		if math.Abs(summary.EntropyLoss-wantEntropy) > 1e-12 {
			t.Errorf("%s: expected entropy loss %v but got %v", test.name,
				wantEntropy, summary.EntropyLoss)
		}

		// The ratio is 1 everywhere, so the policy loss is the negated
		// mean of the normalized advantages
		if math.Abs(summary.PolicyLoss) > 1e-9 {
			t.Errorf("%s: expected zero policy loss but got %v", test.name,
				summary.PolicyLoss)
		}
	}
}

func TestStepQuantizedTarget(t *testing.T) {
	hp := testHParams()
	hp.Distributional = Distributional{Size: 11, Subscale: 0.5}

	net := zeroNetwork(t, hp)
	s, err := newStep(net, hp)
	if err != nil {
		t.Fatal(err)
	}

	rows := net.BatchSize()
	mb := minibatch{
		observation: make([]float64, rows*testFeatures),
		action:      make([]int, rows),
		target:      []float64{0.3, 100},
		advantage:   make([]float64, rows),
		oldPdf:      []float64{0.5, 0.5},
	}
	if err := s.setInputs(mb); err != nil {
		t.Fatal(err)
	}

	got := s.target.Value().Data().([]float64)
	size := hp.Distributional.Size
	for i, v := range got {
		want := 0.0
		// 0.3 falls into bucket 5, 100 is out of range
		if i == 5 {
			want = 1
		}
		if v != want {
			t.Errorf("one-hot target (%d, %d): expected %v but got %v",
				i/size, i%size, want, v)
		}
	}
}
