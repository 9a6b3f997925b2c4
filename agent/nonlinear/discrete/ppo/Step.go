package ppo

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/goppo/utils/op"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Network is a policy and value network on a Gorgonia graph. The
// network takes BatchSize observations as input and outputs Actions
// action logits and ValueOutputs value outputs per observation.
// Learnables must return exactly the parameters of the network.
type Network interface {
	Graph() *G.ExprGraph
	BatchSize() int
	Features() int
	Actions() int
	ValueOutputs() int
	SetInput([]float64) error

	Logits() *G.Node // (BatchSize, Actions)
	Value() *G.Node  // (BatchSize, ValueOutputs)

	Learnables() G.Nodes
	Model() []G.ValueGrad
}

// Optimizer applies a single gradient step with a given learning rate
// to the parameters in model
type Optimizer interface {
	Update(learningRate float64, model []G.ValueGrad) error
}

// Losses holds the three components of the PPO loss
type Losses struct {
	Policy  float64
	Value   float64
	Entropy float64
}

// Add returns the elementwise sum of two Losses
func (l Losses) Add(other Losses) Losses {
	return Losses{
		Policy:  l.Policy + other.Policy,
		Value:   l.Value + other.Value,
		Entropy: l.Entropy + other.Entropy,
	}
}

// Scale returns the Losses scaled by s
func (l Losses) Scale(s float64) Losses {
	return Losses{Policy: l.Policy * s, Value: l.Value * s,
		Entropy: l.Entropy * s}
}

// Total returns the sum of the loss components
func (l Losses) Total() float64 {
	return l.Policy + l.Value + l.Entropy
}

// check returns a *NumericError if any loss component is not finite
func (l Losses) check() error {
	for _, loss := range []struct {
		name  string
		value float64
	}{
		{"policy loss", l.Policy},
		{"value loss", l.Value},
		{"entropy loss", l.Entropy},
	} {
		if math.IsNaN(loss.value) || math.IsInf(loss.value, 0) {
			return &NumericError{
				Quantity: loss.name,
				Err:      fmt.Errorf("%s is %v", loss.name, loss.value),
			}
		}
	}
	return nil
}

// minibatch holds the data of one minibatch, flattened over the time
// and agent dimensions
type minibatch struct {
	observation []float64 // rows * features
	action      []int
	target      []float64
	advantage   []float64
	oldPdf      []float64
}

// step computes the PPO losses of minibatches and takes a gradient
// step on the network's parameters. The loss graph is built once on
// the network's graph and rerun for every minibatch.
type step struct {
	net  Network
	vm   G.VM
	rows int
	dist Distributional

	action    *G.Node // one-hot (rows, actions)
	oldPdf    *G.Node // (rows)
	advantage *G.Node // (rows)
	target    *G.Node // (rows), or one-hot (rows, buckets)

	policyLoss, valueLoss, entropyLoss          *G.Node
	policyLossVal, valueLossVal, entropyLossVal G.Value
}

// newStep adds the PPO loss and its gradient with respect to the
// network's learnables to the network's graph
func newStep(net Network, hp HParams) (*step, error) {
	g := net.Graph()
	rows := net.BatchSize()
	dist := hp.Distributional

	action := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(rows, net.Actions()),
		G.WithName("ppo/action"),
		G.WithInit(G.Zeroes()),
	)
	oldPdf := G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(rows),
		G.WithName("ppo/oldPdf"),
		G.WithInit(G.Ones()),
	)
	advantage := G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(rows),
		G.WithName("ppo/advantage"),
		G.WithInit(G.Zeroes()),
	)

	var target *G.Node
	if dist.Enabled() {
		target = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(rows, dist.Size),
			G.WithName("ppo/target"),
			G.WithInit(G.Zeroes()),
		)
	} else {
		target = G.NewVector(
			g,
			tensor.Float64,
			G.WithShape(rows),
			G.WithName("ppo/target"),
			G.WithInit(G.Zeroes()),
		)
	}

	// Clipped surrogate objective
	logProbs := op.LogSoftmax(net.Logits())
	newPdf := G.Must(G.HadamardProd(action, logProbs))
	newPdf = G.Must(G.Exp(G.Must(G.Sum(newPdf, 1))))
	ratio := G.Must(G.HadamardDiv(newPdf, oldPdf))
	policyLoss := G.Must(G.Mean(surrogate(ratio, advantage, hp.ClippingCoef)))
	policyLoss = G.Must(G.Neg(policyLoss))

	// Value loss
	var valueLoss *G.Node
	if dist.Enabled() {
		logValueProbs := op.LogSoftmax(net.Value())
		crossEntropy := G.Must(G.HadamardProd(target, logValueProbs))
		crossEntropy = G.Must(G.Neg(G.Must(G.Sum(crossEntropy, 1))))
		valueLoss = G.Must(G.Mean(crossEntropy))
	} else {
		value := G.Must(G.Reshape(net.Value(), tensor.Shape{rows}))
		valueErr := G.Must(G.Square(G.Must(G.Sub(value, target))))
		valueLoss = G.Must(G.Mean(valueErr))
	}
	valueLoss = G.Must(G.Mul(G.NewConstant(hp.ValueLossCoef), valueLoss))

	// Entropy bonus
	entropy := G.Must(G.HadamardProd(G.Must(G.Exp(logProbs)), logProbs))
	entropy = G.Must(G.Neg(G.Must(G.Sum(entropy, 1))))
	entropyLoss := G.Must(G.Mul(G.NewConstant(hp.EntropyLossCoef),
		G.Must(G.Mean(entropy))))
	entropyLoss = G.Must(G.Neg(entropyLoss))

	loss := G.Must(G.Add(policyLoss, valueLoss))
	loss = G.Must(G.Add(loss, entropyLoss))

	// Only the network's own parameters are differentiated and updated
	if _, err := G.Grad(loss, net.Learnables()...); err != nil {
		return nil, fmt.Errorf("newStep: could not compute gradient: %v", err)
	}

	s := &step{
		net:         net,
		rows:        rows,
		dist:        dist,
		action:      action,
		oldPdf:      oldPdf,
		advantage:   advantage,
		target:      target,
		policyLoss:  policyLoss,
		valueLoss:   valueLoss,
		entropyLoss: entropyLoss,
	}
	G.Read(policyLoss, &s.policyLossVal)
	G.Read(valueLoss, &s.valueLossVal)
	G.Read(entropyLoss, &s.entropyLossVal)

	s.vm = G.NewTapeMachine(g, G.BindDualValues(net.Learnables()...))
	return s, nil
}

// run computes the losses of a minibatch, then applies one gradient
// step with the given learning rate. The returned losses are those of
// the parameters before the update, and are only returned once the
// update has been applied.
func (s *step) run(mb minibatch, learningRate float64,
	opt Optimizer) (Losses, error) {
	if err := s.setInputs(mb); err != nil {
		return Losses{}, errors.Wrap(err, "run")
	}

	defer s.vm.Reset()
	if err := s.vm.RunAll(); err != nil {
		return Losses{}, errors.Wrap(err, "run")
	}

	losses := Losses{
		Policy:  s.policyLossVal.Data().(float64),
		Value:   s.valueLossVal.Data().(float64),
		Entropy: s.entropyLossVal.Data().(float64),
	}
	if err := losses.check(); err != nil {
		return Losses{}, err
	}

	if err := opt.Update(learningRate, s.net.Model()); err != nil {
		return Losses{}, errors.Wrap(err, "run")
	}
	return losses, nil
}

// setInputs binds a minibatch to the input nodes of the graph
func (s *step) setInputs(mb minibatch) error {
	if len(mb.action) != s.rows || len(mb.target) != s.rows ||
		len(mb.advantage) != s.rows || len(mb.oldPdf) != s.rows {
		return fmt.Errorf("setInputs: minibatch must have %d rows", s.rows)
	}
	if err := s.net.SetInput(mb.observation); err != nil {
		return err
	}

	actions := s.net.Actions()
	oneHot := make([]float64, s.rows*actions)
	for i, a := range mb.action {
		if a < 0 || a >= actions {
			return fmt.Errorf("setInputs: action %d out of range [0, %d)",
				a, actions)
		}
		oneHot[i*actions+a] = 1
	}
	if err := letDense(s.action, oneHot); err != nil {
		return err
	}
	if err := letDense(s.oldPdf, append([]float64{}, mb.oldPdf...)); err != nil {
		return err
	}
	if err := letDense(s.advantage, append([]float64{},
		mb.advantage...)); err != nil {
		return err
	}

	if !s.dist.Enabled() {
		return letDense(s.target, append([]float64{}, mb.target...))
	}

	// Targets outside the range of the value distribution have an
	// all-zero one-hot encoding
	size := s.dist.Size
	hot := make([]float64, s.rows*size)
	for i, t := range mb.target {
		if q := Quantize(t, size, s.dist.Subscale); q >= 0 && q < size {
			hot[i*size+q] = 1
		}
	}
	return letDense(s.target, hot)
}

// letDense binds data to node with node's shape
func letDense(node *G.Node, data []float64) error {
	t := tensor.New(
		tensor.WithShape(node.Shape().Clone()...),
		tensor.WithBacking(data),
	)
	return G.Let(node, t)
}

// surrogate returns the pessimistic clipped surrogate objective
//
//	min(clip(ratio, 1-c, 1+c) * advantage, ratio * advantage)
//
// elementwise.
func surrogate(ratio, advantage *G.Node, clippingCoef float64) *G.Node {
	clipped := op.Clip(ratio, 1-clippingCoef, 1+clippingCoef)
	clippedObj := G.Must(G.HadamardProd(clipped, advantage))
	obj := G.Must(G.HadamardProd(ratio, advantage))
	return op.Min(clippedObj, obj)
}
