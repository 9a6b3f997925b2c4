package network

import (
	"fmt"

	"github.com/samuelfneumann/goppo/initwfn"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Config describes the architecture of a PolicyValue network. The
// policy and value heads are separate MLPs that share an input.
type Config struct {
	PolicyLayers      []int
	PolicyBiases      []bool
	PolicyActivations []*Activation

	ValueLayers      []int
	ValueBiases      []bool
	ValueActivations []*Activation

	InitWFn *initwfn.InitWFn
}

// Validate checks that a Config describes a buildable network
func (c Config) Validate() error {
	if len(c.PolicyLayers) != len(c.PolicyBiases) ||
		len(c.PolicyLayers) != len(c.PolicyActivations) {
		return fmt.Errorf("validate: policy layers, biases, and activations " +
			"must have the same length")
	}
	if len(c.ValueLayers) != len(c.ValueBiases) ||
		len(c.ValueLayers) != len(c.ValueActivations) {
		return fmt.Errorf("validate: value layers, biases, and activations " +
			"must have the same length")
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer")
	}
	return nil
}

// PolicyValue is a neural network with a policy head that outputs
// action logits and a value head that outputs either a scalar value
// or the logits of a categorical value distribution.
//
// Every parameter of a PolicyValue is named <scope>/<head>/L<i>/W or
// <scope>/<head>/L<i>/b, where head is either policy or value.
// Learnables returns exactly these parameters, so a PolicyValue can be
// trained alongside other networks that share its graph.
type PolicyValue struct {
	g      *G.ExprGraph
	scope  string
	config Config

	input  *G.Node
	policy *mlp
	value  *mlp

	batchSize    int
	features     int
	actions      int
	valueOutputs int

	learnables G.Nodes
	model      []G.ValueGrad

	logitsVal G.Value
	valueVal  G.Value
}

// NewPolicyValue returns a new PolicyValue network on a new graph.
// The network takes batch observations of features features each as
// input, outputs actions logits for its policy head and valueOutputs
// outputs for its value head.
func NewPolicyValue(scope string, features, batch, actions,
	valueOutputs int, c Config) (*PolicyValue, error) {
	return NewPolicyValueOn(G.NewGraph(), scope, features, batch, actions,
		valueOutputs, c)
}

// NewPolicyValueOn is like NewPolicyValue but adds the network to an
// existing graph.
func NewPolicyValueOn(g *G.ExprGraph, scope string, features, batch,
	actions, valueOutputs int, c Config) (*PolicyValue, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newPolicyValue: %v", err)
	}
	if scope == "" {
		return nil, fmt.Errorf("newPolicyValue: scope must be non-empty")
	}
	if features <= 0 || batch <= 0 {
		return nil, fmt.Errorf("newPolicyValue: features and batch size "+
			"must be positive, have (%d, %d)", features, batch)
	}
	if actions <= 0 {
		return nil, fmt.Errorf("newPolicyValue: number of actions must be "+
			"positive, have %d", actions)
	}
	if valueOutputs <= 0 {
		return nil, fmt.Errorf("newPolicyValue: number of value outputs "+
			"must be positive, have %d", valueOutputs)
	}

	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName(scope+"/input"),
		G.WithInit(G.Zeroes()),
	)

	// Each network gets its own initializer so that seeded initializers
	// produce the same weights for every network built from c
	init := c.InitWFn.Config.Create()

	policy, err := newMLPFromInput(input, actions, c.PolicyLayers,
		c.PolicyBiases, c.PolicyActivations, init, scope+"/policy")
	if err != nil {
		return nil, fmt.Errorf("newPolicyValue: could not create policy "+
			"head: %v", err)
	}

	value, err := newMLPFromInput(input, valueOutputs, c.ValueLayers,
		c.ValueBiases, c.ValueActivations, init, scope+"/value")
	if err != nil {
		return nil, fmt.Errorf("newPolicyValue: could not create value "+
			"head: %v", err)
	}

	learnables := append(append(G.Nodes{}, policy.Learnables()...),
		value.Learnables()...)

	net := &PolicyValue{
		g:            g,
		scope:        scope,
		config:       c,
		input:        input,
		policy:       policy,
		value:        value,
		batchSize:    batch,
		features:     features,
		actions:      actions,
		valueOutputs: valueOutputs,
		learnables:   learnables,
		model:        model(learnables),
	}

	G.Read(policy.Prediction(), &net.logitsVal)
	G.Read(value.Prediction(), &net.valueVal)

	return net, nil
}

// CloneWithBatch returns a copy of the network on a new graph that
// takes a different batch size as input. The weights of the clone are
// copies of the weights of net.
func (p *PolicyValue) CloneWithBatch(batch int) (*PolicyValue, error) {
	clone, err := NewPolicyValue(p.scope, p.features, batch, p.actions,
		p.valueOutputs, p.config)
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}
	if err := Set(clone, p); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}
	return clone, nil
}

// SetInput sets the value of the input node before running the
// forward pass. Input is row-major with shape (BatchSize, Features).
func (p *PolicyValue) SetInput(input []float64) error {
	if len(input) != p.batchSize*p.features {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%d)"+
			"\n\thave(%d)", p.batchSize*p.features, len(input))
	}

	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(p.batchSize, p.features),
	)
	return G.Let(p.input, inputTensor)
}

// Graph returns the computational graph of the network
func (p *PolicyValue) Graph() *G.ExprGraph { return p.g }

// Scope returns the name prefix of all the network's parameters
func (p *PolicyValue) Scope() string { return p.scope }

// Config returns the configuration the network was built from
func (p *PolicyValue) Config() Config { return p.config }

// BatchSize returns the number of input rows the network takes
func (p *PolicyValue) BatchSize() int { return p.batchSize }

// Features returns the number of features per input row
func (p *PolicyValue) Features() int { return p.features }

// Actions returns the number of logits output by the policy head
func (p *PolicyValue) Actions() int { return p.actions }

// ValueOutputs returns the number of outputs of the value head
func (p *PolicyValue) ValueOutputs() int { return p.valueOutputs }

// Logits returns the policy head output node of shape
// (BatchSize, Actions)
func (p *PolicyValue) Logits() *G.Node { return p.policy.Prediction() }

// Value returns the value head output node of shape
// (BatchSize, ValueOutputs)
func (p *PolicyValue) Value() *G.Node { return p.value.Prediction() }

// LogitsVal returns the policy head output computed by the last run
// of a VM over the network's graph
func (p *PolicyValue) LogitsVal() G.Value { return p.logitsVal }

// ValueVal returns the value head output computed by the last run of
// a VM over the network's graph
func (p *PolicyValue) ValueVal() G.Value { return p.valueVal }

// Learnables returns the parameters of both heads
func (p *PolicyValue) Learnables() G.Nodes { return p.learnables }

// Model returns the parameters of both heads as G.ValueGrads
func (p *PolicyValue) Model() []G.ValueGrad { return p.model }
