package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// mlp implements a multi-layered perceptron with multiple output
// nodes, one for each value that should be predicted. An mlp does not
// own its input node, so that multiple mlps can share an input.
type mlp struct {
	g          *G.ExprGraph
	layers     []*fcLayer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
}

// newMLPFromInput returns a new MLP that has a specific node as its
// input node. All parameters of the MLP are named with the given
// scope as a prefix.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// linear layer with a bias unit is always added so that the network
// has outputs outputs.
func newMLPFromInput(input *G.Node, outputs int, hiddenSizes []int,
	biases []bool, activations []*Activation, init G.InitWFn,
	scope string) (*mlp, error) {
	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newMLPFromInput: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(hiddenSizes) != len(biases) {
		msg := "newMLPFromInput: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	if !input.IsMatrix() {
		return nil, fmt.Errorf("newMLPFromInput: input must be a matrix")
	}
	if outputs <= 0 {
		return nil, fmt.Errorf("newMLPFromInput: outputs must be positive")
	}

	batch := input.Shape()[0]
	features := input.Shape()[1]
	g := input.Graph()

	sizes := append(append([]int{}, hiddenSizes...), outputs)
	bias := append(append([]bool{}, biases...), true)
	acts := append(append([]*Activation{}, activations...), Identity())

	layers := make([]*fcLayer, len(sizes))
	inputs := features
	for i := range sizes {
		if sizes[i] <= 0 {
			return nil, fmt.Errorf("newMLPFromInput: layer %d has size %d",
				i, sizes[i])
		}
		name := fmt.Sprintf("%s/L%d", scope, i)
		layers[i] = newFCLayer(g, inputs, sizes[i], bias[i], acts[i], init, name)
		inputs = sizes[i]
	}

	network := &mlp{
		g:          g,
		layers:     layers,
		input:      input,
		numOutputs: outputs,
		numInputs:  features,
		batchSize:  batch,
	}
	if err := network.fwd(); err != nil {
		return nil, fmt.Errorf("newMLPFromInput: could not compute forward "+
			"pass: %v", err)
	}

	for _, layer := range layers {
		network.learnables = append(network.learnables, layer.learnables()...)
	}
	network.model = model(network.learnables)

	return network, nil
}

// fwd adds the forward pass of the mlp to its computational graph
func (m *mlp) fwd() error {
	pred := m.input
	var err error
	for _, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			return err
		}
	}
	m.prediction = pred
	return nil
}

// Graph returns the computational graph of the mlp
func (m *mlp) Graph() *G.ExprGraph {
	return m.g
}

// Learnables returns the learnable nodes of the mlp
func (m *mlp) Learnables() G.Nodes {
	return m.learnables
}

// Model returns the mlp's learnables as G.ValueGrads
func (m *mlp) Model() []G.ValueGrad {
	return m.model
}

// Prediction returns the output node of the mlp
func (m *mlp) Prediction() *G.Node {
	return m.prediction
}
