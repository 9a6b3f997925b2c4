// Package network implements Gorgonia neural networks whose learnable
// parameters are exposed as an explicit, named set.
package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NeuralNet is a network built on a Gorgonia computational graph.
// Learnables returns exactly the parameters owned by the network, so
// that gradients and solver updates can be restricted to them.
type NeuralNet interface {
	Graph() *G.ExprGraph
	Learnables() G.Nodes
	Model() []G.ValueGrad
}

// Set sets the weights of dest to be equal to the weights of source.
// The weights are copied, so later updates to either network are not
// seen by the other.
func Set(dest, source NeuralNet) error {
	sourceNodes := source.Learnables()
	destNodes := dest.Learnables()
	if len(sourceNodes) != len(destNodes) {
		return fmt.Errorf("set: cannot set weights of network with %d "+
			"learnables from network with %d learnables", len(destNodes),
			len(sourceNodes))
	}

	for i, destLearnable := range destNodes {
		if !destLearnable.Shape().Eq(sourceNodes[i].Shape()) {
			return fmt.Errorf("set: shape mismatch for %v: %v != %v",
				destLearnable.Name(), destLearnable.Shape(),
				sourceNodes[i].Shape())
		}

		source, ok := sourceNodes[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("set: learnable %v has no dense value",
				sourceNodes[i].Name())
		}
		if err := G.Let(destLearnable, source.Clone().(*tensor.Dense)); err != nil {
			return fmt.Errorf("set: %v", err)
		}
	}
	return nil
}

// Params returns the learnables of a network keyed by node name
func Params(net NeuralNet) map[string]*G.Node {
	learnables := net.Learnables()
	params := make(map[string]*G.Node, len(learnables))
	for _, node := range learnables {
		params[node.Name()] = node
	}
	return params
}

// model converts learnables to the form consumed by Gorgonia solvers
func model(learnables G.Nodes) []G.ValueGrad {
	m := make([]G.ValueGrad, 0, len(learnables))
	for _, node := range learnables {
		m = append(m, node)
	}
	return m
}
