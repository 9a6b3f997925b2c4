// Package op provides extended Gorgonia graph operations on float64
// nodes. Every operation is built from differentiable primitives, so
// gradients flow through all of them.
package op

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Clip clips each element of a node to [min, max]
func Clip(value *G.Node, min, max float64) *G.Node {
	return Max(Min(value, G.NewConstant(max)), G.NewConstant(min))
}

// Min returns the elementwise minimum 0.5 * (a + b - |a - b|) of two
// nodes. Either node may be a scalar. The result is exact for values
// of similar magnitude, but the smaller of two values that differ by
// many orders of magnitude is lost to rounding, e.g. Min(1e-20, 1) is
// 0.
func Min(a, b *G.Node) *G.Node {
	sum := G.Must(G.Add(a, b))
	diff := G.Must(G.Abs(G.Must(G.Sub(a, b))))
	return G.Must(G.Mul(G.NewConstant(0.5), G.Must(G.Sub(sum, diff))))
}

// Max returns the elementwise maximum 0.5 * (a + b + |a - b|) of two
// nodes. Either node may be a scalar. Like Min, it loses precision
// when the values differ by many orders of magnitude.
func Max(a, b *G.Node) *G.Node {
	sum := G.Must(G.Add(a, b))
	diff := G.Must(G.Abs(G.Must(G.Sub(a, b))))
	return G.Must(G.Mul(G.NewConstant(0.5), G.Must(G.Add(sum, diff))))
}

// LogSumExp calculates the log of the summation of exponentials of
// each row of a matrix node. The result has shape (rows, 1).
//
// Use this in place of Gorgonia's LogSumExp, which has the final sum
// and log interchanged, which is incorrect. The maximum of each row is
// subtracted before exponentiating so that large logits do not
// overflow.
func LogSumExp(logits *G.Node) *G.Node {
	rows := logits.Shape()[0]

	max := G.Must(G.Max(logits, 1))
	max = G.Must(G.Reshape(max, tensor.Shape{rows, 1}))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, 1))
	sum = G.Must(G.Reshape(sum, tensor.Shape{rows, 1}))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// LogSoftmax returns the log-softmax of each row of a matrix node
func LogSoftmax(logits *G.Node) *G.Node {
	return G.Must(G.BroadcastSub(logits, LogSumExp(logits), nil,
		[]byte{1}))
}
