// Package gae implements generalized advantage estimation and
// bootstrapped discounted returns over time-major batches of
// trajectories collected from multiple agents.
//
// All matrices are time-major: row t holds time step t and column b
// holds agent b.
package gae

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Advantage computes the GAE(λ) advantage estimate following
// https://arxiv.org/abs/1506.02438. Given rewards, values, and done
// flags of shape (T, B), Advantage returns a matrix of shape (T-1, B)
// since the advantage at t requires the value at t+1:
//
//	δ_t = r_t + ℽ v_{t+1} (1 - d_{t+1}) - v_t
//	A_t = δ_t + ℽ λ (1 - d_{t+1}) A_{t+1}
//
// The last advantage, A_{T-2}, has no successor. Nothing propagates
// across a time step t+1 where d_{t+1} is set.
func Advantage(reward, value, done mat.Matrix, gamma,
	lambda float64) (*mat.Dense, error) {
	t, b, err := checkShapes(reward, value, done)
	if err != nil {
		return nil, fmt.Errorf("advantage: %v", err)
	}
	if t < 2 {
		return nil, fmt.Errorf("advantage: need at least 2 time steps, "+
			"have %d", t)
	}

	adv := mat.NewDense(t-1, b, nil)
	for col := 0; col < b; col++ {
		var next float64
		for row := t - 2; row >= 0; row-- {
			notDone := 1 - done.At(row+1, col)
			delta := reward.At(row, col) +
				gamma*value.At(row+1, col)*notDone - value.At(row, col)
			next = delta + gamma*lambda*notDone*next
			adv.Set(row, col, next)
		}
	}

	if err := checkFinite(adv, "advantage"); err != nil {
		return nil, err
	}
	return adv, nil
}

// DiscountedRewards computes the bootstrapped discounted return of
// each time step. Given rewards and done flags of shape (T, B) and the
// bootstrap value of each agent after the last time step, it returns a
// matrix of shape (T, B):
//
//	R_{T-1} = r_{T-1} (1 - d_{T-1}) + ℽ endValues (1 - d_{T-1})
//	R_t     = r_t (1 - d_t) + ℽ R_{t+1}
//
// Rewards of steps flagged done are masked, and an agent whose last
// step is done gets no bootstrap.
func DiscountedRewards(reward, done mat.Matrix, gamma float64,
	endValues []float64) (*mat.Dense, error) {
	t, b, err := checkShapes(reward, done)
	if err != nil {
		return nil, fmt.Errorf("discountedRewards: %v", err)
	}
	if len(endValues) != b {
		return nil, fmt.Errorf("discountedRewards: expected %d end values "+
			"but got %d", b, len(endValues))
	}

	ret := mat.NewDense(t, b, nil)
	for col := 0; col < b; col++ {
		next := endValues[col] * (1 - done.At(t-1, col))
		for row := t - 1; row >= 0; row-- {
			next = reward.At(row, col)*(1-done.At(row, col)) + gamma*next
			ret.Set(row, col, next)
		}
	}

	if err := checkFinite(ret, "return"); err != nil {
		return nil, err
	}
	return ret, nil
}

// Normalize standardizes a matrix in place to mean 0 and standard
// deviation 1, where the moments are computed jointly over all
// entries. A small constant is added to the standard deviation so that
// constant matrices do not cause division by zero.
func Normalize(m *mat.Dense) {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}

	mean, variance := stat.PopMeanVariance(data, nil)
	std := math.Sqrt(variance) + 1e-8
	m.Apply(func(_, _ int, v float64) float64 {
		return (v - mean) / std
	}, m)
}

// checkShapes ensures all matrices have the same shape and returns it
func checkShapes(ms ...mat.Matrix) (int, int, error) {
	t, b := ms[0].Dims()
	for _, m := range ms[1:] {
		if r, c := m.Dims(); r != t || c != b {
			return 0, 0, fmt.Errorf("shape mismatch (%d, %d) != (%d, %d)",
				r, c, t, b)
		}
	}
	return t, b, nil
}

// checkFinite returns a *NumericError if m has a NaN or infinite entry
func checkFinite(m *mat.Dense, quantity string) error {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for j, v := range m.RawRowView(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &NumericError{Quantity: quantity, Row: i, Col: j,
					Value: v}
			}
		}
	}
	return nil
}
