package ppo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BucketCenters returns the values represented by each of the size
// buckets of a categorical value distribution. Buckets have width
// subscale and are centred around zero:
//
//	center_i = (i - size/2 + 0.5) * subscale
//
// where size/2 is integer division.
func BucketCenters(size int, subscale float64) []float64 {
	half := size / 2
	centers := make([]float64, size)
	for i := range centers {
		centers[i] = (float64(i-half) + 0.5) * subscale
	}
	return centers
}

// DistributionalToValue converts each row of logits over value
// buckets into a scalar value.
//
// With a threshold of zero the value is the expectation of the bucket
// centers under the softmax of the logits. Otherwise, buckets whose
// cumulative probability, summed in ascending bucket order, is
// strictly less than the threshold are given zero probability and the
// remaining probabilities are renormalized before the expectation is
// taken. A row left with no probability mass returns a *NumericError.
func DistributionalToValue(logits mat.Matrix, subscale,
	threshold float64) ([]float64, error) {
	rows, size := logits.Dims()
	centers := BucketCenters(size, subscale)

	values := make([]float64, rows)
	probs := make([]float64, size)
	cumulative := make([]float64, size)
	for r := 0; r < rows; r++ {
		mat.Row(probs, r, logits)
		softmax(probs)

		if threshold == 0 {
			values[r] = floats.Dot(probs, centers)
			continue
		}

		floats.CumSum(cumulative, probs)
		for i := range probs {
			if cumulative[i] < threshold {
				probs[i] = 0
			}
		}

		mass := floats.Sum(probs)
		if mass == 0 || math.IsNaN(mass) {
			return nil, &NumericError{
				Quantity: "distributional value",
				Err: fmt.Errorf("no probability mass left in row %d after "+
					"thresholding at %v", r, threshold),
			}
		}
		floats.Scale(1/mass, probs)
		values[r] = floats.Dot(probs, centers)
	}
	return values, nil
}

// Quantize returns the index of the value bucket that target falls
// into for a categorical value distribution with size buckets of width
// subscale. Targets below the range of the distribution return -1 and
// targets above it return size.
func Quantize(target float64, size int, subscale float64) int {
	half := float64(size/2) * subscale
	q := math.Floor((target + half) / subscale)
	switch {
	case math.IsNaN(q) || q < 0:
		return -1
	case q >= float64(size):
		return size
	}
	return int(q)
}

// softmax replaces x with softmax(x)
func softmax(x []float64) {
	lse := floats.LogSumExp(x)
	for i := range x {
		x[i] = math.Exp(x[i] - lse)
	}
}
