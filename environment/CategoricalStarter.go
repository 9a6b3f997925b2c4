package environment

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// CategoricalStarter returns starting states sampled from a categorical
// distribution over (0, 1, 2, ... N-1)
type CategoricalStarter struct {
	rand distuv.Categorical
}

// NewCategoricalStarter returns a new CategoricalStarter which samples
// state i with probability proportional to weights[i]
func NewCategoricalStarter(weights []float64,
	seed uint64) (CategoricalStarter, error) {
	if len(weights) == 0 {
		return CategoricalStarter{}, fmt.Errorf("newCategoricalStarter: " +
			"no states to start from")
	}
	var total float64
	for _, w := range weights {
		if w < 0 {
			return CategoricalStarter{}, fmt.Errorf("newCategoricalStarter: "+
				"negative weight %v", w)
		}
		total += w
	}
	if total <= 0 {
		return CategoricalStarter{}, fmt.Errorf("newCategoricalStarter: " +
			"weights sum to zero")
	}

	source := rand.NewSource(seed)
	return CategoricalStarter{distuv.NewCategorical(weights, source)}, nil
}

// NewUniformStarter returns a new CategoricalStarter which samples each
// of n states with equal probability
func NewUniformStarter(n int, seed uint64) (CategoricalStarter, error) {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0 / float64(n)
	}
	return NewCategoricalStarter(weights, seed)
}

// Start returns a starting state
func (c CategoricalStarter) Start() int {
	return int(c.rand.Rand())
}
