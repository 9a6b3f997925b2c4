// Package bandit implements a vectorized contextual bandit, where each
// agent observes a one-hot context and is rewarded for pulling the arm
// that matches the context.
package bandit

import (
	"fmt"

	env "github.com/samuelfneumann/goppo/environment"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Bandit implements a vectorized contextual bandit with arms arms.
// Episodes last a fixed number of steps, and a new context is drawn at
// each step. Pulling the arm matching the context gives a reward of 1
// and any other arm a reward of 0, with optional Gaussian noise added.
type Bandit struct {
	agents        int
	arms          int
	episodeLength int

	starter env.Starter
	noise   *distuv.Normal

	contexts []int
	steps    []int
}

// New returns a new Bandit. A noise of zero gives deterministic
// rewards.
func New(agents, arms, episodeLength int, noise float64,
	seed uint64) (*Bandit, error) {
	if agents <= 0 || arms <= 0 || episodeLength <= 0 {
		return nil, fmt.Errorf("new: agents, arms, and episode length must "+
			"be positive, have (%d, %d, %d)", agents, arms, episodeLength)
	}
	if noise < 0 {
		return nil, fmt.Errorf("new: noise must be non-negative")
	}

	starter, err := env.NewUniformStarter(arms, seed)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	b := &Bandit{
		agents:        agents,
		arms:          arms,
		episodeLength: episodeLength,
		starter:       starter,
		contexts:      make([]int, agents),
		steps:         make([]int, agents),
	}
	if noise > 0 {
		b.noise = &distuv.Normal{
			Mu:    0,
			Sigma: noise,
			Src:   rand.NewSource(seed + 1),
		}
	}
	return b, nil
}

// Agents returns the number of environments in the batch
func (b *Bandit) Agents() int { return b.agents }

// ObservationSpec returns the observation specification
func (b *Bandit) ObservationSpec() env.Spec {
	return env.Spec{Type: env.Observation, Size: b.arms,
		Cardinality: env.Continuous}
}

// ActionSpec returns the action specification
func (b *Bandit) ActionSpec() env.Spec {
	return env.Spec{Type: env.Action, Size: b.arms,
		Cardinality: env.Discrete}
}

// Reset starts a new episode in all environments
func (b *Bandit) Reset() *mat.Dense {
	for i := range b.contexts {
		b.contexts[i] = b.starter.Start()
		b.steps[i] = 0
	}
	return b.observation()
}

// Step pulls one arm in each environment
func (b *Bandit) Step(actions []int) (*mat.Dense, []float64, []bool, error) {
	if len(actions) != b.agents {
		return nil, nil, nil, fmt.Errorf("step: expected %d actions but "+
			"got %d", b.agents, len(actions))
	}

	rewards := make([]float64, b.agents)
	dones := make([]bool, b.agents)
	for i, a := range actions {
		if a < 0 || a >= b.arms {
			return nil, nil, nil, fmt.Errorf("step: illegal action %d", a)
		}

		if a == b.contexts[i] {
			rewards[i] = 1
		}
		if b.noise != nil {
			rewards[i] += b.noise.Rand()
		}

		b.steps[i]++
		if b.steps[i] >= b.episodeLength {
			dones[i] = true
			b.steps[i] = 0
		}
		b.contexts[i] = b.starter.Start()
	}

	return b.observation(), rewards, dones, nil
}

// observation returns the one-hot contexts of all agents
func (b *Bandit) observation() *mat.Dense {
	obs := mat.NewDense(b.agents, b.arms, nil)
	for i, c := range b.contexts {
		obs.Set(i, c, 1)
	}
	return obs
}
