// Package environment outlines the interfaces and structs needed to
// implement concrete vectorized environments
package environment

import "gonum.org/v1/gonum/mat"

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() int
}

// VecEnv implements a batch of independent environments, one per
// agent, which are stepped in lockstep. An environment whose episode
// ends is reset automatically, so the observation returned with a done
// flag is the first observation of the agent's next episode.
type VecEnv interface {
	// Agents returns the number of environments in the batch
	Agents() int

	ObservationSpec() Spec
	ActionSpec() Spec

	// Reset starts a new episode in all environments and returns the
	// observations as an (Agents, features) matrix
	Reset() *mat.Dense

	// Step takes one action in each environment and returns the next
	// observations, the rewards, and whether each episode ended
	Step(actions []int) (*mat.Dense, []float64, []bool, error)
}
