// Package trajectory implements storage of time-major batches of
// transitions collected from multiple agents acting in parallel.
package trajectory

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Batch is a time-major batch of transitions collected over T time
// steps by B agents.
//
// Observation and Value hold one row per (time step, agent) pair, with
// row t*B + b holding agent b at time step t. All other fields hold
// one row per time step and one column per agent.
type Batch struct {
	Observation *mat.Dense // (T*B, features)
	Action      *mat.Dense // (T, B) action indices
	Reward      *mat.Dense // (T, B)
	Done        *mat.Dense // (T, B) 1 if the episode ended, else 0
	OldPdf      *mat.Dense // (T, B) behaviour probability of Action
	Value       *mat.Dense // (T*B, K) scalar values or value logits
}

// Dims returns the number of time steps and agents in the batch
func (b *Batch) Dims() (steps, agents int) {
	return b.Reward.Dims()
}

// Features returns the number of features per observation
func (b *Batch) Features() int {
	_, c := b.Observation.Dims()
	return c
}

// ValueOutputs returns the number of value outputs per observation,
// which is 1 for scalar values
func (b *Batch) ValueOutputs() int {
	_, c := b.Value.Dims()
	return c
}

// ObservationAt returns a view of the observation of agent at time
// step
func (b *Batch) ObservationAt(step, agent int) []float64 {
	_, agents := b.Dims()
	return b.Observation.RawRowView(step*agents + agent)
}

// Clone returns a deep copy of the batch
func (b *Batch) Clone() *Batch {
	return &Batch{
		Observation: mat.DenseCopyOf(b.Observation),
		Action:      mat.DenseCopyOf(b.Action),
		Reward:      mat.DenseCopyOf(b.Reward),
		Done:        mat.DenseCopyOf(b.Done),
		OldPdf:      mat.DenseCopyOf(b.OldPdf),
		Value:       mat.DenseCopyOf(b.Value),
	}
}

// Validate checks that all fields of the batch are present, have
// consistent shapes, and hold valid done flags, probabilities and
// rewards.
func (b *Batch) Validate() error {
	if b.Observation == nil || b.Action == nil || b.Reward == nil ||
		b.Done == nil || b.OldPdf == nil || b.Value == nil {
		return fmt.Errorf("validate: batch has missing fields")
	}

	steps, agents := b.Dims()
	for name, m := range map[string]*mat.Dense{
		"action": b.Action,
		"done":   b.Done,
		"oldPdf": b.OldPdf,
	} {
		if r, c := m.Dims(); r != steps || c != agents {
			return fmt.Errorf("validate: %s has shape (%d, %d) but rewards "+
				"have shape (%d, %d)", name, r, c, steps, agents)
		}
	}
	if r, _ := b.Observation.Dims(); r != steps*agents {
		return fmt.Errorf("validate: expected %d observation rows but "+
			"got %d", steps*agents, r)
	}
	if r, _ := b.Value.Dims(); r != steps*agents {
		return fmt.Errorf("validate: expected %d value rows but got %d",
			steps*agents, r)
	}

	for t := 0; t < steps; t++ {
		for a := 0; a < agents; a++ {
			if d := b.Done.At(t, a); d != 0 && d != 1 {
				return fmt.Errorf("validate: done flag at (%d, %d) is %v",
					t, a, d)
			}
			if p := b.OldPdf.At(t, a); !(p > 0 && p <= 1) {
				return fmt.Errorf("validate: behaviour probability at "+
					"(%d, %d) is %v", t, a, p)
			}
			if r := b.Reward.At(t, a); math.IsNaN(r) || math.IsInf(r, 0) {
				return fmt.Errorf("validate: non-finite reward at (%d, %d)",
					t, a)
			}
		}
	}
	return nil
}
