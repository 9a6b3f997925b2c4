package trajectory

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Step holds the transitions of all agents at a single time step
type Step struct {
	Observation []float64 // agents * features
	Action      []int
	Reward      []float64
	Done        []bool
	OldPdf      []float64
	Value       []float64 // agents * value outputs
}

// Buffer stores Steps until it holds a full Batch
type Buffer struct {
	steps        int
	agents       int
	features     int
	valueOutputs int

	currentPos int
	batch      *Batch
}

// New creates and returns a new Buffer which holds steps time steps of
// agents agents
func New(steps, agents, features, valueOutputs int) (*Buffer, error) {
	if steps < 2 {
		return nil, fmt.Errorf("new: need at least 2 time steps, have %d",
			steps)
	}
	if agents <= 0 || features <= 0 || valueOutputs <= 0 {
		return nil, fmt.Errorf("new: agents, features, and value outputs "+
			"must be positive, have (%d, %d, %d)", agents, features,
			valueOutputs)
	}

	b := &Buffer{
		steps:        steps,
		agents:       agents,
		features:     features,
		valueOutputs: valueOutputs,
	}
	b.reset()
	return b, nil
}

func (b *Buffer) reset() {
	b.currentPos = 0
	b.batch = &Batch{
		Observation: mat.NewDense(b.steps*b.agents, b.features, nil),
		Action:      mat.NewDense(b.steps, b.agents, nil),
		Reward:      mat.NewDense(b.steps, b.agents, nil),
		Done:        mat.NewDense(b.steps, b.agents, nil),
		OldPdf:      mat.NewDense(b.steps, b.agents, nil),
		Value:       mat.NewDense(b.steps*b.agents, b.valueOutputs, nil),
	}
}

// Store stores a single time step of all agents to the Buffer
func (b *Buffer) Store(s Step) error {
	if b.Full() {
		return fmt.Errorf("store: cannot add new step, buffer at " +
			"maximum capacity")
	}
	if len(s.Observation) != b.agents*b.features {
		return fmt.Errorf("store: illegal observation length \n\twant(%v)"+
			"\n\thave(%v)", b.agents*b.features, len(s.Observation))
	}
	if len(s.Value) != b.agents*b.valueOutputs {
		return fmt.Errorf("store: illegal value length \n\twant(%v)"+
			"\n\thave(%v)", b.agents*b.valueOutputs, len(s.Value))
	}
	if len(s.Action) != b.agents || len(s.Reward) != b.agents ||
		len(s.Done) != b.agents || len(s.OldPdf) != b.agents {
		return fmt.Errorf("store: expected one action, reward, done flag, "+
			"and probability for each of %d agents", b.agents)
	}

	t := b.currentPos
	for a := 0; a < b.agents; a++ {
		row := t*b.agents + a
		b.batch.Observation.SetRow(row,
			s.Observation[a*b.features:(a+1)*b.features])
		b.batch.Value.SetRow(row,
			s.Value[a*b.valueOutputs:(a+1)*b.valueOutputs])

		b.batch.Action.Set(t, a, float64(s.Action[a]))
		b.batch.Reward.Set(t, a, s.Reward[a])
		b.batch.OldPdf.Set(t, a, s.OldPdf[a])
		if s.Done[a] {
			b.batch.Done.Set(t, a, 1)
		}
	}

	b.currentPos++
	return nil
}

// Full returns whether the buffer holds a full batch
func (b *Buffer) Full() bool {
	return b.currentPos >= b.steps
}

// Get returns the stored batch and empties the buffer. The buffer must
// be full before calling Get.
func (b *Buffer) Get() (*Batch, error) {
	if !b.Full() {
		return nil, fmt.Errorf("get: buffer must be full before sampling, "+
			"have %d/%d steps", b.currentPos, b.steps)
	}
	batch := b.batch
	b.reset()
	return batch, nil
}
