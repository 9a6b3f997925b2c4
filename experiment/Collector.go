// Package experiment implements the loop around PPO optimization:
// collecting batches of trajectories from a vectorized environment and
// training on them epoch by epoch
package experiment

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/goppo/buffer/trajectory"
	env "github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/experiment/tracker"
	"github.com/samuelfneumann/goppo/network"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
)

// Collector runs a behaviour policy in a vectorized environment and
// collects fixed-length batches of trajectories. The behaviour network
// must take one observation of each agent as input.
//
// Environments are not reset between batches, so episodes may span
// more than one batch. The Done flag of a time step is set when its
// observation starts a new episode after the previous one ended.
type Collector struct {
	env       env.VecEnv
	behaviour *network.PolicyValue
	vm        G.VM
	src       rand.Source

	buffer  *trajectory.Buffer
	steps   int
	tracker tracker.Tracker

	obs     *mat.Dense
	started []bool
	returns []float64
}

// NewCollector returns a new Collector which collects steps time
// steps per batch. If t is non-nil, the return of each finished
// episode is tracked under the name episode_return.
func NewCollector(e env.VecEnv, behaviour *network.PolicyValue, steps int,
	seed uint64, t tracker.Tracker) (*Collector, error) {
	if e.ActionSpec().Cardinality != env.Discrete {
		return nil, fmt.Errorf("newCollector: actions must be discrete")
	}
	if behaviour.BatchSize() != e.Agents() {
		return nil, fmt.Errorf("newCollector: behaviour network takes %d "+
			"inputs for %d agents", behaviour.BatchSize(), e.Agents())
	}
	if behaviour.Features() != e.ObservationSpec().Size {
		return nil, fmt.Errorf("newCollector: behaviour network takes %d "+
			"features but observations have %d", behaviour.Features(),
			e.ObservationSpec().Size)
	}
	if behaviour.Actions() != e.ActionSpec().Size {
		return nil, fmt.Errorf("newCollector: behaviour network outputs %d "+
			"logits for %d actions", behaviour.Actions(),
			e.ActionSpec().Size)
	}

	buffer, err := trajectory.New(steps, e.Agents(), behaviour.Features(),
		behaviour.ValueOutputs())
	if err != nil {
		return nil, fmt.Errorf("newCollector: %v", err)
	}

	return &Collector{
		env:       e,
		behaviour: behaviour,
		vm:        G.NewTapeMachine(behaviour.Graph()),
		src:       rand.NewSource(seed),
		buffer:    buffer,
		steps:     steps,
		tracker:   t,
		started:   make([]bool, e.Agents()),
		returns:   make([]float64, e.Agents()),
	}, nil
}

// Behaviour returns the network used to select actions
func (c *Collector) Behaviour() *network.PolicyValue { return c.behaviour }

// Collect runs the behaviour policy for a full batch of time steps
func (c *Collector) Collect() (*trajectory.Batch, error) {
	if c.obs == nil {
		c.obs = c.env.Reset()
	}

	for !c.buffer.Full() {
		if err := c.step(); err != nil {
			return nil, fmt.Errorf("collect: %v", err)
		}
	}
	return c.buffer.Get()
}

// step takes a single action in each environment and stores the
// resulting transitions
func (c *Collector) step() error {
	agents, features := c.obs.Dims()
	observation := mat.DenseCopyOf(c.obs).RawMatrix().Data

	logits, value, err := c.forward(observation)
	if err != nil {
		return err
	}

	actions := make([]int, agents)
	pdf := make([]float64, agents)
	numActions := c.behaviour.Actions()
	for a := 0; a < agents; a++ {
		probs := append([]float64(nil), logits[a*numActions:(a+1)*numActions]...)
		softmax(probs)

		dist := distuv.NewCategorical(probs, c.src)
		actions[a] = int(dist.Rand())
		pdf[a] = dist.Prob(float64(actions[a]))
	}

	next, rewards, dones, err := c.env.Step(actions)
	if err != nil {
		return err
	}

	// In distributional training the reward of a step flagged done is
	// masked out of the return target
	done := append([]bool(nil), c.started...)
	if err := c.buffer.Store(trajectory.Step{
		Observation: observation,
		Action:      actions,
		Reward:      rewards,
		Done:        done,
		OldPdf:      pdf,
		Value:       value,
	}); err != nil {
		return err
	}

	for a := range rewards {
		c.returns[a] += rewards[a]
		if dones[a] {
			if c.tracker != nil {
				c.tracker.Track("episode_return", c.returns[a])
			}
			c.returns[a] = 0
		}
	}
	copy(c.started, dones)

	if r, f := next.Dims(); r != agents || f != features {
		return fmt.Errorf("environment returned observations of shape "+
			"(%d, %d), expected (%d, %d)", r, f, agents, features)
	}
	c.obs = next
	return nil
}

// forward runs the behaviour network on a batch of observations and
// returns copies of its logits and value outputs
func (c *Collector) forward(observation []float64) (logits,
	value []float64, err error) {
	if err := c.behaviour.SetInput(observation); err != nil {
		return nil, nil, err
	}
	defer c.vm.Reset()
	if err := c.vm.RunAll(); err != nil {
		return nil, nil, err
	}

	logits = append([]float64(nil),
		c.behaviour.LogitsVal().Data().([]float64)...)
	value = append([]float64(nil),
		c.behaviour.ValueVal().Data().([]float64)...)
	return logits, value, nil
}

// softmax computes the softmax of x in place
func softmax(x []float64) {
	lse := floats.LogSumExp(x)
	for i := range x {
		x[i] = math.Exp(x[i] - lse)
	}
}
