// Package ppo implements the optimization core of Proximal Policy
// Optimization with a categorical policy and either a scalar or a
// categorical (distributional) value function, following
// https://arxiv.org/abs/1707.06347.
//
// A PPO takes batches of trajectories collected by many agents in
// parallel and, once per call to Epoch, computes generalized advantage
// estimates and takes a sequence of minibatch gradient steps on the
// clipped surrogate objective, value loss, and entropy bonus.
package ppo

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samuelfneumann/goppo/buffer/trajectory"
	"golang.org/x/exp/rand"
)

// PPO drives PPO optimization epochs over a policy and value network.
// The network's parameters are owned by the caller and are updated in
// place. A PPO serializes calls to Epoch.
type PPO struct {
	mu sync.Mutex

	net      Network
	opt      Optimizer
	schedule Schedule
	hp       HParams
	actions  ActionSpace
	agents   int

	step            *step
	rng             *rand.Rand
	completedEpochs int

	logger zerolog.Logger
	sink   Sink
}

// Option configures optional behaviour of a PPO
type Option func(*PPO)

// WithLogger sets the logger that epoch summaries are logged to
func WithLogger(logger zerolog.Logger) Option {
	return func(p *PPO) {
		p.logger = logger.With().Str("component", "ppo").Logger()
	}
}

// WithSink sets a sink that receives the summary of each epoch
func WithSink(sink Sink) Option {
	return func(p *PPO) {
		p.sink = sink
	}
}

// New returns a new PPO which trains net with opt. The network must
// take OptimizationBatchSize time steps of all agents as input, so its
// batch size determines the number of agents whose batches can be
// trained on. The seed determines the order in which minibatches are
// visited.
func New(net Network, opt Optimizer, schedule Schedule, hp HParams,
	actions ActionSpace, seed uint64, opts ...Option) (*PPO, error) {
	if err := hp.Validate(); err != nil {
		return nil, errors.Wrap(err, "new")
	}
	if err := actions.Validate(); err != nil {
		return nil, errors.Wrap(err, "new")
	}
	if net == nil || opt == nil || schedule == nil {
		return nil, fmt.Errorf("new: network, optimizer, and schedule " +
			"must be non-nil")
	}

	if net.Actions() != actions.N {
		return nil, configErrorf("new", "network outputs %d logits for an "+
			"action space of %d actions", net.Actions(), actions.N)
	}
	if want := hp.Distributional.Outputs(); net.ValueOutputs() != want {
		return nil, configErrorf("new", "network has %d value outputs but "+
			"%d are needed", net.ValueOutputs(), want)
	}
	if net.BatchSize()%hp.OptimizationBatchSize != 0 {
		return nil, configErrorf("new", "network batch size %d is not a "+
			"multiple of the optimization batch size %d", net.BatchSize(),
			hp.OptimizationBatchSize)
	}
	if scoped, ok := net.(interface{ Scope() string }); ok &&
		scoped.Scope() != hp.PolicyNetwork {
		return nil, configErrorf("new", "network has scope %q but policy "+
			"network %q is configured", scoped.Scope(), hp.PolicyNetwork)
	}

	s, err := newStep(net, hp)
	if err != nil {
		return nil, errors.Wrap(err, "new")
	}

	p := &PPO{
		net:      net,
		opt:      opt,
		schedule: schedule,
		hp:       hp,
		actions:  actions,
		agents:   net.BatchSize() / hp.OptimizationBatchSize,
		step:     s,
		rng:      rand.New(rand.NewSource(seed)),
		logger:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// HParams returns the hyperparameters of the PPO
func (p *PPO) HParams() HParams { return p.hp }

// Agents returns the number of agents of the batches the PPO trains on
func (p *PPO) Agents() int { return p.agents }

// CompletedEpochs returns the number of successful calls to Epoch
func (p *PPO) CompletedEpochs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completedEpochs
}

// checkBatch ensures a batch can be trained on
func (p *PPO) checkBatch(b *trajectory.Batch) error {
	if b == nil {
		return fmt.Errorf("checkBatch: nil batch")
	}
	if err := b.Validate(); err != nil {
		return errors.Wrap(err, "checkBatch")
	}

	steps, agents := b.Dims()
	switch {
	case steps != p.hp.EpochLength:
		return configErrorf("checkBatch", "batch has %d time steps but "+
			"epoch length is %d", steps, p.hp.EpochLength)
	case agents != p.agents:
		return configErrorf("checkBatch", "batch has %d agents but the "+
			"network is built for %d", agents, p.agents)
	case b.Features() != p.net.Features():
		return configErrorf("checkBatch", "batch has %d features but the "+
			"network takes %d", b.Features(), p.net.Features())
	case b.ValueOutputs() != p.hp.Distributional.Outputs():
		return configErrorf("checkBatch", "batch has %d value outputs, "+
			"need %d", b.ValueOutputs(), p.hp.Distributional.Outputs())
	}
	return nil
}
