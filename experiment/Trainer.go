package experiment

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/ppo"
	"github.com/samuelfneumann/goppo/buffer/trajectory"
	"github.com/samuelfneumann/goppo/experiment/tracker"
	"github.com/samuelfneumann/goppo/network"
	"github.com/samuelfneumann/goppo/utils/progressbar"
)

// Source produces batches of trajectories to train on
type Source interface {
	Collect() (*trajectory.Batch, error)
}

// Trainer runs a fixed number of PPO optimization epochs. Before each
// epoch a batch is pulled from a Source, and after each epoch the
// trained weights are copied into the behaviour network that the
// Source collects data with.
type Trainer struct {
	source    Source
	ppo       *ppo.PPO
	train     network.NeuralNet
	behaviour network.NeuralNet
	epochs    int

	skipNumeric bool
	tracker     tracker.Tracker
	progress    io.Writer
	logger      zerolog.Logger
}

// TrainerOption configures optional behaviour of a Trainer
type TrainerOption func(*Trainer)

// SkipNumericErrors makes a Trainer move on to the next epoch when an
// epoch fails with a non-finite advantage, return, or loss. Such an
// epoch still counts towards the number of epochs run.
func SkipNumericErrors() TrainerOption {
	return func(t *Trainer) { t.skipNumeric = true }
}

// WithTracker sets a Tracker which is saved once training ends
func WithTracker(tr tracker.Tracker) TrainerOption {
	return func(t *Trainer) { t.tracker = tr }
}

// WithProgress displays a progress bar on w
func WithProgress(w io.Writer) TrainerOption {
	return func(t *Trainer) { t.progress = w }
}

// WithTrainerLogger sets the logger of a Trainer
func WithTrainerLogger(logger zerolog.Logger) TrainerOption {
	return func(t *Trainer) {
		t.logger = logger.With().Str("component", "trainer").Logger()
	}
}

// NewTrainer returns a new Trainer which trains train with p for
// epochs epochs. The behaviour network may be nil if the Source does
// not act with a copy of the trained network.
func NewTrainer(source Source, p *ppo.PPO, train,
	behaviour network.NeuralNet, epochs int,
	opts ...TrainerOption) (*Trainer, error) {
	if source == nil || p == nil || train == nil {
		return nil, errors.New("newTrainer: source, ppo, and network must " +
			"be non-nil")
	}
	if epochs <= 0 {
		return nil, errors.Errorf("newTrainer: epochs must be positive, "+
			"have %d", epochs)
	}

	t := &Trainer{
		source:    source,
		ppo:       p,
		train:     train,
		behaviour: behaviour,
		epochs:    epochs,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Run runs all epochs and returns the summary of each successful
// epoch in order
func (t *Trainer) Run() ([]ppo.Summary, error) {
	var bar *progressbar.ManualProgressBar
	if t.progress != nil {
		bar = progressbar.NewManualProgressBar(t.progress, 40, t.epochs)
		bar.Display()
		defer bar.Close()
	}

	summaries := make([]ppo.Summary, 0, t.epochs)
	for epoch := 0; epoch < t.epochs; epoch++ {
		batch, err := t.source.Collect()
		if err != nil {
			return summaries, errors.Wrapf(err, "run: epoch %d", epoch)
		}

		summary, err := t.ppo.Epoch(batch)
		switch {
		case err == nil:
			summaries = append(summaries, summary)

		case t.skipNumeric && ppo.IsNumericError(err):
			t.logger.Warn().Err(err).Int("epoch", epoch).
				Msg("skipping epoch")

		default:
			return summaries, errors.Wrapf(err, "run: epoch %d", epoch)
		}

		if t.behaviour != nil {
			if err := network.Set(t.behaviour, t.train); err != nil {
				return summaries, errors.Wrapf(err, "run: epoch %d", epoch)
			}
		}

		if bar != nil {
			bar.Increment()
			bar.Display()
		}
	}

	if t.tracker != nil {
		if err := t.tracker.Save(); err != nil {
			return summaries, errors.Wrap(err, "run")
		}
	}
	return summaries, nil
}
