package ppo

import (
	"github.com/pkg/errors"
	"github.com/samuelfneumann/goppo/buffer/gae"
	"github.com/samuelfneumann/goppo/buffer/trajectory"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Summary holds the epoch-mean losses of an optimization epoch and the
// learning rate that was used
type Summary struct {
	PolicyLoss   float64
	ValueLoss    float64
	EntropyLoss  float64
	LearningRate float64
}

// Sink receives named scalar summaries
type Sink interface {
	Track(name string, value float64)
}

// Publish sends each field of the summary to sink by name
func (s Summary) Publish(sink Sink) {
	sink.Track("policy_loss", s.PolicyLoss)
	sink.Track("value_loss", s.ValueLoss)
	sink.Track("entropy_loss", s.EntropyLoss)
	sink.Track("learning_rate", s.LearningRate)
}

// BatchCount returns the number of minibatches in an epoch and the
// epoch length used to draw minibatch indices. The nominal batch size
// is the number of agents whose transitions make up a batch.
//
// The number of minibatches is
//
//	((EpochLength - 1) * OptimizationEpochs) / OptimizationBatchSize
//
// If EffectiveNumAgents is set, the number of minibatches is scaled by
// nominalBatchSize / EffectiveNumAgents and the epoch length is divided
// by EffectiveNumAgents. A *ConfigError is returned if there would be
// no minibatches.
func BatchCount(hp HParams, nominalBatchSize int) (numBatches,
	epochLength int, err error) {
	if hp.OptimizationBatchSize <= 0 {
		return 0, 0, configErrorf("batchCount", "optimization batch size "+
			"must be positive")
	}

	numBatches = ((hp.EpochLength - 1) * hp.OptimizationEpochs) /
		hp.OptimizationBatchSize
	epochLength = hp.EpochLength

	if hp.EffectiveNumAgents != nil {
		if *hp.EffectiveNumAgents <= 0 {
			return 0, 0, configErrorf("batchCount", "effective number of "+
				"agents must be positive")
		}
		numBatches *= nominalBatchSize
		numBatches /= *hp.EffectiveNumAgents
		epochLength /= *hp.EffectiveNumAgents
	}

	if numBatches <= 0 {
		return 0, 0, configErrorf("batchCount", "number of batches must "+
			"be positive, have %d", numBatches)
	}
	return numBatches, epochLength, nil
}

// IndexTable returns numBatches minibatches of batchSize time indices
// each. The indices are drawn by concatenating epochs random
// permutations of [0, epochLength-1) and truncating to a multiple of
// batchSize, so that each pass over the data visits every index once.
// A *ConfigError is returned if the permutations hold fewer than
// numBatches minibatches.
func IndexTable(rng *rand.Rand, epochLength, epochs, batchSize,
	numBatches int) ([][]int, error) {
	span := epochLength - 1
	if span <= 0 {
		return nil, configErrorf("indexTable", "epoch length must be at "+
			"least 2, have %d", epochLength)
	}
	if batchSize <= 0 || epochs <= 0 {
		return nil, configErrorf("indexTable", "batch size and epochs "+
			"must be positive")
	}

	indices := make([]int, 0, span*epochs)
	for i := 0; i < epochs; i++ {
		indices = append(indices, rng.Perm(span)...)
	}

	if available := len(indices) / batchSize; available < numBatches {
		return nil, configErrorf("indexTable", "%d permutations of %d "+
			"indices fill %d batches of size %d, need %d", epochs, span,
			available, batchSize, numBatches)
	}

	table := make([][]int, numBatches)
	for i := range table {
		table[i] = indices[i*batchSize : (i+1)*batchSize]
	}
	return table, nil
}

// Epoch runs one optimization epoch over a batch of trajectories.
//
// Advantages are computed with GAE on the batch's values and are
// normalized, then the network is updated once for each minibatch of
// time steps in order. Each minibatch observes the parameters updated
// by the previous one. The returned Summary holds the mean loss
// components over all minibatches.
//
// The batch is not modified.
func (p *PPO) Epoch(batch *trajectory.Batch) (Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkBatch(batch); err != nil {
		return Summary{}, errors.Wrap(err, "epoch")
	}

	// Work on a private copy so nothing leaks back into collection
	b := batch.Clone()
	if preprocess := p.hp.RewardsPreprocessing; preprocess != nil {
		b.Reward.Apply(func(_, _ int, r float64) float64 {
			return preprocess(r)
		}, b.Reward)
	}
	steps, agents := b.Dims()

	value, plainValue, err := p.decodeValue(b)
	if err != nil {
		return Summary{}, errors.Wrap(err, "epoch")
	}

	adv, err := gae.Advantage(b.Reward, value, b.Done, p.hp.GAEGamma,
		p.hp.GAELambda)
	if err != nil {
		return Summary{}, errors.Wrap(err, "epoch")
	}

	var target *mat.Dense
	if p.hp.Distributional.Enabled() {
		endValues := mat.Row(nil, steps-1, plainValue)
		ret, err := gae.DiscountedRewards(b.Reward, b.Done, p.hp.GAEGamma,
			endValues)
		if err != nil {
			return Summary{}, errors.Wrap(err, "epoch")
		}
		target = mat.DenseCopyOf(ret.Slice(0, steps-1, 0, agents))
	} else {
		target = mat.NewDense(steps-1, agents, nil)
		target.Add(adv, value.Slice(0, steps-1, 0, agents))
	}

	gae.Normalize(adv)

	numBatches, epochLength, err := BatchCount(p.hp, agents)
	if err != nil {
		return Summary{}, errors.Wrap(err, "epoch")
	}
	lr := p.schedule.LearningRate(p.completedEpochs)

	table, err := IndexTable(p.rng, epochLength, p.hp.OptimizationEpochs,
		p.hp.OptimizationBatchSize, numBatches)
	if err != nil {
		return Summary{}, errors.Wrap(err, "epoch")
	}

	var total Losses
	for i, indices := range table {
		losses, err := p.step.run(gather(b, indices, target, adv), lr, p.opt)
		if err != nil {
			return Summary{}, errors.Wrapf(err, "epoch: minibatch %d", i)
		}
		p.logger.Debug().
			Int("minibatch", i).
			Float64("policy_loss", losses.Policy).
			Float64("value_loss", losses.Value).
			Float64("entropy_loss", losses.Entropy).
			Msg("minibatch step")
		total = total.Add(losses)
	}

	mean := total.Scale(1 / float64(numBatches))
	summary := Summary{
		PolicyLoss:   mean.Policy,
		ValueLoss:    mean.Value,
		EntropyLoss:  mean.Entropy,
		LearningRate: lr,
	}
	p.completedEpochs++

	p.logger.Info().
		Int("epoch", p.completedEpochs).
		Int("minibatches", numBatches).
		Float64("policy_loss", summary.PolicyLoss).
		Float64("value_loss", summary.ValueLoss).
		Float64("entropy_loss", summary.EntropyLoss).
		Float64("learning_rate", summary.LearningRate).
		Msg("optimization epoch")
	if p.sink != nil {
		summary.Publish(p.sink)
	}

	return summary, nil
}

// decodeValue returns the scalar value of each (time step, agent) pair
// of a batch as a (T, B) matrix, along with the value used to bootstrap
// returns.
//
// With a distributional value head the value is decoded with the
// configured threshold. The bootstrap value is decoded without a
// threshold only if the threshold exceeds 1, and is otherwise the same
// as the value.
func (p *PPO) decodeValue(b *trajectory.Batch) (value, plainValue *mat.Dense,
	err error) {
	steps, agents := b.Dims()
	dist := p.hp.Distributional

	if !dist.Enabled() {
		value = mat.NewDense(steps, agents, mat.Col(nil, 0, b.Value))
		return value, value, nil
	}

	decoded, err := DistributionalToValue(b.Value, dist.Subscale,
		dist.Threshold)
	if err != nil {
		return nil, nil, err
	}
	value = mat.NewDense(steps, agents, decoded)
	plainValue = value

	if dist.Threshold > 1 {
		plain, err := DistributionalToValue(b.Value, dist.Subscale, 0)
		if err != nil {
			return nil, nil, err
		}
		plainValue = mat.NewDense(steps, agents, plain)
	}
	return value, plainValue, nil
}

// gather returns the minibatch holding all agents' data at the given
// time indices
func gather(b *trajectory.Batch, indices []int, target,
	adv *mat.Dense) minibatch {
	_, agents := b.Dims()
	rows := len(indices) * agents

	mb := minibatch{
		observation: make([]float64, 0, rows*b.Features()),
		action:      make([]int, 0, rows),
		target:      make([]float64, 0, rows),
		advantage:   make([]float64, 0, rows),
		oldPdf:      make([]float64, 0, rows),
	}
	for _, t := range indices {
		for a := 0; a < agents; a++ {
			mb.observation = append(mb.observation, b.ObservationAt(t, a)...)
			mb.action = append(mb.action, int(b.Action.At(t, a)))
			mb.target = append(mb.target, target.At(t, a))
			mb.advantage = append(mb.advantage, adv.At(t, a))
			mb.oldPdf = append(mb.oldPdf, b.OldPdf.At(t, a))
		}
	}
	return mb
}
