package ppo

import "math"

// Schedule determines the learning rate to use in an epoch. The
// learning rate is consulted once per call to Epoch, with the number
// of previously completed epochs.
type Schedule interface {
	LearningRate(epoch int) float64
}

// Constant is a Schedule with a fixed learning rate
type Constant float64

// LearningRate returns the learning rate to use in an epoch
func (c Constant) LearningRate(int) float64 {
	return float64(c)
}

// LinearWarmup linearly increases the learning rate from
// Base/WarmupEpochs to Base over the first WarmupEpochs epochs and
// keeps it at Base afterwards.
type LinearWarmup struct {
	Base         float64
	WarmupEpochs int
}

// LearningRate returns the learning rate to use in an epoch
func (l LinearWarmup) LearningRate(epoch int) float64 {
	if l.WarmupEpochs <= 0 || epoch+1 >= l.WarmupEpochs {
		return l.Base
	}
	return l.Base * float64(epoch+1) / float64(l.WarmupEpochs)
}

// RsqrtDecay keeps the learning rate at Base for the first
// WarmupEpochs epochs and afterwards decays it with the inverse square
// root of the epoch number.
type RsqrtDecay struct {
	Base         float64
	WarmupEpochs int
}

// LearningRate returns the learning rate to use in an epoch
func (r RsqrtDecay) LearningRate(epoch int) float64 {
	warmup := math.Max(float64(r.WarmupEpochs), 1)
	return r.Base * math.Sqrt(warmup/math.Max(float64(epoch), warmup))
}
