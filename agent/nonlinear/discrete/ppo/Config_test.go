package ppo

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadHParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ppo.yaml")
	config := []byte(`
clipping_coef: 0.1
epoch_length: 129
optimization_epochs: 4
optimization_batch_size: 64
effective_num_agents: 4
policy_network: agent
distributional:
  size: 51
  threshold: 0.25
`)
	if err := os.WriteFile(path, config, 0o644); err != nil {
		t.Fatal(err)
	}

	hp, err := LoadHParams(path)
	if err != nil {
		t.Fatal(err)
	}

	if hp.ClippingCoef != 0.1 {
		t.Errorf("expected clipping coefficient 0.1 but got %v",
			hp.ClippingCoef)
	}
	if hp.EpochLength != 129 || hp.OptimizationEpochs != 4 ||
		hp.OptimizationBatchSize != 64 {
		t.Errorf("unexpected optimization schedule %+v", hp)
	}
	if hp.EffectiveNumAgents == nil || *hp.EffectiveNumAgents != 4 {
		t.Errorf("expected 4 effective agents but got %v",
			hp.EffectiveNumAgents)
	}
	if hp.PolicyNetwork != "agent" {
		t.Errorf("expected policy network agent but got %v", hp.PolicyNetwork)
	}
	if hp.Distributional.Size != 51 || hp.Distributional.Threshold != 0.25 {
		t.Errorf("unexpected distributional config %+v", hp.Distributional)
	}

	// Missing entries take their defaults
	defaults := DefaultHParams()
	if hp.GAEGamma != defaults.GAEGamma || hp.GAELambda != defaults.GAELambda {
		t.Errorf("expected default GAE parameters but got (%v, %v)",
			hp.GAEGamma, hp.GAELambda)
	}
	if hp.Distributional.Subscale != defaults.Distributional.Subscale {
		t.Errorf("expected default subscale but got %v",
			hp.Distributional.Subscale)
	}
	if hp.RewardsPreprocessing != nil {
		t.Error("rewards preprocessing should not be loaded from a file")
	}
}

func TestLoadHParamsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ppo.json")
	if err := os.WriteFile(path, []byte(`{"epoch_length": 1}`),
		0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadHParams(path)
	if !IsConfigError(err) {
		t.Errorf("expected config error but got %v", err)
	}

	if _, err := LoadHParams(filepath.Join(t.TempDir(),
		"missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestHParamsValidate(t *testing.T) {
	if err := DefaultHParams().Validate(); err != nil {
		t.Errorf("default hyperparameters are invalid: %v", err)
	}

	zero := 0
	tests := map[string]func(*HParams){
		"gamma":              func(h *HParams) { h.GAEGamma = 1.5 },
		"lambda":             func(h *HParams) { h.GAELambda = -0.1 },
		"epochs":             func(h *HParams) { h.OptimizationEpochs = 0 },
		"batch size":         func(h *HParams) { h.OptimizationBatchSize = 0 },
		"effective agents":   func(h *HParams) { h.EffectiveNumAgents = &zero },
		"scope":              func(h *HParams) { h.PolicyNetwork = "" },
		"subscale":           func(h *HParams) { h.Distributional = Distributional{Size: 3} },
		"negative threshold": func(h *HParams) { h.Distributional.Threshold = -1 },
	}
	for name, modify := range tests {
		hp := DefaultHParams()
		modify(&hp)
		if err := hp.Validate(); !IsConfigError(err) {
			t.Errorf("%s: expected config error but got %v", name, err)
		}
	}
}

func TestSchedules(t *testing.T) {
	if lr := Constant(0.5).LearningRate(100); lr != 0.5 {
		t.Errorf("constant: expected 0.5 but got %v", lr)
	}

	warmup := LinearWarmup{Base: 1, WarmupEpochs: 4}
	for epoch, want := range []float64{0.25, 0.5, 0.75, 1, 1} {
		if lr := warmup.LearningRate(epoch); lr != want {
			t.Errorf("warmup epoch %d: expected %v but got %v", epoch, want,
				lr)
		}
	}

	decay := RsqrtDecay{Base: 1, WarmupEpochs: 4}
	if lr := decay.LearningRate(2); lr != 1 {
		t.Errorf("decay during warmup: expected 1 but got %v", lr)
	}
	if lr := decay.LearningRate(16); lr != 0.5 {
		t.Errorf("decay epoch 16: expected 0.5 but got %v", lr)
	}
}
