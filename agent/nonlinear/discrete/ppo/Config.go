package ppo

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Distributional configures a categorical value head. The value head
// outputs Size logits over buckets of width Subscale centred around
// zero. A Size of 0 or 1 denotes a scalar value head.
type Distributional struct {
	Size     int     `json:"size" mapstructure:"size"`
	Subscale float64 `json:"subscale" mapstructure:"subscale"`

	// Threshold removes the lowest buckets holding up to Threshold of
	// the probability mass before a value is computed from the
	// distribution. Zero uses the plain expectation.
	Threshold float64 `json:"threshold" mapstructure:"threshold"`
}

// Enabled returns whether the value head is distributional
func (d Distributional) Enabled() bool {
	return d.Size > 1
}

// Outputs returns the number of outputs of the value head
func (d Distributional) Outputs() int {
	if d.Enabled() {
		return d.Size
	}
	return 1
}

// HParams holds the hyperparameters of PPO
type HParams struct {
	ClippingCoef    float64 `json:"clipping_coef" mapstructure:"clipping_coef"`
	ValueLossCoef   float64 `json:"value_loss_coef" mapstructure:"value_loss_coef"`
	EntropyLossCoef float64 `json:"entropy_loss_coef" mapstructure:"entropy_loss_coef"`

	// Generalized advantage estimation
	GAEGamma  float64 `json:"gae_gamma" mapstructure:"gae_gamma"`
	GAELambda float64 `json:"gae_lambda" mapstructure:"gae_lambda"`

	EpochLength           int `json:"epoch_length" mapstructure:"epoch_length"`
	OptimizationEpochs    int `json:"optimization_epochs" mapstructure:"optimization_epochs"`
	OptimizationBatchSize int `json:"optimization_batch_size" mapstructure:"optimization_batch_size"`

	// EffectiveNumAgents, if non-nil, is the number of independent
	// agents when parallel environment slots are themselves batches
	// of sub-agents.
	EffectiveNumAgents *int `json:"effective_num_agents" mapstructure:"effective_num_agents"`

	// PolicyNetwork is the scope of the parameters of the policy and
	// value network
	PolicyNetwork string `json:"policy_network" mapstructure:"policy_network"`

	Distributional Distributional `json:"distributional" mapstructure:"distributional"`

	// RewardsPreprocessing is applied to each reward before advantages
	// and returns are computed. Nil leaves rewards unchanged.
	RewardsPreprocessing func(float64) float64 `json:"-" mapstructure:"-"`
}

// DefaultHParams returns the default PPO hyperparameters
func DefaultHParams() HParams {
	return HParams{
		ClippingCoef:          0.2,
		ValueLossCoef:         1.0,
		EntropyLossCoef:       0.01,
		GAEGamma:              0.99,
		GAELambda:             0.95,
		EpochLength:           200,
		OptimizationEpochs:    10,
		OptimizationBatchSize: 50,
		PolicyNetwork:         "policy_network",
		Distributional: Distributional{
			Size:     1,
			Subscale: 0.04,
		},
	}
}

// Validate checks the hyperparameters and returns a *ConfigError if
// they cannot be used for training
func (h HParams) Validate() error {
	const op = "validate"
	switch {
	case h.ClippingCoef < 0:
		return configErrorf(op, "clipping coefficient must be non-negative")
	case h.GAEGamma < 0 || h.GAEGamma > 1:
		return configErrorf(op, "discount ℽ must be in [0, 1], have %v",
			h.GAEGamma)
	case h.GAELambda < 0 || h.GAELambda > 1:
		return configErrorf(op, "λ must be in [0, 1], have %v", h.GAELambda)
	case h.EpochLength < 2:
		return configErrorf(op, "epoch length must be at least 2, have %d",
			h.EpochLength)
	case h.OptimizationEpochs <= 0:
		return configErrorf(op, "optimization epochs must be positive")
	case h.OptimizationBatchSize <= 0:
		return configErrorf(op, "optimization batch size must be positive")
	case h.EffectiveNumAgents != nil && *h.EffectiveNumAgents <= 0:
		return configErrorf(op, "effective number of agents must be positive")
	case h.PolicyNetwork == "":
		return configErrorf(op, "policy network scope must be non-empty")
	case h.Distributional.Enabled() && h.Distributional.Subscale <= 0:
		return configErrorf(op, "distributional subscale must be positive")
	case h.Distributional.Threshold < 0:
		return configErrorf(op, "distributional threshold must be "+
			"non-negative")
	}
	return nil
}

// LoadHParams reads hyperparameters from a JSON, YAML, or TOML file.
// Hyperparameters missing from the file take their default values.
func LoadHParams(path string) (HParams, error) {
	defaults := DefaultHParams()

	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetDefault("clipping_coef", defaults.ClippingCoef)
	vp.SetDefault("value_loss_coef", defaults.ValueLossCoef)
	vp.SetDefault("entropy_loss_coef", defaults.EntropyLossCoef)
	vp.SetDefault("gae_gamma", defaults.GAEGamma)
	vp.SetDefault("gae_lambda", defaults.GAELambda)
	vp.SetDefault("epoch_length", defaults.EpochLength)
	vp.SetDefault("optimization_epochs", defaults.OptimizationEpochs)
	vp.SetDefault("optimization_batch_size", defaults.OptimizationBatchSize)
	vp.SetDefault("policy_network", defaults.PolicyNetwork)
	vp.SetDefault("distributional.size", defaults.Distributional.Size)
	vp.SetDefault("distributional.subscale", defaults.Distributional.Subscale)
	vp.SetDefault("distributional.threshold",
		defaults.Distributional.Threshold)

	if err := vp.ReadInConfig(); err != nil {
		return HParams{}, errors.Wrap(err, "loadHParams")
	}

	var hp HParams
	if err := vp.Unmarshal(&hp); err != nil {
		return HParams{}, errors.Wrap(err, "loadHParams")
	}
	if err := hp.Validate(); err != nil {
		return HParams{}, errors.Wrap(err, "loadHParams")
	}
	return hp, nil
}

// ActionSpace describes a discrete action space of N actions
type ActionSpace struct {
	N int
}

// Validate returns a *ConfigError if the action space has no actions
func (a ActionSpace) Validate() error {
	if a.N <= 0 {
		return &ConfigError{
			Op:  "validate",
			Err: fmt.Errorf("action space cardinality must be positive, "+
				"have %d", a.N),
		}
	}
	return nil
}
