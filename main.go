package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/ppo"
	"github.com/samuelfneumann/goppo/environment/bandit"
	"github.com/samuelfneumann/goppo/experiment"
	"github.com/samuelfneumann/goppo/experiment/tracker"
	"github.com/samuelfneumann/goppo/experiment/trackers"
	"github.com/samuelfneumann/goppo/initwfn"
	"github.com/samuelfneumann/goppo/network"
	"github.com/samuelfneumann/goppo/solver"
)

func main() {
	var (
		configFile string
		dataFile   string
		epochs     int
		agents     int
		arms       int
		stepSize   float64
		warmup     int
		seed       uint64
		verbose    bool
	)
	flag.StringVar(&configFile, "config", "", "hyperparameter file "+
		"(JSON, YAML, or TOML)")
	flag.StringVar(&dataFile, "data", "./data.bin", "file to save "+
		"summaries to")
	flag.IntVar(&epochs, "epochs", 100, "number of optimization epochs")
	flag.IntVar(&agents, "agents", 8, "number of parallel environments")
	flag.IntVar(&arms, "arms", 2, "number of bandit arms")
	flag.Float64Var(&stepSize, "step", 1e-3, "base learning rate")
	flag.IntVar(&warmup, "warmup", 10, "learning rate warmup epochs")
	flag.Uint64Var(&seed, "seed", 192382, "random seed")
	flag.BoolVar(&verbose, "v", false, "log every minibatch")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	hp := ppo.DefaultHParams()
	hp.EpochLength = 32
	hp.OptimizationEpochs = 4
	hp.OptimizationBatchSize = 8
	if configFile != "" {
		var err error
		if hp, err = ppo.LoadHParams(configFile); err != nil {
			logger.Fatal().Err(err).Msg("could not load hyperparameters")
		}
	}

	// Create the environment
	env, err := bandit.New(agents, arms, 8, 0.1, seed)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create environment")
	}

	// Create the networks: one to train on minibatches and one to act
	init, err := initwfn.NewSeededGlorotU(1.0, seed)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create initializer")
	}
	config := network.Config{
		PolicyLayers:      []int{64, 64},
		PolicyBiases:      []bool{true, true},
		PolicyActivations: []*network.Activation{network.TanH(), network.TanH()},
		ValueLayers:       []int{64, 64},
		ValueBiases:       []bool{true, true},
		ValueActivations:  []*network.Activation{network.TanH(), network.TanH()},
		InitWFn:           init,
	}
	train, err := network.NewPolicyValue(hp.PolicyNetwork,
		env.ObservationSpec().Size, hp.OptimizationBatchSize*agents, arms,
		hp.Distributional.Outputs(), config)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create network")
	}
	behaviour, err := train.CloneWithBatch(agents)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create behaviour network")
	}

	// Create the learning algorithm
	adam, err := solver.NewDefaultAdam(stepSize, 1)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create solver")
	}
	scalars := trackers.NewScalars(dataFile)
	sink := tracker.Multi(
		scalars,
		tracker.Register(trackers.NewLogger(logger, zerolog.DebugLevel),
			"learning_rate"),
	)
	p, err := ppo.New(train, adam, ppo.LinearWarmup{Base: stepSize,
		WarmupEpochs: warmup}, hp, ppo.ActionSpace{N: arms}, seed,
		ppo.WithLogger(logger), ppo.WithSink(sink))
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create PPO")
	}

	// Experiment
	collector, err := experiment.NewCollector(env, behaviour, hp.EpochLength,
		seed, scalars)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create collector")
	}
	trainer, err := experiment.NewTrainer(collector, p, train, behaviour,
		epochs, experiment.SkipNumericErrors(), experiment.WithTracker(sink),
		experiment.WithTrainerLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create trainer")
	}
	if _, err := trainer.Run(); err != nil {
		logger.Fatal().Err(err).Msg("training failed")
	}

	data, err := tracker.LoadData(dataFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load summaries")
	}
	returns := data["episode_return"]
	if len(returns) > 10 {
		returns = returns[len(returns)-10:]
	}
	logger.Info().Floats64("episode_return", returns).Msg("done")
}
