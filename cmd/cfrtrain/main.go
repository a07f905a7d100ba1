// Command cfrtrain trains and evaluates a Nash-equilibrium strategy for the
// three-card betting game using the cfr package's MCCFR solver.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lox/cfrsolver/cfr"
	"github.com/lox/cfrsolver/examples/threecard"
	"github.com/lox/cfrsolver/internal/runconfig"
)

var cli struct {
	Debug bool `help:"enable debug logging"`

	Train TrainCmd `cmd:"" help:"run MCCFR training until the convergence target or max iterations"`
	Eval  EvalCmd  `cmd:"" help:"estimate exploitability of a trained checkpoint"`
}

// TrainCmd runs training and saves (or resumes from) a checkpoint.
type TrainCmd struct {
	Config        string  `help:"path to an HCL run config; falls back to built-in defaults" type:"path"`
	Out           string  `help:"path to write the final checkpoint" default:"cfrtrain.checkpoint.json"`
	ResumeFrom    string  `help:"resume training from an existing checkpoint" type:"path"`
	Iterations    int64   `help:"override run config's fixed iteration count (0 keeps config)"`
	TargetCI      float64 `help:"override run config's convergence indicator target (0 keeps config)"`
	MaxIterations int64   `help:"override run config's hard iteration cap (0 keeps config)"`
}

// EvalCmd loads a checkpoint and reports its exploitability.
type EvalCmd struct {
	Checkpoint string `help:"path to a checkpoint previously written by train" required:""`
	Samples    int    `help:"number of Monte Carlo samples per player" default:"1000"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("cfrtrain"),
		kong.Description("three-card CFR solver trainer"),
		kong.UsageOnError(),
	)

	setupLogger(cli.Debug)

	switch ctx.Command() {
	case "train":
		if err := cli.Train.Run(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("training failed")
		}
	case "eval":
		if err := cli.Eval.Run(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("evaluation failed")
		}
	default:
		log.Fatal().Msgf("unknown command: %s", ctx.Command())
	}
}

func setupLogger(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}

func (cmd *TrainCmd) Run(ctx context.Context) error {
	runCfg, err := runconfig.Load(cmd.Config)
	if err != nil {
		return fmt.Errorf("load run config: %w", err)
	}
	if cmd.Iterations > 0 {
		runCfg.Run.Iterations = cmd.Iterations
	}
	if cmd.TargetCI > 0 {
		runCfg.Run.TargetCI = cmd.TargetCI
	}
	if cmd.MaxIterations > 0 {
		runCfg.Run.MaxIterations = cmd.MaxIterations
	}

	solverCfg := cfr.Config{
		UseCFRPlus:                  runCfg.Solver.UseCFRPlus,
		UseLinearCFR:                runCfg.Solver.UseLinearCFR,
		Exploration:                 runCfg.Solver.Exploration,
		RegretFloor:                 runCfg.Solver.RegretFloor,
		RegretDiscount:              runCfg.Solver.RegretDiscount,
		StrategyDiscount:            runCfg.Solver.StrategyDiscount,
		NumThreads:                  runCfg.Solver.NumThreads,
		Seed:                        runCfg.Solver.Seed,
		Sampling:                    runCfg.Solver.SamplingMode(),
		MinIterationsForConvergence: runCfg.Solver.MinIterationsForConvergence,
	}

	s, err := newSolver(solverCfg)
	if err != nil {
		return err
	}
	if cmd.ResumeFrom != "" {
		if err := s.LoadCheckpoint(cmd.ResumeFrom); err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		log.Info().Str("checkpoint", cmd.ResumeFrom).Int64("resume_iteration", s.Iteration()).Msg("resuming training run")
	}

	log.Info().
		Int64("iterations", runCfg.Run.Iterations).
		Float64("target_ci", runCfg.Run.TargetCI).
		Int64("batch_size", runCfg.Run.BatchSize).
		Int64("max_iterations", runCfg.Run.MaxIterations).
		Bool("cfr_plus", solverCfg.UseCFRPlus).
		Msg("starting training run")

	start := time.Now()
	maxIterations := runCfg.Run.MaxIterations
	if maxIterations == 0 {
		maxIterations = runCfg.Run.Iterations
	}
	result := s.TrainUntilConverged(ctx, runCfg.Run.TargetCI, runCfg.Run.BatchSize, maxIterations, func(stats cfr.ConvergenceStats) {
		log.Info().
			Int64("iteration", stats.Iteration).
			Float64("ci", stats.CI).
			Int("infosets", stats.InfoSetCount).
			Float64("iterations_per_second", stats.IterationsPerSecond).
			Msg("progress")
	})

	log.Info().
		Bool("converged", result.Converged).
		Float64("final_ci", result.FinalCI).
		Int64("iterations", result.Iterations).
		Dur("duration", time.Since(start)).
		Msg("training completed")

	if err := s.SaveCheckpoint(cmd.Out); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	log.Info().Str("path", cmd.Out).Msg("checkpoint saved")
	return nil
}

func (cmd *EvalCmd) Run(ctx context.Context) error {
	if cmd.Samples <= 0 {
		return fmt.Errorf("samples must be positive (got %d)", cmd.Samples)
	}

	s, err := newSolver(cfr.DefaultConfig())
	if err != nil {
		return err
	}
	if err := s.LoadCheckpoint(cmd.Checkpoint); err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	log.Info().
		Int64("iteration", s.Iteration()).
		Int("infosets", s.InfoSetCount()).
		Msg("checkpoint loaded")

	exploit, err := s.CalculateExploitability(ctx, cmd.Samples)
	if err != nil {
		return fmt.Errorf("calculate exploitability: %w", err)
	}

	log.Info().
		Float64("exploitability", exploit).
		Int("samples", cmd.Samples).
		Msg("evaluation complete")
	return nil
}

func newSolver(cfg cfr.Config) (*cfr.Solver[threecard.State, threecard.Action], error) {
	return cfr.New[threecard.State, threecard.Action](threecard.New(), cfg)
}
