// Package runconfig loads cfrtrain run configuration from an HCL file,
// falling back to documented defaults when no file is given.
package runconfig

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/cfrsolver/cfr"
)

// RunConfig is the top-level shape of a cfrtrain HCL config file. Both
// blocks are optional; an absent block falls back to Default's values.
type RunConfig struct {
	Solver SolverSettings `hcl:"solver,block"`
	Run    RunSettings    `hcl:"run,block"`
}

// fileConfig mirrors RunConfig but with pointer blocks, so gohcl leaves a
// field nil rather than erroring when the block is absent from the file.
type fileConfig struct {
	Solver *SolverSettings `hcl:"solver,block"`
	Run    *RunSettings    `hcl:"run,block"`
}

// SolverSettings mirrors cfr.Config's tunables.
type SolverSettings struct {
	UseCFRPlus                  bool     `hcl:"use_cfr_plus,optional"`
	UseLinearCFR                bool     `hcl:"use_linear_cfr,optional"`
	Exploration                 float64  `hcl:"exploration,optional"`
	RegretFloor                 float64  `hcl:"regret_floor,optional"`
	RegretDiscount              *float64 `hcl:"regret_discount,optional"`
	StrategyDiscount            *float64 `hcl:"strategy_discount,optional"`
	NumThreads                  int      `hcl:"num_threads,optional"`
	Seed                        *uint64  `hcl:"seed,optional"`
	Sampling                    string   `hcl:"sampling,optional"`
	MinIterationsForConvergence int64    `hcl:"min_iterations_for_convergence,optional"`
}

// SamplingMode maps the HCL "sampling" string ("external", "full") to a
// cfr.SamplingMode, defaulting to external on an empty or unrecognized
// value.
func (s SolverSettings) SamplingMode() cfr.SamplingMode {
	if s.Sampling == "full" {
		return cfr.SamplingModeFullTraversal
	}
	return cfr.SamplingModeExternal
}

// RunSettings controls the training loop driving the solver.
type RunSettings struct {
	Iterations      int64   `hcl:"iterations,optional"`
	TargetCI        float64 `hcl:"target_ci,optional"`
	BatchSize       int64   `hcl:"batch_size,optional"`
	MaxIterations   int64   `hcl:"max_iterations,optional"`
	CheckpointPath  string  `hcl:"checkpoint_path,optional"`
	CheckpointEvery int64   `hcl:"checkpoint_every,optional"`
	ProgressEvery   int64   `hcl:"progress_every,optional"`
}

// Default returns the configuration cfrtrain uses when no HCL file is given:
// cfr.FastConfig's tunables, suited to small games like the three-card toy.
func Default() *RunConfig {
	return &RunConfig{
		Solver: SolverSettings{
			UseCFRPlus:   true,
			UseLinearCFR: true,
			Exploration:  0.4,
			NumThreads:   0,
		},
		Run: RunSettings{
			Iterations:    100000,
			TargetCI:      5.0,
			BatchSize:     1000,
			ProgressEvery: 1000,
		},
	}
}

// Load reads an HCL run config from path. An empty path or a missing file
// returns Default() rather than an error.
func Load(path string) (*RunConfig, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse HCL file: %s", diags.Error())
	}

	var parsed fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decode HCL: %s", diags.Error())
	}

	cfg := Default()
	if parsed.Solver != nil {
		cfg.Solver = *parsed.Solver
	}
	if parsed.Run != nil {
		cfg.Run = *parsed.Run
	}

	if cfg.Run.Iterations == 0 {
		cfg.Run.Iterations = 100000
	}
	if cfg.Run.TargetCI == 0 {
		cfg.Run.TargetCI = 5.0
	}
	if cfg.Run.BatchSize == 0 {
		cfg.Run.BatchSize = 1000
	}
	if cfg.Run.ProgressEvery == 0 {
		cfg.Run.ProgressEvery = 1000
	}
	return cfg, nil
}
