package runconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lox/cfrsolver/internal/runconfig"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := runconfig.Load(filepath.Join(t.TempDir(), "does-not-exist.hcl"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := runconfig.Default()
	if *cfg != *want {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := runconfig.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *cfg != *runconfig.Default() {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestLoadPartialFileKeepsDefaultsForOmittedBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.hcl")
	contents := `
run {
  iterations = 5000
  batch_size = 250
}
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := runconfig.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Run.Iterations != 5000 {
		t.Fatalf("expected iterations 5000, got %d", cfg.Run.Iterations)
	}
	if cfg.Run.BatchSize != 250 {
		t.Fatalf("expected batch size 250, got %d", cfg.Run.BatchSize)
	}
	if !cfg.Solver.UseCFRPlus {
		t.Fatalf("expected solver block to fall back to default UseCFRPlus=true")
	}
}

func TestLoadFullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.hcl")
	contents := `
solver {
  use_cfr_plus   = false
  use_linear_cfr = false
  exploration    = 0.6
  num_threads    = 4
}

run {
  iterations     = 20000
  target_ci      = 2.5
  batch_size     = 500
  max_iterations = 100000
}
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := runconfig.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Solver.UseCFRPlus {
		t.Fatalf("expected use_cfr_plus false")
	}
	if cfg.Solver.NumThreads != 4 {
		t.Fatalf("expected num_threads 4, got %d", cfg.Solver.NumThreads)
	}
	if cfg.Run.TargetCI != 2.5 {
		t.Fatalf("expected target_ci 2.5, got %v", cfg.Run.TargetCI)
	}
	if cfg.Run.MaxIterations != 100000 {
		t.Fatalf("expected max_iterations 100000, got %d", cfg.Run.MaxIterations)
	}
}
