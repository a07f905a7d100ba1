package cfr

import "testing"

func TestConfigValidateRejectsOutOfRangeExploration(t *testing.T) {
	c := DefaultConfig()
	c.Exploration = 1.5
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for out-of-range exploration")
	}
}

func TestConfigValidateRejectsOutOfRangeDiscount(t *testing.T) {
	bad := 1.2
	c := DefaultConfig()
	c.RegretDiscount = &bad
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for out-of-range regret discount")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
	if err := VanillaConfig().Validate(); err != nil {
		t.Fatalf("expected vanilla config to validate, got %v", err)
	}
	if err := FastConfig().Validate(); err != nil {
		t.Fatalf("expected fast config to validate, got %v", err)
	}
	if err := DiscountedConfig(0.9, 0.1).Validate(); err != nil {
		t.Fatalf("expected discounted config to validate, got %v", err)
	}
}

func TestWithSamplingAndMinIterationsForConvergence(t *testing.T) {
	c := DefaultConfig().WithSampling(SamplingModeFullTraversal).WithMinIterationsForConvergence(2500)
	if c.Sampling != SamplingModeFullTraversal {
		t.Fatalf("expected full traversal sampling, got %v", c.Sampling)
	}
	if got := c.minIterationsForConvergence(); got != 2500 {
		t.Fatalf("expected configured floor 2500, got %d", got)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected config to validate, got %v", err)
	}
}

func TestMinIterationsForConvergenceDefaultsTo5000(t *testing.T) {
	c := DefaultConfig()
	if got := c.minIterationsForConvergence(); got != defaultMinIterationsForConvergence {
		t.Fatalf("expected default floor %d, got %d", defaultMinIterationsForConvergence, got)
	}
}

func TestWithExplorationClamps(t *testing.T) {
	c := DefaultConfig().WithExploration(5)
	if c.Exploration != 1 {
		t.Fatalf("expected exploration clamped to 1, got %v", c.Exploration)
	}
	c = DefaultConfig().WithExploration(-5)
	if c.Exploration != 0 {
		t.Fatalf("expected exploration clamped to 0, got %v", c.Exploration)
	}
}
