package cfr

import (
	"errors"
	"fmt"
	"math"
	"runtime"
)

// Config controls which CFR variant the solver runs and how it samples,
// discounts, and parallelizes. The zero value passes Validate but runs
// without CFR+ or linear averaging and with RegretFloor 0; use DefaultConfig
// or one of the named presets.
type Config struct {
	// UseCFRPlus clamps regrets to a minimum of 0 after every update.
	// Mutually exclusive in effect with RegretFloor: when true, RegretFloor
	// is ignored (see DESIGN.md).
	UseCFRPlus bool

	// UseLinearCFR weights strategy-sum updates by the current iteration
	// number, giving later iterations more influence on the average
	// strategy.
	UseLinearCFR bool

	// Exploration is epsilon in opponent-action sampling: the probability
	// of picking a uniformly random action instead of sampling from the
	// current strategy. Must be within [0, 1].
	Exploration float64

	// RegretFloor lower-bounds regrets when UseCFRPlus is false. Use
	// math.Inf(-1) for unbounded (pure vanilla CFR).
	RegretFloor float64

	// RegretDiscount, if non-nil, multiplies every stored regret by this
	// factor once per iteration (Discounted CFR). Must be within [0, 1].
	RegretDiscount *float64

	// StrategyDiscount, if non-nil, multiplies every stored strategy sum by
	// this factor once per iteration. Must be within [0, 1].
	StrategyDiscount *float64

	// NumThreads bounds how many traversals may run concurrently within one
	// iteration. Zero means runtime.GOMAXPROCS(0).
	NumThreads int

	// Seed seeds the solver's RNG deterministically. A nil Seed draws from
	// OS entropy.
	Seed *uint64

	// Sampling selects the traversal kernel's opponent-node strategy. The
	// zero value is SamplingModeExternal.
	Sampling SamplingMode

	// MinIterationsForConvergence is the safety floor TrainUntilConverged
	// requires before it will declare Converged, even if the Convergence
	// Indicator has already dropped below the target. Zero means the
	// default of 5,000.
	MinIterationsForConvergence int64
}

// SamplingMode selects how the traversal kernel handles an opponent's
// decision node.
type SamplingMode int

const (
	// SamplingModeExternal samples a single opponent action per traversal
	// (external-sampling MCCFR), the default and the only mode that scales
	// to large games.
	SamplingModeExternal SamplingMode = iota

	// SamplingModeFullTraversal expands every opponent action, weighting
	// each branch's value by the current strategy's probability, instead of
	// sampling one. Opponent choices add no sampling variance (chance nodes
	// are still sampled), but cost grows with the branching factor, so it is
	// only practical on small games or in tests.
	SamplingModeFullTraversal
)

func (m SamplingMode) String() string {
	switch m {
	case SamplingModeFullTraversal:
		return "full"
	default:
		return "external"
	}
}

// Validate rejects out-of-range exploration or discount factors.
func (c Config) Validate() error {
	if c.Exploration < 0 || c.Exploration > 1 {
		return fmt.Errorf("exploration %v out of range [0, 1]", c.Exploration)
	}
	if c.RegretDiscount != nil {
		if *c.RegretDiscount < 0 || *c.RegretDiscount > 1 {
			return fmt.Errorf("regret discount %v out of range [0, 1]", *c.RegretDiscount)
		}
	}
	if c.StrategyDiscount != nil {
		if *c.StrategyDiscount < 0 || *c.StrategyDiscount > 1 {
			return fmt.Errorf("strategy discount %v out of range [0, 1]", *c.StrategyDiscount)
		}
	}
	if c.NumThreads < 0 {
		return errors.New("num threads cannot be negative")
	}
	return nil
}

func (c Config) threads() int {
	if c.NumThreads > 0 {
		return c.NumThreads
	}
	return runtime.GOMAXPROCS(0)
}

const defaultMinIterationsForConvergence = 5000

func (c Config) minIterationsForConvergence() int64 {
	if c.MinIterationsForConvergence > 0 {
		return c.MinIterationsForConvergence
	}
	return defaultMinIterationsForConvergence
}

// DefaultConfig returns CFR+ with linear averaging and no exploration, the
// recommended starting point for external-sampling MCCFR.
func DefaultConfig() Config {
	return Config{
		UseCFRPlus:   true,
		UseLinearCFR: true,
		Exploration:  0.0,
		RegretFloor:  negInf,
	}
}

// VanillaConfig disables every enhancement: no CFR+, no linear averaging,
// moderate exploration. Useful as a reference implementation for comparison.
func VanillaConfig() Config {
	return Config{
		UseCFRPlus:   false,
		UseLinearCFR: false,
		Exploration:  0.6,
		RegretFloor:  negInf,
	}
}

// FastConfig is tuned for quick convergence on small games: CFR+, linear
// averaging, and moderate exploration to keep opponent sampling from
// starving rarely-reached branches.
func FastConfig() Config {
	return Config{
		UseCFRPlus:   true,
		UseLinearCFR: true,
		Exploration:  0.4,
		RegretFloor:  negInf,
	}
}

// DiscountedConfig returns a Discounted CFR configuration: CFR+ without
// linear averaging, discounting regrets by alpha and strategy sums by beta
// each iteration. Typical values are alpha in [0.75, 0.99], beta in [0, 0.5].
func DiscountedConfig(alpha, beta float64) Config {
	return Config{
		UseCFRPlus:       true,
		UseLinearCFR:     false,
		Exploration:      0.6,
		RegretFloor:      negInf,
		RegretDiscount:   &alpha,
		StrategyDiscount: &beta,
	}
}

// WithExploration returns a copy of c with Exploration set, clamped to
// [0, 1].
func (c Config) WithExploration(eps float64) Config {
	if eps < 0 {
		eps = 0
	}
	if eps > 1 {
		eps = 1
	}
	c.Exploration = eps
	return c
}

// WithCFRPlus returns a copy of c with UseCFRPlus set.
func (c Config) WithCFRPlus(enable bool) Config {
	c.UseCFRPlus = enable
	return c
}

// WithLinearCFR returns a copy of c with UseLinearCFR set.
func (c Config) WithLinearCFR(enable bool) Config {
	c.UseLinearCFR = enable
	return c
}

// WithThreads returns a copy of c with NumThreads set.
func (c Config) WithThreads(n int) Config {
	c.NumThreads = n
	return c
}

// WithSeed returns a copy of c seeded deterministically.
func (c Config) WithSeed(seed uint64) Config {
	c.Seed = &seed
	return c
}

// WithSampling returns a copy of c with Sampling set.
func (c Config) WithSampling(mode SamplingMode) Config {
	c.Sampling = mode
	return c
}

// WithMinIterationsForConvergence returns a copy of c with
// MinIterationsForConvergence set.
func (c Config) WithMinIterationsForConvergence(n int64) Config {
	c.MinIterationsForConvergence = n
	return c
}

var negInf = math.Inf(-1)
var posInf = math.Inf(1)
