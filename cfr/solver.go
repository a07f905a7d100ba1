package cfr

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
)

// Stats summarizes a training run.
type Stats struct {
	Iterations            int64
	InfoSetCount          int
	ElapsedSeconds        float64
	IterationsPerSecond   float64
	ExploitabilityHistory []ExploitabilityPoint
}

// ExploitabilityPoint is one measurement recorded by RecordExploitability.
type ExploitabilityPoint struct {
	Iteration int64
	Value     float64
}

// ConvergenceResult is returned by TrainUntilConverged.
type ConvergenceResult struct {
	Converged      bool
	FinalCI        float64
	Iterations     int64
	ElapsedSeconds float64
}

// ConvergenceStats is reported to the observer callback in CI-target mode.
type ConvergenceStats struct {
	Iteration           int64
	CI                  float64
	InfoSetCount        int
	ElapsedSeconds      float64
	IterationsPerSecond float64
}

// Solver is the CFR façade: it owns the regret store, the configuration, and
// the iteration counter, and exposes the loop controllers that drive the
// traversal kernel (component C) and the convergence monitor (component D).
type Solver[S any, A any] struct {
	game      Game[S, A]
	config    Config
	store     *regretStore
	iteration int64
	seed      uint64
	pcg       *rand.PCG
	rng       *rand.Rand
	clock     quartz.Clock

	exploitMu      sync.Mutex
	exploitHistory []ExploitabilityPoint
}

// SetClock overrides the solver's clock, used to substitute
// quartz.NewMock() in tests so elapsed-time reporting can be controlled
// exactly instead of by sleeping. The zero Solver is not usable; this must
// be called on a Solver returned by New or NewWithCapacity.
func (s *Solver[S, A]) SetClock(clock quartz.Clock) {
	s.clock = clock
}

// New constructs a solver for game under config. An invalid config (see
// Config.Validate) returns an error.
func New[S any, A any](game Game[S, A], config Config) (*Solver[S, A], error) {
	return NewWithCapacity(game, config, 0)
}

// NewWithCapacity is New but pre-sizing the regret store's shard maps for
// capacityHint total info sets, avoiding rehashing during early training on
// large games. A capacityHint of 0 behaves like New.
func NewWithCapacity[S any, A any](game Game[S, A], config Config, capacityHint int) (*Solver[S, A], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var seed uint64
	if config.Seed != nil {
		seed = *config.Seed
	} else {
		seed = rand.Uint64()
	}

	store := newRegretStore()
	if capacityHint > 0 {
		perShard := capacityHint/regretShardCount + 1
		for i := range store.shards {
			store.shards[i].entries = make(map[string]*entry, perShard)
		}
	}

	pcg := newPCG(seed)
	return &Solver[S, A]{
		game:   game,
		config: config,
		store:  store,
		seed:   seed,
		pcg:    pcg,
		rng:    rand.New(pcg),
		clock:  quartz.NewReal(),
	}, nil
}

// RunIteration executes one full MCCFR iteration: applies configured
// discounting, then traverses the tree once per player.
func (s *Solver[S, A]) RunIteration() {
	s.iteration++

	if s.config.RegretDiscount != nil {
		s.store.discountAllRegrets(*s.config.RegretDiscount)
	}
	if s.config.StrategyDiscount != nil {
		s.store.discountAllStrategySums(*s.config.StrategyDiscount)
	}

	numPlayers := s.game.NumPlayers()
	threads := s.config.threads()
	if threads > numPlayers {
		threads = numPlayers
	}
	if threads <= 1 {
		for player := 0; player < numPlayers; player++ {
			s.traverseOnePlayer(s.rng, player)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(threads)
	for player := 0; player < numPlayers; player++ {
		p := player
		childRNG := childRand(s.seed^uint64(s.iteration), p)
		g.Go(func() error {
			s.traverseOnePlayer(childRNG, p)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Solver[S, A]) traverseOnePlayer(rng Rand, player int) {
	reach := make([]float64, s.game.NumPlayers())
	for i := range reach {
		reach[i] = 1.0
	}
	ctx := &traversalContext[S, A]{
		game:         s.game,
		rng:          rng,
		iteration:    s.iteration,
		cfgPlus:      s.config.UseCFRPlus,
		cfgLinear:    s.config.UseLinearCFR,
		regretFloor:  s.config.RegretFloor,
		exploreEps:   s.config.Exploration,
		samplingMode: s.config.Sampling,
		store:        s.store,
	}
	walk(ctx, s.game.InitialState(), player, reach)
}

// Train runs iterations sequential iterations and returns final statistics.
func (s *Solver[S, A]) Train(iterations int64) Stats {
	start := s.clock.Now()
	for i := int64(0); i < iterations; i++ {
		s.RunIteration()
	}
	return s.statsSince(start)
}

// TrainWithCallback is Train but invokes callback every interval iterations
// with a progress snapshot.
func (s *Solver[S, A]) TrainWithCallback(iterations int64, interval int64, callback func(Stats)) Stats {
	start := s.clock.Now()
	for i := int64(0); i < iterations; i++ {
		s.RunIteration()
		if interval > 0 && (i+1)%interval == 0 && callback != nil {
			callback(s.statsSince(start))
		}
	}
	return s.statsSince(start)
}

// TrainUntilConverged runs batches of batchSize iterations, measuring the
// drift-based Convergence Indicator against the previous batch's snapshot
// after each batch. It stops once CI <= targetCI and the iteration count has
// reached Config.MinIterationsForConvergence (5,000 by default), or once
// maxIterations is reached
// (0 means unlimited), whichever comes first. The first CI measurement is
// only meaningful after the initial warmup of max(batchSize, 1000)
// iterations; until then CI is reported as +Inf. ctx cancellation is
// honored between batches.
func (s *Solver[S, A]) TrainUntilConverged(ctx context.Context, targetCI float64, batchSize int64, maxIterations int64, observer func(ConvergenceStats)) ConvergenceResult {
	minIterationsForConvergence := s.config.minIterationsForConvergence()
	warmup := batchSize
	if warmup < 1000 {
		warmup = 1000
	}

	start := s.clock.Now()
	var prev *Snapshot
	currentCI := posInf

	for {
		select {
		case <-ctx.Done():
			return ConvergenceResult{
				Converged:      false,
				FinalCI:        currentCI,
				Iterations:     s.iteration,
				ElapsedSeconds: s.clock.Now().Sub(start).Seconds(),
			}
		default:
		}

		for i := int64(0); i < batchSize; i++ {
			s.RunIteration()
		}

		elapsed := s.clock.Now().Sub(start).Seconds()
		ips := 0.0
		if elapsed > 0 {
			ips = float64(s.iteration) / elapsed
		}

		if s.iteration >= warmup {
			if prev == nil {
				snap := s.store.snapshotAverageStrategies()
				prev = &snap
				if observer != nil {
					observer(ConvergenceStats{
						Iteration:           s.iteration,
						CI:                  currentCI,
						InfoSetCount:        s.store.infoSetCount(),
						ElapsedSeconds:      elapsed,
						IterationsPerSecond: ips,
					})
				}
				if maxIterations > 0 && s.iteration >= maxIterations {
					return ConvergenceResult{Converged: false, FinalCI: currentCI, Iterations: s.iteration, ElapsedSeconds: elapsed}
				}
				continue
			}

			currentCI = s.store.drift(*prev)
			if observer != nil {
				observer(ConvergenceStats{
					Iteration:           s.iteration,
					CI:                  currentCI,
					InfoSetCount:        s.store.infoSetCount(),
					ElapsedSeconds:      elapsed,
					IterationsPerSecond: ips,
				})
			}

			if currentCI <= targetCI && s.iteration >= minIterationsForConvergence {
				return ConvergenceResult{Converged: true, FinalCI: currentCI, Iterations: s.iteration, ElapsedSeconds: elapsed}
			}

			snap := s.store.snapshotAverageStrategies()
			prev = &snap
		} else if observer != nil {
			observer(ConvergenceStats{
				Iteration:           s.iteration,
				CI:                  currentCI,
				InfoSetCount:        s.store.infoSetCount(),
				ElapsedSeconds:      elapsed,
				IterationsPerSecond: ips,
			})
		}

		if maxIterations > 0 && s.iteration >= maxIterations {
			return ConvergenceResult{
				Converged:      false,
				FinalCI:        currentCI,
				Iterations:     s.iteration,
				ElapsedSeconds: s.clock.Now().Sub(start).Seconds(),
			}
		}
	}
}

// GetCurrentStrategy returns the regret-matching strategy at key, given n
// available actions.
func (s *Solver[S, A]) GetCurrentStrategy(key string, n int) []float64 {
	return s.store.currentStrategy(key, n)
}

// GetAverageStrategy returns the time-averaged strategy at key, given n
// available actions. This is the strategy that converges to Nash
// equilibrium.
func (s *Solver[S, A]) GetAverageStrategy(key string, n int) []float64 {
	return s.store.averageStrategy(key, n)
}

// SnapshotAverageStrategies captures the current average strategy at every
// visited key, for later comparison via Drift.
func (s *Solver[S, A]) SnapshotAverageStrategies() Snapshot {
	return s.store.snapshotAverageStrategies()
}

// Drift computes the Convergence Indicator between prev and the solver's
// current average strategies. Interpretation: values above 20 are highly
// unstable, around 10 usable,
// around 1 near a fixed point. Drift does not itself define "converged" —
// that judgment belongs to the caller or to TrainUntilConverged.
func (s *Solver[S, A]) Drift(prev Snapshot) float64 {
	return s.store.drift(prev)
}

// CalculateExploitability estimates, via samples Monte Carlo chance
// rollouts per player, how much a best-responding adversary would gain
// against the current average strategy. Lower is better; 0 is an exact Nash
// equilibrium. The estimate's variance shrinks as 1/sqrt(samples).
func (s *Solver[S, A]) CalculateExploitability(ctx context.Context, samples int) (float64, error) {
	parallelism := s.config.threads()
	return exploitability(ctx, s.game, s.store, newRandSource(s.seed^uint64(s.iteration)), samples, parallelism)
}

// RecordExploitability measures exploitability via CalculateExploitability
// and appends the result, tagged with the current iteration, to the
// solver's exploitability history, returned thereafter from Stats via
// TrainWithCallback and Train. Safe to call concurrently with training.
func (s *Solver[S, A]) RecordExploitability(ctx context.Context, samples int) (float64, error) {
	value, err := s.CalculateExploitability(ctx, samples)
	if err != nil {
		return 0, err
	}
	s.exploitMu.Lock()
	s.exploitHistory = append(s.exploitHistory, ExploitabilityPoint{
		Iteration: s.iteration,
		Value:     value,
	})
	s.exploitMu.Unlock()
	return value, nil
}

// InfoSetCount returns the number of distinct information sets recorded.
func (s *Solver[S, A]) InfoSetCount() int {
	return s.store.infoSetCount()
}

// Iteration returns the number of completed iterations.
func (s *Solver[S, A]) Iteration() int64 {
	return s.iteration
}

// Reset returns the solver to iteration 0 with an empty regret store and an
// empty exploitability history.
func (s *Solver[S, A]) Reset() {
	s.store.clear()
	s.iteration = 0
	s.exploitMu.Lock()
	s.exploitHistory = nil
	s.exploitMu.Unlock()
}

func (s *Solver[S, A]) statsSince(start time.Time) Stats {
	elapsed := s.clock.Now().Sub(start).Seconds()
	ips := 0.0
	if elapsed > 0 {
		ips = float64(s.iteration) / elapsed
	}
	s.exploitMu.Lock()
	history := append([]ExploitabilityPoint(nil), s.exploitHistory...)
	s.exploitMu.Unlock()
	return Stats{
		Iterations:            s.iteration,
		InfoSetCount:          s.store.infoSetCount(),
		ElapsedSeconds:        elapsed,
		IterationsPerSecond:   ips,
		ExploitabilityHistory: history,
	}
}
