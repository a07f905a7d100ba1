package cfr_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/cfrsolver/cfr"
	"github.com/lox/cfrsolver/examples/threecard"
)

func newTestSolver(t *testing.T, seed uint64) *cfr.Solver[threecard.State, threecard.Action] {
	t.Helper()
	cfg := cfr.DefaultConfig().WithSeed(seed).WithThreads(1)
	s, err := cfr.New[threecard.State, threecard.Action](threecard.New(), cfg)
	require.NoError(t, err)
	return s
}

func TestRunIterationIsDeterministicSingleThreaded(t *testing.T) {
	a := newTestSolver(t, 42)
	b := newTestSolver(t, 42)

	for i := 0; i < 200; i++ {
		a.RunIteration()
		b.RunIteration()
	}

	for _, key := range []string{"J:", "Q:", "K:", "J:p", "Q:p", "K:p"} {
		sa := a.GetAverageStrategy(key, 2)
		sb := b.GetAverageStrategy(key, 2)
		require.Equal(t, sa, sb, "average strategy at %q should be bitwise identical", key)
	}
}

func TestAverageStrategySumsToOne(t *testing.T) {
	s := newTestSolver(t, 1)
	for i := 0; i < 500; i++ {
		s.RunIteration()
	}
	for _, key := range []string{"J:", "Q:", "K:"} {
		strat := s.GetAverageStrategy(key, 2)
		require.InDelta(t, 1.0, strat[0]+strat[1], 1e-9, "average strategy at %q", key)
	}
}

func TestCurrentStrategySumsToOne(t *testing.T) {
	s := newTestSolver(t, 1)
	for i := 0; i < 500; i++ {
		s.RunIteration()
	}
	for _, key := range []string{"J:", "Q:", "K:"} {
		strat := s.GetCurrentStrategy(key, 2)
		require.InDelta(t, 1.0, strat[0]+strat[1], 1e-9, "current strategy at %q", key)
	}
}

func TestUniformFallbackForUnseenKey(t *testing.T) {
	s := newTestSolver(t, 1)
	require.Equal(t, []float64{0.5, 0.5}, s.GetAverageStrategy("never-visited", 2))
	require.Equal(t, []float64{0.5, 0.5}, s.GetCurrentStrategy("never-visited", 2))
}

func TestResetClearsStoreAndIteration(t *testing.T) {
	s := newTestSolver(t, 7)
	s.Train(100)
	require.NotZero(t, s.Iteration())
	require.NotZero(t, s.InfoSetCount())

	s.Reset()
	require.Zero(t, s.Iteration())
	require.Zero(t, s.InfoSetCount())
}

func TestCheckpointRoundTripResumesTraining(t *testing.T) {
	const seed = uint64(99)

	continuous := newTestSolver(t, seed)
	continuous.Train(400)

	resumed := newTestSolver(t, seed)
	resumed.Train(200)

	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, resumed.SaveCheckpoint(path))

	reloaded := newTestSolver(t, seed)
	require.NoError(t, reloaded.LoadCheckpoint(path))
	require.Equal(t, int64(200), reloaded.Iteration())

	reloaded.Train(200)
	require.Equal(t, continuous.Iteration(), reloaded.Iteration())

	for _, key := range []string{"J:", "Q:", "K:"} {
		want := continuous.GetAverageStrategy(key, 2)
		got := reloaded.GetAverageStrategy(key, 2)
		for i := range want {
			require.InDelta(t, want[i], got[i], 1e-9, "checkpoint resume diverged at %q[%d]", key, i)
		}
	}
}

func TestTrainUntilConvergedReportsDriftAndHonorsMaxIterations(t *testing.T) {
	s := newTestSolver(t, 3)
	result := s.TrainUntilConverged(context.Background(), 0.01, 1000, 6000, nil)
	require.GreaterOrEqual(t, result.Iterations, int64(6000))
	require.False(t, math.IsInf(result.FinalCI, 0), "drift should be measured once past the warmup")
	if result.Converged {
		require.GreaterOrEqual(t, result.Iterations, int64(5000), "convergence declared before the safety floor")
	}
}

func TestTrainReportsElapsedViaMockClock(t *testing.T) {
	s := newTestSolver(t, 3)
	mockClock := quartz.NewMock(t)
	s.SetClock(mockClock)

	advanced := false
	stats := s.TrainWithCallback(3, 1, func(cfr.Stats) {
		if !advanced {
			mockClock.Advance(5 * time.Second).MustWait(context.Background())
			advanced = true
		}
	})
	require.InDelta(t, 5.0, stats.ElapsedSeconds, 1e-9)
}

func TestMinIterationsForConvergenceIsConfigurable(t *testing.T) {
	cfg := cfr.DefaultConfig().WithSeed(5).WithThreads(1).WithMinIterationsForConvergence(1000)
	s, err := cfr.New[threecard.State, threecard.Action](threecard.New(), cfg)
	require.NoError(t, err)

	result := s.TrainUntilConverged(context.Background(), 1e9, 200, 1200, nil)
	require.True(t, result.Converged)
	require.GreaterOrEqual(t, result.Iterations, int64(1000))
}

func TestRecordExploitabilityAccumulatesHistory(t *testing.T) {
	s := newTestSolver(t, 9)
	s.Train(500)

	v1, err := s.RecordExploitability(context.Background(), 50)
	require.NoError(t, err)
	s.Train(500)
	v2, err := s.RecordExploitability(context.Background(), 50)
	require.NoError(t, err)

	stats := s.Train(0)
	require.Len(t, stats.ExploitabilityHistory, 2)
	require.Equal(t, v1, stats.ExploitabilityHistory[0].Value)
	require.Equal(t, v2, stats.ExploitabilityHistory[1].Value)
	require.Less(t, stats.ExploitabilityHistory[0].Iteration, stats.ExploitabilityHistory[1].Iteration)
}

func TestFullTraversalSamplingModeAverageStrategySumsToOne(t *testing.T) {
	cfg := cfr.VanillaConfig().WithSeed(21).WithThreads(1).WithSampling(cfr.SamplingModeFullTraversal).WithExploration(0)
	s, err := cfr.New[threecard.State, threecard.Action](threecard.New(), cfg)
	require.NoError(t, err)
	s.Train(300)

	for _, key := range []string{"J:", "Q:", "K:"} {
		strat := s.GetAverageStrategy(key, 2)
		require.InDelta(t, 1.0, strat[0]+strat[1], 1e-9, "average strategy at %q", key)
	}
}

func TestExploitabilityDecreasesWithTraining(t *testing.T) {
	early := newTestSolver(t, 11)
	early.Train(200)
	earlyExploit, err := early.CalculateExploitability(context.Background(), 200)
	require.NoError(t, err)

	trained := newTestSolver(t, 11)
	trained.Train(20000)
	trainedExploit, err := trained.CalculateExploitability(context.Background(), 200)
	require.NoError(t, err)

	require.Less(t, trainedExploit, earlyExploit)
}
