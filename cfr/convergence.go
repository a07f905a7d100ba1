package cfr

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// Snapshot is an opaque, read-only copy of every info set's average strategy
// at the moment it was taken, used by Drift to measure how much the
// strategy has moved since.
type Snapshot = snapshot

// drift computes the Convergence Indicator: the mean per-key total variation
// between a prior snapshot and the store's current average strategies. Keys
// unvisited in both the snapshot and the current store are skipped; keys new
// since the snapshot are compared against a uniform prior.
func (s *regretStore) drift(prev Snapshot) float64 {
	current := s.snapshotAverageStrategies()

	totalChange := 0.0
	counted := 0

	seen := make(map[string]struct{}, len(current.strategy)+len(prev.strategy))
	for k := range current.strategy {
		seen[k] = struct{}{}
	}
	for k := range prev.strategy {
		seen[k] = struct{}{}
	}

	for key := range seen {
		curTotal, curOK := current.actionTotal[key]
		oldTotal, oldOK := prev.actionTotal[key]
		curVisited := curOK && curTotal > 0
		oldVisited := oldOK && oldTotal > 0
		if !curVisited && !oldVisited {
			continue
		}

		newStrat := current.strategy[key]
		change := 0.0
		if oldVisited {
			oldStrat := prev.strategy[key]
			for i := range newStrat {
				change += math.Abs(newStrat[i] - oldStrat[i])
			}
		} else {
			n := len(newStrat)
			uniformP := 1.0 / float64(n)
			for i := range newStrat {
				change += math.Abs(newStrat[i] - uniformP)
			}
		}
		totalChange += change
		counted++
	}

	if counted == 0 {
		return math.Inf(1)
	}
	return 100 * totalChange / float64(counted)
}

// exploitability estimates, via Monte Carlo sampling of the chance nodes,
// how much a best-responding adversary would gain against the store's
// current average strategy. The result is accumulated best-response value
// minus average-strategy value, averaged over samples and players; it
// shrinks towards zero as the average strategy approaches a Nash
// equilibrium. parallelism bounds how many samples run concurrently.
func exploitability[S any, A any](ctx context.Context, game Game[S, A], store *regretStore, rng *randSource, samples int, parallelism int) (float64, error) {
	numPlayers := game.NumPlayers()
	if samples <= 0 || numPlayers == 0 {
		return 0, nil
	}
	if parallelism <= 0 {
		parallelism = 1
	}

	results := make([]float64, samples)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for s := 0; s < samples; s++ {
		idx := s
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			sampleRNG := rng.child(idx)
			total := 0.0
			for exploiter := 0; exploiter < numPlayers; exploiter++ {
				root := game.InitialState()
				br := bestResponseValue(game, store, sampleRNG, root, exploiter)
				root = game.InitialState()
				sv := strategyValue(game, store, sampleRNG, root, exploiter)
				total += br - sv
			}
			results[idx] = total
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	sum := 0.0
	for _, v := range results {
		sum += v
	}
	return sum / (float64(samples) * float64(numPlayers)), nil
}

// bestResponseValue computes the value exploiter achieves by best-responding
// at their own nodes while the rest of the tree plays the average strategy.
func bestResponseValue[S any, A any](game Game[S, A], store *regretStore, rng Rand, state S, exploiter int) float64 {
	if game.IsTerminal(state) {
		return game.Payoff(state, exploiter)
	}
	if game.IsChance(state) {
		return bestResponseValue(game, store, rng, game.SampleChance(state, rng), exploiter)
	}

	player, ok := game.CurrentPlayer(state)
	if !ok {
		return game.Payoff(state, exploiter)
	}
	actions := game.Actions(state)
	if len(actions) == 0 {
		return game.Payoff(state, exploiter)
	}

	if player == exploiter {
		best := math.Inf(-1)
		for _, action := range actions {
			v := bestResponseValue(game, store, rng, game.Apply(state, action), exploiter)
			if v > best {
				best = v
			}
		}
		return best
	}

	key := game.InfoState(state)
	strategy := store.averageStrategy(key, len(actions))
	expected := 0.0
	for i, action := range actions {
		v := bestResponseValue(game, store, rng, game.Apply(state, action), exploiter)
		expected += strategy[i] * v
	}
	return expected
}

// strategyValue computes the value player receives when every seat,
// including player's own, follows the average strategy.
func strategyValue[S any, A any](game Game[S, A], store *regretStore, rng Rand, state S, player int) float64 {
	if game.IsTerminal(state) {
		return game.Payoff(state, player)
	}
	if game.IsChance(state) {
		return strategyValue(game, store, rng, game.SampleChance(state, rng), player)
	}
	if _, ok := game.CurrentPlayer(state); !ok {
		return game.Payoff(state, player)
	}
	actions := game.Actions(state)
	if len(actions) == 0 {
		return game.Payoff(state, player)
	}

	key := game.InfoState(state)
	strategy := store.averageStrategy(key, len(actions))
	expected := 0.0
	for i, action := range actions {
		v := strategyValue(game, store, rng, game.Apply(state, action), player)
		expected += strategy[i] * v
	}
	return expected
}
