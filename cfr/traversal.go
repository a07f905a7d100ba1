package cfr

// traversalContext carries the per-traversal resources threaded through walk:
// the sampling RNG, the CFR-variant options in effect for this iteration, and
// an optional instrumentation sink.
type traversalContext[S any, A any] struct {
	game         Game[S, A]
	rng          Rand
	iteration    int64
	cfgPlus      bool
	cfgLinear    bool
	regretFloor  float64
	exploreEps   float64
	samplingMode SamplingMode
	store        *regretStore
	nodes        int64
}

// walk is the MCCFR traversal kernel: one recursive pass through the tree
// computing the traverser's expected payoff and, along the way, updating the
// regret store at every node belonging to the traverser.
func walk[S any, A any](ctx *traversalContext[S, A], state S, traverser int, reach []float64) float64 {
	ctx.nodes++
	g := ctx.game

	if g.IsTerminal(state) {
		return g.Payoff(state, traverser)
	}

	if g.IsChance(state) {
		next := g.SampleChance(state, ctx.rng)
		return walk(ctx, next, traverser, reach)
	}

	player, ok := g.CurrentPlayer(state)
	if !ok {
		return g.Payoff(state, traverser)
	}

	actions := g.Actions(state)
	n := len(actions)
	if n == 0 {
		return g.Payoff(state, traverser)
	}

	key := g.InfoState(state)
	strategy := ctx.store.currentStrategy(key, n)

	if player == traverser {
		return walkTraverser(ctx, state, traverser, reach, actions, strategy, key)
	}
	if ctx.samplingMode == SamplingModeFullTraversal {
		return walkFull(ctx, state, traverser, reach, actions, strategy, player)
	}
	return walkSampled(ctx, state, traverser, reach, actions, strategy, player)
}

// walkFull handles a decision node belonging to an opponent of the traverser
// under full (vanilla) traversal: expand every action and return the
// strategy-weighted expectation, instead of sampling one.
func walkFull[S any, A any](ctx *traversalContext[S, A], state S, traverser int, reach []float64, actions []A, strategy []float64, player int) float64 {
	g := ctx.game
	expected := 0.0
	for i, action := range actions {
		next := g.Apply(state, action)
		nextReach := make([]float64, len(reach))
		copy(nextReach, reach)
		nextReach[player] *= strategy[i]
		expected += strategy[i] * walk(ctx, next, traverser, nextReach)
	}
	return expected
}

// walkTraverser handles a decision node belonging to the traverser: explore
// every action, accumulate counterfactual regret, and update the strategy
// sum used for the average (equilibrium) strategy.
func walkTraverser[S any, A any](ctx *traversalContext[S, A], state S, traverser int, reach []float64, actions []A, strategy []float64, key string) float64 {
	g := ctx.game
	n := len(actions)
	values := make([]float64, n)
	nodeValue := 0.0

	for i, action := range actions {
		next := g.Apply(state, action)
		nextReach := make([]float64, len(reach))
		copy(nextReach, reach)
		nextReach[traverser] *= strategy[i]

		values[i] = walk(ctx, next, traverser, nextReach)
		nodeValue += strategy[i] * values[i]
	}

	delta := make([]float64, n)
	for i, v := range values {
		delta[i] = v - nodeValue
	}

	e := ctx.store.get(key, n)
	e.updateRegret(delta, ctx.cfgPlus, ctx.regretFloor)

	if labeler, ok := g.(ActionLabeler[A]); ok {
		labels := make([]string, n)
		for i, a := range actions {
			labels[i] = labeler.ActionLabel(a)
		}
		e.setActionLabels(labels)
	}

	weight := reach[traverser]
	if ctx.cfgLinear {
		weight *= float64(ctx.iteration)
	}
	e.updateStrategySum(strategy, weight)

	return nodeValue
}

// walkSampled handles a decision node belonging to an opponent of the
// traverser: sample a single action under external sampling (with
// probability exploreEps uniformly, otherwise from the current strategy) and
// recurse into it only.
func walkSampled[S any, A any](ctx *traversalContext[S, A], state S, traverser int, reach []float64, actions []A, strategy []float64, player int) float64 {
	n := len(actions)
	var idx int
	if ctx.exploreEps > 0 && ctx.rng.Float64() < ctx.exploreEps {
		idx = ctx.rng.IntN(n)
	} else {
		idx, _ = sampleIndex(strategy, ctx.rng)
	}

	nextReach := make([]float64, len(reach))
	copy(nextReach, reach)
	nextReach[player] *= strategy[idx]

	next := ctx.game.Apply(state, actions[idx])
	return walk(ctx, next, traverser, nextReach)
}

// sampleIndex draws an index from strategy via inverse-CDF sampling on a
// single uniform draw. Falls back to the last action on floating-point
// underflow (cumulative sum never reaching the draw).
func sampleIndex(strategy []float64, rng Rand) (int, float64) {
	if len(strategy) == 0 {
		return 0, 0
	}
	r := rng.Float64()
	cumulative := 0.0
	for i, p := range strategy {
		cumulative += p
		if r < cumulative {
			return i, p
		}
	}
	last := len(strategy) - 1
	return last, strategy[last]
}
