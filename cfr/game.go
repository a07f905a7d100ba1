// Package cfr implements counterfactual regret minimization for extensive-form
// games of imperfect information: external-sampling Monte Carlo CFR with
// optional CFR+, Linear CFR, and Discounted CFR, plus a drift-based
// convergence indicator and a Monte Carlo exploitability estimator.
package cfr

// Game is the capability a concrete extensive-form game offers the solver.
// Implementations must not mutate a State in place; Apply produces a
// successor and leaves its input untouched.
//
// S is the game state type, A is the action type. Both are expected to be
// small, cheaply copyable values.
type Game[S any, A any] interface {
	// InitialState produces a root state. It may be a chance node.
	InitialState() S

	// IsTerminal reports whether state has no further actions.
	IsTerminal(state S) bool

	// Payoff returns the utility of a terminal state for player. Behavior is
	// undefined if state is not terminal.
	Payoff(state S, player int) float64

	// CurrentPlayer returns the acting player, or ok=false at terminal and
	// chance nodes.
	CurrentPlayer(state S) (player int, ok bool)

	// NumPlayers is fixed for the lifetime of the game.
	NumPlayers() int

	// Actions returns the actions available at state in a deterministic
	// order; that order is the action index used throughout the regret
	// store. Must be non-empty whenever CurrentPlayer returns ok=true.
	Actions(state S) []A

	// Apply returns the successor of state after action, without mutating
	// state.
	Apply(state S, action A) S

	// InfoState projects state down to what the acting player can observe.
	// Two states that look identical to that player must produce equal
	// keys; Actions(state) must have the same length for every state
	// sharing a key.
	InfoState(state S) string

	// IsChance reports whether state is a chance node.
	IsChance(state S) bool

	// SampleChance draws an outcome at a chance node. Only called when
	// IsChance reports true for state.
	SampleChance(state S, rng Rand) S
}

// ActionLabeler is an optional extension a Game may implement to attach a
// human-readable name to an action, recorded once per info set on first
// write and used only for diagnostics.
type ActionLabeler[A any] interface {
	ActionLabel(action A) string
}

// Rand is the random source handed to SampleChance and used internally by
// the traversal kernel. *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}
