package types

import "golang.org/x/exp/rand"

// State of the problem that solvers and learners observe
type State interface {
	// Indexed by the Hash
	// Should be deterministic
	Hash() string
}

// An Action that a policy can take
type Action interface {
	// Index of the action
	// Should be deterministic
	Hash() string
}

// Problem is the part of the MDP every concrete problem exposes,
// regardless of whether the full model is available.
type Problem interface {
	// InitialState where every episode starts
	InitialState() State
	// Actions legal in the state, empty when there is no further choice
	Actions(State) []Action
	// IsTerminal is true for absorbing states that end an episode
	IsTerminal(State) bool
	// DiscountFactor of the problem, in [0, 1]
	DiscountFactor() float64
}

// Environment is the simulation-only capability.
// Step returns the next state and the reward received on the transition.
type Environment interface {
	Problem
	Step(State, Action) (State, float64, error)
}

// Transition is one outcome of taking an action in a state
type Transition struct {
	Next        State
	Probability float64
}

// Model is the full-model capability needed by dynamic programming.
// Probabilities of the transitions of a (state, action) pair sum to 1,
// or to 0 for the self loop that represents an exit.
type Model interface {
	Problem
	// States enumerates the finite state space
	States() []State
	Transitions(State, Action) []Transition
	Reward(State, Action, State) float64
}

// StateRewarder is implemented by models whose reward depends only on the
// state being left, R(s). Backups then take the form R(s) + γ·max_a Σ P·V.
type StateRewarder interface {
	StateReward(State) float64
}

// AsModel returns the full-model view of the problem or ErrModelRequired
func AsModel(p Problem) (Model, error) {
	m, ok := p.(Model)
	if !ok {
		return nil, ErrModelRequired
	}
	return m, nil
}

// AsEnvironment returns the simulation view of the problem. Problems that only
// expose a model are simulated by sampling their transitions with src.
func AsEnvironment(p Problem, src rand.Source) (Environment, error) {
	if env, ok := p.(Environment); ok {
		return env, nil
	}
	m, ok := p.(Model)
	if !ok || src == nil {
		return nil, ErrEnvironmentRequired
	}
	return NewSimulator(m, src), nil
}

// SameAction compares actions by their hash. Nil actions are only equal to nil.
func SameAction(a, b Action) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Hash() == b.Hash()
}

// ContainsAction checks if the action is among the given ones
func ContainsAction(actions []Action, a Action) bool {
	for _, other := range actions {
		if SameAction(other, a) {
			return true
		}
	}
	return false
}
