package types

import (
	"errors"
	"fmt"
)

var (
	// ErrModelRequired is returned when a solver needs the states and transitions
	// of a problem that only supports simulation
	ErrModelRequired = errors.New("problem does not expose a full model (states/transitions)")
	// ErrEnvironmentRequired is returned when a problem can neither be stepped nor simulated
	ErrEnvironmentRequired = errors.New("problem cannot be simulated")
	// ErrNoActions is returned when an action has to be picked from an empty set
	ErrNoActions = errors.New("empty action set")
)

// DistributionError is returned when the outcomes of a (state, action) pair do not
// cover the sampled probability mass
type DistributionError struct {
	State  State
	Action Action
	// Total probability of the listed outcomes
	Total float64
}

func (e *DistributionError) Error() string {
	if e.State == nil || e.Action == nil {
		return fmt.Sprintf("transition distribution sums to %g, no outcome sampled", e.Total)
	}
	return fmt.Sprintf("transition distribution of action %s in state %s sums to %g, no outcome sampled",
		e.Action.Hash(), e.State.Hash(), e.Total)
}
