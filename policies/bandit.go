package policies

import (
	"errors"

	"github.com/zeu5/tabular-rl/types"
)

var (
	ErrInvalidEpsilon     = errors.New("epsilon must be in [0, 1]")
	ErrInvalidTemperature = errors.New("softmax temperature must be positive")
	ErrUnknownAction      = errors.New("action is not among the legal actions")
)

// Bandit is an action selection strategy balancing exploration and exploitation
type Bandit interface {
	// Select an action for the state among the given ones using the Q-function estimates
	Select(types.State, []types.Action, QFunction) (types.Action, error)
	// Reset the strategy to its initial configuration
	Reset()
}

// Greedy always exploits the current Q-function estimates
type Greedy struct{}

var _ Bandit = Greedy{}

func NewGreedy() Greedy {
	return Greedy{}
}

func (Greedy) Select(state types.State, actions []types.Action, q QFunction) (types.Action, error) {
	action, _, err := q.Max(state, actions)
	return action, err
}

func (Greedy) Reset() {}
