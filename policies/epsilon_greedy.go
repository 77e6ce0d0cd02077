package policies

import (
	"github.com/zeu5/tabular-rl/types"
	"golang.org/x/exp/rand"
)

// EpsilonGreedy picks a uniformly random action with probability epsilon
// and the action with the highest Q-value otherwise
type EpsilonGreedy struct {
	epsilon float64
	rand    *rand.Rand
}

var _ Bandit = &EpsilonGreedy{}

func NewEpsilonGreedy(epsilon float64, src rand.Source) (*EpsilonGreedy, error) {
	if epsilon < 0 || epsilon > 1 {
		return nil, ErrInvalidEpsilon
	}
	return &EpsilonGreedy{
		epsilon: epsilon,
		rand:    rand.New(src),
	}, nil
}

func (e *EpsilonGreedy) Epsilon() float64 {
	return e.epsilon
}

// SetEpsilon changes the exploration rate, for callers decaying it between episodes
func (e *EpsilonGreedy) SetEpsilon(epsilon float64) error {
	if epsilon < 0 || epsilon > 1 {
		return ErrInvalidEpsilon
	}
	e.epsilon = epsilon
	return nil
}

func (e *EpsilonGreedy) Select(state types.State, actions []types.Action, q QFunction) (types.Action, error) {
	if len(actions) == 0 {
		return nil, types.ErrNoActions
	}
	if e.rand.Float64() < e.epsilon {
		return actions[e.rand.Intn(len(actions))], nil
	}
	action, _, err := q.Max(state, actions)
	return action, err
}

func (e *EpsilonGreedy) Reset() {}
