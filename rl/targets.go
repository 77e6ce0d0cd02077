package rl

import (
	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/types"
)

// MaxTarget is the off-policy Q-learning target max_a Q(s', a), independent of
// the action taken next
func MaxTarget(q policies.QFunction, nextState types.State, _ types.Action, actions []types.Action) (float64, error) {
	_, value, err := q.Max(nextState, actions)
	return value, err
}

// SampledTarget is the on-policy SARSA target Q(s', a') of the action taken next
func SampledTarget(q policies.QFunction, nextState types.State, nextAction types.Action, _ []types.Action) (float64, error) {
	return q.Get(nextState, nextAction), nil
}

var _ TargetFunc = MaxTarget
var _ TargetFunc = SampledTarget

// NewQLearning creates an off-policy learner
func NewQLearning(p types.Problem, bandit policies.Bandit, q policies.QFunction, alpha float64, opts ...Option) (*Learner, error) {
	return NewLearner(p, bandit, q, alpha, MaxTarget, opts...)
}

// NewSARSA creates an on-policy learner
func NewSARSA(p types.Problem, bandit policies.Bandit, q policies.QFunction, alpha float64, opts ...Option) (*Learner, error) {
	return NewLearner(p, bandit, q, alpha, SampledTarget, opts...)
}
