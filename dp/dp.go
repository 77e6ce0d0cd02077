// Package dp solves fully specified MDPs with dynamic programming:
// Value Iteration and Policy Iteration. Both need the full model of the
// problem and fail with types.ErrModelRequired otherwise.
package dp

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/types"
)

var (
	// ErrUnbounded is returned when convergence cannot be guaranteed
	// (discount factor >= 1) and no iteration cap was given
	ErrUnbounded = errors.New("discount factor >= 1 requires an iteration cap")
	// ErrInvalidPolicy is returned when the evaluated policy picks an illegal action
	ErrInvalidPolicy = errors.New("policy action is not legal in state")
	// ErrInvalidDiscount is returned for discount factors outside [0, 1]
	ErrInvalidDiscount = errors.New("discount factor must be in [0, 1]")
)

type options struct {
	logger        zerolog.Logger
	maxIterations int
	maxSweeps     int
}

// Option configures the solvers
type Option func(*options)

// WithLogger sets the logger used to report sweeps and convergence
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMaxIterations caps the number of Value Iteration sweeps, 0 means no cap
func WithMaxIterations(n int) Option {
	return func(o *options) {
		o.maxIterations = n
	}
}

// WithMaxSweeps caps the number of sweeps of each Policy Iteration evaluation, 0 means no cap
func WithMaxSweeps(n int) Option {
	return func(o *options) {
		o.maxSweeps = n
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func checkDiscount(m types.Model, capped bool) error {
	gamma := m.DiscountFactor()
	if gamma < 0 || gamma > 1 {
		return ErrInvalidDiscount
	}
	if gamma >= 1 && !capped {
		return ErrUnbounded
	}
	return nil
}

// backup is the Bellman optimality backup of a state. States without actions keep
// their immediate reward, R(s) for state rewarded models and 0 otherwise.
func backup(m types.Model, values *policies.ValueTable, state types.State) (float64, error) {
	actions := m.Actions(state)
	if len(actions) == 0 {
		if sr, ok := m.(types.StateRewarder); ok {
			return sr.StateReward(state), nil
		}
		return 0, nil
	}
	_, best, err := values.Max(m, state, actions)
	return best, err
}

// InitialPolicy picks the first legal action of every state
func InitialPolicy(p types.Problem) (*policies.PolicyTable, error) {
	m, err := types.AsModel(p)
	if err != nil {
		return nil, err
	}
	policy := policies.NewPolicyTable(nil)
	for _, s := range m.States() {
		actions := m.Actions(s)
		if len(actions) > 0 {
			policy.Update(s, actions[0])
		}
	}
	return policy, nil
}
