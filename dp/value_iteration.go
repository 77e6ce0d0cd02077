package dp

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/types"
)

// ErrInvalidThreshold is returned for non positive convergence thresholds
var ErrInvalidThreshold = errors.New("convergence threshold must be positive")

// ValueIteration computes the optimal value function with in place Bellman
// optimality sweeps and extracts the greedy policy from it
type ValueIteration struct {
	model types.Model
	opts  *options

	values     *policies.ValueTable
	policy     *policies.PolicyTable
	iterations int
	converged  bool
}

func NewValueIteration(p types.Problem, opts ...Option) (*ValueIteration, error) {
	m, err := types.AsModel(p)
	if err != nil {
		return nil, fmt.Errorf("value iteration: %w", err)
	}
	o := newOptions(opts)
	if err := checkDiscount(m, o.maxIterations > 0); err != nil {
		return nil, fmt.Errorf("value iteration: %w", err)
	}
	return &ValueIteration{
		model:  m,
		opts:   o,
		values: policies.NewValueTable(),
	}, nil
}

// Solve sweeps until the largest change of a sweep is below ε·(1-γ)/γ, which keeps
// the greedy policy within ε of optimal. With γ = 0 (or γ >= 1 and a sweep cap)
// the bound is undefined and ε is used directly.
func (v *ValueIteration) Solve(epsilon float64) (*policies.PolicyTable, *policies.ValueTable, error) {
	if epsilon <= 0 {
		return nil, nil, ErrInvalidThreshold
	}
	gamma := v.model.DiscountFactor()
	threshold := epsilon
	if gamma > 0 && gamma < 1 {
		threshold = epsilon * (1 - gamma) / gamma
	}
	logger := v.opts.logger

	v.values = policies.NewValueTable()
	v.iterations = 0
	v.converged = false
	states := v.model.States()

	for v.opts.maxIterations <= 0 || v.iterations < v.opts.maxIterations {
		v.iterations++
		delta := 0.0
		for _, s := range states {
			newValue, err := backup(v.model, v.values, s)
			if err != nil {
				return nil, nil, fmt.Errorf("value iteration: state %s: %w", s.Hash(), err)
			}
			delta = math.Max(delta, math.Abs(newValue-v.values.Get(s)))
			v.values.Set(s, newValue)
		}
		logger.Debug().Int("iteration", v.iterations).Float64("delta", delta).Msg("value iteration sweep")
		if delta < threshold {
			v.converged = true
			break
		}
	}

	if v.converged {
		logger.Info().Int("iterations", v.iterations).Float64("epsilon", epsilon).Msg("value iteration converged")
	} else {
		logger.Warn().Int("iterations", v.iterations).Msg("value iteration stopped at the iteration cap")
	}

	policy, err := v.values.ExtractPolicy(v.model)
	if err != nil {
		return nil, nil, fmt.Errorf("value iteration: %w", err)
	}
	v.policy = policy
	return policy, v.values, nil
}

// Iterations is the number of sweeps of the last Solve
func (v *ValueIteration) Iterations() int {
	return v.iterations
}

// Converged is false when the last Solve stopped at the iteration cap
func (v *ValueIteration) Converged() bool {
	return v.converged
}

func (v *ValueIteration) Values() *policies.ValueTable {
	return v.values
}

func (v *ValueIteration) Policy() *policies.PolicyTable {
	return v.policy
}
