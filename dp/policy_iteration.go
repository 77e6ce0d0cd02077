package dp

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/types"
)

// ErrInvalidIterations is returned for a non positive iteration cap
var ErrInvalidIterations = errors.New("max iterations must be positive")

// gains below this never replace the current action
const improvementTolerance = 1e-12

// PolicyIteration alternates iterative policy evaluation and greedy policy
// improvement until the policy is stable
type PolicyIteration struct {
	model types.Model
	opts  *options

	policy     *policies.PolicyTable
	values     *policies.ValueTable
	iterations int
	converged  bool
}

// NewPolicyIteration starts from the given policy, or from the first legal action
// of every state when policy is nil. The policy is updated in place.
func NewPolicyIteration(p types.Problem, policy *policies.PolicyTable, opts ...Option) (*PolicyIteration, error) {
	m, err := types.AsModel(p)
	if err != nil {
		return nil, fmt.Errorf("policy iteration: %w", err)
	}
	o := newOptions(opts)
	if err := checkDiscount(m, o.maxSweeps > 0); err != nil {
		return nil, fmt.Errorf("policy iteration: %w", err)
	}
	if policy == nil {
		policy, err = InitialPolicy(m)
		if err != nil {
			return nil, err
		}
	}
	return &PolicyIteration{
		model:  m,
		opts:   o,
		policy: policy,
		values: policies.NewValueTable(),
	}, nil
}

// Run alternates evaluation and improvement. It returns the iteration in which
// the policy became stable, or maxIterations if it never did.
func (p *PolicyIteration) Run(maxIterations int, theta float64) (int, error) {
	if maxIterations < 1 {
		return 0, ErrInvalidIterations
	}
	if theta <= 0 {
		return 0, ErrInvalidThreshold
	}
	logger := p.opts.logger
	p.converged = false

	for i := 1; i <= maxIterations; i++ {
		p.iterations = i
		if err := p.Evaluate(theta); err != nil {
			return i, err
		}
		changed, err := p.Improve()
		if err != nil {
			return i, err
		}
		logger.Debug().Int("iteration", i).Bool("changed", changed).Msg("policy iteration step")
		if !changed {
			p.converged = true
			logger.Info().Int("iterations", i).Msg("policy iteration converged")
			return i, nil
		}
	}
	logger.Warn().Int("iterations", maxIterations).Msg("policy iteration stopped at the iteration cap")
	return maxIterations, nil
}

// Evaluate applies V(s) ← Σ P(s'|s,π(s))·(R + γ·V(s')) in place until the largest
// change of a sweep is below theta
func (p *PolicyIteration) Evaluate(theta float64) error {
	if theta <= 0 {
		return ErrInvalidThreshold
	}
	states := p.model.States()
	sweeps := 0
	for {
		sweeps++
		delta := 0.0
		for _, s := range states {
			newValue, err := p.evaluateState(s)
			if err != nil {
				return err
			}
			delta = math.Max(delta, math.Abs(newValue-p.values.Get(s)))
			p.values.Set(s, newValue)
		}
		if delta < theta {
			break
		}
		if p.opts.maxSweeps > 0 && sweeps >= p.opts.maxSweeps {
			p.opts.logger.Warn().Int("sweeps", sweeps).Float64("delta", delta).Msg("policy evaluation stopped at the sweep cap")
			break
		}
	}
	p.opts.logger.Debug().Int("sweeps", sweeps).Msg("policy evaluated")
	return nil
}

func (p *PolicyIteration) evaluateState(s types.State) (float64, error) {
	actions := p.model.Actions(s)
	if len(actions) == 0 {
		return backup(p.model, p.values, s)
	}
	action := p.policy.Action(s)
	if !types.ContainsAction(actions, action) {
		return 0, fmt.Errorf("policy iteration: state %s: %w", s.Hash(), ErrInvalidPolicy)
	}
	return p.values.QValue(p.model, s, action), nil
}

// Improve makes the policy greedy with respect to the current values. An action is
// only replaced by one that is better by more than improvementTolerance, so ties
// and rounding noise never flip the policy.
// Returns true if any state changed its action.
func (p *PolicyIteration) Improve() (bool, error) {
	changed := false
	for _, s := range p.model.States() {
		actions := p.model.Actions(s)
		if len(actions) == 0 {
			continue
		}
		best, bestValue, err := p.values.Max(p.model, s, actions)
		if err != nil {
			return false, fmt.Errorf("policy iteration: state %s: %w", s.Hash(), err)
		}
		current := p.policy.Action(s)
		if types.SameAction(best, current) {
			continue
		}
		if !types.ContainsAction(actions, current) || bestValue > p.values.QValue(p.model, s, current)+improvementTolerance {
			p.policy.Update(s, best)
			changed = true
		}
	}
	return changed, nil
}

// Iterations of the last Run
func (p *PolicyIteration) Iterations() int {
	return p.iterations
}

// Converged is false when the last Run stopped at the iteration cap
func (p *PolicyIteration) Converged() bool {
	return p.converged
}

func (p *PolicyIteration) Policy() *policies.PolicyTable {
	return p.policy
}

func (p *PolicyIteration) Values() *policies.ValueTable {
	return p.values
}
