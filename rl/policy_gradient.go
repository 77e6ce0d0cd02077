package rl

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/types"
)

// PolicyGradient is the Monte Carlo policy gradient (REINFORCE) learner. Every
// episode is sampled with the current policy, then each step t moves the
// preferences of its state by α·γᵗ·Gₜ along the gradient of log π(aₜ|sₜ),
// where Gₜ is the discounted return from step t.
type PolicyGradient struct {
	env    types.Environment
	policy *policies.SoftmaxPolicy
	alpha  float64
	gamma  float64
	opts   *options

	episodes int
}

// NewPolicyGradient creates a learner for the policy. Like NewLearner, problems that
// cannot be stepped are simulated from their model with the WithSource source.
func NewPolicyGradient(p types.Problem, policy *policies.SoftmaxPolicy, alpha float64, opts ...Option) (*PolicyGradient, error) {
	if p == nil || policy == nil {
		return nil, errors.New("policy gradient needs a problem and a policy")
	}
	if alpha <= 0 || alpha > 1 {
		return nil, ErrInvalidLearningRate
	}
	o := &options{
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	env, err := types.AsEnvironment(p, o.source)
	if err != nil {
		return nil, fmt.Errorf("policy gradient: %w", err)
	}
	gamma := env.DiscountFactor()
	if gamma < 0 || gamma > 1 {
		return nil, ErrInvalidDiscount
	}
	return &PolicyGradient{
		env:    env,
		policy: policy,
		alpha:  alpha,
		gamma:  gamma,
		opts:   o,
	}, nil
}

func (g *PolicyGradient) Policy() *policies.SoftmaxPolicy {
	return g.policy
}

func (g *PolicyGradient) Environment() types.Environment {
	return g.env
}

// Episodes completed so far
func (g *PolicyGradient) Episodes() int {
	return g.episodes
}

// Execute runs the given number of episodes, updating the policy after each of them
func (g *PolicyGradient) Execute(episodes int) error {
	if episodes < 0 {
		return ErrInvalidEpisodes
	}
	for i := 0; i < episodes; i++ {
		if _, err := g.RunEpisode(); err != nil {
			return err
		}
	}
	return nil
}

// RunEpisode samples one episode until a terminal state, a state without actions
// or the step cap, and then updates the policy with its trace
func (g *PolicyGradient) RunEpisode() (*types.Trace, error) {
	episode := g.episodes
	trace := types.NewTrace()
	state := g.env.InitialState()

	for step := 0; ; step++ {
		if g.env.IsTerminal(state) {
			break
		}
		actions := g.env.Actions(state)
		if len(actions) == 0 {
			break
		}
		if g.opts.maxSteps > 0 && step >= g.opts.maxSteps {
			g.opts.logger.Debug().Int("episode", episode).Int("steps", step).Msg("episode reached the step cap")
			break
		}
		action, err := g.policy.Select(state, actions)
		if err != nil {
			return trace, fmt.Errorf("episode %d, step %d: %w", episode, step, err)
		}
		nextState, reward, err := g.env.Step(state, action)
		if err != nil {
			return trace, fmt.Errorf("episode %d, step %d: %w", episode, step, err)
		}
		trace.Append(step, state, action, nextState, reward)
		state = nextState
	}

	for t, delta := range Deltas(trace.Rewards(), g.alpha, g.gamma) {
		s, a, _, _, _ := trace.Get(t)
		if err := g.policy.Update(s, g.env.Actions(s), a, delta); err != nil {
			return trace, fmt.Errorf("episode %d, update of step %d: %w", episode, t, err)
		}
	}

	g.episodes++
	g.opts.logger.Debug().
		Int("episode", episode).
		Int("steps", trace.Len()).
		Float64("return", trace.Return(g.gamma)).
		Msg("episode finished")
	return trace, nil
}

// Deltas returns α·γᵗ·Gₜ for every step t of an episode with the given rewards,
// Gₜ = Σₖ γᵏ·r(t+k)
func Deltas(rewards []float64, alpha, gamma float64) []float64 {
	deltas := make([]float64, len(rewards))
	ret := 0.0
	for t := len(rewards) - 1; t >= 0; t-- {
		ret = rewards[t] + gamma*ret
		deltas[t] = ret
	}
	weight := alpha
	for t := range deltas {
		deltas[t] *= weight
		weight *= gamma
	}
	return deltas
}
