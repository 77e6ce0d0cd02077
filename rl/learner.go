// Package rl contains the temporal difference control loop shared by Q-learning
// and SARSA, along with the experiment harness used to compare learners.
package rl

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/types"
	"golang.org/x/exp/rand"
)

var (
	// ErrInvalidLearningRate is returned for learning rates outside (0, 1]
	ErrInvalidLearningRate = errors.New("learning rate must be in (0, 1]")
	// ErrInvalidEpisodes is returned for a negative number of episodes
	ErrInvalidEpisodes = errors.New("number of episodes must not be negative")
	// ErrInvalidDiscount is returned for discount factors outside [0, 1]
	ErrInvalidDiscount = errors.New("discount factor must be in [0, 1]")
)

// TargetFunc is the state value of the TD target: the estimate of nextState given
// the action the loop selected for it and the legal actions, which are never empty
type TargetFunc func(q policies.QFunction, nextState types.State, nextAction types.Action, actions []types.Action) (float64, error)

type options struct {
	logger   zerolog.Logger
	maxSteps int
	source   rand.Source
}

// Option configures a Learner
type Option func(*options)

// WithLogger sets the logger for episode summaries
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMaxSteps caps the number of steps of an episode, 0 means no cap.
// Episodes that never reach a terminal state need a cap.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		o.maxSteps = n
	}
}

// WithSource sets the random source used to simulate problems that only expose a model
func WithSource(src rand.Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// Learner runs episodes on an environment, selecting actions with a bandit
// and updating the Q-function after every step with
// Q(s,a) ← Q(s,a) + α·(r + γ·target(s') − Q(s,a)).
type Learner struct {
	env    types.Environment
	bandit policies.Bandit
	q      policies.QFunction
	alpha  float64
	gamma  float64
	target TargetFunc
	opts   *options

	episodes int
}

// NewLearner creates a learner for the given target. Use NewQLearning or NewSARSA
// for the standard targets. Problems that cannot be stepped are simulated from
// their model when a source is given with WithSource.
func NewLearner(p types.Problem, bandit policies.Bandit, q policies.QFunction, alpha float64, target TargetFunc, opts ...Option) (*Learner, error) {
	if p == nil || bandit == nil || q == nil || target == nil {
		return nil, errors.New("learner needs a problem, a bandit, a Q-function and a target")
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
		return nil, fmt.Errorf("learner: %w", err)
	}
	gamma := env.DiscountFactor()
	if gamma < 0 || gamma > 1 {
		return nil, ErrInvalidDiscount
	}
	return &Learner{
		env:    env,
		bandit: bandit,
		q:      q,
		alpha:  alpha,
		gamma:  gamma,
		target: target,
		opts:   o,
	}, nil
}

func (l *Learner) Q() policies.QFunction {
	return l.q
}

func (l *Learner) Bandit() policies.Bandit {
	return l.bandit
}

func (l *Learner) Environment() types.Environment {
	return l.env
}

func (l *Learner) LearningRate() float64 {
	return l.alpha
}

func (l *Learner) Discount() float64 {
	return l.gamma
}

// Episodes completed so far
func (l *Learner) Episodes() int {
	return l.episodes
}

// Execute runs the given number of episodes, updating the Q-function in place
func (l *Learner) Execute(episodes int) error {
	if episodes < 0 {
		return ErrInvalidEpisodes
	}
	for i := 0; i < episodes; i++ {
		if _, err := l.RunEpisode(); err != nil {
			return err
		}
	}
	return nil
}

// RunEpisode runs a single episode from the initial state until a terminal state,
// a state without actions or the step cap, and returns its trace
func (l *Learner) RunEpisode() (*types.Trace, error) {
	episode := l.episodes
	trace := types.NewTrace()
	state := l.env.InitialState()

	var action types.Action
	actions := l.env.Actions(state)
	if !l.env.IsTerminal(state) && len(actions) > 0 {
		var err error
		action, err = l.bandit.Select(state, actions, l.q)
		if err != nil {
			return trace, fmt.Errorf("episode %d: %w", episode, err)
		}
	}

	for step := 0; action != nil; step++ {
		if l.opts.maxSteps > 0 && step >= l.opts.maxSteps {
			l.opts.logger.Debug().Int("episode", episode).Int("steps", step).Msg("episode reached the step cap")
			break
		}
		nextState, reward, err := l.env.Step(state, action)
		if err != nil {
			return trace, fmt.Errorf("episode %d, step %d: %w", episode, step, err)
		}
		trace.Append(step, state, action, nextState, reward)

		// terminal states have no next action and a state value of 0
		var nextAction types.Action
		value := 0.0
		nextActions := l.env.Actions(nextState)
		if !l.env.IsTerminal(nextState) && len(nextActions) > 0 {
			nextAction, err = l.bandit.Select(nextState, nextActions, l.q)
			if err != nil {
				return trace, fmt.Errorf("episode %d, step %d: %w", episode, step, err)
			}
			value, err = l.target(l.q, nextState, nextAction, nextActions)
			if err != nil {
				return trace, fmt.Errorf("episode %d, step %d: %w", episode, step, err)
			}
		}

		delta := reward + l.gamma*value - l.q.Get(state, action)
		l.q.Update(state, action, l.alpha*delta)

		state = nextState
		action = nextAction
	}

	l.episodes++
	l.opts.logger.Debug().
		Int("episode", episode).
		Int("steps", trace.Len()).
		Float64("return", trace.Return(l.gamma)).
		Msg("episode finished")
	return trace, nil
}
