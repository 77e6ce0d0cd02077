package policies

import (
	"fmt"

	"github.com/zeu5/tabular-rl/types"
	"golang.org/x/exp/rand"
)

// SoftmaxPolicy is a stochastic policy over tabular action preferences h(s,a),
// π(a|s) = exp(h(s,a)/τ) / Σ exp(h(s,b)/τ). Preferences start at 0, so every
// action is equally likely in an unseen state.
type SoftmaxPolicy struct {
	preferences *QTable
	softmax     *Softmax
}

func NewSoftmaxPolicy(temperature float64, src rand.Source) (*SoftmaxPolicy, error) {
	softmax, err := NewSoftmax(temperature, src)
	if err != nil {
		return nil, err
	}
	return &SoftmaxPolicy{
		preferences: NewQTable(),
		softmax:     softmax,
	}, nil
}

// Preferences h(s,a) of the policy
func (p *SoftmaxPolicy) Preferences() *QTable {
	return p.preferences
}

// Select draws an action from π(·|state)
func (p *SoftmaxPolicy) Select(state types.State, actions []types.Action) (types.Action, error) {
	return p.softmax.Select(state, actions, p.preferences)
}

// Probabilities of the actions, in the order they are given
func (p *SoftmaxPolicy) Probabilities(state types.State, actions []types.Action) ([]float64, error) {
	return p.softmax.Probabilities(state, actions, p.preferences)
}

// Probability π(action|state) among the legal actions
func (p *SoftmaxPolicy) Probability(state types.State, actions []types.Action, action types.Action) (float64, error) {
	probs, err := p.Probabilities(state, actions)
	if err != nil {
		return 0, err
	}
	for i, a := range actions {
		if types.SameAction(a, action) {
			return probs[i], nil
		}
	}
	return 0, fmt.Errorf("%w: %v in state %s", ErrUnknownAction, action, state.Hash())
}

// Update follows the gradient of log π(action|state) scaled by delta:
// h(s,b) += delta·(1[b = action] − π(b|s))/τ for every legal b
func (p *SoftmaxPolicy) Update(state types.State, actions []types.Action, action types.Action, delta float64) error {
	if !types.ContainsAction(actions, action) {
		return fmt.Errorf("%w: %v in state %s", ErrUnknownAction, action, state.Hash())
	}
	probs, err := p.Probabilities(state, actions)
	if err != nil {
		return err
	}
	tau := p.softmax.Temperature()
	for i, b := range actions {
		indicator := 0.0
		if types.SameAction(b, action) {
			indicator = 1
		}
		p.preferences.Update(state, b, delta*(indicator-probs[i])/tau)
	}
	return nil
}

// ExtractPolicy picks the most preferred action of every state, which is also
// the most probable one
func (p *SoftmaxPolicy) ExtractPolicy(m types.Model) (*PolicyTable, error) {
	return ExtractPolicy(m, p.preferences)
}

// Reset forgets every preference
func (p *SoftmaxPolicy) Reset() {
	p.preferences = NewQTable()
}
