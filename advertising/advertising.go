// Package advertising is the four state advertising MDP: a company is rich or
// poor and known or unknown, and each step it decides whether to spend on
// advertising. Rewards depend only on the state being left.
package advertising

import "github.com/zeu5/tabular-rl/types"

type State string

func (s State) Hash() string {
	return string(s)
}

type Action string

func (a Action) Hash() string {
	return string(a)
}

const (
	RichKnown   State = "rich_known"
	RichUnknown State = "rich_unknown"
	PoorKnown   State = "poor_known"
	PoorUnknown State = "poor_unknown"

	NoAd    Action = "no_ad"
	SpendAd Action = "spend_ad"
)

type stateAction struct {
	state  State
	action Action
}

var (
	rewards = map[State]float64{
		RichKnown:   10,
		RichUnknown: 10,
		PoorKnown:   0,
		PoorUnknown: 0,
	}
	transitions = map[stateAction][]types.Transition{
		{RichKnown, NoAd}:      {{Next: RichKnown, Probability: 0.5}, {Next: RichUnknown, Probability: 0.5}},
		{RichKnown, SpendAd}:   {{Next: PoorKnown, Probability: 1}},
		{RichUnknown, NoAd}:    {{Next: RichUnknown, Probability: 0.5}, {Next: PoorUnknown, Probability: 0.5}},
		{RichUnknown, SpendAd}: {{Next: PoorUnknown, Probability: 0.5}, {Next: PoorKnown, Probability: 0.5}},
		{PoorKnown, NoAd}:      {{Next: PoorUnknown, Probability: 0.5}, {Next: RichKnown, Probability: 0.5}},
		{PoorKnown, SpendAd}:   {{Next: PoorKnown, Probability: 1}},
		{PoorUnknown, NoAd}:    {{Next: PoorUnknown, Probability: 1}},
		{PoorUnknown, SpendAd}: {{Next: PoorUnknown, Probability: 0.5}, {Next: PoorKnown, Probability: 0.5}},
	}
	allStates  = []types.State{RichKnown, RichUnknown, PoorKnown, PoorUnknown}
	allActions = []types.Action{NoAd, SpendAd}
)

// Model of the advertising problem
type Model struct {
	discount float64
}

var _ types.Model = &Model{}
var _ types.StateRewarder = &Model{}

func New(discount float64) *Model {
	return &Model{discount: discount}
}

func (m *Model) States() []types.State {
	states := make([]types.State, len(allStates))
	copy(states, allStates)
	return states
}

func (m *Model) Actions(_ types.State) []types.Action {
	actions := make([]types.Action, len(allActions))
	copy(actions, allActions)
	return actions
}

func (m *Model) Transitions(s types.State, a types.Action) []types.Transition {
	return transitions[stateAction{State(s.Hash()), Action(a.Hash())}]
}

func (m *Model) StateReward(s types.State) float64 {
	return rewards[State(s.Hash())]
}

// Reward of leaving the state, whatever the action and outcome
func (m *Model) Reward(s types.State, _ types.Action, _ types.State) float64 {
	return m.StateReward(s)
}

func (m *Model) IsTerminal(_ types.State) bool {
	return false
}

func (m *Model) InitialState() types.State {
	return RichKnown
}

func (m *Model) DiscountFactor() float64 {
	return m.discount
}
