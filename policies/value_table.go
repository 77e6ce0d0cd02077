package policies

import (
	"fmt"
	"math"

	"github.com/zeu5/tabular-rl/types"
)

// ValueTable maps states to values. Unseen states have the default value.
type ValueTable struct {
	table map[string]float64
	def   float64
}

// NewValueTable creates an empty table with default value 0
func NewValueTable() *ValueTable {
	return NewValueTableWithDefault(0)
}

func NewValueTableWithDefault(def float64) *ValueTable {
	return &ValueTable{
		table: make(map[string]float64),
		def:   def,
	}
}

// Default value returned for unseen states
func (v *ValueTable) Default() float64 {
	return v.def
}

func (v *ValueTable) Get(state types.State) float64 {
	val, ok := v.table[state.Hash()]
	if !ok {
		return v.def
	}
	return val
}

func (v *ValueTable) Set(state types.State, value float64) {
	v.table[state.Hash()] = value
}

func (v *ValueTable) Len() int {
	return len(v.table)
}

// Copy returns an independent copy of the table
func (v *ValueTable) Copy() *ValueTable {
	c := NewValueTableWithDefault(v.def)
	for k, val := range v.table {
		c.table[k] = val
	}
	return c
}

// QValue is the one step expected value of taking the action in the state:
// Σ P(s'|s,a)·(R(s,a,s') + γ·V(s')), or R(s) + γ·Σ P(s'|s,a)·V(s')
// when the model rewards states.
func (v *ValueTable) QValue(m types.Model, state types.State, action types.Action) float64 {
	gamma := m.DiscountFactor()
	if sr, ok := m.(types.StateRewarder); ok {
		expected := 0.0
		for _, t := range m.Transitions(state, action) {
			expected += t.Probability * v.Get(t.Next)
		}
		return sr.StateReward(state) + gamma*expected
	}
	q := 0.0
	for _, t := range m.Transitions(state, action) {
		q += t.Probability * (m.Reward(state, action, t.Next) + gamma*v.Get(t.Next))
	}
	return q
}

// Max returns the first action with the highest one step expected value
func (v *ValueTable) Max(m types.Model, state types.State, actions []types.Action) (types.Action, float64, error) {
	if len(actions) == 0 {
		return nil, math.Inf(-1), types.ErrNoActions
	}
	var maxAction types.Action
	maxVal := math.Inf(-1)
	for _, a := range actions {
		q := v.QValue(m, state, a)
		if maxAction == nil || q > maxVal {
			maxAction = a
			maxVal = q
		}
	}
	return maxAction, maxVal, nil
}

// ExtractPolicy picks the action maximizing the one step lookahead in every state
func (v *ValueTable) ExtractPolicy(m types.Model) (*PolicyTable, error) {
	policy := NewPolicyTable(nil)
	for _, state := range m.States() {
		actions := m.Actions(state)
		if len(actions) == 0 {
			continue
		}
		action, _, err := v.Max(m, state, actions)
		if err != nil {
			return nil, fmt.Errorf("extracting policy for state %s: %w", state.Hash(), err)
		}
		policy.Update(state, action)
	}
	return policy, nil
}

// Values returns a copy of the table indexed by state hash
func (v *ValueTable) Values() map[string]float64 {
	values := make(map[string]float64, len(v.table))
	for k, val := range v.table {
		values[k] = val
	}
	return values
}
