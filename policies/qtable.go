package policies

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/zeu5/tabular-rl/types"
	"github.com/zeu5/tabular-rl/util"
)

// QFunction estimates the value of (state, action) pairs
type QFunction interface {
	// Get the Q-value, the default value for unseen pairs
	Get(types.State, types.Action) float64
	// Update adds delta to the Q-value
	Update(types.State, types.Action, float64)
	// Max returns the action with the highest Q-value among the given ones
	Max(types.State, []types.Action) (types.Action, float64, error)
}

// QTable is a tabular Q-function indexed by the state and action hashes.
// Lookups of unseen pairs return the default value without storing it.
type QTable struct {
	table map[string]map[string]float64
	def   float64
}

var _ QFunction = &QTable{}

// NewQTable creates an empty table with default value 0
func NewQTable() *QTable {
	return NewQTableWithDefault(0)
}

func NewQTableWithDefault(def float64) *QTable {
	return &QTable{
		table: make(map[string]map[string]float64),
		def:   def,
	}
}

// Default value returned for unseen (state, action) pairs
func (q *QTable) Default() float64 {
	return q.def
}

func (q *QTable) Get(state types.State, action types.Action) float64 {
	return q.get(state.Hash(), action.Hash())
}

func (q *QTable) get(state, action string) float64 {
	if _, ok := q.table[state]; !ok {
		return q.def
	}
	val, ok := q.table[state][action]
	if !ok {
		return q.def
	}
	return val
}

// Update the Q-value by adding delta to it
func (q *QTable) Update(state types.State, action types.Action, delta float64) {
	stateHash := state.Hash()
	actionHash := action.Hash()
	if _, ok := q.table[stateHash]; !ok {
		q.table[stateHash] = make(map[string]float64)
	}
	q.table[stateHash][actionHash] = q.get(stateHash, actionHash) + delta
}

// Max returns the first action with the maximum Q-value.
// An empty action set returns ErrNoActions along with -Inf.
func (q *QTable) Max(state types.State, actions []types.Action) (types.Action, float64, error) {
	if len(actions) == 0 {
		return nil, math.Inf(-1), types.ErrNoActions
	}
	stateHash := state.Hash()
	var maxAction types.Action
	maxVal := math.Inf(-1)
	for _, a := range actions {
		val := q.get(stateHash, a.Hash())
		if maxAction == nil || val > maxVal {
			maxAction = a
			maxVal = val
		}
	}
	return maxAction, maxVal, nil
}

func (q *QTable) HasState(state types.State) bool {
	_, ok := q.table[state.Hash()]
	return ok
}

// Number of stored (state, action) pairs
func (q *QTable) Len() int {
	count := 0
	for _, actions := range q.table {
		count += len(actions)
	}
	return count
}

// ExtractPolicy builds the greedy policy over the model states.
// States without legal actions are left to the policy default.
func (q *QTable) ExtractPolicy(m types.Model) (*PolicyTable, error) {
	return ExtractPolicy(m, q)
}

// ExtractPolicy picks, for every state of the model, the action maximizing the Q-function
func ExtractPolicy(m types.Model, q QFunction) (*PolicyTable, error) {
	policy := NewPolicyTable(nil)
	for _, state := range m.States() {
		actions := m.Actions(state)
		if len(actions) == 0 {
			continue
		}
		action, _, err := q.Max(state, actions)
		if err != nil {
			return nil, fmt.Errorf("extracting policy for state %s: %w", state.Hash(), err)
		}
		policy.Update(state, action)
	}
	return policy, nil
}

// Record writes the table as JSON to the path
func (q *QTable) Record(path string) error {
	bs, err := json.Marshal(q.table)
	if err != nil {
		return err
	}
	return util.WriteToFile(path, string(bs))
}
