package policies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeu5/tabular-rl/types"
)

// PolicyTable is a deterministic policy mapping states to actions.
// States that were never updated get the default action, which may be nil.
type PolicyTable struct {
	table         map[string]types.Action
	defaultAction types.Action
}

func NewPolicyTable(defaultAction types.Action) *PolicyTable {
	return &PolicyTable{
		table:         make(map[string]types.Action),
		defaultAction: defaultAction,
	}
}

// DefaultAction returned for states not in the table
func (p *PolicyTable) DefaultAction() types.Action {
	return p.defaultAction
}

// Action selected in the state
func (p *PolicyTable) Action(state types.State) types.Action {
	a, ok := p.table[state.Hash()]
	if !ok {
		return p.defaultAction
	}
	return a
}

func (p *PolicyTable) Update(state types.State, action types.Action) {
	p.table[state.Hash()] = action
}

func (p *PolicyTable) Has(state types.State) bool {
	_, ok := p.table[state.Hash()]
	return ok
}

func (p *PolicyTable) Len() int {
	return len(p.table)
}

// Equal is true when both tables pick the same action for every stored state
func (p *PolicyTable) Equal(other *PolicyTable) bool {
	if len(p.table) != len(other.table) {
		return false
	}
	for k, a := range p.table {
		b, ok := other.table[k]
		if !ok || !types.SameAction(a, b) {
			return false
		}
	}
	return true
}

// Actions returns the action hashes indexed by state hash
func (p *PolicyTable) Actions() map[string]string {
	actions := make(map[string]string, len(p.table))
	for k, a := range p.table {
		if a == nil {
			actions[k] = ""
			continue
		}
		actions[k] = a.Hash()
	}
	return actions
}

// String prints the table sorted by state
func (p *PolicyTable) String() string {
	keys := make([]string, 0, len(p.table))
	stateWidth := len("State")
	actionWidth := len("Action")
	actions := p.Actions()
	for k, a := range actions {
		keys = append(keys, k)
		if len(k) > stateWidth {
			stateWidth = len(k)
		}
		if len(a) > actionWidth {
			actionWidth = len(a)
		}
	}
	sort.Strings(keys)

	sep := "+" + strings.Repeat("-", stateWidth+2) + "+" + strings.Repeat("-", actionWidth+2) + "+\n"
	b := &strings.Builder{}
	b.WriteString(sep)
	fmt.Fprintf(b, "| %-*s | %-*s |\n", stateWidth, "State", actionWidth, "Action")
	b.WriteString(sep)
	for _, k := range keys {
		fmt.Fprintf(b, "| %-*s | %-*s |\n", stateWidth, k, actionWidth, actions[k])
	}
	b.WriteString(sep)
	return b.String()
}
