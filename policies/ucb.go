package policies

import (
	"math"

	"github.com/zeu5/tabular-rl/types"
	"golang.org/x/exp/rand"
)

// UCB is the UCB1 strategy. Every action is tried once before any is repeated,
// then the action maximizing Q(s,a) + sqrt(2·ln(total)/n(a)) is selected,
// ties broken uniformly at random. Counts are kept per action.
type UCB struct {
	total         int
	timesSelected map[string]int
	rand          *rand.Rand
}

var _ Bandit = &UCB{}

func NewUCB(src rand.Source) *UCB {
	return &UCB{
		total:         0,
		timesSelected: make(map[string]int),
		rand:          rand.New(src),
	}
}

func (u *UCB) Select(state types.State, actions []types.Action, q QFunction) (types.Action, error) {
	if len(actions) == 0 {
		return nil, types.ErrNoActions
	}
	for _, a := range actions {
		if _, ok := u.timesSelected[a.Hash()]; !ok {
			u.record(a)
			return a, nil
		}
	}
	// unreachable after the warm up, but ln(0) must never be taken
	if u.total < 1 {
		u.record(actions[0])
		return actions[0], nil
	}

	maxActions := make([]types.Action, 0, len(actions))
	maxVal := math.Inf(-1)
	logTotal := math.Log(float64(u.total))
	for _, a := range actions {
		val := q.Get(state, a) + math.Sqrt(2*logTotal/float64(u.timesSelected[a.Hash()]))
		if val > maxVal {
			maxActions = append(maxActions[:0], a)
			maxVal = val
		} else if val == maxVal {
			maxActions = append(maxActions, a)
		}
	}
	result := maxActions[u.rand.Intn(len(maxActions))]
	u.record(result)
	return result, nil
}

func (u *UCB) record(a types.Action) {
	u.timesSelected[a.Hash()] += 1
	u.total += 1
}

// TimesSelected returns how many times the action has been selected
func (u *UCB) TimesSelected(a types.Action) int {
	return u.timesSelected[a.Hash()]
}

// Total number of selections
func (u *UCB) Total() int {
	return u.total
}

func (u *UCB) Reset() {
	u.total = 0
	u.timesSelected = make(map[string]int)
}
