package rl

import (
	"fmt"

	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/types"
)

// GreedyPath follows the greedy actions of q from the initial state and returns the
// visited states, including the initial one. It stops at a terminal state, a state
// without actions or after maxSteps steps.
func GreedyPath(env types.Environment, q policies.QFunction, maxSteps int) ([]types.State, error) {
	state := env.InitialState()
	path := []types.State{state}
	for step := 0; step < maxSteps; step++ {
		if env.IsTerminal(state) {
			break
		}
		actions := env.Actions(state)
		if len(actions) == 0 {
			break
		}
		action, _, err := q.Max(state, actions)
		if err != nil {
			return path, err
		}
		next, _, err := env.Step(state, action)
		if err != nil {
			return path, fmt.Errorf("greedy path, step %d: %w", step, err)
		}
		path = append(path, next)
		state = next
	}
	return path, nil
}
