package types

import "golang.org/x/exp/rand"

// tolerance on the cumulative probability for float rounding
const probabilityTolerance = 1e-9

// Simulator turns a full model into a simulation environment by sampling
// the transition distribution with an explicit source of randomness
type Simulator struct {
	Model
	rand *rand.Rand
}

var _ Environment = &Simulator{}

func NewSimulator(m Model, src rand.Source) *Simulator {
	return &Simulator{
		Model: m,
		rand:  rand.New(src),
	}
}

// Step samples the next state and returns it with the transition reward
func (s *Simulator) Step(state State, action Action) (State, float64, error) {
	next, err := Sample(s.Model.Transitions(state, action), s.rand.Float64())
	if err != nil {
		if dErr, ok := err.(*DistributionError); ok {
			dErr.State = state
			dErr.Action = action
		}
		return nil, 0, err
	}
	return next, s.Model.Reward(state, action, next), nil
}

// Sample picks the outcome whose cumulative probability interval contains u, u in [0, 1).
// Zero probability outcomes are never picked.
func Sample(transitions []Transition, u float64) (State, error) {
	cumulative := 0.0
	var last State
	for _, t := range transitions {
		if t.Probability <= 0 {
			continue
		}
		cumulative += t.Probability
		last = t.Next
		if u < cumulative {
			return t.Next, nil
		}
	}
	if last != nil && cumulative >= 1-probabilityTolerance {
		return last, nil
	}
	return nil, &DistributionError{Total: cumulative}
}
