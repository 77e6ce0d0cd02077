package types

import "encoding/json"

// Trace of an episode as tuples (state, action, nextState, reward)
type Trace struct {
	states     []State
	actions    []Action
	nextStates []State
	rewards    []float64
}

func NewTrace() *Trace {
	return &Trace{
		states:     make([]State, 0),
		actions:    make([]Action, 0),
		nextStates: make([]State, 0),
		rewards:    make([]float64, 0),
	}
}

func (t *Trace) Slice(from, to int) *Trace {
	slicedTrace := NewTrace()
	for i := from; i < to; i++ {
		slicedTrace.Append(i-from, t.states[i], t.actions[i], t.nextStates[i], t.rewards[i])
	}
	return slicedTrace
}

func (t *Trace) Append(step int, state State, action Action, nextState State, reward float64) {
	t.states = append(t.states, state)
	t.actions = append(t.actions, action)
	t.nextStates = append(t.nextStates, nextState)
	t.rewards = append(t.rewards, reward)
}

func (t *Trace) Len() int {
	return len(t.states)
}

func (t *Trace) Get(i int) (State, Action, State, float64, bool) {
	if i < 0 || i >= len(t.states) {
		return nil, nil, nil, 0, false
	}
	return t.states[i], t.actions[i], t.nextStates[i], t.rewards[i], true
}

func (t *Trace) Last() (State, Action, State, float64, bool) {
	if len(t.states) < 1 {
		return nil, nil, nil, 0, false
	}
	return t.Get(len(t.states) - 1)
}

// Rewards of every step, in order
func (t *Trace) Rewards() []float64 {
	rewards := make([]float64, len(t.rewards))
	copy(rewards, t.rewards)
	return rewards
}

// Return is the discounted sum of the rewards of the trace
func (t *Trace) Return(gamma float64) float64 {
	total := 0.0
	weight := 1.0
	for _, r := range t.rewards {
		total += weight * r
		weight *= gamma
	}
	return total
}

// Hashes of the visited states, including the final next state
func (t *Trace) StateHashes() []string {
	hashes := make([]string, 0, len(t.states)+1)
	for _, s := range t.states {
		hashes = append(hashes, s.Hash())
	}
	if len(t.nextStates) > 0 {
		hashes = append(hashes, t.nextStates[len(t.nextStates)-1].Hash())
	}
	return hashes
}

type traceStep struct {
	State     string  `json:"state"`
	Action    string  `json:"action"`
	NextState string  `json:"next_state"`
	Reward    float64 `json:"reward"`
}

// MarshalJSON records the trace as a list of steps keyed by the hashes
func (t *Trace) MarshalJSON() ([]byte, error) {
	steps := make([]traceStep, len(t.states))
	for i := range t.states {
		steps[i] = traceStep{
			State:     t.states[i].Hash(),
			Action:    t.actions[i].Hash(),
			NextState: t.nextStates[i].Hash(),
			Reward:    t.rewards[i],
		}
	}
	return json.Marshal(steps)
}
