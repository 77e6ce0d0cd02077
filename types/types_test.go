package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

type node string

func (n node) Hash() string { return string(n) }

type move string

func (m move) Hash() string { return string(m) }

// coin flips between heads and tails, "broken" loses probability mass
type coin struct{}

func (coin) InitialState() State { return node("start") }
func (coin) IsTerminal(s State) bool { return s.Hash() != "start" }
func (coin) DiscountFactor() float64 { return 0.9 }
func (coin) States() []State { return []State{node("start"), node("heads"), node("tails")} }
func (coin) Reward(_ State, _ Action, next State) float64 {
	if next.Hash() == "heads" {
		return 1
	}
	return 0
}

func (coin) Actions(s State) []Action {
	if s.Hash() != "start" {
		return nil
	}
	return []Action{move("flip"), move("broken")}
}

func (coin) Transitions(_ State, a Action) []Transition {
	if a.Hash() == "broken" {
		return []Transition{{Next: node("heads"), Probability: 0.3}}
	}
	return []Transition{{Next: node("heads"), Probability: 0.5}, {Next: node("tails"), Probability: 0.5}}
}

// onlyProblem exposes neither a model nor a step function
type onlyProblem struct{}

func (onlyProblem) InitialState() State { return node("start") }
func (onlyProblem) Actions(State) []Action { return nil }
func (onlyProblem) IsTerminal(State) bool { return true }
func (onlyProblem) DiscountFactor() float64 { return 0 }

func TestSample(t *testing.T) {
	ts := []Transition{
		{Next: node("a"), Probability: 0.2},
		{Next: node("zero"), Probability: 0},
		{Next: node("b"), Probability: 0.8},
	}
	cases := []struct {
		u    float64
		want string
	}{
		{0, "a"},
		{0.19, "a"},
		{0.2, "b"},
		{0.999999, "b"},
	}
	for _, c := range cases {
		s, err := Sample(ts, c.u)
		require.NoError(t, err)
		assert.Equal(t, c.want, s.Hash(), "u = %v", c.u)
	}

	// rounding below 1 is tolerated
	rounded := []Transition{{Next: node("a"), Probability: 0.1}, {Next: node("b"), Probability: 0.9 - 1e-12}}
	s, err := Sample(rounded, 0.9999999999999)
	require.NoError(t, err)
	assert.Equal(t, "b", s.Hash())

	_, err = Sample([]Transition{{Next: node("a"), Probability: 0.3}}, 0.5)
	var dErr *DistributionError
	require.ErrorAs(t, err, &dErr)
	assert.InDelta(t, 0.3, dErr.Total, 1e-12)
	assert.NotEmpty(t, dErr.Error())

	_, err = Sample([]Transition{{Next: node("a"), Probability: 0}}, 0)
	assert.ErrorAs(t, err, &dErr, "zero probability outcomes are never sampled")
}

func TestSimulator(t *testing.T) {
	sim := NewSimulator(coin{}, rand.NewSource(42))
	heads := 0
	trials := 10000
	for i := 0; i < trials; i++ {
		next, reward, err := sim.Step(node("start"), move("flip"))
		require.NoError(t, err)
		if next.Hash() == "heads" {
			heads++
			assert.Equal(t, 1.0, reward)
		} else {
			assert.Equal(t, 0.0, reward)
		}
	}
	assert.InDelta(t, 0.5, float64(heads)/float64(trials), 0.02)

	var dErr *DistributionError
	for i := 0; i < 100; i++ {
		_, _, err := sim.Step(node("start"), move("broken"))
		if err != nil {
			require.ErrorAs(t, err, &dErr)
			break
		}
	}
	require.NotNil(t, dErr, "a draw above 0.3 must fail")
	assert.Equal(t, "start", dErr.State.Hash())
	assert.Equal(t, "broken", dErr.Action.Hash())
	assert.Contains(t, dErr.Error(), "broken")
}

func TestCapabilities(t *testing.T) {
	m, err := AsModel(coin{})
	require.NoError(t, err)
	assert.Len(t, m.States(), 3)

	_, err = AsModel(onlyProblem{})
	assert.ErrorIs(t, err, ErrModelRequired)

	env, err := AsEnvironment(coin{}, rand.NewSource(1))
	require.NoError(t, err)
	_, ok := env.(*Simulator)
	assert.True(t, ok)

	_, err = AsEnvironment(coin{}, nil)
	assert.ErrorIs(t, err, ErrEnvironmentRequired)
	_, err = AsEnvironment(onlyProblem{}, rand.NewSource(1))
	assert.ErrorIs(t, err, ErrEnvironmentRequired)

	// an environment is used as is
	env2, err := AsEnvironment(env, nil)
	require.NoError(t, err)
	assert.Same(t, env, env2)
}

func TestActionHelpers(t *testing.T) {
	assert.True(t, SameAction(move("a"), move("a")))
	assert.False(t, SameAction(move("a"), move("b")))
	assert.False(t, SameAction(move("a"), nil))
	assert.True(t, SameAction(nil, nil))

	actions := []Action{move("a"), move("b")}
	assert.True(t, ContainsAction(actions, move("b")))
	assert.False(t, ContainsAction(actions, move("c")))
	assert.False(t, ContainsAction(actions, nil))
}

func TestTrace(t *testing.T) {
	trace := NewTrace()
	_, _, _, _, ok := trace.Last()
	assert.False(t, ok)

	trace.Append(0, node("s0"), move("a"), node("s1"), 1)
	trace.Append(1, node("s1"), move("a"), node("s2"), 2)
	trace.Append(2, node("s2"), move("b"), node("s3"), 4)
	assert.Equal(t, 3, trace.Len())

	assert.InDelta(t, 7.0, trace.Return(1), 1e-12)
	assert.Equal(t, []float64{1, 2, 4}, trace.Rewards())
	assert.InDelta(t, 1+0.5*2+0.25*4, trace.Return(0.5), 1e-12)
	assert.Equal(t, []string{"s0", "s1", "s2", "s3"}, trace.StateHashes())

	s, a, next, r, ok := trace.Get(1)
	require.True(t, ok)
	assert.Equal(t, "s1", s.Hash())
	assert.Equal(t, "a", a.Hash())
	assert.Equal(t, "s2", next.Hash())
	assert.Equal(t, 2.0, r)
	_, _, _, _, ok = trace.Get(3)
	assert.False(t, ok)

	_, _, last, _, ok := trace.Last()
	require.True(t, ok)
	assert.Equal(t, "s3", last.Hash())

	sliced := trace.Slice(1, 3)
	assert.Equal(t, 2, sliced.Len())
	assert.InDelta(t, 6.0, sliced.Return(1), 1e-12)

	bs, err := json.Marshal(trace)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"state": "s0", "action": "a", "next_state": "s1", "reward": 1},
		{"state": "s1", "action": "a", "next_state": "s2", "reward": 2},
		{"state": "s2", "action": "b", "next_state": "s3", "reward": 4}
	]`, string(bs))
}
