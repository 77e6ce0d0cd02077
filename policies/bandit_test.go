package policies

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/tabular-rl/types"
	"golang.org/x/exp/rand"
)

func fixedQ(state types.State, values map[string]float64) *QTable {
	q := NewQTable()
	for a, v := range values {
		q.Update(state, testAction(a), v)
	}
	return q
}

func TestEpsilonGreedyFrequency(t *testing.T) {
	s := testState("s")
	actions := actionsOf("a", "b", "c", "d")
	q := fixedQ(s, map[string]float64{"a": 0.1, "b": 1.0, "c": 0.5, "d": -1})

	for _, epsilon := range []float64{0, 0.1, 0.2, 0.5} {
		bandit, err := NewEpsilonGreedy(epsilon, rand.NewSource(7))
		require.NoError(t, err)

		trials := 100000
		best := 0
		for i := 0; i < trials; i++ {
			a, err := bandit.Select(s, actions, q)
			require.NoError(t, err)
			if a.Hash() == "b" {
				best++
			}
		}
		expected := 1 - epsilon + epsilon/float64(len(actions))
		assert.InDelta(t, expected, float64(best)/float64(trials), 0.01, "epsilon %v", epsilon)
	}
}

func TestEpsilonGreedyValidation(t *testing.T) {
	_, err := NewEpsilonGreedy(-0.1, rand.NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidEpsilon)
	_, err = NewEpsilonGreedy(1.1, rand.NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidEpsilon)

	bandit, err := NewEpsilonGreedy(0.3, rand.NewSource(1))
	require.NoError(t, err)
	assert.ErrorIs(t, bandit.SetEpsilon(2), ErrInvalidEpsilon)
	require.NoError(t, bandit.SetEpsilon(0.05))
	assert.Equal(t, 0.05, bandit.Epsilon())

	_, err = bandit.Select(testState("s"), nil, NewQTable())
	assert.ErrorIs(t, err, types.ErrNoActions)
}

func TestSoftmaxDistribution(t *testing.T) {
	s := testState("s")
	actions := actionsOf("a", "b", "c")
	q := fixedQ(s, map[string]float64{"a": 0, "b": 1, "c": 2})

	bandit, err := NewSoftmax(1, rand.NewSource(11))
	require.NoError(t, err)

	probs, err := bandit.Probabilities(s, actions, q)
	require.NoError(t, err)
	z := 1 + math.E + math.E*math.E
	assert.InDelta(t, 1/z, probs[0], 1e-9)
	assert.InDelta(t, math.E/z, probs[1], 1e-9)
	assert.InDelta(t, math.E*math.E/z, probs[2], 1e-9)

	trials := 100000
	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		a, err := bandit.Select(s, actions, q)
		require.NoError(t, err)
		counts[a.Hash()]++
	}
	for i, a := range actions {
		assert.InDelta(t, probs[i], float64(counts[a.Hash()])/float64(trials), 0.01, "action %s", a.Hash())
	}
}

func TestSoftmaxTemperature(t *testing.T) {
	_, err := NewSoftmax(0, rand.NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidTemperature)
	_, err = NewSoftmax(-1, rand.NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidTemperature)

	s := testState("s")
	actions := actionsOf("a", "b")
	q := fixedQ(s, map[string]float64{"a": 0, "b": 1})

	hot, err := NewSoftmax(1000, rand.NewSource(1))
	require.NoError(t, err)
	probs, err := hot.Probabilities(s, actions, q)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, probs[0], 0.01, "high temperature is close to uniform")

	cold, err := NewSoftmax(0.01, rand.NewSource(1))
	require.NoError(t, err)
	probs, err = cold.Probabilities(s, actions, q)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, probs[1], 1e-9, "low temperature is close to greedy")

	// large Q-values must not overflow
	big := fixedQ(s, map[string]float64{"a": 5000, "b": 5001})
	probs, err = cold.Probabilities(s, actions, big)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(probs[0]))

	_, err = cold.Select(s, nil, q)
	assert.ErrorIs(t, err, types.ErrNoActions)
}

func TestUCBTriesEveryActionFirst(t *testing.T) {
	s := testState("s")
	for n := 1; n <= 6; n++ {
		names := make([]string, n)
		for i := range names {
			names[i] = string(rune('a' + i))
		}
		actions := actionsOf(names...)
		// the last action looks best, it must still wait for its turn
		q := fixedQ(s, map[string]float64{names[n-1]: 100})

		bandit := NewUCB(rand.NewSource(3))
		seen := map[string]bool{}
		for i := 0; i < n; i++ {
			a, err := bandit.Select(s, actions, q)
			require.NoError(t, err)
			assert.False(t, seen[a.Hash()], "action %s repeated before every action was tried", a.Hash())
			seen[a.Hash()] = true
		}
		assert.Len(t, seen, n)
		assert.Equal(t, n, bandit.Total())
	}
}

func TestUCBExploitsAndExplores(t *testing.T) {
	s := testState("s")
	actions := actionsOf("a", "b")
	q := fixedQ(s, map[string]float64{"a": 1})

	bandit := NewUCB(rand.NewSource(5))
	for i := 0; i < 1000; i++ {
		_, err := bandit.Select(s, actions, q)
		require.NoError(t, err)
	}
	assert.Equal(t, 1000, bandit.Total())
	assert.Greater(t, bandit.TimesSelected(testAction("a")), bandit.TimesSelected(testAction("b")))
	assert.Greater(t, bandit.TimesSelected(testAction("b")), 1, "the exploration bonus keeps trying b")

	bandit.Reset()
	assert.Equal(t, 0, bandit.Total())
	assert.Equal(t, 0, bandit.TimesSelected(testAction("a")))

	_, err := bandit.Select(s, nil, q)
	assert.ErrorIs(t, err, types.ErrNoActions)
}

func TestUCBBreaksTiesAtRandom(t *testing.T) {
	s := testState("s")
	actions := actionsOf("a", "b", "c")
	q := NewQTable()

	bandit := NewUCB(rand.NewSource(9))
	for i := 0; i < 3; i++ {
		_, err := bandit.Select(s, actions, q)
		require.NoError(t, err)
	}
	// all counts equal and all Q-values equal: every action ties
	picked := map[string]int{}
	for i := 0; i < 300; i++ {
		clone := NewUCB(rand.NewSource(uint64(i)))
		for _, a := range actions {
			clone.record(a)
		}
		a, err := clone.Select(s, actions, q)
		require.NoError(t, err)
		picked[a.Hash()]++
	}
	assert.Len(t, picked, 3)
}

func TestGreedy(t *testing.T) {
	s := testState("s")
	q := fixedQ(s, map[string]float64{"b": 2})
	a, err := NewGreedy().Select(s, actionsOf("a", "b"), q)
	require.NoError(t, err)
	assert.Equal(t, testAction("b"), a)

	_, err = NewGreedy().Select(s, nil, q)
	assert.ErrorIs(t, err, types.ErrNoActions)
}

func TestSoftmaxPolicyUpdate(t *testing.T) {
	_, err := NewSoftmaxPolicy(0, rand.NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidTemperature)

	p, err := NewSoftmaxPolicy(1, rand.NewSource(3))
	require.NoError(t, err)
	s := testState("s")
	actions := actionsOf("a", "b")

	prob, err := p.Probability(s, actions, testAction("a"))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, prob, 1e-12)

	// h(a) += 1·(1 − 0.5), h(b) += 1·(0 − 0.5)
	require.NoError(t, p.Update(s, actions, testAction("a"), 1))
	assert.InDelta(t, 0.5, p.Preferences().Get(s, testAction("a")), 1e-12)
	assert.InDelta(t, -0.5, p.Preferences().Get(s, testAction("b")), 1e-12)
	prob, err = p.Probability(s, actions, testAction("a"))
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-1)), prob, 1e-12)

	// negative deltas move probability away from the action
	require.NoError(t, p.Update(s, actions, testAction("a"), -2))
	prob, err = p.Probability(s, actions, testAction("a"))
	require.NoError(t, err)
	assert.Less(t, prob, 0.5)

	assert.ErrorIs(t, p.Update(s, actions, testAction("c"), 1), ErrUnknownAction)
	_, err = p.Probability(s, actions, testAction("c"))
	assert.ErrorIs(t, err, ErrUnknownAction)
	_, err = p.Select(s, nil)
	assert.ErrorIs(t, err, types.ErrNoActions)

	p.Reset()
	assert.Equal(t, 0.0, p.Preferences().Get(s, testAction("a")))
}

func TestSoftmaxPolicyExtractPolicy(t *testing.T) {
	p, err := NewSoftmaxPolicy(0.5, rand.NewSource(5))
	require.NoError(t, err)
	m := chainModel{}
	require.NoError(t, p.Update(testState("a"), m.Actions(testState("a")), testAction("go"), 1))

	policy, err := p.ExtractPolicy(m)
	require.NoError(t, err)
	assert.Equal(t, "go", policy.Action(testState("a")).Hash())

	for i := 0; i < 20; i++ {
		a, err := p.Select(testState("a"), m.Actions(testState("a")))
		require.NoError(t, err)
		assert.True(t, types.ContainsAction(m.Actions(testState("a")), a))
	}
}
