package rl

import (
	"context"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/tabular-rl/advertising"
	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/types"
	"golang.org/x/exp/rand"
)

type chainState string

func (s chainState) Hash() string { return string(s) }

type chainAction string

func (a chainAction) Hash() string { return string(a) }

// chain: s0 --go--> s1 (reward 1), s1 --a|b--> end (reward 0)
type chain struct {
	gamma float64
}

var _ types.Environment = &chain{}

func (c *chain) InitialState() types.State { return chainState("s0") }

func (c *chain) Actions(s types.State) []types.Action {
	switch s.Hash() {
	case "s0":
		return []types.Action{chainAction("go")}
	case "s1":
		return []types.Action{chainAction("a"), chainAction("b")}
	}
	return nil
}

func (c *chain) IsTerminal(s types.State) bool { return s.Hash() == "end" }

func (c *chain) DiscountFactor() float64 { return c.gamma }

func (c *chain) Step(s types.State, _ types.Action) (types.State, float64, error) {
	if s.Hash() == "s0" {
		return chainState("s1"), 1, nil
	}
	return chainState("end"), 0, nil
}

// pick selects the named action when legal, the first one otherwise
type pick string

func (p pick) Select(_ types.State, actions []types.Action, _ policies.QFunction) (types.Action, error) {
	for _, a := range actions {
		if a.Hash() == string(p) {
			return a, nil
		}
	}
	return actions[0], nil
}

func (p pick) Reset() {}

// loop never terminates: s --stay--> s with reward 1
type loop struct{}

func (loop) InitialState() types.State { return chainState("s") }
func (loop) Actions(types.State) []types.Action { return []types.Action{chainAction("stay")} }
func (loop) IsTerminal(types.State) bool { return false }
func (loop) DiscountFactor() float64 { return 0.5 }
func (loop) Step(s types.State, _ types.Action) (types.State, float64, error) { return s, 1, nil }

func TestTargets(t *testing.T) {
	cases := []struct {
		name     string
		target   TargetFunc
		expected float64
	}{
		// δ = 1 + 0.9·max(10, 0) − 0
		{"q-learning uses the best next action", MaxTarget, 5.0},
		// δ = 1 + 0.9·Q(s1, b) − 0
		{"sarsa uses the action taken next", SampledTarget, 0.5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			q := policies.NewQTable()
			q.Update(chainState("s1"), chainAction("a"), 10)

			l, err := NewLearner(&chain{gamma: 0.9}, pick("b"), q, 0.5, c.target)
			require.NoError(t, err)
			trace, err := l.RunEpisode()
			require.NoError(t, err)

			assert.InDelta(t, c.expected, q.Get(chainState("s0"), chainAction("go")), 1e-12)
			assert.Equal(t, 10.0, q.Get(chainState("s1"), chainAction("a")))
			assert.Equal(t, 0.0, q.Get(chainState("s1"), chainAction("b")), "terminal next state has value 0")
			assert.Equal(t, 2, trace.Len())
			assert.Equal(t, 1, l.Episodes())
		})
	}
}

func TestTerminalTargetIsReward(t *testing.T) {
	q := policies.NewQTableWithDefault(100)
	l, err := NewQLearning(&chain{gamma: 0.9}, pick("a"), q, 1.0)
	require.NoError(t, err)
	_, err = l.RunEpisode()
	require.NoError(t, err)
	// α = 1 replaces the estimate by the target, end has no actions so its value is 0
	assert.Equal(t, 0.0, q.Get(chainState("s1"), chainAction("a")))
	assert.Equal(t, 1+0.9*100.0, q.Get(chainState("s0"), chainAction("go")))
}

func TestStepCap(t *testing.T) {
	q := policies.NewQTable()
	l, err := NewSARSA(loop{}, policies.NewGreedy(), q, 0.5, WithMaxSteps(25))
	require.NoError(t, err)
	require.NoError(t, l.Execute(3))
	assert.Equal(t, 3, l.Episodes())

	trace, err := l.RunEpisode()
	require.NoError(t, err)
	assert.Equal(t, 25, trace.Len())
	// the estimate approaches r / (1 − γ) = 2
	assert.InDelta(t, 2.0, q.Get(chainState("s"), chainAction("stay")), 1e-6)
}

func TestLearnerValidation(t *testing.T) {
	q := policies.NewQTable()
	_, err := NewQLearning(&chain{gamma: 0.9}, pick("a"), q, 0)
	assert.ErrorIs(t, err, ErrInvalidLearningRate)
	_, err = NewQLearning(&chain{gamma: 0.9}, pick("a"), q, 1.5)
	assert.ErrorIs(t, err, ErrInvalidLearningRate)
	_, err = NewQLearning(&chain{gamma: 1.5}, pick("a"), q, 0.5)
	assert.ErrorIs(t, err, ErrInvalidDiscount)
	_, err = NewLearner(&chain{gamma: 0.9}, pick("a"), q, 0.5, nil)
	assert.Error(t, err)

	l, err := NewQLearning(&chain{gamma: 0.9}, pick("a"), q, 0.5)
	require.NoError(t, err)
	assert.ErrorIs(t, l.Execute(-1), ErrInvalidEpisodes)
	assert.Equal(t, 0.9, l.Discount())
	assert.Equal(t, 0.5, l.LearningRate())
}

func TestLearnerSimulatesModels(t *testing.T) {
	m := advertising.New(0.9)
	bandit, err := policies.NewEpsilonGreedy(0.2, rand.NewSource(1))
	require.NoError(t, err)

	_, err = NewQLearning(m, bandit, policies.NewQTable(), 0.1)
	assert.ErrorIs(t, err, types.ErrEnvironmentRequired)

	q := policies.NewQTable()
	l, err := NewQLearning(m, bandit, q, 0.05, WithSource(rand.NewSource(2)), WithMaxSteps(200))
	require.NoError(t, err)
	_, ok := l.Environment().(*types.Simulator)
	assert.True(t, ok)

	require.NoError(t, l.Execute(200))
	policy, err := q.ExtractPolicy(m)
	require.NoError(t, err)
	assert.Equal(t, advertising.SpendAd.Hash(), policy.Action(advertising.PoorUnknown).Hash())
}

func TestGreedyPath(t *testing.T) {
	q := policies.NewQTable()
	q.Update(chainState("s1"), chainAction("b"), 1)
	path, err := GreedyPath(&chain{gamma: 0.9}, q, 10)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, "end", path[2].Hash())

	path, err = GreedyPath(loop{}, q, 4)
	require.NoError(t, err)
	assert.Len(t, path, 5)
}

func TestSummaries(t *testing.T) {
	returns := []float64{1, 2, 3, 4}
	s := Summarize(returns, 2)
	assert.Equal(t, 4, s.Episodes)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, 3.5, s.TailMean, 1e-12)
	assert.Greater(t, s.StdDev, 0.0)
	assert.Equal(t, Summary{}, Summarize(nil, 2))

	assert.Equal(t, []float64{1, 1.5, 2.5, 3.5}, MovingAverage(returns, 2))
	assert.Equal(t, returns, MovingAverage(returns, 1))
}

func TestComparison(t *testing.T) {
	dir := t.TempDir()
	c, err := NewComparison(&ComparisonConfig{
		Runs:         2,
		Episodes:     5,
		RecordPath:   dir,
		RecordTraces: true,
		RecordPolicy: true,
	})
	require.NoError(t, err)

	constructor := func(target TargetFunc) LearnerConstructor {
		return func(run int) (*Learner, error) {
			bandit, err := policies.NewEpsilonGreedy(0.5, rand.NewSource(uint64(run)))
			if err != nil {
				return nil, err
			}
			return NewLearner(&chain{gamma: 0.9}, bandit, policies.NewQTable(), 0.5, target)
		}
	}
	c.AddExperiment(NewExperiment("qlearning", constructor(MaxTarget)))
	c.AddExperiment(NewExperiment("sarsa", constructor(SampledTarget)))

	compared := 0
	c.AddAnalysis("steps", NewStepsAnalyzer(), func(run int, names []string, datasets []DataSet) error {
		compared++
		assert.Equal(t, []string{"qlearning", "sarsa"}, names)
		for _, ds := range datasets {
			assert.Equal(t, []int{2, 2, 2, 2, 2}, ds)
		}
		return nil
	})
	c.AddAnalysis("returns", NewReturnsAnalyzer(0.9), ReturnsSummaryComparator(dir, 3))

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 2, compared)
	assert.NotEmpty(t, c.ID())
	assert.NotNil(t, c.Experiments[0].Learner())

	for _, f := range []string{
		"comparison_config.json",
		"0_returns_summary.json",
		"1_returns_summary.json",
		path.Join("traces", "qlearning_0.jsonl"),
		path.Join("policies", "sarsa_1.json"),
	} {
		_, err := os.Stat(path.Join(dir, f))
		assert.NoError(t, err, "missing %s", f)
	}
}

func TestComparisonCancelled(t *testing.T) {
	c, err := NewComparison(&ComparisonConfig{Runs: 1, Episodes: 5})
	require.NoError(t, err)
	c.AddExperiment(NewExperiment("q", func(int) (*Learner, error) {
		return NewQLearning(&chain{gamma: 0.9}, pick("a"), policies.NewQTable(), 0.5)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)

	_, err = NewComparison(&ComparisonConfig{Runs: 0})
	assert.Error(t, err)
	_, err = NewComparison(&ComparisonConfig{Runs: 1, RecordTraces: true})
	assert.Error(t, err)
}
