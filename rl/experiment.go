package rl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/types"
	"github.com/zeu5/tabular-rl/util"
)

// LearnerConstructor builds a fresh learner for every run of an experiment
type LearnerConstructor func(run int) (*Learner, error)

type experimentRunConfig struct {
	CurrentRun int
	Episodes   int
	Analyzers  []Analyzer
	Context    context.Context

	RecordTraces bool
	RecordPolicy bool
	RecordPath   string
	ShowProgress bool

	LongestExpNameLen int
	Logger            zerolog.Logger
}

// Experiment trains one kind of learner, the traces of every episode are handed
// to the analyzers of the comparison
type Experiment struct {
	Name        string
	constructor LearnerConstructor
	learner     *Learner
}

func NewExperiment(name string, constructor LearnerConstructor) *Experiment {
	return &Experiment{
		Name:        name,
		constructor: constructor,
	}
}

// Learner of the last run, nil before the first run
func (e *Experiment) Learner() *Learner {
	return e.learner
}

func (e *Experiment) recordTrace(rConfig *experimentRunConfig, trace *types.Trace) error {
	tracesFile := path.Join(rConfig.RecordPath, "traces", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".jsonl")
	bs, err := json.Marshal(trace)
	if err != nil {
		return err
	}
	return util.AppendToFile(tracesFile, string(bs))
}

// Run trains a new learner for the configured number of episodes
func (e *Experiment) Run(rConfig *experimentRunConfig) error {
	learner, err := e.constructor(rConfig.CurrentRun)
	if err != nil {
		return fmt.Errorf("experiment %s: %w", e.Name, err)
	}
	e.learner = learner

	totalSteps := 0
	for episode := 0; episode < rConfig.Episodes; episode++ {
		select {
		case <-rConfig.Context.Done():
			return rConfig.Context.Err()
		default:
		}

		trace, err := learner.RunEpisode()
		if err != nil {
			return fmt.Errorf("experiment %s: %w", e.Name, err)
		}
		totalSteps += trace.Len()

		for _, a := range rConfig.Analyzers {
			a.Analyze(rConfig.CurrentRun, episode, e.Name, trace)
		}
		if rConfig.RecordTraces {
			if err := e.recordTrace(rConfig, trace); err != nil {
				return fmt.Errorf("experiment %s: recording trace: %w", e.Name, err)
			}
		}
		if rConfig.ShowProgress {
			fmt.Printf("\rExp: %*s, Episode: %d/%d, Steps: %d", rConfig.LongestExpNameLen, e.Name, episode+1, rConfig.Episodes, totalSteps)
		}
	}
	if rConfig.ShowProgress {
		fmt.Println("")
	}

	if rConfig.RecordPolicy {
		if table, ok := learner.Q().(*policies.QTable); ok {
			if err := table.Record(path.Join(rConfig.RecordPath, "policies", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".json")); err != nil {
				return fmt.Errorf("experiment %s: recording policy: %w", e.Name, err)
			}
		}
	}
	rConfig.Logger.Info().
		Str("experiment", e.Name).
		Int("run", rConfig.CurrentRun).
		Int("episodes", rConfig.Episodes).
		Int("steps", totalSteps).
		Msg("experiment finished")
	return nil
}

// DataSet is the information an analyzer extracts from the traces
type DataSet interface{}

// Analyzer compresses the traces of an experiment into a DataSet
type Analyzer interface {
	// Analyze is called with the run, the episode, the experiment name and its trace
	Analyze(int, int, string, *types.Trace)
	// DataSet collected since the last Reset
	DataSet() DataSet
	Reset()
}

// Comparator compares the datasets of the experiments of a run
type Comparator func(run int, names []string, datasets []DataSet) error

func NoopComparator() Comparator {
	return func(int, []string, []DataSet) error { return nil }
}

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Runs     int
	Episodes int

	// RecordPath stores the configuration, traces and policies, empty disables recording
	RecordPath   string
	RecordTraces bool
	RecordPolicy bool
	ShowProgress bool

	Logger zerolog.Logger
}

// Comparison runs every experiment on the same configuration, analyzes the
// traces and compares the resulting datasets
type Comparison struct {
	Experiments []*Experiment
	analyzers   map[string]Analyzer
	comparators map[string]Comparator
	cConfig     *ComparisonConfig
	id          uuid.UUID
}

func NewComparison(config *ComparisonConfig) (*Comparison, error) {
	if config.Runs < 1 {
		return nil, errors.New("comparison needs at least one run")
	}
	if config.Episodes < 0 {
		return nil, ErrInvalidEpisodes
	}
	if config.RecordPath == "" && (config.RecordTraces || config.RecordPolicy) {
		return nil, errors.New("recording traces or policies needs a record path")
	}
	return &Comparison{
		Experiments: make([]*Experiment, 0),
		analyzers:   make(map[string]Analyzer),
		comparators: make(map[string]Comparator),
		cConfig:     config,
		id:          uuid.New(),
	}, nil
}

// ID identifies the comparison in the recorded files
func (c *Comparison) ID() string {
	return c.id.String()
}

// AddAnalysis adds an analyzer and comparator to the comparison
func (c *Comparison) AddAnalysis(name string, analyzer Analyzer, comparator Comparator) {
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

func (c *Comparison) analysisNames() []string {
	names := make([]string, 0, len(c.analyzers))
	for name := range c.analyzers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() error {
	cfg := c.cConfig
	experiments := make([]string, 0, len(c.Experiments))
	for _, e := range c.Experiments {
		experiments = append(experiments, e.Name)
	}
	out := map[string]interface{}{
		"id":            c.ID(),
		"runs":          cfg.Runs,
		"episodes":      cfg.Episodes,
		"record_traces": cfg.RecordTraces,
		"record_policy": cfg.RecordPolicy,
		"experiments":   experiments,
		"analyzers":     c.analysisNames(),
	}
	bs, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return util.WriteToFile(path.Join(cfg.RecordPath, "comparison_config.json"), string(bs))
}

// Run every experiment for the configured number of runs. After each run the
// datasets of every analysis are handed to its comparator.
func (c *Comparison) Run(ctx context.Context) error {
	if c.cConfig.RecordPath != "" {
		if err := os.MkdirAll(c.cConfig.RecordPath, os.ModePerm); err != nil {
			return err
		}
		if err := c.recordConfig(); err != nil {
			return fmt.Errorf("recording comparison config: %w", err)
		}
	}

	longestNameLen := 0
	for _, e := range c.Experiments {
		if len(e.Name) > longestNameLen {
			longestNameLen = len(e.Name)
		}
	}
	analysisNames := c.analysisNames()

	for run := 0; run < c.cConfig.Runs; run++ {
		c.cConfig.Logger.Debug().Str("comparison", c.ID()).Int("run", run).Msg("starting run")
		datasets := make(map[string][]DataSet)
		for _, name := range analysisNames {
			datasets[name] = make([]DataSet, len(c.Experiments))
		}

		names := make([]string, len(c.Experiments))
		for i, e := range c.Experiments {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := e.Run(c.prepareRunConfig(ctx, run, longestNameLen)); err != nil {
				return err
			}
			for _, name := range analysisNames {
				a := c.analyzers[name]
				datasets[name][i] = a.DataSet()
				a.Reset()
			}
			names[i] = e.Name
		}
		for _, name := range analysisNames {
			if err := c.comparators[name](run, names, datasets[name]); err != nil {
				return fmt.Errorf("comparing %s: %w", name, err)
			}
		}
	}
	return nil
}

func (c *Comparison) prepareRunConfig(ctx context.Context, run, longestExpNameLen int) *experimentRunConfig {
	rCfg := &experimentRunConfig{
		CurrentRun:        run,
		Episodes:          c.cConfig.Episodes,
		Analyzers:         make([]Analyzer, 0, len(c.analyzers)),
		Context:           ctx,
		RecordTraces:      c.cConfig.RecordTraces,
		RecordPolicy:      c.cConfig.RecordPolicy,
		RecordPath:        c.cConfig.RecordPath,
		ShowProgress:      c.cConfig.ShowProgress,
		LongestExpNameLen: longestExpNameLen,
		Logger:            c.cConfig.Logger,
	}
	for _, name := range c.analysisNames() {
		rCfg.Analyzers = append(rCfg.Analyzers, c.analyzers[name])
	}
	return rCfg
}
