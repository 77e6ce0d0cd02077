package rl

import (
	"encoding/json"
	"fmt"
	"path"
	"strconv"

	"github.com/zeu5/tabular-rl/types"
	"github.com/zeu5/tabular-rl/util"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ReturnsAnalyzer collects the discounted return of every episode
type ReturnsAnalyzer struct {
	gamma   float64
	returns []float64
}

var _ Analyzer = &ReturnsAnalyzer{}

func NewReturnsAnalyzer(gamma float64) *ReturnsAnalyzer {
	return &ReturnsAnalyzer{
		gamma:   gamma,
		returns: make([]float64, 0),
	}
}

func (r *ReturnsAnalyzer) Analyze(_, _ int, _ string, trace *types.Trace) {
	r.returns = append(r.returns, trace.Return(r.gamma))
}

// DataSet is a []float64 with one return per episode
func (r *ReturnsAnalyzer) DataSet() DataSet {
	out := make([]float64, len(r.returns))
	copy(out, r.returns)
	return out
}

func (r *ReturnsAnalyzer) Reset() {
	r.returns = make([]float64, 0)
}

// StepsAnalyzer collects the length of every episode
type StepsAnalyzer struct {
	steps []int
}

var _ Analyzer = &StepsAnalyzer{}

func NewStepsAnalyzer() *StepsAnalyzer {
	return &StepsAnalyzer{steps: make([]int, 0)}
}

func (s *StepsAnalyzer) Analyze(_, _ int, _ string, trace *types.Trace) {
	s.steps = append(s.steps, trace.Len())
}

// DataSet is a []int with one length per episode
func (s *StepsAnalyzer) DataSet() DataSet {
	out := make([]int, len(s.steps))
	copy(out, s.steps)
	return out
}

func (s *StepsAnalyzer) Reset() {
	s.steps = make([]int, 0)
}

// Summary of the returns of an experiment
type Summary struct {
	Episodes int     `json:"episodes"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	// mean over the trailing window of episodes
	TailMean float64 `json:"tail_mean"`
}

// Summarize the returns, the tail mean covers the last window episodes
func Summarize(returns []float64, window int) Summary {
	if len(returns) == 0 {
		return Summary{}
	}
	s := Summary{Episodes: len(returns)}
	if len(returns) == 1 {
		s.Mean = returns[0]
	} else {
		s.Mean, s.StdDev = stat.MeanStdDev(returns, nil)
	}
	if window <= 0 || window > len(returns) {
		window = len(returns)
	}
	s.TailMean = stat.Mean(returns[len(returns)-window:], nil)
	return s
}

// MovingAverage smooths the values over the given window
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	for i := range values {
		from := i - window + 1
		if from < 0 {
			from = 0
		}
		out[i] = stat.Mean(values[from:i+1], nil)
	}
	return out
}

// ReturnsSummaryComparator records the summary of the returns of every experiment
func ReturnsSummaryComparator(savePath string, window int) Comparator {
	return func(run int, names []string, datasets []DataSet) error {
		summaries := make(map[string]Summary, len(names))
		for i, name := range names {
			returns, ok := datasets[i].([]float64)
			if !ok {
				return fmt.Errorf("experiment %s: expected returns, got %T", name, datasets[i])
			}
			summaries[name] = Summarize(returns, window)
		}
		bs, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return err
		}
		return util.WriteToFile(path.Join(savePath, strconv.Itoa(run)+"_returns_summary.json"), string(bs))
	}
}

// ReturnsPlotComparator plots the returns per episode of every experiment,
// smoothed over the window
func ReturnsPlotComparator(plotPath string, window int) Comparator {
	return func(run int, names []string, datasets []DataSet) error {
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "Return"
		for i := 0; i < len(names); i++ {
			returns, ok := datasets[i].([]float64)
			if !ok {
				return fmt.Errorf("experiment %s: expected returns, got %T", names[i], datasets[i])
			}
			smoothed := MovingAverage(returns, window)
			points := make(plotter.XYs, len(smoothed))
			for j, v := range smoothed {
				points[j] = plotter.XY{
					X: float64(j),
					Y: v,
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				return err
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
		}
		return p.Save(8*vg.Inch, 6*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_returns.png"))
	}
}

// CoverageAnalyzer counts the distinct states visited so far after every episode
type CoverageAnalyzer struct {
	uniqueStates    map[string]bool
	numUniqueStates []int
}

var _ Analyzer = &CoverageAnalyzer{}

func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{
		uniqueStates:    make(map[string]bool),
		numUniqueStates: make([]int, 0),
	}
}

func (c *CoverageAnalyzer) Analyze(_, _ int, _ string, trace *types.Trace) {
	for _, h := range trace.StateHashes() {
		c.uniqueStates[h] = true
	}
	c.numUniqueStates = append(c.numUniqueStates, len(c.uniqueStates))
}

// DataSet is a []int with the states covered after each episode
func (c *CoverageAnalyzer) DataSet() DataSet {
	out := make([]int, len(c.numUniqueStates))
	copy(out, c.numUniqueStates)
	return out
}

func (c *CoverageAnalyzer) Reset() {
	c.uniqueStates = make(map[string]bool)
	c.numUniqueStates = make([]int, 0)
}

// CoveragePlotComparator plots the states covered per episode of every experiment
func CoveragePlotComparator(plotPath string) Comparator {
	return func(run int, names []string, datasets []DataSet) error {
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "States covered"
		for i := 0; i < len(names); i++ {
			uniqueStates, ok := datasets[i].([]int)
			if !ok {
				return fmt.Errorf("experiment %s: expected coverage, got %T", names[i], datasets[i])
			}
			points := make(plotter.XYs, len(uniqueStates))
			for j, v := range uniqueStates {
				points[j] = plotter.XY{
					X: float64(j),
					Y: float64(v),
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				return err
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
		}
		return p.Save(8*vg.Inch, 6*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_coverage.png"))
	}
}
