package benchmarks

import (
	"context"
	"fmt"
	"path"

	"github.com/spf13/cobra"
	"github.com/zeu5/tabular-rl/config"
	"github.com/zeu5/tabular-rl/grid"
	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/rl"
)

func cliffExperiment(c *config.Config, height, width int, target rl.TargetFunc) rl.LearnerConstructor {
	return func(run int) (*rl.Learner, error) {
		cliff, err := grid.NewCliff(height, width, c.Discount)
		if err != nil {
			return nil, err
		}
		bandit, err := newBandit(c, c.Seed+uint64(run))
		if err != nil {
			return nil, err
		}
		return rl.NewLearner(cliff, bandit, policies.NewQTable(), c.Alpha, target,
			rl.WithMaxSteps(c.MaxSteps),
			rl.WithLogger(logger),
		)
	}
}

// Cliff compares Q-learning and SARSA on the cliff walk and prints the greedy
// path each of them learned in the last run
func Cliff(ctx context.Context, c *config.Config, height, width int) error {
	cliff, err := grid.NewCliff(height, width, c.Discount)
	if err != nil {
		return err
	}
	comparison, err := rl.NewComparison(&rl.ComparisonConfig{
		Runs:         c.Runs,
		Episodes:     c.Episodes,
		RecordPath:   c.SavePath,
		RecordPolicy: true,
		ShowProgress: true,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	comparison.AddExperiment(rl.NewExperiment("QLearning", cliffExperiment(c, height, width, rl.MaxTarget)))
	comparison.AddExperiment(rl.NewExperiment("SARSA", cliffExperiment(c, height, width, rl.SampledTarget)))

	window := c.Episodes / 10
	returnsComparator := rl.ReturnsSummaryComparator(c.SavePath, window)
	visitsComparator := rl.NoopComparator()
	coverageComparator := rl.NoopComparator()
	if c.Plot {
		summary := returnsComparator
		plotter := rl.ReturnsPlotComparator(c.SavePath, window)
		returnsComparator = func(run int, names []string, datasets []rl.DataSet) error {
			if err := summary(run, names, datasets); err != nil {
				return err
			}
			return plotter(run, names, datasets)
		}
		visitsComparator = grid.GridPlotComparator(path.Join(c.SavePath, "visits"))
		coverageComparator = rl.CoveragePlotComparator(c.SavePath)
	}
	comparison.AddAnalysis("Returns", rl.NewReturnsAnalyzer(c.Discount), returnsComparator)
	comparison.AddAnalysis("Visits", grid.NewGridAnalyzer(height, width), visitsComparator)
	comparison.AddAnalysis("Coverage", rl.NewCoverageAnalyzer(), coverageComparator)
	comparison.AddAnalysis("Graph", rl.NewGraphAnalyzer(), rl.GraphRecordComparator(path.Join(c.SavePath, "graphs")))

	logger.Info().Str("comparison", comparison.ID()).Str("save", c.SavePath).Msg("running cliff comparison")
	if err := comparison.Run(ctx); err != nil {
		return err
	}

	for _, e := range comparison.Experiments {
		learner := e.Learner()
		if learner == nil {
			continue
		}
		states, err := rl.GreedyPath(cliff, learner.Q(), 4*height*width)
		if err != nil {
			return err
		}
		policy, err := policies.ExtractPolicy(cliff, learner.Q())
		if err != nil {
			return err
		}
		fmt.Printf("%s greedy path, %d steps\n%s\n%s\n", e.Name, len(states)-1, cliff.RenderPath(states), cliff.RenderPolicy(policy))
	}
	return nil
}

func CliffCommand() *cobra.Command {
	var height int
	var width int

	cmd := &cobra.Command{
		Use:   "cliff",
		Short: "Compare Q-learning and SARSA on the cliff walk",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return Cliff(ctx, cfg, height, width)
		},
	}
	cmd.PersistentFlags().IntVar(&height, "height", 4, "Height of the cliff grid")
	cmd.PersistentFlags().IntVar(&width, "width", 12, "Width of the cliff grid")
	return cmd
}
