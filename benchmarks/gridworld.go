package benchmarks

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zeu5/tabular-rl/config"
	"github.com/zeu5/tabular-rl/dp"
	"github.com/zeu5/tabular-rl/grid"
	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/rl"
	"golang.org/x/exp/rand"
)

// GridWorld solves the Russell Norvig grid with both solvers and, when episodes
// are requested, learns it by Q-learning and REINFORCE on the simulated model
func GridWorld(c *config.Config) error {
	gridConfig := grid.RussellNorvig(c.Discount).Config()
	gridConfig.Noise = c.Noise
	g, err := grid.NewGridWorld(gridConfig)
	if err != nil {
		return err
	}

	vi, err := dp.NewValueIteration(g, dp.WithLogger(logger), dp.WithMaxIterations(c.MaxIterations))
	if err != nil {
		return err
	}
	viPolicy, _, err := vi.Solve(c.VIEpsilon)
	if err != nil {
		return err
	}
	fmt.Printf("Value iteration, %d sweeps\n%s\n", vi.Iterations(), g.RenderPolicy(viPolicy))

	pi, err := dp.NewPolicyIteration(g, nil, dp.WithLogger(logger), dp.WithMaxSweeps(c.MaxIterations))
	if err != nil {
		return err
	}
	iterations, err := pi.Run(c.MaxIterations, c.Theta)
	if err != nil {
		return err
	}
	fmt.Printf("Policy iteration, %d iterations\n%s\n", iterations, g.RenderPolicy(pi.Policy()))

	if c.Episodes == 0 {
		return nil
	}
	bandit, err := newBandit(c, c.Seed)
	if err != nil {
		return err
	}
	q := policies.NewQTable()
	learner, err := rl.NewQLearning(g, bandit, q, c.Alpha,
		rl.WithSource(rand.NewSource(c.Seed+1)),
		rl.WithMaxSteps(c.MaxSteps),
		rl.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if err := learner.Execute(c.Episodes); err != nil {
		return err
	}
	learned, err := q.ExtractPolicy(g)
	if err != nil {
		return err
	}
	fmt.Printf("Q-learning, %d episodes\n%s\n", c.Episodes, g.RenderPolicy(learned))

	policy, err := policies.NewSoftmaxPolicy(c.Temperature, rand.NewSource(c.Seed+2))
	if err != nil {
		return fmt.Errorf("policy gradient: %w", err)
	}
	reinforce, err := rl.NewPolicyGradient(g, policy, c.Alpha,
		rl.WithSource(rand.NewSource(c.Seed+3)),
		rl.WithMaxSteps(c.MaxSteps),
		rl.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if err := reinforce.Execute(c.Episodes); err != nil {
		return err
	}
	learned, err = policy.ExtractPolicy(g)
	if err != nil {
		return err
	}
	fmt.Printf("REINFORCE, %d episodes\n%s\n", c.Episodes, g.RenderPolicy(learned))
	return nil
}

func GridWorldCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gridworld",
		Short: "Solve the 3x4 grid world and learn it by Q-learning and REINFORCE",
		RunE: func(cmd *cobra.Command, args []string) error {
			return GridWorld(cfg)
		},
	}
}
