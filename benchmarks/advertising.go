package benchmarks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zeu5/tabular-rl/advertising"
	"github.com/zeu5/tabular-rl/dp"
	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/types"
)

// formatValues prints the values of the states, sorted by state
func formatValues(values *policies.ValueTable, states []types.State) string {
	hashes := make([]string, len(states))
	for i, s := range states {
		hashes[i] = s.Hash()
	}
	sort.Strings(hashes)
	all := values.Values()

	var b strings.Builder
	for _, h := range hashes {
		fmt.Fprintf(&b, "%-14s %10.4f\n", h, all[h])
	}
	return b.String()
}

func Advertising(discount, viEpsilon, theta float64, maxIterations int) error {
	m := advertising.New(discount)

	vi, err := dp.NewValueIteration(m, dp.WithLogger(logger), dp.WithMaxIterations(maxIterations))
	if err != nil {
		return err
	}
	viPolicy, viValues, err := vi.Solve(viEpsilon)
	if err != nil {
		return err
	}
	fmt.Printf("Value iteration, %d sweeps\n", vi.Iterations())
	fmt.Println(viPolicy.String())
	fmt.Println(formatValues(viValues, m.States()))

	pi, err := dp.NewPolicyIteration(m, nil, dp.WithLogger(logger), dp.WithMaxSweeps(maxIterations))
	if err != nil {
		return err
	}
	iterations, err := pi.Run(maxIterations, theta)
	if err != nil {
		return err
	}
	fmt.Printf("Policy iteration, %d iterations\n", iterations)
	fmt.Println(pi.Policy().String())
	fmt.Println(formatValues(pi.Values(), m.States()))

	if !viPolicy.Equal(pi.Policy()) {
		logger.Warn().Msg("value iteration and policy iteration disagree")
	}
	return nil
}

func AdvertisingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "advertising",
		Short: "Solve the advertising MDP with value and policy iteration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Advertising(cfg.Discount, cfg.VIEpsilon, cfg.Theta, cfg.MaxIterations)
		},
	}
}
