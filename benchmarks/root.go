package benchmarks

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeu5/tabular-rl/config"
	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/util"
	"golang.org/x/exp/rand"
)

var (
	v      = viper.New()
	cfg    *config.Config
	logger zerolog.Logger
)

func GetRootCommand() *cobra.Command {
	d := config.Default()
	rootCommand := &cobra.Command{
		Use:   "tabrl",
		Short: "Tabular reinforcement learning benchmarks",
		Long: `Solves small MDPs with value and policy iteration and
compares Q-learning and SARSA on the cliff walk.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(v, cmd.Root().PersistentFlags()); err != nil {
				return fmt.Errorf("binding flags: %w", err)
			}
			c, err := config.Load(v)
			if err != nil {
				return err
			}
			cfg = c
			logger = util.NewLogger(cfg.LogLevel)
			return nil
		},
	}
	flags := rootCommand.PersistentFlags()
	flags.String("config", "", "Config file (yaml, toml or json)")
	flags.IntP("episodes", "e", d.Episodes, "Number of episodes to run")
	flags.Int("max-steps", d.MaxSteps, "Maximum steps of each episode (0 for unlimited)")
	flags.Int("runs", d.Runs, "Number of experiment runs")
	flags.Float64("alpha", d.Alpha, "Learning rate")
	flags.String("bandit", d.Bandit, "Action selection (epsilon, softmax, ucb, greedy)")
	flags.Float64("epsilon", d.Epsilon, "Exploration rate of the epsilon greedy bandit")
	flags.Float64("temperature", d.Temperature, "Temperature of the softmax bandit")
	flags.Uint64("seed", d.Seed, "Seed of the random sources")
	flags.Float64("discount", d.Discount, "Discount factor")
	flags.Float64("noise", d.Noise, "Probability of slipping in the grid world")
	flags.Float64("theta", d.Theta, "Policy evaluation threshold")
	flags.Float64("vi-epsilon", d.VIEpsilon, "Value iteration precision")
	flags.Int("max-iterations", d.MaxIterations, "Iteration cap of the solvers")
	flags.StringP("save", "s", d.SavePath, "Save the result data in the specified folder")
	flags.Bool("plot", d.Plot, "Plot the comparison results")
	flags.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")

	// adding the subcommands here
	rootCommand.AddCommand(AdvertisingCommand())
	rootCommand.AddCommand(GridWorldCommand())
	rootCommand.AddCommand(CliffCommand())
	return rootCommand
}

// bindFlags binds the flags to the config keys, dashes become underscores.
// The first binding error is returned.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if bErr := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); bErr != nil {
			err = fmt.Errorf("flag %s: %w", f.Name, bErr)
		}
	})
	return err
}

// newBandit builds the configured bandit on its own random source
func newBandit(c *config.Config, seed uint64) (policies.Bandit, error) {
	src := rand.NewSource(seed)
	switch c.Bandit {
	case config.BanditEpsilon:
		return policies.NewEpsilonGreedy(c.Epsilon, src)
	case config.BanditSoftmax:
		return policies.NewSoftmax(c.Temperature, src)
	case config.BanditUCB:
		return policies.NewUCB(src), nil
	case config.BanditGreedy:
		return policies.NewGreedy(), nil
	}
	return nil, fmt.Errorf("unknown bandit %q", c.Bandit)
}

// signalContext is cancelled on interrupt
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
