// Package config holds the settings shared by the command line benchmarks.
// Values come from flags, TABRL_ prefixed environment variables or a config file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix of the environment variables, TABRL_EPISODES sets episodes
const EnvPrefix = "TABRL"

// Bandits that can be selected by name
const (
	BanditEpsilon = "epsilon"
	BanditSoftmax = "softmax"
	BanditUCB     = "ucb"
	BanditGreedy  = "greedy"
)

// Config holds all the benchmark configuration
type Config struct {
	// Learning
	Episodes    int     `mapstructure:"episodes"`
	MaxSteps    int     `mapstructure:"max_steps"`
	Runs        int     `mapstructure:"runs"`
	Alpha       float64 `mapstructure:"alpha"`
	Bandit      string  `mapstructure:"bandit"`
	Epsilon     float64 `mapstructure:"epsilon"`
	Temperature float64 `mapstructure:"temperature"`
	Seed        uint64  `mapstructure:"seed"`

	// Problem
	Discount float64 `mapstructure:"discount"`
	Noise    float64 `mapstructure:"noise"`

	// Dynamic programming
	Theta         float64 `mapstructure:"theta"`
	VIEpsilon     float64 `mapstructure:"vi_epsilon"`
	MaxIterations int     `mapstructure:"max_iterations"`

	// Output
	SavePath string `mapstructure:"save"`
	Plot     bool   `mapstructure:"plot"`
	LogLevel string `mapstructure:"log_level"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		Episodes:      500,
		MaxSteps:      1000,
		Runs:          1,
		Alpha:         0.5,
		Bandit:        BanditEpsilon,
		Epsilon:       0.1,
		Temperature:   1.0,
		Seed:          1,
		Discount:      0.9,
		Noise:         0.2,
		Theta:         1e-8,
		VIEpsilon:     1e-6,
		MaxIterations: 1000,
		SavePath:      "results",
		Plot:          false,
		LogLevel:      "info",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Episodes < 0 {
		return fmt.Errorf("episodes must not be negative")
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative")
	}
	if c.Runs <= 0 {
		return fmt.Errorf("runs must be positive")
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0, 1]")
	}
	switch c.Bandit {
	case BanditEpsilon:
		if c.Epsilon < 0 || c.Epsilon > 1 {
			return fmt.Errorf("epsilon must be in [0, 1]")
		}
	case BanditSoftmax:
		if c.Temperature <= 0 {
			return fmt.Errorf("temperature must be positive")
		}
	case BanditUCB, BanditGreedy:
	default:
		return fmt.Errorf("unknown bandit %q, expected one of %s", c.Bandit,
			strings.Join([]string{BanditEpsilon, BanditSoftmax, BanditUCB, BanditGreedy}, ", "))
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("discount must be in [0, 1]")
	}
	if c.Noise < 0 || c.Noise > 1 {
		return fmt.Errorf("noise must be in [0, 1]")
	}
	if c.Theta <= 0 {
		return fmt.Errorf("theta must be positive")
	}
	if c.VIEpsilon <= 0 {
		return fmt.Errorf("vi_epsilon must be positive")
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive")
	}
	return nil
}

// Load reads the configuration from v on top of the defaults. Keys use
// underscores, flags bound with dashes are normalized by the caller.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only applies to known keys
	for key, value := range defaultsMap(cfg) {
		v.SetDefault(key, value)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func defaultsMap(c *Config) map[string]interface{} {
	return map[string]interface{}{
		"episodes":       c.Episodes,
		"max_steps":      c.MaxSteps,
		"runs":           c.Runs,
		"alpha":          c.Alpha,
		"bandit":         c.Bandit,
		"epsilon":        c.Epsilon,
		"temperature":    c.Temperature,
		"seed":           c.Seed,
		"discount":       c.Discount,
		"noise":          c.Noise,
		"theta":          c.Theta,
		"vi_epsilon":     c.VIEpsilon,
		"max_iterations": c.MaxIterations,
		"save":           c.SavePath,
		"plot":           c.Plot,
		"log_level":      c.LogLevel,
	}
}
