package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	qerrors "github.com/dshills/quantaopt/internal/errors"
	"github.com/dshills/quantaopt/internal/log"
)

// Config represents the complete optimizer configuration.
type Config struct {
	// Logging configuration
	Log log.Config `json:"log" toml:"log"`

	// Rule pipeline configuration
	Optimizer OptimizerConfig `json:"optimizer" toml:"optimizer"`
}

// OptimizerConfig controls the rule driver.
type OptimizerConfig struct {
	// Rules lists rule names in pipeline order. Empty means every
	// registered rule in registration order.
	Rules []string `json:"rules" toml:"rules"`

	// MaxPasses bounds the number of full passes over the rule list.
	MaxPasses int `json:"max_passes" toml:"max_passes"`

	// SkipFailedRules keeps the plan from before a failing rule and
	// continues with the next one instead of aborting the pass.
	SkipFailedRules bool `json:"skip_failed_rules" toml:"skip_failed_rules"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log:       log.DefaultConfig(),
		Optimizer: DefaultOptimizerConfig(),
	}
}

// DefaultOptimizerConfig returns the default rule driver settings.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		Rules:           nil,
		MaxPasses:       3,
		SkipFailedRules: false,
	}
}

// LoadFromFile loads configuration from a JSON or TOML file. The format is
// chosen by extension; anything other than .toml is read as JSON.
func LoadFromFile(path string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ConfigFileError, "failed to read config file")
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, qerrors.Wrap(err, qerrors.ConfigFileError, "failed to parse config file")
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, qerrors.Wrap(err, qerrors.ConfigFileError, "failed to parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return qerrors.InvalidConfigErrorf("invalid log level: %s", c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return qerrors.InvalidConfigErrorf("invalid log format: %s", c.Log.Format)
	}

	return c.Optimizer.Validate()
}

// Validate checks the rule driver settings. Rule names are resolved later
// by the optimizer, which owns the registry.
func (o OptimizerConfig) Validate() error {
	if o.MaxPasses < 1 {
		return qerrors.InvalidConfigErrorf("max passes must be at least 1, got %d", o.MaxPasses)
	}

	seen := make(map[string]bool, len(o.Rules))
	for i, name := range o.Rules {
		if strings.TrimSpace(name) == "" {
			return qerrors.InvalidConfigErrorf("rule %d has an empty name", i)
		}
		if seen[name] {
			return qerrors.InvalidConfigErrorf("rule %q listed more than once", name)
		}
		seen[name] = true
	}

	return nil
}
