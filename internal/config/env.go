package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables read by ApplyEnv.
const (
	EnvLogLevel        = "QUANTAOPT_LOG_LEVEL"
	EnvLogFormat       = "QUANTAOPT_LOG_FORMAT"
	EnvRules           = "QUANTAOPT_RULES"
	EnvMaxPasses       = "QUANTAOPT_MAX_PASSES"
	EnvSkipFailedRules = "QUANTAOPT_SKIP_FAILED_RULES"
)

// ApplyEnv overrides fields from the environment. Unparseable values are
// ignored and leave the current setting in place.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) {
	if val := getenv(EnvLogLevel); val != "" {
		c.Log.Level = val
	}

	if val := getenv(EnvLogFormat); val != "" {
		c.Log.Format = val
	}

	if val := getenv(EnvRules); val != "" {
		c.Optimizer.Rules = SplitRules(val)
	}

	if val := getenv(EnvMaxPasses); val != "" {
		if passes, err := strconv.Atoi(val); err == nil && passes > 0 {
			c.Optimizer.MaxPasses = passes
		}
	}

	if val := getenv(EnvSkipFailedRules); val != "" {
		if skip, err := strconv.ParseBool(val); err == nil {
			c.Optimizer.SkipFailedRules = skip
		}
	}
}

// SplitRules parses a comma separated rule list, dropping blanks.
func SplitRules(list string) []string {
	var rules []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			rules = append(rules, name)
		}
	}
	return rules
}
