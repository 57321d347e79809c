package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/quantaopt/internal/config"
	qerrors "github.com/dshills/quantaopt/internal/errors"
	"github.com/dshills/quantaopt/internal/log"
	"github.com/dshills/quantaopt/internal/sql/plandesc"
	"github.com/dshills/quantaopt/internal/sql/planner"
)

const (
	formatTree = "tree"
	formatSQL  = "sql"
	formatJSON = "json"
)

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "quantaopt",
		Short:         "Rewrite logical query plans with QuantaOpt rules.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().String("config", "", "path to a JSON or TOML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")

	rootCmd.AddCommand(
		newOptimizeCommand(),
		newExplainCommand(),
		newRulesCommand(),
	)
	return rootCmd
}

func newOptimizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimize a plan description and print the result.",
		Args:  cobra.NoArgs,
		RunE:  optimizeRun,
	}
	cmd.Flags().String("plan", "-", "plan description file, - for stdin")
	cmd.Flags().String("format", formatTree, "output format (tree, sql, json)")
	cmd.Flags().StringSlice("rules", nil, "rules to run, in order (default: all registered)")
	cmd.Flags().Int("max-passes", 0, "maximum number of passes over the rules")
	cmd.Flags().Bool("skip-failed-rules", false, "keep going when a rule fails")
	return cmd
}

func newExplainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Print a plan description without optimizing it.",
		Args:  cobra.NoArgs,
		RunE:  explainRun,
	}
	cmd.Flags().String("plan", "-", "plan description file, - for stdin")
	cmd.Flags().String("format", formatTree, "output format (tree, sql, json)")
	return cmd
}

func newRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the registered rules in default pipeline order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range planner.Rules() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func optimizeRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.Configure(cfg.Log, cmd.ErrOrStderr())

	plan, err := readPlan(cmd)
	if err != nil {
		return err
	}

	optimizer, err := planner.NewOptimizer(cfg.Optimizer)
	if err != nil {
		return err
	}
	log.Debug("optimizing plan",
		log.String("rules", strings.Join(optimizer.RuleNames(), ",")),
		log.Int("max_passes", cfg.Optimizer.MaxPasses),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	optimized, err := optimizer.Optimize(ctx, plan)
	if err != nil {
		return err
	}

	return writePlan(cmd, optimized)
}

func explainRun(cmd *cobra.Command, _ []string) error {
	plan, err := readPlan(cmd)
	if err != nil {
		return err
	}
	return writePlan(cmd, plan)
}

// loadConfig layers defaults, the config file, the environment and flags,
// in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("rules") {
		cfg.Optimizer.Rules, _ = flags.GetStringSlice("rules")
	}
	if flags.Changed("max-passes") {
		cfg.Optimizer.MaxPasses, _ = flags.GetInt("max-passes")
	}
	if flags.Changed("skip-failed-rules") {
		cfg.Optimizer.SkipFailedRules, _ = flags.GetBool("skip-failed-rules")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readPlan(cmd *cobra.Command) (planner.LogicalPlan, error) {
	path, _ := cmd.Flags().GetString("plan")
	if path == "-" {
		return plandesc.Decode(cmd.InOrStdin())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, qerrors.Wrapf(err, qerrors.InvalidPlan, "failed to open plan %s", path)
	}
	defer f.Close()

	return plandesc.Decode(f)
}

func writePlan(cmd *cobra.Command, plan planner.LogicalPlan) error {
	out := cmd.OutOrStdout()
	format, _ := cmd.Flags().GetString("format")

	switch format {
	case formatTree:
		_, err := io.WriteString(out, planner.ExplainPlan(plan))
		return err
	case formatSQL:
		sql, err := planner.FormatSQL(plan)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, sql)
		return err
	case formatJSON:
		return plandesc.Encode(out, plan)
	default:
		return qerrors.InvalidConfigErrorf("unknown output format %q", format)
	}
}
