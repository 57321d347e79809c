package planner

import (
	"context"
	"time"

	"github.com/dshills/quantaopt/internal/config"
	qerrors "github.com/dshills/quantaopt/internal/errors"
	"github.com/dshills/quantaopt/internal/log"
)

// ruleFactory builds a registered rule. Rules carry no state besides the
// logger, so a fresh instance per optimizer is cheap.
type ruleFactory struct {
	name string
	new  func(l log.Logger) OptimizerRule
}

// registry lists the rules in default pipeline order.
var registry = []ruleFactory{
	{
		name: EliminateLeftSemiDistinctName,
		new: func(l log.Logger) OptimizerRule {
			return NewEliminateLeftSemiDistinct().WithLogger(l)
		},
	},
}

// Rules returns the registered rule names in default pipeline order.
func Rules() []string {
	names := make([]string, len(registry))
	for i, f := range registry {
		names[i] = f.name
	}
	return names
}

// LookupRule returns a new instance of the named rule.
func LookupRule(name string) (OptimizerRule, bool) {
	return lookupRule(name, log.Default())
}

func lookupRule(name string, l log.Logger) (OptimizerRule, bool) {
	for _, f := range registry {
		if f.name == name {
			return f.new(l), true
		}
	}
	return nil, false
}

// Optimizer applies an ordered list of rules to logical plans, pass after
// pass, until a pass leaves the plan unchanged or the pass limit is hit.
// An Optimizer is immutable after construction and safe for concurrent use.
type Optimizer struct {
	rules           []OptimizerRule
	maxPasses       int
	skipFailedRules bool
	logger          log.Logger
}

// OptimizerOption customizes NewOptimizer.
type OptimizerOption func(*Optimizer)

// WithOptimizerLogger sets the logger used by the driver and the rules it
// instantiates.
func WithOptimizerLogger(l log.Logger) OptimizerOption {
	return func(o *Optimizer) {
		o.logger = l
	}
}

// WithRules replaces the configured rule list with rules, in order.
func WithRules(rules ...OptimizerRule) OptimizerOption {
	return func(o *Optimizer) {
		o.rules = rules
	}
}

// NewOptimizer creates an optimizer from cfg. Rule names are resolved
// against the registry; an empty list selects every registered rule.
func NewOptimizer(cfg config.OptimizerConfig, opts ...OptimizerOption) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Optimizer{
		maxPasses:       cfg.MaxPasses,
		skipFailedRules: cfg.SkipFailedRules,
		logger:          log.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.rules == nil {
		names := cfg.Rules
		if len(names) == 0 {
			names = Rules()
		}
		for _, name := range names {
			rule, ok := lookupRule(name, o.logger)
			if !ok {
				return nil, qerrors.UnknownRuleError(name)
			}
			o.rules = append(o.rules, rule)
		}
	}

	return o, nil
}

// RuleNames returns the names of the rules in pipeline order.
func (o *Optimizer) RuleNames() []string {
	names := make([]string, len(o.rules))
	for i, r := range o.rules {
		names[i] = r.Name()
	}
	return names
}

// Optimize runs the rule pipeline over plan. A failing rule aborts the whole
// optimization unless failed rules are skipped, in which case the plan from
// before that rule is carried on. Cancellation is checked between rules.
func (o *Optimizer) Optimize(ctx context.Context, plan LogicalPlan) (LogicalPlan, error) {
	if plan == nil {
		return nil, qerrors.InvalidPlanErrorf("$", "plan is nil")
	}

	fingerprint := Fingerprint(plan)
	for pass := 1; pass <= o.maxPasses; pass++ {
		start := time.Now()

		for _, rule := range o.rules {
			if err := ctx.Err(); err != nil {
				return nil, qerrors.QueryCanceledError(err)
			}

			newPlan, err := rule.Optimize(plan)
			if err != nil {
				if !o.skipFailedRules {
					return nil, qerrors.RuleFailedError(rule.Name(), pass, err)
				}
				o.logger.Warn("skipping failed rule",
					log.String("rule", rule.Name()),
					log.Int("pass", pass),
					log.Err(err),
				)
				continue
			}
			plan = newPlan
		}

		next := Fingerprint(plan)
		changed := next != fingerprint
		o.logger.Debug("optimizer pass complete",
			log.Int("pass", pass),
			log.Bool("changed", changed),
			log.Duration("elapsed", time.Since(start)),
		)
		if !changed {
			break
		}
		fingerprint = next
	}

	return plan, nil
}
