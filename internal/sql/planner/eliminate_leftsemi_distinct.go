package planner

import (
	"log/slog"

	qerrors "github.com/dshills/quantaopt/internal/errors"
	"github.com/dshills/quantaopt/internal/log"
)

// EliminateLeftSemiDistinctName is the registry token of EliminateLeftSemiDistinct.
const EliminateLeftSemiDistinctName = "eliminate_leftsemi_distinct"

// EliminateLeftSemiDistinct drops a Distinct that feeds the left input of a
// LEFT SEMI join. The join only tests each left row for a match on the
// right, so the Distinct is treated as removable in that position; callers
// that need set semantics on the output keep a Distinct above the join.
//
// Directly stacked Distincts on the left input are all dropped, so
// Join(LeftSemi, Distinct(Distinct(X)), Y) becomes Join(LeftSemi, X', Y')
// rather than keeping Distinct(X) on the left.
//
// The rule works top-down: it checks the pattern at the root first, then
// recurses into what remains, so one call removes every match in the tree.
// The dropped Distincts themselves are never visited.
type EliminateLeftSemiDistinct struct {
	logger log.Logger
}

// NewEliminateLeftSemiDistinct returns the rule logging through the
// package default logger.
func NewEliminateLeftSemiDistinct() *EliminateLeftSemiDistinct {
	return &EliminateLeftSemiDistinct{}
}

// WithLogger returns a copy of the rule that logs to l.
func (r *EliminateLeftSemiDistinct) WithLogger(l log.Logger) *EliminateLeftSemiDistinct {
	return &EliminateLeftSemiDistinct{logger: l}
}

// Name implements OptimizerRule.
func (r *EliminateLeftSemiDistinct) Name() string {
	return EliminateLeftSemiDistinctName
}

// Optimize implements OptimizerRule.
func (r *EliminateLeftSemiDistinct) Optimize(plan LogicalPlan) (LogicalPlan, error) {
	join, ok := plan.(*LogicalJoin)
	if !ok || join.JoinType != LeftSemiJoin {
		return OptimizeChildren(r, plan)
	}
	distinct, ok := join.Left().(*LogicalDistinct)
	if !ok {
		return OptimizeChildren(r, plan)
	}

	// Stacked Distincts collapse with the outer one.
	input := distinct.Input()
	for {
		d, ok := input.(*LogicalDistinct)
		if !ok {
			break
		}
		input = d.Input()
	}

	left, err := r.Optimize(input)
	if err != nil {
		return nil, qerrors.ChildOptimizationError(r.Name(), join.Kind().String(), 0, err)
	}
	right, err := r.Optimize(join.Right())
	if err != nil {
		return nil, qerrors.ChildOptimizationError(r.Name(), join.Kind().String(), 1, err)
	}

	if l := r.log(); l.Enabled(slog.LevelDebug) {
		l.Debug("removed distinct below semi join",
			log.String("rule", r.Name()),
			log.String("join_type", join.JoinType.String()),
			log.String("input", input.String()),
		)
	}

	return Rebuild(plan, plan.Expressions(), []LogicalPlan{left, right})
}

func (r *EliminateLeftSemiDistinct) log() log.Logger {
	if r.logger != nil {
		return r.logger
	}
	return log.Default()
}
