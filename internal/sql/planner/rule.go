package planner

import (
	qerrors "github.com/dshills/quantaopt/internal/errors"
)

// OptimizerRule is a named, stateless transformation of a logical plan.
// Optimize must not modify its input; it returns a new tree, or an error
// that aborts the pass.
type OptimizerRule interface {
	// Name returns the token the rule is registered and ordered under.
	Name() string
	// Optimize rewrites plan and returns the result.
	Optimize(plan LogicalPlan) (LogicalPlan, error)
}

// OptimizeChildren applies rule to every child of plan in order and rebuilds
// plan from the results. It is the default traversal for nodes a rule does
// not rewrite itself. Child failures are wrapped with the child position;
// nothing is returned unless every child succeeded.
func OptimizeChildren(rule OptimizerRule, plan LogicalPlan) (LogicalPlan, error) {
	inputs := plan.Inputs()

	optimized := make([]LogicalPlan, len(inputs))
	for i, child := range inputs {
		newChild, err := rule.Optimize(child)
		if err != nil {
			return nil, qerrors.ChildOptimizationError(rule.Name(), plan.Kind().String(), i, err)
		}
		optimized[i] = newChild
	}

	return Rebuild(plan, plan.Expressions(), optimized)
}
