package planner

import (
	"fmt"
	"strconv"

	qerrors "github.com/dshills/quantaopt/internal/errors"
)

// Rebuild returns a new node of the same kind and metadata as original with
// exprs and children substituted. exprs must be laid out the way
// original.Expressions() returns them, and children must match the kind's
// arity; otherwise an ArityMismatch error is returned. original is never
// modified.
func Rebuild(original LogicalPlan, exprs []Expression, children []LogicalPlan) (LogicalPlan, error) {
	if original == nil {
		return nil, qerrors.UnsupportedPlanError("rebuild", "<nil>")
	}

	kind := original.Kind()
	if len(children) != kind.Arity() {
		return nil, qerrors.ArityMismatchError(kind.String(), "children", strconv.Itoa(kind.Arity()), len(children))
	}
	for _, child := range children {
		if child == nil {
			return nil, qerrors.ArityMismatchError(kind.String(), "non-nil children", strconv.Itoa(kind.Arity()), countNonNil(children))
		}
	}

	switch n := original.(type) {
	case *LogicalScan:
		if err := expectExprs(kind, exprs, 0); err != nil {
			return nil, err
		}
		return NewLogicalScan(n.TableName, n.Alias, n.schema), nil

	case *LogicalValues:
		width := n.Width()
		if err := expectExprs(kind, exprs, len(n.Rows)*width); err != nil {
			return nil, err
		}
		rows := make([][]Expression, len(n.Rows))
		for i := range rows {
			rows[i] = append([]Expression(nil), exprs[i*width:(i+1)*width]...)
		}
		return NewLogicalValues(rows, n.schema), nil

	case *LogicalFilter:
		if err := expectExprs(kind, exprs, 1); err != nil {
			return nil, err
		}
		return NewLogicalFilter(children[0], exprs[0]), nil

	case *LogicalProject:
		if err := expectExprs(kind, exprs, len(n.Projections)); err != nil {
			return nil, err
		}
		aliases := append([]string(nil), n.Aliases...)
		return NewLogicalProject(children[0], append([]Expression(nil), exprs...), aliases, n.schema), nil

	case *LogicalSort:
		if err := expectExprs(kind, exprs, len(n.OrderBy)); err != nil {
			return nil, err
		}
		orderBy := make([]OrderByExpr, len(n.OrderBy))
		for i, o := range n.OrderBy {
			orderBy[i] = OrderByExpr{Expr: exprs[i], Order: o.Order}
		}
		return NewLogicalSort(children[0], orderBy), nil

	case *LogicalLimit:
		if err := expectExprs(kind, exprs, 0); err != nil {
			return nil, err
		}
		return NewLogicalLimit(children[0], n.Limit, n.Offset), nil

	case *LogicalJoin:
		var condition Expression
		switch len(exprs) {
		case 0:
		case 1:
			condition = exprs[0]
		default:
			return nil, qerrors.ArityMismatchError(kind.String(), "expressions", "0 or 1", len(exprs))
		}
		return NewLogicalJoin(children[0], children[1], n.JoinType, condition), nil

	case *LogicalAggregate:
		groups := len(n.GroupBy)
		if err := expectExprs(kind, exprs, groups+len(n.Aggregates)); err != nil {
			return nil, err
		}
		aggregates := make([]*AggregateExpr, len(n.Aggregates))
		for i, e := range exprs[groups:] {
			agg, ok := e.(*AggregateExpr)
			if !ok {
				return nil, qerrors.ArityMismatchError(kind.String(), "aggregate expressions", strconv.Itoa(len(n.Aggregates)), i)
			}
			aggregates[i] = agg
		}
		groupBy := append([]Expression(nil), exprs[:groups]...)
		return NewLogicalAggregate(children[0], groupBy, aggregates, n.schema), nil

	case *LogicalDistinct:
		if err := expectExprs(kind, exprs, 0); err != nil {
			return nil, err
		}
		return NewLogicalDistinct(children[0]), nil

	default:
		return nil, qerrors.UnsupportedPlanError("rebuild", fmt.Sprintf("%T", original))
	}
}

func expectExprs(kind PlanKind, exprs []Expression, want int) error {
	if len(exprs) != want {
		return qerrors.ArityMismatchError(kind.String(), "expressions", strconv.Itoa(want), len(exprs))
	}
	return nil
}

func countNonNil(children []LogicalPlan) int {
	n := 0
	for _, c := range children {
		if c != nil {
			n++
		}
	}
	return n
}
