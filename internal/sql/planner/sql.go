package planner

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	qerrors "github.com/dshills/quantaopt/internal/errors"
)

// FormatSQL renders plan as PostgreSQL query text. The output is meant for
// diagnostics and round-trip debugging, not for execution planning: derived
// tables are nested naively and keep the alias of their only base relation
// so qualified column references stay valid.
func FormatSQL(plan LogicalPlan) (string, error) {
	f := &sqlFormatter{scope: make(map[string]bool)}
	return f.query(plan)
}

type sqlFormatter struct {
	derived int
	// scope holds the relation names already visible in the FROM clause
	// being rendered, including those of enclosing queries for EXISTS.
	scope map[string]bool
}

func (f *sqlFormatter) query(plan LogicalPlan) (string, error) {
	switch n := plan.(type) {
	case *LogicalScan:
		return "SELECT * FROM " + f.scanRef(n), nil

	case *LogicalValues:
		rows := make([]string, len(n.Rows))
		for i, row := range n.Rows {
			cells, err := f.exprList(row)
			if err != nil {
				return "", err
			}
			rows[i] = "(" + cells + ")"
		}
		return "VALUES " + strings.Join(rows, ", "), nil

	case *LogicalFilter:
		from, err := f.from(n.Inputs()[0])
		if err != nil {
			return "", err
		}
		pred, err := f.expr(n.Predicate)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("SELECT * FROM %s WHERE %s", from, pred), nil

	case *LogicalProject:
		from, err := f.from(n.Inputs()[0])
		if err != nil {
			return "", err
		}
		items := make([]string, len(n.Projections))
		for i, proj := range n.Projections {
			item, err := f.expr(proj)
			if err != nil {
				return "", err
			}
			if i < len(n.Aliases) && n.Aliases[i] != "" {
				item += " AS " + pq.QuoteIdentifier(n.Aliases[i])
			}
			items[i] = item
		}
		return fmt.Sprintf("SELECT %s FROM %s", strings.Join(items, ", "), from), nil

	case *LogicalSort:
		from, err := f.from(n.Inputs()[0])
		if err != nil {
			return "", err
		}
		keys := make([]string, len(n.OrderBy))
		for i, o := range n.OrderBy {
			key, err := f.expr(o.Expr)
			if err != nil {
				return "", err
			}
			keys[i] = key + " " + o.Order.String()
		}
		return fmt.Sprintf("SELECT * FROM %s ORDER BY %s", from, strings.Join(keys, ", ")), nil

	case *LogicalLimit:
		from, err := f.from(n.Inputs()[0])
		if err != nil {
			return "", err
		}
		q := fmt.Sprintf("SELECT * FROM %s LIMIT %d", from, n.Limit)
		if n.Offset > 0 {
			q += fmt.Sprintf(" OFFSET %d", n.Offset)
		}
		return q, nil

	case *LogicalDistinct:
		from, err := f.from(n.Input())
		if err != nil {
			return "", err
		}
		return "SELECT DISTINCT * FROM " + from, nil

	case *LogicalAggregate:
		from, err := f.from(n.Inputs()[0])
		if err != nil {
			return "", err
		}
		items, err := f.exprList(n.Expressions())
		if err != nil {
			return "", err
		}
		q := fmt.Sprintf("SELECT %s FROM %s", items, from)
		if len(n.GroupBy) > 0 {
			groups, err := f.exprList(n.GroupBy)
			if err != nil {
				return "", err
			}
			q += " GROUP BY " + groups
		}
		return q, nil

	case *LogicalJoin:
		return f.join(n)

	default:
		return "", qerrors.UnsupportedPlanError("sql rendering", fmt.Sprintf("%T", plan))
	}
}

func (f *sqlFormatter) join(n *LogicalJoin) (string, error) {
	left, right := n.Left(), n.Right()

	switch n.JoinType {
	case LeftSemiJoin, LeftAntiJoin, RightSemiJoin, RightAntiJoin:
		outer, inner := left, right
		if n.JoinType == RightSemiJoin || n.JoinType == RightAntiJoin {
			outer, inner = right, left
		}
		outerFrom, err := f.from(outer)
		if err != nil {
			return "", err
		}
		innerFrom, err := f.from(inner)
		if err != nil {
			return "", err
		}
		exists := "EXISTS"
		if n.JoinType == LeftAntiJoin || n.JoinType == RightAntiJoin {
			exists = "NOT EXISTS"
		}
		sub := "SELECT 1 FROM " + innerFrom
		if n.Condition != nil {
			cond, err := f.expr(n.Condition)
			if err != nil {
				return "", err
			}
			sub += " WHERE " + cond
		}
		return fmt.Sprintf("SELECT * FROM %s WHERE %s (%s)", outerFrom, exists, sub), nil

	case InnerJoin, LeftJoin, RightJoin, FullJoin, CrossJoin:
		leftFrom, err := f.from(left)
		if err != nil {
			return "", err
		}
		rightFrom, err := f.from(right)
		if err != nil {
			return "", err
		}
		q := fmt.Sprintf("SELECT * FROM %s %s JOIN %s", leftFrom, n.JoinType.String(), rightFrom)
		if n.JoinType == CrossJoin {
			return q, nil
		}
		cond := "TRUE"
		if n.Condition != nil {
			if cond, err = f.expr(n.Condition); err != nil {
				return "", err
			}
		}
		return q + " ON " + cond, nil

	default:
		return "", qerrors.UnsupportedPlanError("sql rendering", n.String())
	}
}

// from renders plan as a FROM item: base tables directly, everything else
// as a derived table. A derived table keeps the name of its only base
// relation unless that name is already taken in scope.
func (f *sqlFormatter) from(plan LogicalPlan) (string, error) {
	if scan, ok := plan.(*LogicalScan); ok {
		f.scope[relationName(scan)] = true
		return f.scanRef(scan), nil
	}

	// A derived table body cannot see its siblings.
	outer := f.scope
	f.scope = make(map[string]bool)
	q, err := f.query(plan)
	f.scope = outer
	if err != nil {
		return "", err
	}

	alias := relationName(plan)
	for alias == "" || f.scope[alias] {
		f.derived++
		alias = fmt.Sprintf("q%d", f.derived)
	}
	f.scope[alias] = true
	return fmt.Sprintf("(%s) AS %s", q, pq.QuoteIdentifier(alias)), nil
}

func (f *sqlFormatter) scanRef(scan *LogicalScan) string {
	ref := pq.QuoteIdentifier(scan.TableName)
	if scan.Alias != "" && scan.Alias != scan.TableName {
		ref += " AS " + pq.QuoteIdentifier(scan.Alias)
	}
	return ref
}

// relationName returns the name under which the single base relation of
// plan is visible, or "" when plan combines several relations.
func relationName(plan LogicalPlan) string {
	switch n := plan.(type) {
	case *LogicalScan:
		if n.Alias != "" {
			return n.Alias
		}
		return n.TableName
	case *LogicalFilter, *LogicalSort, *LogicalLimit, *LogicalDistinct:
		return relationName(plan.Inputs()[0])
	case *LogicalJoin:
		switch n.JoinType {
		case LeftSemiJoin, LeftAntiJoin:
			return relationName(n.Left())
		case RightSemiJoin, RightAntiJoin:
			return relationName(n.Right())
		}
	}
	return ""
}

func (f *sqlFormatter) exprList(exprs []Expression) (string, error) {
	strs := make([]string, len(exprs))
	for i, e := range exprs {
		s, err := f.expr(e)
		if err != nil {
			return "", err
		}
		strs[i] = s
	}
	return strings.Join(strs, ", "), nil
}

func (f *sqlFormatter) expr(e Expression) (string, error) {
	switch x := e.(type) {
	case *ColumnRef:
		if x.TableAlias != "" {
			return pq.QuoteIdentifier(x.TableAlias) + "." + pq.QuoteIdentifier(x.ColumnName), nil
		}
		return pq.QuoteIdentifier(x.ColumnName), nil

	case *Literal:
		if s, ok := x.Value.(string); ok {
			return pq.QuoteLiteral(s), nil
		}
		return x.String(), nil

	case *BinaryOp:
		l, err := f.expr(x.Left)
		if err != nil {
			return "", err
		}
		r, err := f.expr(x.Right)
		if err != nil {
			return "", err
		}
		op := x.Operator.String()
		if x.Operator == OpNotEqual {
			op = "<>"
		}
		return fmt.Sprintf("(%s %s %s)", l, op, r), nil

	case *UnaryOp:
		inner, err := f.expr(x.Expr)
		if err != nil {
			return "", err
		}
		if x.Operator.postfix() {
			return fmt.Sprintf("(%s %s)", inner, x.Operator.String()), nil
		}
		return fmt.Sprintf("(%s %s)", x.Operator.String(), inner), nil

	case *FunctionCall:
		args, err := f.exprList(x.Args)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s)", x.Name, args), nil

	case *AggregateExpr:
		args, err := f.exprList(x.Args)
		if err != nil {
			return "", err
		}
		if x.Distinct {
			args = "DISTINCT " + args
		}
		return fmt.Sprintf("%s(%s)", x.Function.String(), args), nil

	case *Star:
		if x.TableAlias != "" {
			return pq.QuoteIdentifier(x.TableAlias) + ".*", nil
		}
		return "*", nil

	default:
		return "", qerrors.UnsupportedPlanError("sql rendering", fmt.Sprintf("%T", e))
	}
}
