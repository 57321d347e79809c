package planner

import (
	"fmt"
	"strings"
)

// LogicalScan represents a table scan operation.
type LogicalScan struct {
	basePlan
	TableName string
	Alias     string
}

func (s *LogicalScan) logicalNode() {}

func (s *LogicalScan) Kind() PlanKind { return KindScan }

func (s *LogicalScan) Expressions() []Expression { return nil }

func (s *LogicalScan) String() string {
	if s.Alias != "" && s.Alias != s.TableName {
		return fmt.Sprintf("Scan(%s AS %s)", s.TableName, s.Alias)
	}
	return fmt.Sprintf("Scan(%s)", s.TableName)
}

// LogicalValues produces literal rows. Every row has the same width.
type LogicalValues struct {
	basePlan
	Rows [][]Expression
}

func (v *LogicalValues) logicalNode() {}

func (v *LogicalValues) Kind() PlanKind { return KindValues }

// Width returns the number of cells per row.
func (v *LogicalValues) Width() int {
	if len(v.Rows) == 0 {
		return 0
	}
	return len(v.Rows[0])
}

// Expressions returns the cells in row-major order.
func (v *LogicalValues) Expressions() []Expression {
	var exprs []Expression
	for _, row := range v.Rows {
		exprs = append(exprs, row...)
	}
	return exprs
}

func (v *LogicalValues) String() string {
	rows := make([]string, len(v.Rows))
	for i, row := range v.Rows {
		rows[i] = "(" + joinExprs(row) + ")"
	}
	return fmt.Sprintf("Values(%s)", strings.Join(rows, ", "))
}

// LogicalFilter represents a filter operation.
type LogicalFilter struct {
	basePlan
	Predicate Expression
}

func (f *LogicalFilter) logicalNode() {}

func (f *LogicalFilter) Kind() PlanKind { return KindFilter }

func (f *LogicalFilter) Expressions() []Expression { return []Expression{f.Predicate} }

func (f *LogicalFilter) String() string {
	return fmt.Sprintf("Filter(%s)", f.Predicate.String())
}

// LogicalProject represents a projection operation.
type LogicalProject struct {
	basePlan
	Projections []Expression
	Aliases     []string
}

func (p *LogicalProject) logicalNode() {}

func (p *LogicalProject) Kind() PlanKind { return KindProject }

func (p *LogicalProject) Expressions() []Expression {
	return append([]Expression(nil), p.Projections...)
}

func (p *LogicalProject) String() string {
	var projStrs []string
	for i, proj := range p.Projections {
		str := proj.String()
		if i < len(p.Aliases) && p.Aliases[i] != "" {
			str += " AS " + p.Aliases[i]
		}
		projStrs = append(projStrs, str)
	}
	return fmt.Sprintf("Project(%s)", strings.Join(projStrs, ", "))
}

// LogicalSort represents a sort operation.
type LogicalSort struct {
	basePlan
	OrderBy []OrderByExpr
}

func (s *LogicalSort) logicalNode() {}

func (s *LogicalSort) Kind() PlanKind { return KindSort }

func (s *LogicalSort) Expressions() []Expression {
	exprs := make([]Expression, len(s.OrderBy))
	for i, o := range s.OrderBy {
		exprs[i] = o.Expr
	}
	return exprs
}

func (s *LogicalSort) String() string {
	var orderStrs []string
	for _, o := range s.OrderBy {
		orderStrs = append(orderStrs, o.String())
	}
	return fmt.Sprintf("Sort(%s)", strings.Join(orderStrs, ", "))
}

// OrderByExpr represents an ORDER BY expression.
type OrderByExpr struct {
	Expr  Expression
	Order SortOrder
}

func (o OrderByExpr) String() string {
	return fmt.Sprintf("%s %s", o.Expr.String(), o.Order.String())
}

// LogicalLimit represents a limit operation.
type LogicalLimit struct {
	basePlan
	Limit  int64
	Offset int64
}

func (l *LogicalLimit) logicalNode() {}

func (l *LogicalLimit) Kind() PlanKind { return KindLimit }

func (l *LogicalLimit) Expressions() []Expression { return nil }

func (l *LogicalLimit) String() string {
	if l.Offset > 0 {
		return fmt.Sprintf("Limit(%d, %d)", l.Limit, l.Offset)
	}
	return fmt.Sprintf("Limit(%d)", l.Limit)
}

// LogicalJoin represents a join operation. Condition is nil for joins
// without a predicate, such as CROSS joins.
type LogicalJoin struct {
	basePlan
	JoinType  JoinType
	Condition Expression
}

func (j *LogicalJoin) logicalNode() {}

func (j *LogicalJoin) Kind() PlanKind { return KindJoin }

// Left returns the left input.
func (j *LogicalJoin) Left() LogicalPlan { return j.children[0] }

// Right returns the right input.
func (j *LogicalJoin) Right() LogicalPlan { return j.children[1] }

func (j *LogicalJoin) Expressions() []Expression {
	if j.Condition == nil {
		return nil
	}
	return []Expression{j.Condition}
}

func (j *LogicalJoin) String() string {
	if j.Condition == nil {
		return fmt.Sprintf("%s Join", j.JoinType.String())
	}
	return fmt.Sprintf("%s Join(%s)", j.JoinType.String(), j.Condition.String())
}

// LogicalAggregate represents an aggregation operation.
type LogicalAggregate struct {
	basePlan
	GroupBy    []Expression
	Aggregates []*AggregateExpr
}

func (a *LogicalAggregate) logicalNode() {}

func (a *LogicalAggregate) Kind() PlanKind { return KindAggregate }

// Expressions returns the group-by expressions followed by the aggregates.
func (a *LogicalAggregate) Expressions() []Expression {
	exprs := make([]Expression, 0, len(a.GroupBy)+len(a.Aggregates))
	exprs = append(exprs, a.GroupBy...)
	for _, agg := range a.Aggregates {
		exprs = append(exprs, agg)
	}
	return exprs
}

func (a *LogicalAggregate) String() string {
	var parts []string

	if len(a.GroupBy) > 0 {
		parts = append(parts, "GROUP BY "+joinExprs(a.GroupBy))
	}

	if len(a.Aggregates) > 0 {
		var aggStrs []string
		for _, agg := range a.Aggregates {
			aggStrs = append(aggStrs, agg.String())
		}
		parts = append(parts, strings.Join(aggStrs, ", "))
	}

	return fmt.Sprintf("Aggregate(%s)", strings.Join(parts, " "))
}

// NewLogicalScan creates a new logical scan node.
func NewLogicalScan(tableName, alias string, schema *Schema) *LogicalScan {
	return &LogicalScan{
		basePlan: basePlan{
			schema: schema,
		},
		TableName: tableName,
		Alias:     alias,
	}
}

// NewLogicalValues creates a new logical values node.
func NewLogicalValues(rows [][]Expression, schema *Schema) *LogicalValues {
	return &LogicalValues{
		basePlan: basePlan{
			schema: schema,
		},
		Rows: rows,
	}
}

// NewLogicalFilter creates a new logical filter node.
func NewLogicalFilter(child LogicalPlan, predicate Expression) *LogicalFilter {
	return &LogicalFilter{
		basePlan: basePlan{
			children: []LogicalPlan{child},
			schema:   child.Schema(),
		},
		Predicate: predicate,
	}
}

// NewLogicalProject creates a new logical project node.
func NewLogicalProject(child LogicalPlan, projections []Expression, aliases []string, schema *Schema) *LogicalProject {
	return &LogicalProject{
		basePlan: basePlan{
			children: []LogicalPlan{child},
			schema:   schema,
		},
		Projections: projections,
		Aliases:     aliases,
	}
}

// NewLogicalSort creates a new logical sort node.
func NewLogicalSort(child LogicalPlan, orderBy []OrderByExpr) *LogicalSort {
	return &LogicalSort{
		basePlan: basePlan{
			children: []LogicalPlan{child},
			schema:   child.Schema(),
		},
		OrderBy: orderBy,
	}
}

// NewLogicalLimit creates a new logical limit node.
func NewLogicalLimit(child LogicalPlan, limit, offset int64) *LogicalLimit {
	return &LogicalLimit{
		basePlan: basePlan{
			children: []LogicalPlan{child},
			schema:   child.Schema(),
		},
		Limit:  limit,
		Offset: offset,
	}
}

// NewLogicalJoin creates a new logical join node. The output schema is
// derived from the inputs and the join type.
func NewLogicalJoin(left, right LogicalPlan, joinType JoinType, condition Expression) *LogicalJoin {
	return &LogicalJoin{
		basePlan: basePlan{
			children: []LogicalPlan{left, right},
			schema:   joinSchema(left.Schema(), right.Schema(), joinType),
		},
		JoinType:  joinType,
		Condition: condition,
	}
}

// NewLogicalAggregate creates a new logical aggregate node.
func NewLogicalAggregate(child LogicalPlan, groupBy []Expression, aggregates []*AggregateExpr, schema *Schema) *LogicalAggregate {
	return &LogicalAggregate{
		basePlan: basePlan{
			children: []LogicalPlan{child},
			schema:   schema,
		},
		GroupBy:    groupBy,
		Aggregates: aggregates,
	}
}

// joinSchema computes the output columns of a join. Semi and anti joins
// only return the preserved side; outer joins make the other side nullable.
func joinSchema(left, right *Schema, joinType JoinType) *Schema {
	switch joinType {
	case LeftSemiJoin, LeftAntiJoin:
		return left
	case RightSemiJoin, RightAntiJoin:
		return right
	}

	if left == nil && right == nil {
		return nil
	}

	schema := &Schema{}
	if left != nil {
		for _, col := range left.Columns {
			if joinType == RightJoin || joinType == FullJoin {
				col.Nullable = true
			}
			schema.Columns = append(schema.Columns, col)
		}
	}
	if right != nil {
		for _, col := range right.Columns {
			if joinType == LeftJoin || joinType == FullJoin {
				col.Nullable = true
			}
			schema.Columns = append(schema.Columns, col)
		}
	}
	return schema
}
