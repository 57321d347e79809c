package planner

import (
	"strings"
)

func testScan(table string) *LogicalScan {
	return NewLogicalScan(table, "", &Schema{Columns: []Column{
		{Name: "a", DataType: "INTEGER", TableName: table},
		{Name: "b", DataType: "INTEGER", Nullable: true, TableName: table},
	}})
}

func col(ref string) *ColumnRef {
	if table, name, ok := strings.Cut(ref, "."); ok {
		return &ColumnRef{TableAlias: table, ColumnName: name}
	}
	return &ColumnRef{ColumnName: ref}
}

func eq(left, right string) Expression {
	return &BinaryOp{Left: col(left), Right: col(right), Operator: OpEqual}
}

func semiJoin(left, right LogicalPlan, cond Expression) *LogicalJoin {
	return NewLogicalJoin(left, right, LeftSemiJoin, cond)
}

// opaquePlan is a leaf Rebuild does not know how to construct.
type opaquePlan struct {
	basePlan
}

func (o *opaquePlan) logicalNode()              {}
func (o *opaquePlan) Kind() PlanKind            { return KindScan }
func (o *opaquePlan) Expressions() []Expression { return nil }
func (o *opaquePlan) String() string            { return "Opaque" }

// funcRule adapts a function to OptimizerRule.
type funcRule struct {
	name  string
	fn    func(LogicalPlan) (LogicalPlan, error)
	calls int
}

func (r *funcRule) Name() string { return r.name }

func (r *funcRule) Optimize(plan LogicalPlan) (LogicalPlan, error) {
	r.calls++
	return r.fn(plan)
}
