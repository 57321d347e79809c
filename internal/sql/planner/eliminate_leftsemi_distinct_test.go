package planner

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/dshills/quantaopt/internal/errors"
	"github.com/dshills/quantaopt/internal/log"
	"github.com/dshills/quantaopt/internal/testutil"
)

func TestEliminateLeftSemiDistinctName(t *testing.T) {
	assert.Equal(t, "eliminate_leftsemi_distinct", NewEliminateLeftSemiDistinct().Name())
}

func TestEliminateLeftSemiDistinct(t *testing.T) {
	tests := []struct {
		name     string
		plan     LogicalPlan
		expected string
	}{
		{
			name: "semi join over distinct",
			plan: semiJoin(NewLogicalDistinct(testScan("t1")), testScan("t2"), eq("t1.a", "t2.b")),
			expected: testutil.Tree(
				"LEFT SEMI Join((t1.a = t2.b))",
				"  Scan(t1)",
				"  Scan(t2)",
			),
		},
		{
			name: "inner join keeps distinct",
			plan: NewLogicalJoin(NewLogicalDistinct(testScan("t1")), testScan("t2"), InnerJoin, nil),
			expected: testutil.Tree(
				"INNER Join",
				"  Distinct",
				"    Scan(t1)",
				"  Scan(t2)",
			),
		},
		{
			name: "distinct at root",
			plan: NewLogicalDistinct(testScan("t1")),
			expected: testutil.Tree(
				"Distinct",
				"  Scan(t1)",
			),
		},
		{
			name: "distinct on the right of a semi join",
			plan: semiJoin(testScan("t1"), NewLogicalDistinct(testScan("t2")), eq("t1.a", "t2.b")),
			expected: testutil.Tree(
				"LEFT SEMI Join((t1.a = t2.b))",
				"  Scan(t1)",
				"  Distinct",
				"    Scan(t2)",
			),
		},
		{
			name: "distinct below a filter is not the immediate left input",
			plan: semiJoin(NewLogicalFilter(NewLogicalDistinct(testScan("t1")), eq("t1.a", "t1.b")), testScan("t2"), nil),
			expected: testutil.Tree(
				"LEFT SEMI Join",
				"  Filter((t1.a = t1.b))",
				"    Distinct",
				"      Scan(t1)",
				"  Scan(t2)",
			),
		},
		{
			name: "stacked distincts",
			plan: semiJoin(NewLogicalDistinct(NewLogicalDistinct(testScan("t1"))), testScan("t2"), nil),
			expected: testutil.Tree(
				"LEFT SEMI Join",
				"  Scan(t1)",
				"  Scan(t2)",
			),
		},
		{
			name: "match below other operators",
			plan: NewLogicalLimit(
				NewLogicalFilter(
					semiJoin(NewLogicalDistinct(testScan("t1")), testScan("t2"), eq("t1.a", "t2.b")),
					eq("t1.a", "t1.b"),
				),
				10, 0,
			),
			expected: testutil.Tree(
				"Limit(10)",
				"  Filter((t1.a = t1.b))",
				"    LEFT SEMI Join((t1.a = t2.b))",
				"      Scan(t1)",
				"      Scan(t2)",
			),
		},
		{
			name: "nested matches",
			plan: semiJoin(
				NewLogicalDistinct(semiJoin(NewLogicalDistinct(testScan("t1")), testScan("t2"), eq("t1.a", "t2.a"))),
				semiJoin(NewLogicalDistinct(testScan("t3")), testScan("t4"), eq("t3.a", "t4.a")),
				eq("t1.b", "t3.b"),
			),
			expected: testutil.Tree(
				"LEFT SEMI Join((t1.b = t3.b))",
				"  LEFT SEMI Join((t1.a = t2.a))",
				"    Scan(t1)",
				"    Scan(t2)",
				"  LEFT SEMI Join((t3.a = t4.a))",
				"    Scan(t3)",
				"    Scan(t4)",
			),
		},
	}

	rule := NewEliminateLeftSemiDistinct().WithLogger(log.Discard())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := ExplainPlan(tt.plan)

			result, err := rule.Optimize(tt.plan)
			require.NoError(t, err)
			testutil.AssertPlanText(t, tt.expected, ExplainPlan(result))

			// The input tree is never modified.
			assert.Equal(t, before, ExplainPlan(tt.plan))
		})
	}
}

func TestEliminateLeftSemiDistinctRecursesIntoBothSides(t *testing.T) {
	x := NewLogicalFilter(NewLogicalDistinct(testScan("t1")), eq("t1.a", "t1.b"))
	y := semiJoin(NewLogicalDistinct(testScan("t3")), testScan("t4"), nil)
	plan := semiJoin(NewLogicalDistinct(x), y, eq("t1.a", "t3.a"))

	rule := NewEliminateLeftSemiDistinct().WithLogger(log.Discard())
	result, err := rule.Optimize(plan)
	require.NoError(t, err)

	optX, err := rule.Optimize(x)
	require.NoError(t, err)
	optY, err := rule.Optimize(y)
	require.NoError(t, err)

	join, ok := result.(*LogicalJoin)
	require.True(t, ok)
	assert.Equal(t, LeftSemiJoin, join.JoinType)
	assert.Equal(t, Fingerprint(optX), Fingerprint(join.Left()))
	assert.Equal(t, Fingerprint(optY), Fingerprint(join.Right()))
	assert.Equal(t, "(t1.a = t3.a)", join.Condition.String())
	// The Distinct under the filter is not in a semi join position.
	assert.Equal(t, 1, CountKind(result, KindDistinct))
}

func TestEliminateLeftSemiDistinctOtherJoinTypes(t *testing.T) {
	joinTypes := []JoinType{
		InnerJoin, LeftJoin, RightJoin, FullJoin, CrossJoin,
		LeftAntiJoin, RightSemiJoin, RightAntiJoin,
	}

	rule := NewEliminateLeftSemiDistinct().WithLogger(log.Discard())
	for _, jt := range joinTypes {
		t.Run(jt.String(), func(t *testing.T) {
			inner := semiJoin(NewLogicalDistinct(testScan("t1")), testScan("t2"), nil)
			plan := NewLogicalJoin(NewLogicalDistinct(inner), testScan("t3"), jt, nil)

			result, err := rule.Optimize(plan)
			require.NoError(t, err)

			join := result.(*LogicalJoin)
			assert.Equal(t, jt, join.JoinType)
			distinct, ok := join.Left().(*LogicalDistinct)
			require.True(t, ok, "left input should still be a Distinct")
			// Only the subtree below the kept Distinct changed.
			testutil.AssertPlanText(t, testutil.Tree(
				"LEFT SEMI Join",
				"  Scan(t1)",
				"  Scan(t2)",
			), ExplainPlan(distinct.Input()))
		})
	}
}

func TestEliminateLeftSemiDistinctPassThrough(t *testing.T) {
	scan := testScan("t1")
	plans := []LogicalPlan{
		scan,
		NewLogicalValues([][]Expression{{&Literal{Value: int64(1)}, &Literal{Value: "a"}}}, nil),
		NewLogicalSort(
			NewLogicalLimit(
				NewLogicalProject(
					NewLogicalFilter(scan, eq("t1.a", "t1.b")),
					[]Expression{col("t1.a")}, []string{"x"},
					&Schema{Columns: []Column{{Name: "x"}}},
				),
				5, 2,
			),
			[]OrderByExpr{{Expr: col("x"), Order: Descending}},
		),
		NewLogicalAggregate(scan,
			[]Expression{col("t1.a")},
			[]*AggregateExpr{{Function: AggCount, Args: []Expression{&Star{}}}},
			nil,
		),
		NewLogicalJoin(scan, testScan("t2"), LeftJoin, eq("t1.a", "t2.a")),
	}

	rule := NewEliminateLeftSemiDistinct().WithLogger(log.Discard())
	for _, plan := range plans {
		t.Run(plan.String(), func(t *testing.T) {
			result, err := rule.Optimize(plan)
			require.NoError(t, err)
			assert.Equal(t, Fingerprint(plan), Fingerprint(result))
			assert.Equal(t, plan.Schema(), result.Schema())
			// Pass-through still builds a new tree.
			assert.NotSame(t, plan, result)
		})
	}
}

func TestEliminateLeftSemiDistinctIdempotent(t *testing.T) {
	plans := []LogicalPlan{
		semiJoin(NewLogicalDistinct(testScan("t1")), testScan("t2"), eq("t1.a", "t2.b")),
		NewLogicalJoin(NewLogicalDistinct(testScan("t1")), testScan("t2"), InnerJoin, nil),
		NewLogicalDistinct(testScan("t1")),
		semiJoin(
			NewLogicalDistinct(semiJoin(NewLogicalDistinct(testScan("t1")), testScan("t2"), nil)),
			testScan("t3"),
			nil,
		),
		NewLogicalDistinct(semiJoin(
			NewLogicalDistinct(NewLogicalDistinct(testScan("t1"))),
			NewLogicalDistinct(testScan("t2")),
			nil,
		)),
	}

	rule := NewEliminateLeftSemiDistinct().WithLogger(log.Discard())
	for _, plan := range plans {
		once, err := rule.Optimize(plan)
		require.NoError(t, err)
		twice, err := rule.Optimize(once)
		require.NoError(t, err)
		testutil.AssertPlanText(t, ExplainPlan(once), ExplainPlan(twice))
		assert.Equal(t, Fingerprint(once), Fingerprint(twice))
	}
}

func TestEliminateLeftSemiDistinctKeepsJoinArity(t *testing.T) {
	plan := NewLogicalProject(
		semiJoin(
			NewLogicalDistinct(NewLogicalJoin(NewLogicalDistinct(testScan("t1")), testScan("t2"), InnerJoin, nil)),
			semiJoin(NewLogicalDistinct(testScan("t3")), testScan("t4"), nil),
			nil,
		),
		[]Expression{col("t1.a")}, nil, nil,
	)

	result, err := NewEliminateLeftSemiDistinct().WithLogger(log.Discard()).Optimize(plan)
	require.NoError(t, err)
	assert.Equal(t, CountKind(plan, KindJoin), CountKind(result, KindJoin))

	var check func(p LogicalPlan)
	check = func(p LogicalPlan) {
		if p.Kind() == KindJoin {
			assert.Len(t, p.Inputs(), 2, "join %s", p)
		}
		for _, c := range p.Inputs() {
			check(c)
		}
	}
	check(result)
}

func TestEliminateLeftSemiDistinctChildFailure(t *testing.T) {
	rule := NewEliminateLeftSemiDistinct().WithLogger(log.Discard())

	t.Run("right side of a match", func(t *testing.T) {
		plan := semiJoin(NewLogicalDistinct(testScan("t1")), &opaquePlan{}, nil)

		_, err := rule.Optimize(plan)
		require.Error(t, err)
		assert.ErrorIs(t, err, qerrors.ErrChildOptimizationFailure)
		assert.ErrorIs(t, err, qerrors.ErrUnsupportedPlan)
		assert.Contains(t, err.Error(), "optimizing child 1 of Join")

		var qErr *qerrors.Error
		require.ErrorAs(t, err, &qErr)
		assert.Equal(t, EliminateLeftSemiDistinctName, qErr.Rule)
	})

	t.Run("below a pass-through node", func(t *testing.T) {
		plan := NewLogicalFilter(&opaquePlan{}, eq("a", "b"))

		_, err := rule.Optimize(plan)
		require.Error(t, err)
		assert.ErrorIs(t, err, qerrors.ErrChildOptimizationFailure)
		assert.Contains(t, err.Error(), "optimizing child 0 of Filter")
	})
}

func TestEliminateLeftSemiDistinctLogsRewrite(t *testing.T) {
	var buf bytes.Buffer
	rule := NewEliminateLeftSemiDistinct().WithLogger(log.NewTextLogger(&buf, slog.LevelDebug))

	_, err := rule.Optimize(NewLogicalDistinct(testScan("t1")))
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	_, err = rule.Optimize(semiJoin(NewLogicalDistinct(testScan("t1")), testScan("t2"), nil))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "removed distinct below semi join")
	assert.Contains(t, buf.String(), "rule=eliminate_leftsemi_distinct")
}
