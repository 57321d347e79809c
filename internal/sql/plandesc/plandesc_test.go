package plandesc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/dshills/quantaopt/internal/errors"
	"github.com/dshills/quantaopt/internal/sql/planner"
	"github.com/dshills/quantaopt/internal/testutil"
)

const semiJoinDoc = `{
  "kind": "join",
  "join_type": "left_semi",
  "condition": {
    "op": "=",
    "left": {"column": "a", "table": "t1"},
    "right": {"column": "b", "table": "t2"}
  },
  "children": [
    {
      "kind": "distinct",
      "children": [
        {"kind": "scan", "table": "t1", "columns": [{"name": "a", "type": "INTEGER"}]}
      ]
    },
    {"kind": "scan", "table": "t2", "columns": [{"name": "b", "type": "INTEGER", "nullable": true}]}
  ]
}`

func TestDecode(t *testing.T) {
	plan, err := Decode(strings.NewReader(semiJoinDoc))
	require.NoError(t, err)

	testutil.AssertPlanText(t, testutil.Tree(
		"LEFT SEMI Join((t1.a = t2.b))",
		"  Distinct",
		"    Scan(t1)",
		"  Scan(t2)",
	), planner.ExplainPlan(plan))

	join := plan.(*planner.LogicalJoin)
	assert.Equal(t, planner.LeftSemiJoin, join.JoinType)
	require.NotNil(t, join.Schema())
	assert.Equal(t, []planner.Column{{Name: "a", DataType: "INTEGER", TableName: ""}}, join.Schema().Columns)
}

func TestDecodeKindIsCaseInsensitive(t *testing.T) {
	plan, err := Decode(strings.NewReader(`{"kind": "Distinct", "children": [{"kind": "SCAN", "table": "t1"}]}`))
	require.NoError(t, err)
	assert.Equal(t, planner.KindDistinct, plan.Kind())
}

func TestRoundTrip(t *testing.T) {
	scan := planner.NewLogicalScan("users", "u", &planner.Schema{Columns: []planner.Column{
		{Name: "id", DataType: "INTEGER", TableName: "users", TableAlias: "u"},
		{Name: "name", DataType: "TEXT", Nullable: true, TableName: "users", TableAlias: "u"},
	}})
	values := planner.NewLogicalValues([][]planner.Expression{
		{&planner.Literal{Value: int64(1)}, &planner.Literal{Value: "one"}},
		{&planner.Literal{Value: 1.5}, &planner.Literal{Value: nil}},
	}, &planner.Schema{Columns: []planner.Column{{Name: "id"}, {Name: "label"}}})

	filter := planner.NewLogicalFilter(scan, &planner.BinaryOp{
		Left: &planner.UnaryOp{
			Expr:     &planner.ColumnRef{TableAlias: "u", ColumnName: "name"},
			Operator: planner.OpIsNotNull,
		},
		Right: &planner.UnaryOp{
			Expr: &planner.BinaryOp{
				Left:     &planner.FunctionCall{Name: "lower", Args: []planner.Expression{&planner.ColumnRef{TableAlias: "u", ColumnName: "name"}}},
				Right:    &planner.Literal{Value: "bob"},
				Operator: planner.OpLike,
			},
			Operator: planner.OpNot,
		},
		Operator: planner.OpAnd,
	})
	agg := planner.NewLogicalAggregate(
		planner.NewLogicalJoin(filter, values, planner.InnerJoin, &planner.BinaryOp{
			Left:     &planner.ColumnRef{TableAlias: "u", ColumnName: "id"},
			Right:    &planner.ColumnRef{ColumnName: "id"},
			Operator: planner.OpEqual,
		}),
		[]planner.Expression{&planner.ColumnRef{ColumnName: "label"}},
		[]*planner.AggregateExpr{
			{Function: planner.AggCount, Args: []planner.Expression{&planner.Star{}}},
			{Function: planner.AggSum, Args: []planner.Expression{&planner.ColumnRef{TableAlias: "u", ColumnName: "id"}}, Distinct: true},
		},
		nil,
	)
	plan := planner.NewLogicalLimit(
		planner.NewLogicalSort(
			planner.NewLogicalProject(
				planner.NewLogicalDistinct(agg),
				[]planner.Expression{&planner.ColumnRef{ColumnName: "label"}},
				[]string{"l"},
				nil,
			),
			[]planner.OrderByExpr{{Expr: &planner.ColumnRef{ColumnName: "l"}, Order: planner.Descending}},
		),
		10, 20,
	)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, plan))

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	testutil.AssertPlanText(t, planner.ExplainPlan(plan), planner.ExplainPlan(decoded))
	assert.Equal(t, planner.Fingerprint(plan), planner.Fingerprint(decoded))
}

func TestRoundTripKeepsLiteralTypes(t *testing.T) {
	literals := []any{int64(1), 1.0, -3.0, 2.5, 1e21, "1.0", true}

	row := make([]planner.Expression, len(literals))
	for i, v := range literals {
		row[i] = &planner.Literal{Value: v}
	}
	plan := planner.NewLogicalValues([][]planner.Expression{row}, nil)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, plan))
	assert.Contains(t, buf.String(), `"literal": 1.0`)

	decoded, err := Decode(&buf)
	require.NoError(t, err)

	values := decoded.(*planner.LogicalValues)
	require.Len(t, values.Rows, 1)
	for i, cell := range values.Rows[0] {
		assert.Equal(t, literals[i], cell.(*planner.Literal).Value, "cell %d", i)
	}
}

func TestEncode(t *testing.T) {
	plan, err := Decode(strings.NewReader(semiJoinDoc))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, plan))
	assert.Contains(t, buf.String(), `"kind": "join"`)
	assert.Contains(t, buf.String(), `"join_type": "left_semi"`)
	assert.Contains(t, buf.String(), `"kind": "distinct"`)
}

func TestDescribeNil(t *testing.T) {
	_, err := Describe(nil)
	assert.ErrorIs(t, err, qerrors.ErrInvalidPlan)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
		msg  string
	}{
		{
			name: "malformed json",
			doc:  `{"kind": `,
			msg:  "failed to parse plan description",
		},
		{
			name: "unknown field",
			doc:  `{"kind": "scan", "table": "t1", "tabel": "t2"}`,
			msg:  "failed to parse plan description",
		},
		{
			name: "unknown kind",
			doc:  `{"kind": "window"}`,
			path: "$",
			msg:  `unknown plan kind "window"`,
		},
		{
			name: "missing child",
			doc:  `{"kind": "join", "join_type": "inner", "children": [{"kind": "distinct"}, {"kind": "scan", "table": "t2"}]}`,
			path: "$.children[0]",
			msg:  "Distinct expects 1 children, got 0",
		},
		{
			name: "scan with children",
			doc:  `{"kind": "scan", "table": "t1", "children": [{"kind": "scan", "table": "t2"}]}`,
			path: "$",
			msg:  "Scan expects 0 children, got 1",
		},
		{
			name: "scan without table",
			doc:  `{"kind": "scan"}`,
			path: "$",
			msg:  "scan requires a table",
		},
		{
			name: "unknown join type",
			doc:  `{"kind": "join", "join_type": "sideways", "children": [{"kind": "scan", "table": "t1"}, {"kind": "scan", "table": "t2"}]}`,
			path: "$",
			msg:  `unknown join type "sideways"`,
		},
		{
			name: "ragged values",
			doc:  `{"kind": "values", "rows": [[{"literal": 1}, {"literal": 2}], [{"literal": 3}]]}`,
			path: "$",
			msg:  "values row 1 has 1 cells, expected 2",
		},
		{
			name: "filter without predicate",
			doc:  `{"kind": "filter", "children": [{"kind": "scan", "table": "t1"}]}`,
			path: "$.predicate",
			msg:  "missing expression",
		},
		{
			name: "negative limit",
			doc:  `{"kind": "limit", "limit": -1, "children": [{"kind": "scan", "table": "t1"}]}`,
			path: "$",
			msg:  "limit and offset must not be negative",
		},
		{
			name: "plain expression as aggregate",
			doc:  `{"kind": "aggregate", "aggregates": [{"column": "a"}], "children": [{"kind": "scan", "table": "t1"}]}`,
			path: "$",
			msg:  "aggregate 0 is not an aggregate function",
		},
		{
			name: "unknown operator",
			doc:  `{"kind": "filter", "predicate": {"op": "~~", "left": {"column": "a"}, "right": {"column": "b"}}, "children": [{"kind": "scan", "table": "t1"}]}`,
			path: "$.predicate",
			msg:  `unknown binary operator "~~"`,
		},
		{
			name: "empty expression",
			doc:  `{"kind": "project", "projections": [{}], "children": [{"kind": "scan", "table": "t1"}]}`,
			path: "$.projections[0]",
			msg:  "empty expression",
		},
		{
			name: "non-scalar literal",
			doc:  `{"kind": "values", "rows": [[{"literal": [1, 2]}]]}`,
			path: "$.rows[0]",
			msg:  "invalid literal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, qerrors.ErrInvalidPlan)
			assert.Contains(t, err.Error(), tt.msg)

			if tt.path != "" {
				var qErr *qerrors.Error
				require.ErrorAs(t, err, &qErr)
				assert.Equal(t, tt.path, qErr.Path)
			}
		})
	}
}
