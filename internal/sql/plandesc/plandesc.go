// Package plandesc reads and writes logical plans as JSON documents, so
// plans can be stored in files, fed to the command line tool and compared
// in tests without a SQL front end.
package plandesc

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	qerrors "github.com/dshills/quantaopt/internal/errors"
	"github.com/dshills/quantaopt/internal/sql/planner"
)

// Node describes one plan node. Which fields apply depends on Kind.
type Node struct {
	Kind        string     `json:"kind"`
	Table       string     `json:"table,omitempty"`
	Alias       string     `json:"alias,omitempty"`
	Columns     []Column   `json:"columns,omitempty"`
	JoinType    string     `json:"join_type,omitempty"`
	Condition   *Expr      `json:"condition,omitempty"`
	Predicate   *Expr      `json:"predicate,omitempty"`
	Projections []*Expr    `json:"projections,omitempty"`
	Aliases     []string   `json:"aliases,omitempty"`
	OrderBy     []OrderKey `json:"order_by,omitempty"`
	Limit       int64      `json:"limit,omitempty"`
	Offset      int64      `json:"offset,omitempty"`
	GroupBy     []*Expr    `json:"group_by,omitempty"`
	Aggregates  []*Expr    `json:"aggregates,omitempty"`
	Rows        [][]*Expr  `json:"rows,omitempty"`
	Children    []*Node    `json:"children,omitempty"`
}

// Column describes an output column of a scan or values node.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Nullable bool   `json:"nullable,omitempty"`
	Table    string `json:"table,omitempty"`
}

// OrderKey describes one ORDER BY key.
type OrderKey struct {
	Expr *Expr `json:"expr"`
	Desc bool  `json:"desc,omitempty"`
}

// Decode reads one plan description from r and builds the plan.
func Decode(r io.Reader) (planner.LogicalPlan, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	dec.UseNumber()

	var root Node
	if err := dec.Decode(&root); err != nil {
		return nil, qerrors.Wrap(err, qerrors.InvalidPlan, "failed to parse plan description")
	}
	return Build(&root)
}

// Encode writes the description of plan to w as indented JSON.
func Encode(w io.Writer, plan planner.LogicalPlan) error {
	node, err := Describe(plan)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(node)
}

// Build converts a description into a plan, validating arity per kind.
func Build(node *Node) (planner.LogicalPlan, error) {
	return build(node, "$")
}

func build(node *Node, path string) (planner.LogicalPlan, error) {
	if node == nil {
		return nil, qerrors.InvalidPlanErrorf(path, "missing plan node")
	}

	kind, ok := parseKind(node.Kind)
	if !ok {
		return nil, qerrors.InvalidPlanErrorf(path, "unknown plan kind %q", node.Kind)
	}
	if len(node.Children) != kind.Arity() {
		return nil, qerrors.InvalidPlanErrorf(path, "%s expects %d children, got %d", kind, kind.Arity(), len(node.Children))
	}

	children := make([]planner.LogicalPlan, len(node.Children))
	for i, c := range node.Children {
		child, err := build(c, childPath(path, i))
		if err != nil {
			return nil, err
		}
		children[i] = child
	}

	switch kind {
	case planner.KindScan:
		if node.Table == "" {
			return nil, qerrors.InvalidPlanErrorf(path, "scan requires a table")
		}
		return planner.NewLogicalScan(node.Table, node.Alias, buildSchema(node.Columns, node.Alias)), nil

	case planner.KindValues:
		rows := make([][]planner.Expression, len(node.Rows))
		for i, row := range node.Rows {
			if i > 0 && len(row) != len(node.Rows[0]) {
				return nil, qerrors.InvalidPlanErrorf(path, "values row %d has %d cells, expected %d", i, len(row), len(node.Rows[0]))
			}
			cells, err := buildExprs(row, path+".rows")
			if err != nil {
				return nil, err
			}
			rows[i] = cells
		}
		return planner.NewLogicalValues(rows, buildSchema(node.Columns, "")), nil

	case planner.KindFilter:
		pred, err := buildExpr(node.Predicate, path+".predicate")
		if err != nil {
			return nil, err
		}
		return planner.NewLogicalFilter(children[0], pred), nil

	case planner.KindProject:
		if len(node.Projections) == 0 {
			return nil, qerrors.InvalidPlanErrorf(path, "project requires at least one projection")
		}
		if len(node.Aliases) > len(node.Projections) {
			return nil, qerrors.InvalidPlanErrorf(path, "project has %d aliases for %d projections", len(node.Aliases), len(node.Projections))
		}
		projs, err := buildExprs(node.Projections, path+".projections")
		if err != nil {
			return nil, err
		}
		return planner.NewLogicalProject(children[0], projs, node.Aliases, outputSchema(projs, node.Aliases)), nil

	case planner.KindSort:
		if len(node.OrderBy) == 0 {
			return nil, qerrors.InvalidPlanErrorf(path, "sort requires at least one key")
		}
		keys := make([]planner.OrderByExpr, len(node.OrderBy))
		for i, k := range node.OrderBy {
			e, err := buildExpr(k.Expr, path+".order_by")
			if err != nil {
				return nil, err
			}
			keys[i] = planner.OrderByExpr{Expr: e, Order: planner.Ascending}
			if k.Desc {
				keys[i].Order = planner.Descending
			}
		}
		return planner.NewLogicalSort(children[0], keys), nil

	case planner.KindLimit:
		if node.Limit < 0 || node.Offset < 0 {
			return nil, qerrors.InvalidPlanErrorf(path, "limit and offset must not be negative")
		}
		return planner.NewLogicalLimit(children[0], node.Limit, node.Offset), nil

	case planner.KindJoin:
		joinType, ok := planner.ParseJoinType(node.JoinType)
		if !ok {
			return nil, qerrors.InvalidPlanErrorf(path, "unknown join type %q", node.JoinType)
		}
		var cond planner.Expression
		if node.Condition != nil {
			c, err := buildExpr(node.Condition, path+".condition")
			if err != nil {
				return nil, err
			}
			cond = c
		}
		return planner.NewLogicalJoin(children[0], children[1], joinType, cond), nil

	case planner.KindAggregate:
		groupBy, err := buildExprs(node.GroupBy, path+".group_by")
		if err != nil {
			return nil, err
		}
		aggs := make([]*planner.AggregateExpr, len(node.Aggregates))
		for i, a := range node.Aggregates {
			e, err := buildExpr(a, path+".aggregates")
			if err != nil {
				return nil, err
			}
			agg, ok := e.(*planner.AggregateExpr)
			if !ok {
				return nil, qerrors.InvalidPlanErrorf(path, "aggregate %d is not an aggregate function", i)
			}
			aggs[i] = agg
		}
		all := append(append([]planner.Expression(nil), groupBy...), aggExprs(aggs)...)
		return planner.NewLogicalAggregate(children[0], groupBy, aggs, outputSchema(all, nil)), nil

	case planner.KindDistinct:
		return planner.NewLogicalDistinct(children[0]), nil
	}

	return nil, qerrors.InvalidPlanErrorf(path, "unsupported plan kind %s", kind)
}

// Describe converts a plan into its description.
func Describe(plan planner.LogicalPlan) (*Node, error) {
	if plan == nil {
		return nil, qerrors.InvalidPlanErrorf("$", "plan is nil")
	}

	node := &Node{Kind: strings.ToLower(plan.Kind().String())}
	for _, child := range plan.Inputs() {
		c, err := Describe(child)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, c)
	}

	var err error
	switch n := plan.(type) {
	case *planner.LogicalScan:
		node.Table = n.TableName
		node.Alias = n.Alias
		node.Columns = describeSchema(n.Schema())
	case *planner.LogicalValues:
		node.Columns = describeSchema(n.Schema())
		for _, row := range n.Rows {
			cells, err := describeExprs(row)
			if err != nil {
				return nil, err
			}
			node.Rows = append(node.Rows, cells)
		}
	case *planner.LogicalFilter:
		node.Predicate, err = describeExpr(n.Predicate)
	case *planner.LogicalProject:
		node.Aliases = n.Aliases
		node.Projections, err = describeExprs(n.Projections)
	case *planner.LogicalSort:
		for _, o := range n.OrderBy {
			e, err := describeExpr(o.Expr)
			if err != nil {
				return nil, err
			}
			node.OrderBy = append(node.OrderBy, OrderKey{Expr: e, Desc: o.Order == planner.Descending})
		}
	case *planner.LogicalLimit:
		node.Limit = n.Limit
		node.Offset = n.Offset
	case *planner.LogicalJoin:
		node.JoinType = strings.ReplaceAll(strings.ToLower(n.JoinType.String()), " ", "_")
		if n.Condition != nil {
			node.Condition, err = describeExpr(n.Condition)
		}
	case *planner.LogicalAggregate:
		if node.GroupBy, err = describeExprs(n.GroupBy); err != nil {
			return nil, err
		}
		node.Aggregates, err = describeExprs(aggExprs(n.Aggregates))
	case *planner.LogicalDistinct:
	default:
		return nil, qerrors.UnsupportedPlanError("plan description", plan.String())
	}
	if err != nil {
		return nil, err
	}

	return node, nil
}

func parseKind(s string) (planner.PlanKind, bool) {
	for k := planner.KindScan; k <= planner.KindDistinct; k++ {
		if strings.EqualFold(k.String(), s) {
			return k, true
		}
	}
	return 0, false
}

func childPath(path string, i int) string {
	return path + ".children[" + strconv.Itoa(i) + "]"
}

func buildSchema(cols []Column, alias string) *planner.Schema {
	if len(cols) == 0 {
		return nil
	}
	schema := &planner.Schema{Columns: make([]planner.Column, len(cols))}
	for i, c := range cols {
		schema.Columns[i] = planner.Column{
			Name:       c.Name,
			DataType:   c.Type,
			Nullable:   c.Nullable,
			TableName:  c.Table,
			TableAlias: alias,
		}
	}
	return schema
}

func describeSchema(schema *planner.Schema) []Column {
	if schema == nil {
		return nil
	}
	cols := make([]Column, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = Column{Name: c.Name, Type: c.DataType, Nullable: c.Nullable, Table: c.TableName}
	}
	return cols
}

// outputSchema names computed columns after their alias, or their text.
func outputSchema(exprs []planner.Expression, aliases []string) *planner.Schema {
	schema := &planner.Schema{Columns: make([]planner.Column, len(exprs))}
	for i, e := range exprs {
		name := e.String()
		if col, ok := e.(*planner.ColumnRef); ok {
			name = col.ColumnName
		}
		if i < len(aliases) && aliases[i] != "" {
			name = aliases[i]
		}
		schema.Columns[i] = planner.Column{Name: name, Nullable: true}
	}
	return schema
}

func aggExprs(aggs []*planner.AggregateExpr) []planner.Expression {
	exprs := make([]planner.Expression, len(aggs))
	for i, a := range aggs {
		exprs[i] = a
	}
	return exprs
}
