package plandesc

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	qerrors "github.com/dshills/quantaopt/internal/errors"
	"github.com/dshills/quantaopt/internal/sql/planner"
)

// Expr describes an expression. Exactly one form applies:
//
//	{"star": true, "table": "t"}                 t.*
//	{"column": "a", "table": "t"}                t.a
//	{"literal": 1} / {"null": true}              constants
//	{"op": "=", "left": {...}, "right": {...}}   binary operators
//	{"op": "NOT", "operand": {...}}              unary operators
//	{"func": "lower", "args": [...]}             scalar functions
//	{"agg": "COUNT", "args": [...]}              aggregates
type Expr struct {
	Star     bool            `json:"star,omitempty"`
	Column   string          `json:"column,omitempty"`
	Table    string          `json:"table,omitempty"`
	Literal  json.RawMessage `json:"literal,omitempty"`
	Null     bool            `json:"null,omitempty"`
	Op       string          `json:"op,omitempty"`
	Left     *Expr           `json:"left,omitempty"`
	Right    *Expr           `json:"right,omitempty"`
	Operand  *Expr           `json:"operand,omitempty"`
	Func     string          `json:"func,omitempty"`
	Agg      string          `json:"agg,omitempty"`
	Distinct bool            `json:"distinct,omitempty"`
	Args     []*Expr         `json:"args,omitempty"`
}

func buildExprs(exprs []*Expr, path string) ([]planner.Expression, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make([]planner.Expression, len(exprs))
	for i, e := range exprs {
		built, err := buildExpr(e, path+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		out[i] = built
	}
	return out, nil
}

func buildExpr(e *Expr, path string) (planner.Expression, error) {
	switch {
	case e == nil:
		return nil, qerrors.InvalidPlanErrorf(path, "missing expression")

	case e.Star:
		return &planner.Star{TableAlias: e.Table}, nil

	case e.Column != "":
		return &planner.ColumnRef{TableAlias: e.Table, ColumnName: e.Column}, nil

	case e.Null:
		return &planner.Literal{Value: nil}, nil

	case len(e.Literal) > 0:
		v, err := decodeLiteral(e.Literal)
		if err != nil {
			return nil, qerrors.Wrap(err, qerrors.InvalidPlan, "invalid literal").WithPath(path)
		}
		return &planner.Literal{Value: v}, nil

	case e.Left != nil || e.Right != nil:
		op, ok := planner.ParseBinaryOperator(e.Op)
		if !ok {
			return nil, qerrors.InvalidPlanErrorf(path, "unknown binary operator %q", e.Op)
		}
		left, err := buildExpr(e.Left, path+".left")
		if err != nil {
			return nil, err
		}
		right, err := buildExpr(e.Right, path+".right")
		if err != nil {
			return nil, err
		}
		return &planner.BinaryOp{Left: left, Right: right, Operator: op}, nil

	case e.Operand != nil:
		op, ok := planner.ParseUnaryOperator(e.Op)
		if !ok {
			return nil, qerrors.InvalidPlanErrorf(path, "unknown unary operator %q", e.Op)
		}
		operand, err := buildExpr(e.Operand, path+".operand")
		if err != nil {
			return nil, err
		}
		return &planner.UnaryOp{Expr: operand, Operator: op}, nil

	case e.Agg != "":
		fn, ok := planner.ParseAggregateFunc(e.Agg)
		if !ok {
			return nil, qerrors.InvalidPlanErrorf(path, "unknown aggregate %q", e.Agg)
		}
		args, err := buildExprs(e.Args, path+".args")
		if err != nil {
			return nil, err
		}
		return &planner.AggregateExpr{Function: fn, Args: args, Distinct: e.Distinct}, nil

	case e.Func != "":
		args, err := buildExprs(e.Args, path+".args")
		if err != nil {
			return nil, err
		}
		return &planner.FunctionCall{Name: e.Func, Args: args}, nil
	}

	return nil, qerrors.InvalidPlanErrorf(path, "empty expression")
}

// decodeLiteral keeps integers integral; other numbers become float64.
func decodeLiteral(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return n.Float64()
	}
	switch v.(type) {
	case nil, string, bool:
		return v, nil
	}
	return nil, qerrors.Newf(qerrors.InvalidPlan, "literal must be a scalar, got %s", string(raw))
}

// encodeLiteral writes integral floats with a fraction so decodeLiteral
// reads them back as float64.
func encodeLiteral(v any) (json.RawMessage, error) {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return json.RawMessage(strconv.FormatFloat(f, 'f', -1, 64) + ".0"), nil
	}
	return json.Marshal(v)
}

func describeExprs(exprs []planner.Expression) ([]*Expr, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make([]*Expr, len(exprs))
	for i, e := range exprs {
		d, err := describeExpr(e)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func describeExpr(e planner.Expression) (*Expr, error) {
	switch x := e.(type) {
	case *planner.Star:
		return &Expr{Star: true, Table: x.TableAlias}, nil

	case *planner.ColumnRef:
		return &Expr{Column: x.ColumnName, Table: x.TableAlias}, nil

	case *planner.Literal:
		if x.Value == nil {
			return &Expr{Null: true}, nil
		}
		raw, err := encodeLiteral(x.Value)
		if err != nil {
			return nil, qerrors.Wrap(err, qerrors.InvalidPlan, "literal cannot be described")
		}
		return &Expr{Literal: raw}, nil

	case *planner.BinaryOp:
		left, err := describeExpr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := describeExpr(x.Right)
		if err != nil {
			return nil, err
		}
		return &Expr{Op: x.Operator.String(), Left: left, Right: right}, nil

	case *planner.UnaryOp:
		operand, err := describeExpr(x.Expr)
		if err != nil {
			return nil, err
		}
		return &Expr{Op: x.Operator.String(), Operand: operand}, nil

	case *planner.AggregateExpr:
		args, err := describeExprs(x.Args)
		if err != nil {
			return nil, err
		}
		return &Expr{Agg: x.Function.String(), Distinct: x.Distinct, Args: args}, nil

	case *planner.FunctionCall:
		args, err := describeExprs(x.Args)
		if err != nil {
			return nil, err
		}
		return &Expr{Func: x.Name, Args: args}, nil
	}

	return nil, qerrors.UnsupportedPlanError("plan description", e.String())
}
