package planner

import (
	"fmt"
	"strings"
)

// Expression represents an expression attached to a plan node. Expressions
// are immutable once built; rewrites share them between old and new trees.
type Expression interface {
	// String returns a string representation.
	String() string
	exprNode()
}

// ColumnRef represents a reference to a column.
type ColumnRef struct {
	TableAlias string
	ColumnName string
}

func (c *ColumnRef) exprNode() {}

func (c *ColumnRef) String() string {
	if c.TableAlias != "" {
		return fmt.Sprintf("%s.%s", c.TableAlias, c.ColumnName)
	}
	return c.ColumnName
}

// Literal represents a literal value. Value holds nil for NULL, or a string,
// bool, integer or float.
type Literal struct {
	Value any
}

func (l *Literal) exprNode() {}

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return fmt.Sprintf("'%s'", strings.ReplaceAll(v, "'", "''"))
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// BinaryOp represents a binary operation.
type BinaryOp struct {
	Left     Expression
	Right    Expression
	Operator BinaryOperator
}

// BinaryOperator represents a binary operator.
type BinaryOperator int

const (
	// Arithmetic operators
	OpAdd BinaryOperator = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo

	// Comparison operators
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual

	// Logical operators
	OpAnd
	OpOr

	// String operators
	OpConcat
	OpLike
	OpNotLike
)

var binaryTokens = [...]string{
	OpAdd:          "+",
	OpSubtract:     "-",
	OpMultiply:     "*",
	OpDivide:       "/",
	OpModulo:       "%",
	OpEqual:        "=",
	OpNotEqual:     "!=",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpAnd:          "AND",
	OpOr:           "OR",
	OpConcat:       "||",
	OpLike:         "LIKE",
	OpNotLike:      "NOT LIKE",
}

func (op BinaryOperator) String() string {
	if op < 0 || int(op) >= len(binaryTokens) {
		return fmt.Sprintf("Unknown(%d)", int(op))
	}
	return binaryTokens[op]
}

// ParseBinaryOperator maps an operator token back to its BinaryOperator.
func ParseBinaryOperator(token string) (BinaryOperator, bool) {
	for op, tok := range binaryTokens {
		if strings.EqualFold(tok, token) {
			return BinaryOperator(op), true
		}
	}
	if token == "<>" {
		return OpNotEqual, true
	}
	return 0, false
}

func (b *BinaryOp) exprNode() {}

func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left.String(), b.Operator.String(), b.Right.String())
}

// UnaryOp represents a unary operation.
type UnaryOp struct {
	Expr     Expression
	Operator UnaryOperator
}

// UnaryOperator represents a unary operator.
type UnaryOperator int

const (
	OpNot UnaryOperator = iota
	OpNegate
	OpIsNull
	OpIsNotNull
)

var unaryTokens = [...]string{
	OpNot:       "NOT",
	OpNegate:    "-",
	OpIsNull:    "IS NULL",
	OpIsNotNull: "IS NOT NULL",
}

func (op UnaryOperator) String() string {
	if op < 0 || int(op) >= len(unaryTokens) {
		return fmt.Sprintf("Unknown(%d)", int(op))
	}
	return unaryTokens[op]
}

// postfix reports whether the operator is written after its operand.
func (op UnaryOperator) postfix() bool {
	return op == OpIsNull || op == OpIsNotNull
}

// ParseUnaryOperator maps an operator token back to its UnaryOperator.
func ParseUnaryOperator(token string) (UnaryOperator, bool) {
	for op, tok := range unaryTokens {
		if strings.EqualFold(tok, token) {
			return UnaryOperator(op), true
		}
	}
	return 0, false
}

func (u *UnaryOp) exprNode() {}

func (u *UnaryOp) String() string {
	if u.Operator.postfix() {
		return fmt.Sprintf("%s %s", u.Expr.String(), u.Operator.String())
	}
	return fmt.Sprintf("%s %s", u.Operator.String(), u.Expr.String())
}

// FunctionCall represents a scalar function call.
type FunctionCall struct {
	Name string
	Args []Expression
}

func (f *FunctionCall) exprNode() {}

func (f *FunctionCall) String() string {
	return fmt.Sprintf("%s(%s)", f.Name, joinExprs(f.Args))
}

// AggregateExpr represents an aggregate expression.
type AggregateExpr struct {
	Function AggregateFunc
	Args     []Expression
	Distinct bool
}

// AggregateFunc represents an aggregate function.
type AggregateFunc int

const (
	AggCount AggregateFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

var aggregateNames = [...]string{
	AggCount: "COUNT",
	AggSum:   "SUM",
	AggAvg:   "AVG",
	AggMin:   "MIN",
	AggMax:   "MAX",
}

func (f AggregateFunc) String() string {
	if f < 0 || int(f) >= len(aggregateNames) {
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
	return aggregateNames[f]
}

// ParseAggregateFunc maps a function name back to its AggregateFunc.
func ParseAggregateFunc(name string) (AggregateFunc, bool) {
	for f, n := range aggregateNames {
		if strings.EqualFold(n, name) {
			return AggregateFunc(f), true
		}
	}
	return 0, false
}

func (a *AggregateExpr) exprNode() {}

func (a *AggregateExpr) String() string {
	distinct := ""
	if a.Distinct {
		distinct = "DISTINCT "
	}
	return fmt.Sprintf("%s(%s%s)", a.Function.String(), distinct, joinExprs(a.Args))
}

// Star represents the * in SELECT * or COUNT(*).
type Star struct {
	TableAlias string
}

func (s *Star) exprNode() {}

func (s *Star) String() string {
	if s.TableAlias != "" {
		return fmt.Sprintf("%s.*", s.TableAlias)
	}
	return "*"
}

func joinExprs(exprs []Expression) string {
	strs := make([]string, len(exprs))
	for i, e := range exprs {
		strs[i] = e.String()
	}
	return strings.Join(strs, ", ")
}
