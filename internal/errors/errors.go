package errors

import (
	"fmt"

	crdberrors "github.com/cockroachdb/errors"
)

// Error is a coded optimizer error. Code is a SQLSTATE-style code from
// codes.go; the remaining fields locate the failure inside a plan tree.
type Error struct {
	Code    string // SQLSTATE-style code
	Message string // Primary error message
	Detail  string // Optional detailed error message
	Hint    string // Optional hint message
	Rule    string // Rule that was running, if any
	Node    string // Plan node the error refers to, if any
	Path    string // Location in a plan description document, if any

	cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Rule != "" {
		msg = e.Rule + ": " + msg
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s (SQLSTATE %s) DETAIL: %s", msg, e.Code, e.Detail)
	} else {
		msg = fmt.Sprintf("%s (SQLSTATE %s)", msg, e.Code)
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is a sentinel *Error carrying the same code.
// Only sentinels (no cause) match, so a wrapped chain is searched link by link.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.cause != nil {
		return false
	}
	return t.Code == e.Code
}

// New creates a new Error with the given code and message
func New(code string, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message
func Newf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error around cause. The cause keeps its own identity for
// errors.Is and errors.As.
func Wrap(cause error, code string, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   crdberrors.WithStackDepth(cause, 1),
	}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(cause error, code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		cause:   crdberrors.WithStackDepth(cause, 1),
	}
}

// WithDetail adds detail to the error
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithDetailf adds formatted detail to the error
func (e *Error) WithDetailf(format string, args ...interface{}) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithHint adds a hint to the error
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithRule records the rule that produced the error.
func (e *Error) WithRule(rule string) *Error {
	e.Rule = rule
	return e
}

// WithNode records the plan node the error refers to.
func (e *Error) WithNode(node string) *Error {
	e.Node = node
	return e
}

// WithPath records the document path of an invalid plan description.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrArityMismatch            = New(ArityMismatch, "arity mismatch")
	ErrChildOptimizationFailure = New(ChildOptimizationFailure, "child optimization failed")
	ErrUnsupportedPlan          = New(UnsupportedPlan, "unsupported plan")
	ErrUnknownRule              = New(UnknownRule, "unknown rule")
	ErrRuleFailed               = New(RuleFailed, "rule failed")
	ErrInvalidPlan              = New(InvalidPlan, "invalid plan")
	ErrInvalidConfig            = New(InvalidConfig, "invalid configuration")
	ErrQueryCanceled            = New(QueryCanceled, "optimization canceled")
)

// ArityMismatchError reports a rebuild whose children or expressions do not
// fit the node kind. It is an internal contract violation, so the cause is an
// assertion failure with a captured stack.
func ArityMismatchError(node, what string, want string, got int) *Error {
	return &Error{
		Code:    ArityMismatch,
		Message: fmt.Sprintf("%s expects %s %s, got %d", node, want, what, got),
		Node:    node,
		cause:   crdberrors.AssertionFailedf("rebuild %s: %s count %d does not match %s", node, what, got, want),
	}
}

// ChildOptimizationError wraps the failure of a rule on the index-th child of node.
func ChildOptimizationError(rule, node string, index int, cause error) *Error {
	return Wrapf(cause, ChildOptimizationFailure, "optimizing child %d of %s", index, node).
		WithRule(rule).
		WithNode(node)
}

// UnsupportedPlanError reports a node kind or variant an operation cannot handle.
func UnsupportedPlanError(operation, node string) *Error {
	return Newf(UnsupportedPlan, "%s does not support %s", operation, node).
		WithNode(node)
}

// UnknownRuleError reports a rule name missing from the registry.
func UnknownRuleError(name string) *Error {
	return Newf(UnknownRule, "rule \"%s\" does not exist", name).
		WithHint("Run `quantaopt rules` to list the registered rules.")
}

// RuleFailedError wraps a rule failure observed by the driver.
func RuleFailedError(rule string, pass int, cause error) *Error {
	return Wrapf(cause, RuleFailed, "failed in pass %d", pass).
		WithRule(rule)
}

// InvalidPlanErrorf reports a malformed plan description at path.
func InvalidPlanErrorf(path string, format string, args ...interface{}) *Error {
	return Newf(InvalidPlan, format, args...).
		WithPath(path).
		WithDetailf("at %s", path)
}

// InvalidConfigErrorf reports an invalid configuration value.
func InvalidConfigErrorf(format string, args ...interface{}) *Error {
	return Newf(InvalidConfig, format, args...)
}

// QueryCanceledError wraps a context error seen between rules.
func QueryCanceledError(cause error) *Error {
	return Wrap(cause, QueryCanceled, "canceling optimization")
}

// IsError reports whether any error in err's chain carries code.
func IsError(err error, code string) bool {
	return crdberrors.Is(err, &Error{Code: code})
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// InternalError when the chain has none. A nil error has no code.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var qErr *Error
	if crdberrors.As(err, &qErr) {
		return qErr.Code
	}
	return InternalError
}

// IsAssertionFailure reports whether err carries an internal contract
// violation, such as a rebuild arity mismatch.
func IsAssertionFailure(err error) bool {
	return crdberrors.HasAssertionFailure(err)
}
