package planner

import (
	"fmt"
	"strings"
)

// Plan represents a node in a query plan.
type Plan interface {
	// Children returns the child plans.
	Children() []Plan
	// Schema returns the output schema of this plan node.
	Schema() *Schema
	// String returns a string representation for debugging.
	String() string
}

// LogicalPlan represents a logical plan node. Nodes are immutable: every
// accessor returns copies, and rewrites build new nodes through Rebuild.
type LogicalPlan interface {
	Plan
	// Kind returns the node's tag.
	Kind() PlanKind
	// Inputs returns the children as logical plans, in order.
	Inputs() []LogicalPlan
	// Expressions returns the expressions attached to this node, in the
	// order Rebuild expects them back.
	Expressions() []Expression
	logicalNode()
}

// PlanKind tags the closed set of logical node kinds.
type PlanKind int

const (
	KindScan PlanKind = iota
	KindValues
	KindFilter
	KindProject
	KindSort
	KindLimit
	KindJoin
	KindAggregate
	KindDistinct
)

func (k PlanKind) String() string {
	switch k {
	case KindScan:
		return "Scan"
	case KindValues:
		return "Values"
	case KindFilter:
		return "Filter"
	case KindProject:
		return "Project"
	case KindSort:
		return "Sort"
	case KindLimit:
		return "Limit"
	case KindJoin:
		return "Join"
	case KindAggregate:
		return "Aggregate"
	case KindDistinct:
		return "Distinct"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Arity returns the number of children a node of this kind must have.
func (k PlanKind) Arity() int {
	switch k {
	case KindScan, KindValues:
		return 0
	case KindJoin:
		return 2
	default:
		return 1
	}
}

// Schema represents the output schema of a plan node.
type Schema struct {
	Columns []Column
}

// Column represents a column in a schema.
type Column struct {
	Name       string
	DataType   string
	Nullable   bool
	TableName  string // Source table name
	TableAlias string // Table alias used in query
}

// JoinType represents the type of join.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
	LeftSemiJoin
	LeftAntiJoin
	RightSemiJoin
	RightAntiJoin
)

func (j JoinType) String() string {
	switch j {
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	case FullJoin:
		return "FULL"
	case CrossJoin:
		return "CROSS"
	case LeftSemiJoin:
		return "LEFT SEMI"
	case LeftAntiJoin:
		return "LEFT ANTI"
	case RightSemiJoin:
		return "RIGHT SEMI"
	case RightAntiJoin:
		return "RIGHT ANTI"
	default:
		return fmt.Sprintf("Unknown(%d)", j)
	}
}

// ParseJoinType accepts the String form, with spaces, underscores or
// nothing between words, in any case.
func ParseJoinType(s string) (JoinType, bool) {
	norm := strings.ToUpper(strings.NewReplacer("_", "", " ", "", "-", "").Replace(s))
	for j := InnerJoin; j <= RightAntiJoin; j++ {
		if strings.ReplaceAll(j.String(), " ", "") == norm {
			return j, true
		}
	}
	return 0, false
}

// SortOrder represents the sort order.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

func (s SortOrder) String() string {
	if s == Descending {
		return "DESC"
	}
	return "ASC"
}

// basePlan provides common functionality for plan nodes.
type basePlan struct {
	children []LogicalPlan
	schema   *Schema
}

func (p *basePlan) Children() []Plan {
	children := make([]Plan, len(p.children))
	for i, c := range p.children {
		children[i] = c
	}
	return children
}

func (p *basePlan) Inputs() []LogicalPlan {
	return append([]LogicalPlan(nil), p.children...)
}

func (p *basePlan) Schema() *Schema {
	return p.schema
}
