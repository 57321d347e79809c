package planner

import (
	"fmt"
	"strings"
)

// ExplainPlan returns a string representation of the plan tree, one node
// per line, children indented under their parent.
func ExplainPlan(plan Plan) string {
	var sb strings.Builder
	explainPlan(&sb, plan, "")
	return sb.String()
}

func explainPlan(sb *strings.Builder, plan Plan, indent string) {
	sb.WriteString(indent)
	sb.WriteString(plan.String())
	sb.WriteByte('\n')

	for _, child := range plan.Children() {
		explainPlan(sb, child, indent+"  ")
	}
}

// Fingerprint generates a string identifying the entire plan tree. Unlike
// String(), it covers every node, so two trees with equal fingerprints are
// structurally equal.
func Fingerprint(plan Plan) string {
	var sb strings.Builder
	fingerprint(&sb, plan)
	return sb.String()
}

func fingerprint(sb *strings.Builder, plan Plan) {
	if plan == nil {
		sb.WriteString("nil")
		return
	}

	fmt.Fprintf(sb, "%T:%s", plan, plan.String())

	children := plan.Children()
	if len(children) > 0 {
		sb.WriteByte('[')
		for i, child := range children {
			if i > 0 {
				sb.WriteByte(',')
			}
			fingerprint(sb, child)
		}
		sb.WriteByte(']')
	}
}

// CountKind returns the number of nodes of kind k in the tree.
func CountKind(plan LogicalPlan, k PlanKind) int {
	n := 0
	if plan.Kind() == k {
		n++
	}
	for _, child := range plan.Inputs() {
		n += CountKind(child, k)
	}
	return n
}
