package planner

// LogicalDistinct represents a DISTINCT operation in the logical plan.
type LogicalDistinct struct {
	basePlan
}

// NewLogicalDistinct creates a new logical distinct plan.
func NewLogicalDistinct(child LogicalPlan) *LogicalDistinct {
	return &LogicalDistinct{
		basePlan: basePlan{
			children: []LogicalPlan{child},
			schema:   child.Schema(), // DISTINCT preserves the schema
		},
	}
}

// Input returns the plan whose duplicates are removed.
func (d *LogicalDistinct) Input() LogicalPlan {
	return d.children[0]
}

func (d *LogicalDistinct) Kind() PlanKind { return KindDistinct }

func (d *LogicalDistinct) Expressions() []Expression { return nil }

// String returns a string representation of the plan.
func (d *LogicalDistinct) String() string {
	return "Distinct"
}

// logicalNode marks this as a logical plan node.
func (d *LogicalDistinct) logicalNode() {}
