package dataflow

import (
	"github.com/quarrylabs/quarry/pkg/naming"
	"github.com/quarrylabs/quarry/pkg/sqlir"
)

// MetricTimeElementName is the reserved dimension name for "the aggregation
// time dimension of all measures in the query", the x-axis when metrics
// are plotted together.
const MetricTimeElementName = "metric_time"

// Node is one operation in a dataflow plan. The variant set is closed;
// lowering and validation switch exhaustively over it.
type Node interface {
	// ID is a plan-unique identifier used in diagnostics.
	ID() string
	// Inputs returns the node's predecessors in positional order.
	Inputs() []Node
	// OutputSchema computes the node's output columns without executing.
	OutputSchema() (Schema, error)

	dataflowNode()
}

// SourceColumn maps one physical source column (or synthesized literal) to
// a semantic column. An empty Expr on a measure emits the count-style
// literal `1 AS <alias>` instead of reading a physical column.
type SourceColumn struct {
	Expr   string
	Column Column
}

// SourceRead reads a base table or view and binds its columns to semantic
// elements. Time columns are expanded to the standard granularity set in
// the output schema, one column per granularity plus the bare base column.
type SourceRead struct {
	NodeID  string
	Table   sqlir.TableName
	Columns []SourceColumn
}

func (*SourceRead) dataflowNode() {}

// ID implements Node.
func (n *SourceRead) ID() string { return n.NodeID }

// Inputs implements Node.
func (n *SourceRead) Inputs() []Node { return nil }

// OutputSchema implements Node.
func (n *SourceRead) OutputSchema() (Schema, error) {
	var out Schema
	for _, sc := range n.Columns {
		if err := sc.Column.ID.Validate(); err != nil {
			return nil, &MalformedPlanError{NodeID: n.NodeID, Reason: err.Error()}
		}
		if sc.Column.Kind == KindMeasure && !sc.Column.Agg.IsValid() {
			return nil, &MalformedPlanError{
				NodeID: n.NodeID,
				Reason: "measure " + sc.Column.ID.Alias() + " has no declared aggregation",
			}
		}
		out = append(out, sc.Column)
		if sc.Column.Kind == KindTime {
			for _, g := range naming.StandardGranularities {
				gc := sc.Column
				gc.ID = gc.ID.AtGranularity(g)
				out = append(out, gc)
			}
		}
	}
	return out, nil
}

// FilterElements projects a subset of the input's output columns, carrying
// each through unchanged.
type FilterElements struct {
	NodeID string
	Input  Node
	Keep   []naming.ColumnID
}

func (*FilterElements) dataflowNode() {}

// ID implements Node.
func (n *FilterElements) ID() string { return n.NodeID }

// Inputs implements Node.
func (n *FilterElements) Inputs() []Node { return []Node{n.Input} }

// OutputSchema implements Node. Kept columns retain input schema order.
func (n *FilterElements) OutputSchema() (Schema, error) {
	in, err := n.Input.OutputSchema()
	if err != nil {
		return nil, err
	}
	for _, id := range n.Keep {
		if _, ok := in.Lookup(id); !ok {
			return nil, &MalformedPlanError{
				NodeID: n.NodeID,
				Reason: "filtered element " + id.Alias() + " is not produced by input " + n.Input.ID(),
			}
		}
	}
	var out Schema
	for _, c := range in {
		for _, id := range n.Keep {
			if c.ID.Equal(id) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

// ConstrainOutput applies a boolean predicate over the input's columns,
// passing every column through.
type ConstrainOutput struct {
	NodeID    string
	Input     Node
	Predicate Predicate
}

func (*ConstrainOutput) dataflowNode() {}

// ID implements Node.
func (n *ConstrainOutput) ID() string { return n.NodeID }

// Inputs implements Node.
func (n *ConstrainOutput) Inputs() []Node { return []Node{n.Input} }

// OutputSchema implements Node.
func (n *ConstrainOutput) OutputSchema() (Schema, error) {
	return n.Input.OutputSchema()
}

// ValidityWindow describes slowly-changing-dimension join semantics: the
// left side's TimeColumn must fall inside the right side's
// [WindowStart, WindowEnd) interval, with a NULL WindowEnd meaning the row
// is still current.
type ValidityWindow struct {
	TimeColumn  naming.ColumnID // left side
	WindowStart naming.ColumnID // right side
	WindowEnd   naming.ColumnID // right side
}

// JoinOnEntities left-outer-joins two inputs on equality of the named
// entity columns. Right-side columns listed in RightColumns are re-exported
// with the join entity path prepended to their alias so they cannot collide
// with left-side columns.
type JoinOnEntities struct {
	NodeID       string
	Left         Node
	Right        Node
	JoinEntities []string
	RightColumns []naming.ColumnID
	Validity     *ValidityWindow
}

func (*JoinOnEntities) dataflowNode() {}

// ID implements Node.
func (n *JoinOnEntities) ID() string { return n.NodeID }

// Inputs implements Node.
func (n *JoinOnEntities) Inputs() []Node { return []Node{n.Left, n.Right} }

// OutputSchema implements Node.
func (n *JoinOnEntities) OutputSchema() (Schema, error) {
	left, err := n.Left.OutputSchema()
	if err != nil {
		return nil, err
	}
	right, err := n.Right.OutputSchema()
	if err != nil {
		return nil, err
	}
	if len(n.JoinEntities) == 0 {
		return nil, &MalformedPlanError{NodeID: n.NodeID, Reason: "join declares no entities"}
	}
	out := make(Schema, 0, len(left)+len(n.RightColumns))
	out = append(out, left...)
	for _, id := range n.RightColumns {
		c, ok := right.Lookup(id)
		if !ok {
			return nil, &MalformedPlanError{
				NodeID: n.NodeID,
				Reason: "joined element " + id.Alias() + " is not produced by input " + n.Right.ID(),
			}
		}
		c.ID = c.ID.WithPathPrefix(n.JoinEntities...)
		if _, dup := out.Lookup(c.ID); dup {
			return nil, &MalformedPlanError{
				NodeID: n.NodeID,
				Reason: "join output column " + c.ID.Alias() + " collides with a left-side column",
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// AggregateMeasures groups by every non-measure column of its input, in
// schema order, and aggregates each measure with its declared function.
type AggregateMeasures struct {
	NodeID string
	Input  Node
}

func (*AggregateMeasures) dataflowNode() {}

// ID implements Node.
func (n *AggregateMeasures) ID() string { return n.NodeID }

// Inputs implements Node.
func (n *AggregateMeasures) Inputs() []Node { return []Node{n.Input} }

// OutputSchema implements Node. Aggregated measures keep their identifiers;
// the output orders group-by columns before measures, matching the emitted
// select list.
func (n *AggregateMeasures) OutputSchema() (Schema, error) {
	in, err := n.Input.OutputSchema()
	if err != nil {
		return nil, err
	}
	measures := in.Measures()
	if len(measures) == 0 {
		return nil, &MalformedPlanError{NodeID: n.NodeID, Reason: "aggregation input has no measures"}
	}
	out := append(Schema{}, in.NonMeasures()...)
	return append(out, measures...), nil
}

// ComputeMetrics evaluates final metric expressions over aggregated measure
// columns, carrying the group-by columns through unchanged.
type ComputeMetrics struct {
	NodeID  string
	Input   Node
	Metrics []Metric
}

func (*ComputeMetrics) dataflowNode() {}

// ID implements Node.
func (n *ComputeMetrics) ID() string { return n.NodeID }

// Inputs implements Node.
func (n *ComputeMetrics) Inputs() []Node { return []Node{n.Input} }

// OutputSchema implements Node.
func (n *ComputeMetrics) OutputSchema() (Schema, error) {
	in, err := n.Input.OutputSchema()
	if err != nil {
		return nil, err
	}
	out := append(Schema{}, in.NonMeasures()...)
	for _, m := range n.Metrics {
		if m.Name == "" {
			return nil, &MalformedPlanError{NodeID: n.NodeID, Reason: "metric has empty name"}
		}
		if err := m.Expr.referencedMeasuresIn(in); err != nil {
			return nil, &MalformedPlanError{NodeID: n.NodeID, Reason: err.Error()}
		}
		out = append(out, Column{ID: naming.Column(m.Name), Kind: KindMetric})
	}
	return out, nil
}
