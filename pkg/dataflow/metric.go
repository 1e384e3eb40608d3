package dataflow

import (
	"fmt"

	"github.com/quarrylabs/quarry/pkg/naming"
	"github.com/quarrylabs/quarry/pkg/sqlir"
)

// Metric is one named output expression computed from aggregated measures.
type Metric struct {
	Name string
	Expr MetricExpr
}

// MetricExpr is an expression over aggregated measure columns: a direct
// measure passthrough, a ratio, an arithmetic combination, or a constant.
type MetricExpr interface {
	metricExprNode()

	// referencedMeasuresIn checks that every measure the expression reads
	// exists in the given input schema.
	referencedMeasuresIn(in Schema) error
}

// MeasureRef reads an aggregated measure column unchanged.
type MeasureRef struct {
	Measure naming.ColumnID
}

func (*MeasureRef) metricExprNode() {}

func (e *MeasureRef) referencedMeasuresIn(in Schema) error {
	c, ok := in.Lookup(e.Measure)
	if !ok {
		return fmt.Errorf("metric references measure %s not produced by input", e.Measure.Alias())
	}
	if c.Kind != KindMeasure {
		return fmt.Errorf("metric references %s which is a %s, not a measure", e.Measure.Alias(), c.Kind)
	}
	return nil
}

// Ratio divides one metric expression by another. A zero denominator yields
// NULL: lowering wraps the denominator in NULLIF(..., 0) so the division
// never raises.
type Ratio struct {
	Numerator   MetricExpr
	Denominator MetricExpr
}

func (*Ratio) metricExprNode() {}

func (e *Ratio) referencedMeasuresIn(in Schema) error {
	if err := e.Numerator.referencedMeasuresIn(in); err != nil {
		return err
	}
	return e.Denominator.referencedMeasuresIn(in)
}

// Arithmetic combines two metric expressions with +, -, *, or /.
type Arithmetic struct {
	Left  MetricExpr
	Op    sqlir.BinaryOp
	Right MetricExpr
}

func (*Arithmetic) metricExprNode() {}

func (e *Arithmetic) referencedMeasuresIn(in Schema) error {
	if err := e.Left.referencedMeasuresIn(in); err != nil {
		return err
	}
	return e.Right.referencedMeasuresIn(in)
}

// Constant is a numeric constant in a metric expression, held as source
// text to keep rendering byte-stable.
type Constant struct {
	Value string
}

func (*Constant) metricExprNode() {}

func (e *Constant) referencedMeasuresIn(Schema) error { return nil }
