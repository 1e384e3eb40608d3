// Package dataflow models the input to the compiler: a DAG of logical
// metric-query operations (source read, projection, constraint, entity
// join, aggregation, metric computation). Nodes are a closed set of
// variants, each of which can compute its output schema without touching
// data. pkg/lower turns a validated plan into SQL IR.
package dataflow

import (
	"fmt"

	"github.com/quarrylabs/quarry/pkg/naming"
	"github.com/quarrylabs/quarry/pkg/sqlir"
)

// ColumnKind classifies a semantic column.
type ColumnKind int

// Column kinds.
const (
	KindMeasure ColumnKind = iota
	KindDimension
	KindEntity
	KindTime
	KindMetric
)

// String implements fmt.Stringer.
func (k ColumnKind) String() string {
	switch k {
	case KindMeasure:
		return "measure"
	case KindDimension:
		return "dimension"
	case KindEntity:
		return "entity"
	case KindTime:
		return "time"
	case KindMetric:
		return "metric"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Column is one named, kinded column in a node's output schema. Agg is set
// for measures only and names the aggregation applied by AggregateMeasures.
type Column struct {
	ID   naming.ColumnID
	Kind ColumnKind
	Agg  sqlir.AggregationType
}

// Schema is an ordered set of output columns. Order is load-bearing: group
// by lists and select lists follow it.
type Schema []Column

// Lookup finds a column by identifier.
func (s Schema) Lookup(id naming.ColumnID) (Column, bool) {
	for _, c := range s {
		if c.ID.Equal(id) {
			return c, true
		}
	}
	return Column{}, false
}

// Measures returns the measure columns in schema order.
func (s Schema) Measures() Schema {
	var out Schema
	for _, c := range s {
		if c.Kind == KindMeasure {
			out = append(out, c)
		}
	}
	return out
}

// NonMeasures returns every non-measure column in schema order. These are
// the grouping columns for aggregation.
func (s Schema) NonMeasures() Schema {
	var out Schema
	for _, c := range s {
		if c.Kind != KindMeasure {
			out = append(out, c)
		}
	}
	return out
}

// Aliases returns the physical alias of every column in schema order.
func (s Schema) Aliases() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.ID.Alias()
	}
	return out
}
