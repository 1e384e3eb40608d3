// Package planfile loads dataflow plans from YAML documents. A plan file is
// a serialized dataflow DAG listing operations by ID with input references;
// this package assembles the node tree and surfaces structural problems as
// MalformedPlanError.
package planfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quarrylabs/quarry/internal/dag"
	"github.com/quarrylabs/quarry/pkg/dataflow"
	"github.com/quarrylabs/quarry/pkg/naming"
	"github.com/quarrylabs/quarry/pkg/sqlir"
)

// Document is the top-level YAML structure of a plan file.
type Document struct {
	Plan []NodeSpec `yaml:"plan"`
}

// NodeSpec is one operation entry. Op selects the variant; the remaining
// fields are variant-specific.
type NodeSpec struct {
	ID string `yaml:"id"`
	Op string `yaml:"op"`

	// source_read
	Table   string       `yaml:"table,omitempty"`
	Columns []ColumnSpec `yaml:"columns,omitempty"`

	// single-input operations
	Input string `yaml:"input,omitempty"`

	// filter_elements
	Keep []string `yaml:"keep,omitempty"`

	// constrain_output
	Where *PredicateSpec `yaml:"where,omitempty"`

	// join_on_entities
	Left         string        `yaml:"left,omitempty"`
	Right        string        `yaml:"right,omitempty"`
	Entities     []string      `yaml:"entities,omitempty"`
	RightColumns []string      `yaml:"right_columns,omitempty"`
	Validity     *ValiditySpec `yaml:"validity,omitempty"`

	// compute_metrics
	Metrics []MetricSpec `yaml:"metrics,omitempty"`
}

// ColumnSpec binds a source column to a semantic element.
type ColumnSpec struct {
	Element string `yaml:"element"`
	Kind    string `yaml:"kind"` // measure, dimension, entity, time
	Expr    string `yaml:"expr,omitempty"`
	Agg     string `yaml:"agg,omitempty"`
}

// PredicateSpec is a recursive predicate: exactly one of the field groups
// is set.
type PredicateSpec struct {
	Column string `yaml:"column,omitempty"`
	Op     string `yaml:"op,omitempty"`
	Value  any    `yaml:"value,omitempty"`

	And []PredicateSpec `yaml:"and,omitempty"`
	Or  []PredicateSpec `yaml:"or,omitempty"`
	Not *PredicateSpec  `yaml:"not,omitempty"`

	IsNull  string `yaml:"is_null,omitempty"`
	NotNull string `yaml:"not_null,omitempty"`
}

// ValiditySpec names the validity-window columns of a join.
type ValiditySpec struct {
	Time        string `yaml:"time"`
	WindowStart string `yaml:"window_start"`
	WindowEnd   string `yaml:"window_end"`
}

// MetricSpec is one metric definition: a direct measure reference or a
// nested expression.
type MetricSpec struct {
	Name    string          `yaml:"name"`
	Measure string          `yaml:"measure,omitempty"`
	Expr    *MetricExprSpec `yaml:"expr,omitempty"`
}

// MetricExprSpec is a recursive metric expression.
type MetricExprSpec struct {
	Measure  string `yaml:"measure,omitempty"`
	Constant string `yaml:"constant,omitempty"`

	Ratio *struct {
		Numerator   MetricExprSpec `yaml:"numerator"`
		Denominator MetricExprSpec `yaml:"denominator"`
	} `yaml:"ratio,omitempty"`

	Left  *MetricExprSpec `yaml:"left,omitempty"`
	Op    string          `yaml:"op,omitempty"`
	Right *MetricExprSpec `yaml:"right,omitempty"`
}

// Load reads and assembles a plan file, returning the plan root.
func Load(path string) (dataflow.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	return Parse(data)
}

// Parse assembles a plan from YAML bytes.
func Parse(data []byte) (dataflow.Node, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse plan file: %w", err)
	}
	if len(doc.Plan) == 0 {
		return nil, &dataflow.MalformedPlanError{Reason: "plan file declares no operations"}
	}

	// Wire the reference graph first so cycles and unknown inputs surface
	// before node construction.
	g := dag.NewGraph()
	specs := map[string]NodeSpec{}
	for _, spec := range doc.Plan {
		if spec.ID == "" {
			return nil, &dataflow.MalformedPlanError{Reason: "operation has no id"}
		}
		if _, dup := specs[spec.ID]; dup {
			return nil, &dataflow.MalformedPlanError{NodeID: spec.ID, Reason: "duplicate operation id"}
		}
		specs[spec.ID] = spec
		g.AddNode(spec.ID, spec)
	}
	for _, spec := range doc.Plan {
		for _, ref := range inputRefs(spec) {
			if err := g.AddEdge(ref, spec.ID); err != nil {
				return nil, &dataflow.MalformedPlanError{NodeID: spec.ID, Reason: err.Error()}
			}
		}
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, &dataflow.MalformedPlanError{Reason: err.Error()}
	}

	built := map[string]dataflow.Node{}
	for _, gn := range order {
		spec := specs[gn.ID]
		node, err := buildNode(spec, built)
		if err != nil {
			return nil, err
		}
		built[spec.ID] = node
	}

	sinks := g.Sinks()
	if len(sinks) != 1 {
		return nil, &dataflow.MalformedPlanError{
			Reason: fmt.Sprintf("plan must have exactly one root, found %d: %v", len(sinks), sinks),
		}
	}
	return built[sinks[0]], nil
}

func inputRefs(spec NodeSpec) []string {
	switch spec.Op {
	case "join_on_entities":
		return []string{spec.Left, spec.Right}
	case "source_read":
		return nil
	default:
		if spec.Input == "" {
			return nil
		}
		return []string{spec.Input}
	}
}

func buildNode(spec NodeSpec, built map[string]dataflow.Node) (dataflow.Node, error) {
	switch spec.Op {
	case "source_read":
		return buildSourceRead(spec)
	case "filter_elements":
		input, err := resolveInput(spec, spec.Input, built)
		if err != nil {
			return nil, err
		}
		keep, err := parseColumns(spec.ID, spec.Keep)
		if err != nil {
			return nil, err
		}
		return &dataflow.FilterElements{NodeID: spec.ID, Input: input, Keep: keep}, nil
	case "constrain_output":
		input, err := resolveInput(spec, spec.Input, built)
		if err != nil {
			return nil, err
		}
		if spec.Where == nil {
			return nil, &dataflow.MalformedPlanError{NodeID: spec.ID, Reason: "constrain_output requires a where clause"}
		}
		pred, err := buildPredicate(spec.ID, *spec.Where)
		if err != nil {
			return nil, err
		}
		return &dataflow.ConstrainOutput{NodeID: spec.ID, Input: input, Predicate: pred}, nil
	case "join_on_entities":
		return buildJoin(spec, built)
	case "aggregate_measures":
		input, err := resolveInput(spec, spec.Input, built)
		if err != nil {
			return nil, err
		}
		return &dataflow.AggregateMeasures{NodeID: spec.ID, Input: input}, nil
	case "compute_metrics":
		return buildComputeMetrics(spec, built)
	}
	return nil, &dataflow.MalformedPlanError{NodeID: spec.ID, Reason: fmt.Sprintf("unknown operation %q", spec.Op)}
}

func resolveInput(spec NodeSpec, ref string, built map[string]dataflow.Node) (dataflow.Node, error) {
	if ref == "" {
		return nil, &dataflow.MalformedPlanError{NodeID: spec.ID, Reason: spec.Op + " requires an input"}
	}
	node, ok := built[ref]
	if !ok {
		return nil, &dataflow.MalformedPlanError{NodeID: spec.ID, Reason: fmt.Sprintf("unknown input %q", ref)}
	}
	return node, nil
}

func buildSourceRead(spec NodeSpec) (dataflow.Node, error) {
	if spec.Table == "" {
		return nil, &dataflow.MalformedPlanError{NodeID: spec.ID, Reason: "source_read requires a table"}
	}
	table := sqlir.TableName{Name: spec.Table}
	if i := strings.IndexByte(spec.Table, '.'); i >= 0 {
		table = sqlir.TableName{Schema: spec.Table[:i], Name: spec.Table[i+1:]}
	}

	var cols []dataflow.SourceColumn
	for _, cs := range spec.Columns {
		id, err := naming.ParseAlias(cs.Element)
		if err != nil {
			return nil, &dataflow.MalformedPlanError{NodeID: spec.ID, Reason: err.Error()}
		}
		kind, err := parseKind(cs.Kind)
		if err != nil {
			return nil, &dataflow.MalformedPlanError{NodeID: spec.ID, Reason: err.Error()}
		}
		col := dataflow.Column{ID: id, Kind: kind}
		if kind == dataflow.KindMeasure {
			col.Agg = sqlir.AggregationType(cs.Agg)
			if !col.Agg.IsValid() {
				return nil, &dataflow.MalformedPlanError{
					NodeID: spec.ID,
					Reason: fmt.Sprintf("measure %s has unknown aggregation %q", cs.Element, cs.Agg),
				}
			}
		}
		cols = append(cols, dataflow.SourceColumn{Expr: cs.Expr, Column: col})
	}
	return &dataflow.SourceRead{NodeID: spec.ID, Table: table, Columns: cols}, nil
}

func buildJoin(spec NodeSpec, built map[string]dataflow.Node) (dataflow.Node, error) {
	left, err := resolveInput(spec, spec.Left, built)
	if err != nil {
		return nil, err
	}
	right, err := resolveInput(spec, spec.Right, built)
	if err != nil {
		return nil, err
	}
	rightCols, err := parseColumns(spec.ID, spec.RightColumns)
	if err != nil {
		return nil, err
	}
	join := &dataflow.JoinOnEntities{
		NodeID:       spec.ID,
		Left:         left,
		Right:        right,
		JoinEntities: spec.Entities,
		RightColumns: rightCols,
	}
	if spec.Validity != nil {
		ts, err := naming.ParseAlias(spec.Validity.Time)
		if err != nil {
			return nil, &dataflow.MalformedPlanError{NodeID: spec.ID, Reason: err.Error()}
		}
		start, err := naming.ParseAlias(spec.Validity.WindowStart)
		if err != nil {
			return nil, &dataflow.MalformedPlanError{NodeID: spec.ID, Reason: err.Error()}
		}
		end, err := naming.ParseAlias(spec.Validity.WindowEnd)
		if err != nil {
			return nil, &dataflow.MalformedPlanError{NodeID: spec.ID, Reason: err.Error()}
		}
		join.Validity = &dataflow.ValidityWindow{TimeColumn: ts, WindowStart: start, WindowEnd: end}
	}
	return join, nil
}

func buildComputeMetrics(spec NodeSpec, built map[string]dataflow.Node) (dataflow.Node, error) {
	input, err := resolveInput(spec, spec.Input, built)
	if err != nil {
		return nil, err
	}
	if len(spec.Metrics) == 0 {
		return nil, &dataflow.MalformedPlanError{NodeID: spec.ID, Reason: "compute_metrics declares no metrics"}
	}
	var metrics []dataflow.Metric
	for _, ms := range spec.Metrics {
		expr, err := buildMetricExpr(spec.ID, ms)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, dataflow.Metric{Name: ms.Name, Expr: expr})
	}
	return &dataflow.ComputeMetrics{NodeID: spec.ID, Input: input, Metrics: metrics}, nil
}

func buildMetricExpr(nodeID string, ms MetricSpec) (dataflow.MetricExpr, error) {
	switch {
	case ms.Measure != "" && ms.Expr == nil:
		id, err := naming.ParseAlias(ms.Measure)
		if err != nil {
			return nil, &dataflow.MalformedPlanError{NodeID: nodeID, Reason: err.Error()}
		}
		return &dataflow.MeasureRef{Measure: id}, nil
	case ms.Expr != nil && ms.Measure == "":
		return buildMetricExprSpec(nodeID, *ms.Expr)
	}
	return nil, &dataflow.MalformedPlanError{
		NodeID: nodeID,
		Reason: fmt.Sprintf("metric %q must set exactly one of measure or expr", ms.Name),
	}
}

func buildMetricExprSpec(nodeID string, es MetricExprSpec) (dataflow.MetricExpr, error) {
	switch {
	case es.Measure != "":
		id, err := naming.ParseAlias(es.Measure)
		if err != nil {
			return nil, &dataflow.MalformedPlanError{NodeID: nodeID, Reason: err.Error()}
		}
		return &dataflow.MeasureRef{Measure: id}, nil
	case es.Constant != "":
		return &dataflow.Constant{Value: es.Constant}, nil
	case es.Ratio != nil:
		num, err := buildMetricExprSpec(nodeID, es.Ratio.Numerator)
		if err != nil {
			return nil, err
		}
		den, err := buildMetricExprSpec(nodeID, es.Ratio.Denominator)
		if err != nil {
			return nil, err
		}
		return &dataflow.Ratio{Numerator: num, Denominator: den}, nil
	case es.Left != nil && es.Right != nil && es.Op != "":
		left, err := buildMetricExprSpec(nodeID, *es.Left)
		if err != nil {
			return nil, err
		}
		right, err := buildMetricExprSpec(nodeID, *es.Right)
		if err != nil {
			return nil, err
		}
		op, err := parseArithmeticOp(es.Op)
		if err != nil {
			return nil, &dataflow.MalformedPlanError{NodeID: nodeID, Reason: err.Error()}
		}
		return &dataflow.Arithmetic{Left: left, Op: op, Right: right}, nil
	}
	return nil, &dataflow.MalformedPlanError{NodeID: nodeID, Reason: "empty metric expression"}
}

func buildPredicate(nodeID string, ps PredicateSpec) (dataflow.Predicate, error) {
	switch {
	case len(ps.And) > 0:
		return buildLogical(nodeID, sqlir.OpAnd, ps.And)
	case len(ps.Or) > 0:
		return buildLogical(nodeID, sqlir.OpOr, ps.Or)
	case ps.Not != nil:
		inner, err := buildPredicate(nodeID, *ps.Not)
		if err != nil {
			return nil, err
		}
		return &dataflow.Not{Operand: inner}, nil
	case ps.IsNull != "":
		id, err := naming.ParseAlias(ps.IsNull)
		if err != nil {
			return nil, &dataflow.MalformedPlanError{NodeID: nodeID, Reason: err.Error()}
		}
		return &dataflow.NullCheck{Column: id}, nil
	case ps.NotNull != "":
		id, err := naming.ParseAlias(ps.NotNull)
		if err != nil {
			return nil, &dataflow.MalformedPlanError{NodeID: nodeID, Reason: err.Error()}
		}
		return &dataflow.NullCheck{Column: id, Not: true}, nil
	case ps.Column != "":
		id, err := naming.ParseAlias(ps.Column)
		if err != nil {
			return nil, &dataflow.MalformedPlanError{NodeID: nodeID, Reason: err.Error()}
		}
		op, err := parseComparisonOp(ps.Op)
		if err != nil {
			return nil, &dataflow.MalformedPlanError{NodeID: nodeID, Reason: err.Error()}
		}
		return &dataflow.Comparison{Column: id, Op: op, Value: literalFromValue(ps.Value)}, nil
	}
	return nil, &dataflow.MalformedPlanError{NodeID: nodeID, Reason: "empty predicate"}
}

func buildLogical(nodeID string, op sqlir.BinaryOp, operands []PredicateSpec) (dataflow.Predicate, error) {
	var preds []dataflow.Predicate
	for _, ps := range operands {
		p, err := buildPredicate(nodeID, ps)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return &dataflow.Logical{Op: op, Operands: preds}, nil
}

func parseKind(kind string) (dataflow.ColumnKind, error) {
	switch kind {
	case "measure":
		return dataflow.KindMeasure, nil
	case "dimension":
		return dataflow.KindDimension, nil
	case "entity":
		return dataflow.KindEntity, nil
	case "time":
		return dataflow.KindTime, nil
	}
	return 0, fmt.Errorf("unknown column kind %q", kind)
}

func parseColumns(nodeID string, aliases []string) ([]naming.ColumnID, error) {
	var out []naming.ColumnID
	for _, alias := range aliases {
		id, err := naming.ParseAlias(alias)
		if err != nil {
			return nil, &dataflow.MalformedPlanError{NodeID: nodeID, Reason: err.Error()}
		}
		out = append(out, id)
	}
	return out, nil
}

func parseComparisonOp(op string) (sqlir.BinaryOp, error) {
	switch sqlir.BinaryOp(op) {
	case sqlir.OpEq, sqlir.OpNeq, sqlir.OpLt, sqlir.OpLte, sqlir.OpGt, sqlir.OpGte:
		return sqlir.BinaryOp(op), nil
	}
	return "", fmt.Errorf("unknown comparison operator %q", op)
}

func parseArithmeticOp(op string) (sqlir.BinaryOp, error) {
	switch sqlir.BinaryOp(op) {
	case sqlir.OpAdd, sqlir.OpSub, sqlir.OpMul, sqlir.OpDiv:
		return sqlir.BinaryOp(op), nil
	}
	return "", fmt.Errorf("unknown arithmetic operator %q", op)
}

func literalFromValue(v any) *sqlir.Literal {
	switch val := v.(type) {
	case nil:
		return sqlir.Null()
	case bool:
		if val {
			return &sqlir.Literal{Kind: sqlir.LiteralBool, Value: "true"}
		}
		return &sqlir.Literal{Kind: sqlir.LiteralBool, Value: "false"}
	case int:
		return sqlir.Number(strconv.Itoa(val))
	case int64:
		return sqlir.Number(strconv.FormatInt(val, 10))
	case float64:
		return sqlir.Number(strconv.FormatFloat(val, 'g', -1, 64))
	case string:
		return sqlir.String(val)
	}
	return sqlir.String(fmt.Sprintf("%v", v))
}
