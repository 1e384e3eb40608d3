// Package lower converts a dataflow plan into SQL IR. Each plan node
// becomes exactly one SelectNode wrapping its predecessors as nested
// sub-selects. Aliases are assigned in strict post-order from a counter
// private to one compilation, so recompiling an identical plan yields
// byte-identical output.
package lower

import (
	"fmt"
	"strings"

	"github.com/quarrylabs/quarry/pkg/dataflow"
	"github.com/quarrylabs/quarry/pkg/naming"
	"github.com/quarrylabs/quarry/pkg/sqlir"
)

// Lower validates and lowers the plan rooted at root, returning the root of
// the SQL IR tree. The transformation is pure: no state is shared between
// calls and concurrent compilations need no synchronization.
func Lower(root dataflow.Node) (*sqlir.SelectNode, error) {
	if err := dataflow.Validate(root); err != nil {
		return nil, err
	}
	l := &lowerer{}
	ln, err := l.lowerNode(root)
	if err != nil {
		return nil, err
	}
	return ln.sel, nil
}

// lowered pairs a node's SQL IR with the alias it binds when nested and the
// schema of columns it exports.
type lowered struct {
	sel    *sqlir.SelectNode
	alias  string
	schema dataflow.Schema
}

// column returns an IR reference to one of the lowered node's output
// columns, failing when the identifier is not in its schema.
func (ln lowered) column(nodeID string, id naming.ColumnID) (*sqlir.ColumnRef, error) {
	if _, ok := ln.schema.Lookup(id); !ok {
		return nil, &UnresolvableIdentifierError{NodeID: nodeID, Column: id}
	}
	return &sqlir.ColumnRef{Table: ln.alias, Column: id.Alias()}, nil
}

// passthroughItems selects every column of the lowered node unchanged.
func (ln lowered) passthroughItems() []sqlir.SelectItem {
	items := make([]sqlir.SelectItem, len(ln.schema))
	for i, c := range ln.schema {
		alias := c.ID.Alias()
		items[i] = sqlir.SelectItem{
			Expr:  &sqlir.ColumnRef{Table: ln.alias, Column: alias},
			Alias: alias,
		}
	}
	return items
}

type lowerer struct {
	counter int
}

// nextAlias must be called only after a node's children are fully lowered;
// the resulting numbering is the determinism contract of the compiler.
func (l *lowerer) nextAlias() string {
	alias := fmt.Sprintf("subq_%d", l.counter)
	l.counter++
	return alias
}

func (l *lowerer) lowerNode(n dataflow.Node) (lowered, error) {
	switch node := n.(type) {
	case *dataflow.SourceRead:
		return l.lowerSourceRead(node)
	case *dataflow.FilterElements:
		return l.lowerFilterElements(node)
	case *dataflow.ConstrainOutput:
		return l.lowerConstrainOutput(node)
	case *dataflow.JoinOnEntities:
		return l.lowerJoinOnEntities(node)
	case *dataflow.AggregateMeasures:
		return l.lowerAggregateMeasures(node)
	case *dataflow.ComputeMetrics:
		return l.lowerComputeMetrics(node)
	}
	return lowered{}, &dataflow.MalformedPlanError{
		NodeID: n.ID(),
		Reason: fmt.Sprintf("unknown node type %T", n),
	}
}

func (l *lowerer) lowerSourceRead(n *dataflow.SourceRead) (lowered, error) {
	schema, err := n.OutputSchema()
	if err != nil {
		return lowered{}, err
	}

	srcAlias := n.Table.Name + "_src"
	var items []sqlir.SelectItem
	for _, sc := range n.Columns {
		var base sqlir.Expr
		switch {
		case sc.Expr != "":
			base = &sqlir.ColumnRef{Table: srcAlias, Column: sc.Expr}
		case sc.Column.Kind == dataflow.KindMeasure:
			// Count-style measure with no physical column.
			base = sqlir.Number("1")
		default:
			return lowered{}, &dataflow.MalformedPlanError{
				NodeID: n.NodeID,
				Reason: fmt.Sprintf("%s column %s has no source expression", sc.Column.Kind, sc.Column.ID.Alias()),
			}
		}
		items = append(items, sqlir.SelectItem{Expr: base, Alias: sc.Column.ID.Alias()})
		if sc.Column.Kind == dataflow.KindTime {
			for _, g := range naming.StandardGranularities {
				items = append(items, sqlir.SelectItem{
					Expr:  &sqlir.DateTrunc{Granularity: g, Arg: &sqlir.ColumnRef{Table: srcAlias, Column: sc.Expr}},
					Alias: sc.Column.ID.AtGranularity(g).Alias(),
				})
			}
		}
	}

	sel := &sqlir.SelectNode{
		Description: fmt.Sprintf("Read rows from '%s'", qualifiedName(n.Table)),
		Select:      items,
		From:        &sqlir.TableSource{Table: n.Table, Alias: srcAlias},
	}
	return lowered{sel: sel, alias: l.nextAlias(), schema: schema}, nil
}

func (l *lowerer) lowerFilterElements(n *dataflow.FilterElements) (lowered, error) {
	child, err := l.lowerNode(n.Input)
	if err != nil {
		return lowered{}, err
	}
	schema, err := n.OutputSchema()
	if err != nil {
		return lowered{}, err
	}

	items := make([]sqlir.SelectItem, len(schema))
	for i, c := range schema {
		alias := c.ID.Alias()
		items[i] = sqlir.SelectItem{
			Expr:  &sqlir.ColumnRef{Table: child.alias, Column: alias},
			Alias: alias,
		}
	}

	sel := &sqlir.SelectNode{
		Description: "Pass only elements: " + elementList(schema.Aliases()),
		Select:      items,
		From:        &sqlir.SubquerySource{Node: child.sel, Alias: child.alias},
	}
	return lowered{sel: sel, alias: l.nextAlias(), schema: schema}, nil
}

func (l *lowerer) lowerConstrainOutput(n *dataflow.ConstrainOutput) (lowered, error) {
	child, err := l.lowerNode(n.Input)
	if err != nil {
		return lowered{}, err
	}
	if n.Predicate == nil {
		return lowered{}, &dataflow.MalformedPlanError{NodeID: n.NodeID, Reason: "constraint has no predicate"}
	}
	where, err := l.translatePredicate(n.NodeID, n.Predicate, child)
	if err != nil {
		return lowered{}, err
	}

	sel := &sqlir.SelectNode{
		Description: "Constrain output with WHERE " + n.Predicate.String(),
		Select:      child.passthroughItems(),
		From:        &sqlir.SubquerySource{Node: child.sel, Alias: child.alias},
		Where:       where,
	}
	return lowered{sel: sel, alias: l.nextAlias(), schema: child.schema}, nil
}

func (l *lowerer) lowerJoinOnEntities(n *dataflow.JoinOnEntities) (lowered, error) {
	left, err := l.lowerNode(n.Left)
	if err != nil {
		return lowered{}, err
	}
	right, err := l.lowerNode(n.Right)
	if err != nil {
		return lowered{}, err
	}
	schema, err := n.OutputSchema()
	if err != nil {
		return lowered{}, err
	}

	// Left columns keep their aliases; right columns are re-aliased under
	// the join entity path so they cannot collide.
	items := left.passthroughItems()
	for _, id := range n.RightColumns {
		ref, err := right.column(n.NodeID, id)
		if err != nil {
			return lowered{}, err
		}
		items = append(items, sqlir.SelectItem{
			Expr:  ref,
			Alias: id.WithPathPrefix(n.JoinEntities...).Alias(),
		})
	}

	var conds []sqlir.Expr
	for _, entity := range n.JoinEntities {
		entityID := naming.Column(entity)
		lref, err := left.column(n.NodeID, entityID)
		if err != nil {
			return lowered{}, err
		}
		rref, err := right.column(n.NodeID, entityID)
		if err != nil {
			return lowered{}, err
		}
		conds = append(conds, &sqlir.Binary{Left: lref, Op: sqlir.OpEq, Right: rref})
	}

	desc := "Join on entities: " + elementList(n.JoinEntities)
	if n.Validity != nil {
		ts, err := left.column(n.NodeID, n.Validity.TimeColumn)
		if err != nil {
			return lowered{}, err
		}
		start, err := right.column(n.NodeID, n.Validity.WindowStart)
		if err != nil {
			return lowered{}, err
		}
		end, err := right.column(n.NodeID, n.Validity.WindowEnd)
		if err != nil {
			return lowered{}, err
		}
		// A NULL window end marks the still-current dimension row; the OR
		// branch matches it regardless of the fact row's timestamp.
		conds = append(conds,
			&sqlir.Binary{Left: ts, Op: sqlir.OpGte, Right: start},
			&sqlir.Paren{Expr: &sqlir.Binary{
				Left:  &sqlir.Binary{Left: ts, Op: sqlir.OpLt, Right: end},
				Op:    sqlir.OpOr,
				Right: &sqlir.IsNull{Expr: end},
			}},
		)
		desc += " within validity window"
	}

	sel := &sqlir.SelectNode{
		Description: desc,
		Select:      items,
		From:        &sqlir.SubquerySource{Node: left.sel, Alias: left.alias},
		Joins: []sqlir.Join{{
			Node:  right.sel,
			Alias: right.alias,
			Type:  sqlir.JoinLeftOuter,
			On:    sqlir.And(conds...),
		}},
	}
	return lowered{sel: sel, alias: l.nextAlias(), schema: schema}, nil
}

func (l *lowerer) lowerAggregateMeasures(n *dataflow.AggregateMeasures) (lowered, error) {
	child, err := l.lowerNode(n.Input)
	if err != nil {
		return lowered{}, err
	}
	schema, err := n.OutputSchema()
	if err != nil {
		return lowered{}, err
	}

	var items []sqlir.SelectItem
	var groupBy []sqlir.Expr
	var measureNames []string
	for _, c := range schema {
		alias := c.ID.Alias()
		ref := &sqlir.ColumnRef{Table: child.alias, Column: alias}
		if c.Kind == dataflow.KindMeasure {
			items = append(items, sqlir.SelectItem{
				Expr:  &sqlir.AggregateCall{Agg: c.Agg, Arg: ref},
				Alias: alias,
			})
			measureNames = append(measureNames, alias)
			continue
		}
		items = append(items, sqlir.SelectItem{Expr: ref, Alias: alias})
		groupBy = append(groupBy, &sqlir.ColumnRef{Table: child.alias, Column: alias})
	}

	sel := &sqlir.SelectNode{
		Description: "Aggregate measures: " + elementList(measureNames),
		Select:      items,
		From:        &sqlir.SubquerySource{Node: child.sel, Alias: child.alias},
		GroupBy:     groupBy,
	}
	return lowered{sel: sel, alias: l.nextAlias(), schema: schema}, nil
}

func (l *lowerer) lowerComputeMetrics(n *dataflow.ComputeMetrics) (lowered, error) {
	child, err := l.lowerNode(n.Input)
	if err != nil {
		return lowered{}, err
	}
	schema, err := n.OutputSchema()
	if err != nil {
		return lowered{}, err
	}

	var items []sqlir.SelectItem
	for _, c := range child.schema.NonMeasures() {
		alias := c.ID.Alias()
		items = append(items, sqlir.SelectItem{
			Expr:  &sqlir.ColumnRef{Table: child.alias, Column: alias},
			Alias: alias,
		})
	}
	var metricNames []string
	for _, m := range n.Metrics {
		expr, err := l.metricExpr(n.NodeID, m.Expr, child)
		if err != nil {
			return lowered{}, err
		}
		items = append(items, sqlir.SelectItem{Expr: expr, Alias: m.Name})
		metricNames = append(metricNames, m.Name)
	}

	sel := &sqlir.SelectNode{
		Description: "Compute metrics: " + elementList(metricNames),
		Select:      items,
		From:        &sqlir.SubquerySource{Node: child.sel, Alias: child.alias},
	}
	return lowered{sel: sel, alias: l.nextAlias(), schema: schema}, nil
}

func (l *lowerer) translatePredicate(nodeID string, p dataflow.Predicate, in lowered) (sqlir.Expr, error) {
	switch pred := p.(type) {
	case *dataflow.Comparison:
		ref, err := in.column(nodeID, pred.Column)
		if err != nil {
			return nil, err
		}
		value := pred.Value
		if value == nil {
			value = sqlir.Null()
		}
		return &sqlir.Binary{Left: ref, Op: pred.Op, Right: value}, nil
	case *dataflow.Logical:
		if len(pred.Operands) == 0 {
			return nil, &dataflow.MalformedPlanError{NodeID: nodeID, Reason: "logical predicate has no operands"}
		}
		var out sqlir.Expr
		for _, op := range pred.Operands {
			translated, err := l.translatePredicate(nodeID, op, in)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = translated
				continue
			}
			out = &sqlir.Binary{Left: out, Op: pred.Op, Right: translated}
		}
		if len(pred.Operands) == 1 {
			return out, nil
		}
		return &sqlir.Paren{Expr: out}, nil
	case *dataflow.Not:
		if pred.Operand == nil {
			return nil, &dataflow.MalformedPlanError{NodeID: nodeID, Reason: "negation has no operand"}
		}
		inner, err := l.translatePredicate(nodeID, pred.Operand, in)
		if err != nil {
			return nil, err
		}
		if _, grouped := inner.(*sqlir.Paren); !grouped {
			inner = &sqlir.Paren{Expr: inner}
		}
		return &sqlir.Not{Expr: inner}, nil
	case *dataflow.NullCheck:
		ref, err := in.column(nodeID, pred.Column)
		if err != nil {
			return nil, err
		}
		return &sqlir.IsNull{Expr: ref, Not: pred.Not}, nil
	}
	return nil, &dataflow.MalformedPlanError{
		NodeID: nodeID,
		Reason: fmt.Sprintf("unknown predicate type %T", p),
	}
}

func (l *lowerer) metricExpr(nodeID string, e dataflow.MetricExpr, in lowered) (sqlir.Expr, error) {
	switch expr := e.(type) {
	case *dataflow.MeasureRef:
		return in.column(nodeID, expr.Measure)
	case *dataflow.Ratio:
		num, err := l.metricExpr(nodeID, expr.Numerator, in)
		if err != nil {
			return nil, err
		}
		den, err := l.metricExpr(nodeID, expr.Denominator, in)
		if err != nil {
			return nil, err
		}
		// Zero-denominator policy: NULL, via NULLIF.
		return &sqlir.Binary{
			Left:  maybeParen(num),
			Op:    sqlir.OpDiv,
			Right: &sqlir.FuncCall{Name: "NULLIF", Args: []sqlir.Expr{den, sqlir.Number("0")}},
		}, nil
	case *dataflow.Arithmetic:
		left, err := l.metricExpr(nodeID, expr.Left, in)
		if err != nil {
			return nil, err
		}
		right, err := l.metricExpr(nodeID, expr.Right, in)
		if err != nil {
			return nil, err
		}
		return &sqlir.Binary{Left: maybeParen(left), Op: expr.Op, Right: maybeParen(right)}, nil
	case *dataflow.Constant:
		return sqlir.Number(expr.Value), nil
	}
	return nil, &dataflow.MalformedPlanError{
		NodeID: nodeID,
		Reason: fmt.Sprintf("unknown metric expression type %T", e),
	}
}

// maybeParen wraps composite operands so nested arithmetic keeps its
// grouping without renderers knowing precedence.
func maybeParen(e sqlir.Expr) sqlir.Expr {
	if _, ok := e.(*sqlir.Binary); ok {
		return &sqlir.Paren{Expr: e}
	}
	return e
}

func qualifiedName(t sqlir.TableName) string {
	if t.Schema != "" {
		return t.Schema + "." + t.Name
	}
	return t.Name
}

func elementList(names []string) string {
	return "[" + strings.Join(names, ", ") + "]"
}
