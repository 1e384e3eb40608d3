package dataflow

import (
	"fmt"
	"strings"

	"github.com/quarrylabs/quarry/pkg/naming"
	"github.com/quarrylabs/quarry/pkg/sqlir"
)

// Predicate is a boolean condition over a node's semantic columns. Lowering
// translates it to SQL IR by substituting each ColumnID with its resolved
// physical alias.
type Predicate interface {
	// Columns returns every ColumnID the predicate references.
	Columns() []naming.ColumnID
	// String renders a stable description used in lowering comments.
	String() string

	predicateNode()
}

// Comparison compares a column against a literal value.
type Comparison struct {
	Column naming.ColumnID
	Op     sqlir.BinaryOp
	Value  *sqlir.Literal
}

func (*Comparison) predicateNode() {}

// Columns implements Predicate.
func (p *Comparison) Columns() []naming.ColumnID { return []naming.ColumnID{p.Column} }

// String implements Predicate.
func (p *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", p.Column.Alias(), p.Op, literalText(p.Value))
}

// Logical combines two or more predicates with AND or OR.
type Logical struct {
	Op       sqlir.BinaryOp // OpAnd or OpOr
	Operands []Predicate
}

func (*Logical) predicateNode() {}

// Columns implements Predicate.
func (p *Logical) Columns() []naming.ColumnID {
	var out []naming.ColumnID
	for _, op := range p.Operands {
		out = append(out, op.Columns()...)
	}
	return out
}

// String implements Predicate.
func (p *Logical) String() string {
	parts := make([]string, len(p.Operands))
	for i, op := range p.Operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, " "+string(p.Op)+" ") + ")"
}

// Not negates a predicate.
type Not struct {
	Operand Predicate
}

func (*Not) predicateNode() {}

// Columns implements Predicate.
func (p *Not) Columns() []naming.ColumnID { return p.Operand.Columns() }

// String implements Predicate.
func (p *Not) String() string {
	if _, ok := p.Operand.(*Logical); ok {
		// Logical operands already print their own parentheses.
		return "NOT " + p.Operand.String()
	}
	return "NOT (" + p.Operand.String() + ")"
}

// NullCheck tests a column for NULL (or NOT NULL when Not is set).
type NullCheck struct {
	Column naming.ColumnID
	Not    bool
}

func (*NullCheck) predicateNode() {}

// Columns implements Predicate.
func (p *NullCheck) Columns() []naming.ColumnID { return []naming.ColumnID{p.Column} }

// String implements Predicate.
func (p *NullCheck) String() string {
	if p.Not {
		return p.Column.Alias() + " IS NOT NULL"
	}
	return p.Column.Alias() + " IS NULL"
}

func literalText(l *sqlir.Literal) string {
	if l == nil {
		return "NULL"
	}
	switch l.Kind {
	case sqlir.LiteralString:
		return "'" + l.Value + "'"
	case sqlir.LiteralNull:
		return "NULL"
	}
	return l.Value
}
