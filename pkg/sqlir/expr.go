// Package sqlir defines the dialect-agnostic SQL intermediate representation
// produced by lowering: a small expression tree plus a composable SELECT
// node. The IR is immutable after construction and carries no rendering
// logic; renderers in pkg/render turn it into dialect-specific text.
package sqlir

import "github.com/quarrylabs/quarry/pkg/naming"

// Expr is a SQL expression node.
type Expr interface {
	exprNode()
}

// ColumnRef references a column exported by an enclosing FROM or JOIN scope.
type ColumnRef struct {
	Table  string // subquery or table alias; empty only for bare source columns
	Column string
}

func (*ColumnRef) exprNode() {}

// LiteralKind classifies literal values.
type LiteralKind int

// LiteralKind values.
const (
	LiteralNumber LiteralKind = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// Literal is a literal value. Value holds the source-text form for numbers
// and booleans and the unquoted text for strings.
type Literal struct {
	Kind  LiteralKind
	Value string
}

func (*Literal) exprNode() {}

// Null returns a NULL literal.
func Null() *Literal { return &Literal{Kind: LiteralNull} }

// Number returns a numeric literal from its source text.
func Number(text string) *Literal { return &Literal{Kind: LiteralNumber, Value: text} }

// String returns a string literal.
func String(text string) *Literal { return &Literal{Kind: LiteralString, Value: text} }

// FuncCall is a plain function call.
type FuncCall struct {
	Name string
	Args []Expr
}

func (*FuncCall) exprNode() {}

// AggregationType is a declared measure aggregation function.
type AggregationType string

// Aggregation functions supported by measures.
const (
	AggregationSum           AggregationType = "sum"
	AggregationMin           AggregationType = "min"
	AggregationMax           AggregationType = "max"
	AggregationAverage       AggregationType = "average"
	AggregationCount         AggregationType = "count"
	AggregationCountDistinct AggregationType = "count_distinct"
)

// IsValid reports whether a is a known aggregation.
func (a AggregationType) IsValid() bool {
	switch a {
	case AggregationSum, AggregationMin, AggregationMax,
		AggregationAverage, AggregationCount, AggregationCountDistinct:
		return true
	}
	return false
}

// AggregateCall applies an aggregation function to its operand. Kept
// separate from FuncCall so renderers can consult dialect capabilities
// (COUNT(DISTINCT ...) support) before emitting text.
type AggregateCall struct {
	Agg AggregationType
	Arg Expr
}

func (*AggregateCall) exprNode() {}

// DateTrunc truncates a timestamp to a granularity. The concrete function
// spelling is a dialect concern resolved at render time.
type DateTrunc struct {
	Granularity naming.Granularity
	Arg         Expr
}

func (*DateTrunc) exprNode() {}

// BinaryOp is a binary operator token, one of the comparison, logical, or
// arithmetic operators.
type BinaryOp string

// Binary operators used by lowering.
const (
	OpEq  BinaryOp = "="
	OpNeq BinaryOp = "!="
	OpLt  BinaryOp = "<"
	OpLte BinaryOp = "<="
	OpGt  BinaryOp = ">"
	OpGte BinaryOp = ">="
	OpAnd BinaryOp = "AND"
	OpOr  BinaryOp = "OR"
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
)

// Binary is a binary expression.
type Binary struct {
	Left  Expr
	Op    BinaryOp
	Right Expr
}

func (*Binary) exprNode() {}

// And folds exprs into a left-nested AND chain. Returns nil for no exprs and
// the single expr unchanged for one.
func And(exprs ...Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = &Binary{Left: out, Op: OpAnd, Right: e}
	}
	return out
}

// Not negates a boolean expression. Lowering always parenthesizes the
// operand so renderers need no precedence rules.
type Not struct {
	Expr Expr
}

func (*Not) exprNode() {}

// IsNull tests an expression for NULL (or NOT NULL when Not is set).
type IsNull struct {
	Expr Expr
	Not  bool
}

func (*IsNull) exprNode() {}

// Paren wraps an expression in explicit parentheses. Lowering inserts these
// where operator grouping is semantically load-bearing, keeping renderers
// free of precedence rules.
type Paren struct {
	Expr Expr
}

func (*Paren) exprNode() {}
