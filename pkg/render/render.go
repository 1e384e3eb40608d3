// Package render emits dialect-specific SQL text from the SQL IR. Rendering
// is a pure function of (IR tree, dialect profile): all dialect-specific
// tokens come from the profile, and the same tree under the same profile
// always produces byte-identical text.
package render

import (
	"fmt"
	"strings"

	"github.com/quarrylabs/quarry/pkg/dialect"
	"github.com/quarrylabs/quarry/pkg/sqlir"
)

// Render emits one SQL statement for the IR tree rooted at node. Each
// nested sub-select is emitted as a parenthesized, aliased subquery with a
// leading comment carrying its description. On error no partial text is
// returned.
func Render(node *sqlir.SelectNode, profile *dialect.Profile) (string, error) {
	if node == nil {
		return "", fmt.Errorf("nil select node")
	}
	if profile == nil {
		return "", fmt.Errorf("nil dialect profile")
	}
	r := &renderer{printer: newPrinter(), profile: profile}
	if err := r.renderSelect(node); err != nil {
		return "", err
	}
	return r.String(), nil
}

type renderer struct {
	*printer
	profile *dialect.Profile
}

func (r *renderer) renderSelect(n *sqlir.SelectNode) error {
	if n.Description != "" {
		r.write("-- " + n.Description)
		r.writeln()
	}

	r.write("SELECT")
	r.writeln()
	r.indent()
	err := r.list(len(n.Select), func(i int) error {
		item := n.Select[i]
		text, err := r.expr(item.Expr)
		if err != nil {
			return err
		}
		r.write(text + " AS " + r.ident(item.Alias))
		return nil
	}, ",", true)
	if err != nil {
		return err
	}
	r.writeln()
	r.dedent()

	if err := r.renderFrom(n.From); err != nil {
		return err
	}

	for _, j := range n.Joins {
		if err := r.renderJoin(j); err != nil {
			return err
		}
	}

	if n.Where != nil {
		text, err := r.expr(n.Where)
		if err != nil {
			return err
		}
		r.write("WHERE")
		r.writeln()
		r.indent()
		r.write(text)
		r.writeln()
		r.dedent()
	}

	if len(n.GroupBy) > 0 {
		r.write("GROUP BY")
		r.writeln()
		r.indent()
		err := r.list(len(n.GroupBy), func(i int) error {
			text, err := r.expr(n.GroupBy[i])
			if err != nil {
				return err
			}
			r.write(text)
			return nil
		}, ",", true)
		if err != nil {
			return err
		}
		r.writeln()
		r.dedent()
	}

	if len(n.OrderBy) > 0 {
		r.write("ORDER BY")
		r.writeln()
		r.indent()
		err := r.list(len(n.OrderBy), func(i int) error {
			text, err := r.expr(n.OrderBy[i].Expr)
			if err != nil {
				return err
			}
			if n.OrderBy[i].Desc {
				text += " DESC"
			}
			r.write(text)
			return nil
		}, ",", true)
		if err != nil {
			return err
		}
		r.writeln()
		r.dedent()
	}

	if n.Limit != nil {
		r.write(fmt.Sprintf("LIMIT %d", *n.Limit))
		r.writeln()
	}

	return nil
}

func (r *renderer) renderFrom(src sqlir.FromSource) error {
	switch from := src.(type) {
	case *sqlir.TableSource:
		r.write("FROM " + r.tableName(from.Table))
		if from.Alias != "" {
			r.write(" " + r.ident(from.Alias))
		}
		r.writeln()
		return nil
	case *sqlir.SubquerySource:
		return r.renderSubquery("FROM", from.Node, from.Alias)
	}
	return fmt.Errorf("unknown FROM source type %T", src)
}

func (r *renderer) renderJoin(j sqlir.Join) error {
	keyword, ok := r.profile.JoinKeyword(j.Type)
	if !ok {
		return &UnsupportedConstructError{
			Dialect:   r.profile.Name,
			Construct: fmt.Sprintf("%s join", j.Type),
		}
	}
	if err := r.renderSubquery(keyword, j.Node, j.Alias); err != nil {
		return err
	}
	if j.On != nil {
		text, err := r.expr(j.On)
		if err != nil {
			return err
		}
		r.write("ON")
		r.writeln()
		r.indent()
		r.write(text)
		r.writeln()
		r.dedent()
	}
	return nil
}

func (r *renderer) renderSubquery(keyword string, node *sqlir.SelectNode, alias string) error {
	r.write(keyword + " (")
	r.writeln()
	r.indent()
	if err := r.renderSelect(node); err != nil {
		return err
	}
	r.dedent()
	r.write(") " + r.ident(alias))
	r.writeln()
	return nil
}

// expr renders an expression inline.
func (r *renderer) expr(e sqlir.Expr) (string, error) {
	switch expr := e.(type) {
	case *sqlir.ColumnRef:
		if expr.Table == "" {
			return r.ident(expr.Column), nil
		}
		return r.ident(expr.Table) + "." + r.ident(expr.Column), nil
	case *sqlir.Literal:
		return r.literal(expr), nil
	case *sqlir.FuncCall:
		args := make([]string, len(expr.Args))
		for i, arg := range expr.Args {
			text, err := r.expr(arg)
			if err != nil {
				return "", err
			}
			args[i] = text
		}
		return expr.Name + "(" + strings.Join(args, ", ") + ")", nil
	case *sqlir.AggregateCall:
		return r.aggregate(expr)
	case *sqlir.DateTrunc:
		tmpl, ok := r.profile.DateTruncTemplate(expr.Granularity)
		if !ok {
			return "", &UnsupportedConstructError{
				Dialect:   r.profile.Name,
				Construct: fmt.Sprintf("date truncation to %s", expr.Granularity),
			}
		}
		arg, err := r.expr(expr.Arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(tmpl, arg), nil
	case *sqlir.Binary:
		left, err := r.expr(expr.Left)
		if err != nil {
			return "", err
		}
		right, err := r.expr(expr.Right)
		if err != nil {
			return "", err
		}
		return left + " " + string(expr.Op) + " " + right, nil
	case *sqlir.Not:
		arg, err := r.expr(expr.Expr)
		if err != nil {
			return "", err
		}
		return "NOT " + arg, nil
	case *sqlir.IsNull:
		arg, err := r.expr(expr.Expr)
		if err != nil {
			return "", err
		}
		if expr.Not {
			return arg + " IS NOT NULL", nil
		}
		return arg + " IS NULL", nil
	case *sqlir.Paren:
		arg, err := r.expr(expr.Expr)
		if err != nil {
			return "", err
		}
		return "(" + arg + ")", nil
	}
	return "", fmt.Errorf("unknown expression type %T", e)
}

func (r *renderer) aggregate(call *sqlir.AggregateCall) (string, error) {
	arg, err := r.expr(call.Arg)
	if err != nil {
		return "", err
	}
	switch call.Agg {
	case sqlir.AggregationSum:
		return "SUM(" + arg + ")", nil
	case sqlir.AggregationMin:
		return "MIN(" + arg + ")", nil
	case sqlir.AggregationMax:
		return "MAX(" + arg + ")", nil
	case sqlir.AggregationAverage:
		return "AVG(" + arg + ")", nil
	case sqlir.AggregationCount:
		return "COUNT(" + arg + ")", nil
	case sqlir.AggregationCountDistinct:
		if !r.profile.SupportsCountDistinct {
			return "", &UnsupportedConstructError{
				Dialect:   r.profile.Name,
				Construct: "COUNT(DISTINCT ...) aggregation",
			}
		}
		return "COUNT(DISTINCT " + arg + ")", nil
	}
	return "", fmt.Errorf("unknown aggregation %q", call.Agg)
}

func (r *renderer) literal(l *sqlir.Literal) string {
	switch l.Kind {
	case sqlir.LiteralString:
		return "'" + strings.ReplaceAll(l.Value, "'", "''") + "'"
	case sqlir.LiteralNull:
		return "NULL"
	case sqlir.LiteralBool:
		return strings.ToUpper(l.Value)
	}
	return l.Value
}

// ident quotes an identifier only when it is not a plain lowercase-safe
// identifier, keeping common output free of quote noise while staying
// unambiguous.
func (r *renderer) ident(name string) string {
	if isPlainIdent(name) {
		return name
	}
	return r.profile.QuoteIdent(name)
}

func isPlainIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (r *renderer) tableName(t sqlir.TableName) string {
	if t.Schema != "" {
		return r.ident(t.Schema) + "." + r.ident(t.Name)
	}
	return r.ident(t.Name)
}
