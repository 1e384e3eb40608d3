package sqlir

import "fmt"

// CheckClosure verifies referential closure of an IR tree: every ColumnRef
// in a select item, join condition, or predicate must name an alias bound by
// that node's own FROM or JOIN scope, and, when the scope is a nested
// sub-select, a column that sub-select actually exports. Columns read from
// base tables are taken on trust since the IR carries no physical schemas.
//
// The check needs no renderer or dialect and is run by tests to pin the
// property independently of text emission.
func CheckClosure(node *SelectNode) error {
	if node == nil {
		return fmt.Errorf("nil select node")
	}

	// alias -> exported columns; nil set means a base table (unchecked).
	scopes := map[string]*SelectNode{}

	switch src := node.From.(type) {
	case *TableSource:
		scopes[src.Alias] = nil
	case *SubquerySource:
		if err := CheckClosure(src.Node); err != nil {
			return err
		}
		scopes[src.Alias] = src.Node
	default:
		return fmt.Errorf("select %q has no FROM source", node.Description)
	}

	for _, j := range node.Joins {
		if err := CheckClosure(j.Node); err != nil {
			return err
		}
		if _, dup := scopes[j.Alias]; dup {
			return fmt.Errorf("select %q binds alias %q twice", node.Description, j.Alias)
		}
		scopes[j.Alias] = j.Node
	}

	check := func(e Expr) error { return checkExprClosure(e, node, scopes) }

	for _, item := range node.Select {
		if err := check(item.Expr); err != nil {
			return err
		}
	}
	for _, j := range node.Joins {
		if err := check(j.On); err != nil {
			return err
		}
	}
	if err := check(node.Where); err != nil {
		return err
	}
	for _, e := range node.GroupBy {
		if err := check(e); err != nil {
			return err
		}
	}
	for _, o := range node.OrderBy {
		if err := check(o.Expr); err != nil {
			return err
		}
	}
	return nil
}

func checkExprClosure(e Expr, owner *SelectNode, scopes map[string]*SelectNode) error {
	switch expr := e.(type) {
	case nil:
		return nil
	case *ColumnRef:
		if expr.Table == "" {
			// Bare references are only legal over a base table FROM.
			if _, ok := owner.From.(*TableSource); !ok {
				return fmt.Errorf("select %q references unqualified column %q over a subquery",
					owner.Description, expr.Column)
			}
			return nil
		}
		sub, ok := scopes[expr.Table]
		if !ok {
			return fmt.Errorf("select %q references alias %q which is not in scope",
				owner.Description, expr.Table)
		}
		if sub != nil && !sub.exportsAlias(expr.Column) {
			return fmt.Errorf("select %q references column %q not exported by subquery %q",
				owner.Description, expr.Column, expr.Table)
		}
		return nil
	case *Literal:
		return nil
	case *FuncCall:
		for _, arg := range expr.Args {
			if err := checkExprClosure(arg, owner, scopes); err != nil {
				return err
			}
		}
		return nil
	case *AggregateCall:
		return checkExprClosure(expr.Arg, owner, scopes)
	case *DateTrunc:
		return checkExprClosure(expr.Arg, owner, scopes)
	case *Binary:
		if err := checkExprClosure(expr.Left, owner, scopes); err != nil {
			return err
		}
		return checkExprClosure(expr.Right, owner, scopes)
	case *Not:
		return checkExprClosure(expr.Expr, owner, scopes)
	case *IsNull:
		return checkExprClosure(expr.Expr, owner, scopes)
	case *Paren:
		return checkExprClosure(expr.Expr, owner, scopes)
	}
	return fmt.Errorf("unknown expression type %T", e)
}
