package sqlir

// SubqueryInfo describes one SELECT in a compiled plan for display.
type SubqueryInfo struct {
	// Alias is the binding alias of the subquery, or empty for the
	// outermost SELECT.
	Alias       string
	Description string
}

// Subqueries lists every SELECT in the tree in post-order (innermost
// first), matching alias assignment order.
func Subqueries(root *SelectNode) []SubqueryInfo {
	var out []SubqueryInfo
	var visit func(n *SelectNode, alias string)
	visit = func(n *SelectNode, alias string) {
		if src, ok := n.From.(*SubquerySource); ok {
			visit(src.Node, src.Alias)
		}
		for _, j := range n.Joins {
			visit(j.Node, j.Alias)
		}
		out = append(out, SubqueryInfo{Alias: alias, Description: n.Description})
	}
	visit(root, "")
	return out
}
