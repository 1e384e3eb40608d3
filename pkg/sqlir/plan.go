package sqlir

// TableName names a base table or view, optionally schema-qualified.
type TableName struct {
	Schema string
	Name   string
}

// FromSource is the FROM clause source of a SelectNode: either a base table
// or an owned nested sub-select.
type FromSource interface {
	fromSourceNode()
}

// TableSource reads from a base table.
type TableSource struct {
	Table TableName
	Alias string
}

func (*TableSource) fromSourceNode() {}

// SubquerySource reads from an owned nested SELECT.
type SubquerySource struct {
	Node  *SelectNode
	Alias string
}

func (*SubquerySource) fromSourceNode() {}

// JoinType is the join keyword family. Dialect profiles control the exact
// spelling (e.g. LEFT OUTER JOIN vs LEFT JOIN).
type JoinType string

// Join types emitted by lowering.
const (
	JoinLeftOuter JoinType = "left_outer"
	JoinInner     JoinType = "inner"
	JoinCross     JoinType = "cross"
)

// Join is one JOIN arm: an owned nested sub-select with its alias, join
// type, and ON condition.
type Join struct {
	Node  *SelectNode
	Alias string
	Type  JoinType
	On    Expr
}

// SelectItem is one select-list entry.
type SelectItem struct {
	Expr  Expr
	Alias string
}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Expr Expr
	Desc bool
}

// SelectNode is one SELECT statement in the compiled plan. A parent node
// exclusively owns its nested sub-selects; the tree is a strict forest
// rooted at the final node and is immutable once lowering returns it.
type SelectNode struct {
	// Description is a stable, human-readable summary of the logical step
	// this SELECT performs. It is emitted as a comment in rendered output
	// and participates in byte-identical determinism.
	Description string

	Select  []SelectItem
	From    FromSource
	Joins   []Join
	Where   Expr
	GroupBy []Expr
	OrderBy []OrderItem
	Limit   *int64
}

// FromAlias returns the alias bound by the FROM source.
func (n *SelectNode) FromAlias() string {
	switch src := n.From.(type) {
	case *TableSource:
		return src.Alias
	case *SubquerySource:
		return src.Alias
	}
	return ""
}

// ExportedAliases returns the output column aliases of this SELECT in
// select-list order.
func (n *SelectNode) ExportedAliases() []string {
	out := make([]string, len(n.Select))
	for i, item := range n.Select {
		out[i] = item.Alias
	}
	return out
}

// exportsAlias reports whether the select list defines the given alias.
func (n *SelectNode) exportsAlias(alias string) bool {
	for _, item := range n.Select {
		if item.Alias == alias {
			return true
		}
	}
	return false
}
