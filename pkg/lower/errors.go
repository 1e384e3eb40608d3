package lower

import (
	"fmt"

	"github.com/quarrylabs/quarry/pkg/naming"
)

// UnresolvableIdentifierError reports a column identifier that cannot be
// mapped to a physical alias given the schema visible to the node being
// lowered, e.g. an entity path the node's inputs never declare. Fatal for
// the compilation.
type UnresolvableIdentifierError struct {
	NodeID string
	Column naming.ColumnID
}

// Error implements error.
func (e *UnresolvableIdentifierError) Error() string {
	return fmt.Sprintf("unresolvable identifier: node %s: column %s is not reachable in the node's input schema",
		e.NodeID, e.Column.Alias())
}
