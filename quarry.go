// Package quarry compiles dataflow plans into dialect-specific SQL. A plan
// is a DAG of semantic operations over measures, dimensions, entities, and
// time; compilation validates the plan, lowers it to a nested-select IR,
// and renders text for one dialect profile.
package quarry

import (
	"github.com/quarrylabs/quarry/pkg/dataflow"
	"github.com/quarrylabs/quarry/pkg/dialect"
	"github.com/quarrylabs/quarry/pkg/lower"
	"github.com/quarrylabs/quarry/pkg/render"
)

// Compile lowers the plan rooted at root and renders it for the given
// profile. Stateless and safe to call concurrently; errors abort the whole
// compilation and never yield partial SQL.
func Compile(root dataflow.Node, profile *dialect.Profile) (string, error) {
	ir, err := lower.Lower(root)
	if err != nil {
		return "", err
	}
	return render.Render(ir, profile)
}
