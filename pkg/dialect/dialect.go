// Package dialect defines the DialectProfile contract: the complete set of
// syntax options a renderer needs to emit SQL for one target warehouse.
// Concrete profiles are registered from pkg/dialects/*/ packages; the
// lowering engine never sees a profile, only renderers do.
package dialect

import (
	"fmt"
	"strings"

	"github.com/quarrylabs/quarry/pkg/naming"
	"github.com/quarrylabs/quarry/pkg/sqlir"
)

// Profile describes one SQL dialect. Swapping the profile changes surface
// syntax only, never the logical result of a compiled plan.
type Profile struct {
	// Name identifies the dialect in the registry (lowercase).
	Name string

	// QuoteChar is the identifier quote character, e.g. `"` or a backtick.
	QuoteChar string

	// DateTruncTemplates maps each granularity to a format template with a
	// single %s placeholder for the operand expression. A missing entry
	// means the dialect cannot truncate to that granularity.
	DateTruncTemplates map[naming.Granularity]string

	// SupportsCountDistinct reports whether COUNT(DISTINCT x) is valid
	// aggregate syntax. Renderers must fail rather than emit it otherwise.
	SupportsCountDistinct bool

	// JoinSpelling maps join types to their keyword spelling, e.g.
	// "LEFT OUTER JOIN" vs "LEFT JOIN".
	JoinSpelling map[sqlir.JoinType]string

	// DefaultSchema is the schema unqualified tables resolve to. Display
	// only; renderers never inject it.
	DefaultSchema string
}

// QuoteIdent quotes an identifier with the profile's quote character,
// doubling embedded quote characters.
func (p *Profile) QuoteIdent(name string) string {
	if p.QuoteChar == "" {
		return name
	}
	escaped := strings.ReplaceAll(name, p.QuoteChar, p.QuoteChar+p.QuoteChar)
	return p.QuoteChar + escaped + p.QuoteChar
}

// DateTruncTemplate returns the truncation template for g.
func (p *Profile) DateTruncTemplate(g naming.Granularity) (string, bool) {
	t, ok := p.DateTruncTemplates[g]
	return t, ok
}

// JoinKeyword returns the spelling for a join type.
func (p *Profile) JoinKeyword(t sqlir.JoinType) (string, bool) {
	kw, ok := p.JoinSpelling[t]
	return kw, ok
}

// StandardJoinSpelling is the ANSI join keyword set shared by the builtin
// profiles.
func StandardJoinSpelling() map[sqlir.JoinType]string {
	return map[sqlir.JoinType]string{
		sqlir.JoinLeftOuter: "LEFT OUTER JOIN",
		sqlir.JoinInner:     "INNER JOIN",
		sqlir.JoinCross:     "CROSS JOIN",
	}
}

// Validate checks the profile is complete enough to register.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("dialect profile has no name")
	}
	if len(p.DateTruncTemplates) == 0 {
		return fmt.Errorf("dialect %s declares no date truncation templates", p.Name)
	}
	if len(p.JoinSpelling) == 0 {
		return fmt.Errorf("dialect %s declares no join spellings", p.Name)
	}
	return nil
}
