// Package naming derives physical SQL column aliases from semantic column
// identifiers. The mapping is pure and deterministic: the same identifier
// always yields the same alias, and distinct identifiers never collide as
// long as the individual name segments pass Validate.
package naming

import (
	"fmt"
	"strings"
)

// Separator joins entity-path segments, element names, and granularity
// suffixes in physical aliases. It is part of the external naming contract
// and must not change.
const Separator = "__"

// Granularity is a time-truncation level for time dimension columns.
type Granularity string

// Supported granularities. Week and year truncation follow ISO boundaries;
// month and quarter follow calendar boundaries.
const (
	GranularityNone    Granularity = ""
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// StandardGranularities is the expansion set emitted for every time column
// read from a source, in ascending coarseness. The ungranularized base
// column keeps the bare alias.
var StandardGranularities = []Granularity{
	GranularityWeek,
	GranularityMonth,
	GranularityQuarter,
	GranularityYear,
}

// IsValid reports whether g is a known granularity (or none).
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityNone, GranularityDay, GranularityWeek,
		GranularityMonth, GranularityQuarter, GranularityYear:
		return true
	}
	return false
}

// ColumnID identifies a semantic column: an element name reached through an
// ordered entity path, optionally at a specific time granularity. Two
// ColumnIDs are equal iff all three fields match.
type ColumnID struct {
	EntityPath  []string
	ElementName string
	Granularity Granularity
}

// Column constructs an un-pathed, ungranularized identifier.
func Column(element string) ColumnID {
	return ColumnID{ElementName: element}
}

// PathColumn constructs an identifier reached through the given entity path.
func PathColumn(element string, path ...string) ColumnID {
	return ColumnID{EntityPath: path, ElementName: element}
}

// AtGranularity returns a copy of c at the given granularity.
func (c ColumnID) AtGranularity(g Granularity) ColumnID {
	c2 := c
	c2.Granularity = g
	return c2
}

// WithPathPrefix returns a copy of c with prefix prepended to its entity
// path. Used when a join re-qualifies the right side's columns.
func (c ColumnID) WithPathPrefix(prefix ...string) ColumnID {
	path := make([]string, 0, len(prefix)+len(c.EntityPath))
	path = append(path, prefix...)
	path = append(path, c.EntityPath...)
	c2 := c
	c2.EntityPath = path
	return c2
}

// Alias returns the physical column alias for c:
// entity path segments and element name joined by Separator, with a
// granularity suffix when present. Injective over identifiers whose
// segments pass Validate.
func (c ColumnID) Alias() string {
	parts := make([]string, 0, len(c.EntityPath)+2)
	parts = append(parts, c.EntityPath...)
	parts = append(parts, c.ElementName)
	if c.Granularity != GranularityNone {
		parts = append(parts, string(c.Granularity))
	}
	return strings.Join(parts, Separator)
}

// Equal reports field-wise equality.
func (c ColumnID) Equal(other ColumnID) bool {
	if c.ElementName != other.ElementName || c.Granularity != other.Granularity {
		return false
	}
	if len(c.EntityPath) != len(other.EntityPath) {
		return false
	}
	for i, seg := range c.EntityPath {
		if other.EntityPath[i] != seg {
			return false
		}
	}
	return true
}

// Validate checks that the identifier's segments keep Alias injective:
// no empty segments and no segment containing the Separator.
func (c ColumnID) Validate() error {
	if c.ElementName == "" {
		return fmt.Errorf("column identifier has empty element name")
	}
	if strings.Contains(c.ElementName, Separator) {
		return fmt.Errorf("element name %q contains reserved separator %q", c.ElementName, Separator)
	}
	for _, seg := range c.EntityPath {
		if seg == "" {
			return fmt.Errorf("column identifier %q has empty entity path segment", c.ElementName)
		}
		if strings.Contains(seg, Separator) {
			return fmt.Errorf("entity path segment %q contains reserved separator %q", seg, Separator)
		}
	}
	if !c.Granularity.IsValid() {
		return fmt.Errorf("unknown granularity %q on column %q", c.Granularity, c.ElementName)
	}
	return nil
}

// String implements fmt.Stringer for diagnostics.
func (c ColumnID) String() string {
	return c.Alias()
}

// ParseAlias inverts Alias for identifiers whose segments pass Validate:
// a trailing granularity segment becomes the Granularity, the last
// remaining segment the element name, and everything before it the entity
// path. Granularity names are reserved and cannot be used as element names
// in parseable aliases.
func ParseAlias(alias string) (ColumnID, error) {
	if alias == "" {
		return ColumnID{}, fmt.Errorf("empty column alias")
	}
	segs := strings.Split(alias, Separator)
	var c ColumnID
	if len(segs) > 1 {
		if g := Granularity(segs[len(segs)-1]); g != GranularityNone && g.IsValid() {
			c.Granularity = g
			segs = segs[:len(segs)-1]
		}
	}
	c.ElementName = segs[len(segs)-1]
	if len(segs) > 1 {
		c.EntityPath = segs[:len(segs)-1]
	}
	if err := c.Validate(); err != nil {
		return ColumnID{}, err
	}
	return c, nil
}
