// Package postgres provides the PostgreSQL dialect profile.
package postgres

import (
	"github.com/quarrylabs/quarry/pkg/dialect"
	"github.com/quarrylabs/quarry/pkg/naming"
)

func init() {
	dialect.Register(Postgres)
}

// Postgres is the PostgreSQL dialect profile. Operands are cast to
// timestamp before truncation since DATE_TRUNC over a bare date column
// returns a timestamptz under some server settings.
var Postgres = &dialect.Profile{
	Name:      "postgres",
	QuoteChar: `"`,
	DateTruncTemplates: map[naming.Granularity]string{
		naming.GranularityDay:     "DATE_TRUNC('day', %s::timestamp)",
		naming.GranularityWeek:    "DATE_TRUNC('week', %s::timestamp)",
		naming.GranularityMonth:   "DATE_TRUNC('month', %s::timestamp)",
		naming.GranularityQuarter: "DATE_TRUNC('quarter', %s::timestamp)",
		naming.GranularityYear:    "DATE_TRUNC('year', %s::timestamp)",
	},
	SupportsCountDistinct: true,
	JoinSpelling:          dialect.StandardJoinSpelling(),
	DefaultSchema:         "public",
}
