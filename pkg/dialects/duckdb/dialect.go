// Package duckdb provides the DuckDB dialect profile. Pure syntax
// configuration: no driver dependency, so it is usable anywhere dialect
// information is needed without a database connection.
package duckdb

import (
	"github.com/quarrylabs/quarry/pkg/dialect"
	"github.com/quarrylabs/quarry/pkg/naming"
)

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect profile. DATE_TRUNC('week', ...) truncates to
// ISO (Monday-start) weeks.
var DuckDB = &dialect.Profile{
	Name:      "duckdb",
	QuoteChar: `"`,
	DateTruncTemplates: map[naming.Granularity]string{
		naming.GranularityDay:     "DATE_TRUNC('day', %s)",
		naming.GranularityWeek:    "DATE_TRUNC('week', %s)",
		naming.GranularityMonth:   "DATE_TRUNC('month', %s)",
		naming.GranularityQuarter: "DATE_TRUNC('quarter', %s)",
		naming.GranularityYear:    "DATE_TRUNC('year', %s)",
	},
	SupportsCountDistinct: true,
	JoinSpelling:          dialect.StandardJoinSpelling(),
	DefaultSchema:         "main",
}
