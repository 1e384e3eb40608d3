// Package bigquery provides the BigQuery dialect profile.
package bigquery

import (
	"github.com/quarrylabs/quarry/pkg/dialect"
	"github.com/quarrylabs/quarry/pkg/naming"
	"github.com/quarrylabs/quarry/pkg/sqlir"
)

func init() {
	dialect.Register(BigQuery)
}

// BigQuery is the BigQuery dialect profile. TIMESTAMP_TRUNC takes the
// granularity as a keyword argument; ISOWEEK keeps week truncation on ISO
// Monday boundaries, logically matching DATE_TRUNC('week', ...) elsewhere.
// BigQuery prefers the short LEFT JOIN spelling.
var BigQuery = &dialect.Profile{
	Name:      "bigquery",
	QuoteChar: "`",
	DateTruncTemplates: map[naming.Granularity]string{
		naming.GranularityDay:     "TIMESTAMP_TRUNC(%s, DAY)",
		naming.GranularityWeek:    "TIMESTAMP_TRUNC(%s, ISOWEEK)",
		naming.GranularityMonth:   "TIMESTAMP_TRUNC(%s, MONTH)",
		naming.GranularityQuarter: "TIMESTAMP_TRUNC(%s, QUARTER)",
		naming.GranularityYear:    "TIMESTAMP_TRUNC(%s, YEAR)",
	},
	SupportsCountDistinct: true,
	JoinSpelling: map[sqlir.JoinType]string{
		sqlir.JoinLeftOuter: "LEFT JOIN",
		sqlir.JoinInner:     "INNER JOIN",
		sqlir.JoinCross:     "CROSS JOIN",
	},
}
