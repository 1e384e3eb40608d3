package quarry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/quarry/pkg/dataflow"
	"github.com/quarrylabs/quarry/pkg/dialects/bigquery"
	"github.com/quarrylabs/quarry/pkg/dialects/duckdb"
	"github.com/quarrylabs/quarry/pkg/dialects/postgres"
	"github.com/quarrylabs/quarry/pkg/naming"
	"github.com/quarrylabs/quarry/pkg/sqlir"
)

// familyBookingsPlan counts bookings at listings with capacity above two,
// per day. The capacity dimension comes from a slowly changing listings
// table, so the join is constrained to the dimension row valid at booking
// time.
func familyBookingsPlan() dataflow.Node {
	bookings := &dataflow.SourceRead{
		NodeID: "src_bookings",
		Table:  sqlir.TableName{Schema: "demo", Name: "fct_bookings"},
		Columns: []dataflow.SourceColumn{
			{Column: dataflow.Column{ID: naming.Column("bookings"), Kind: dataflow.KindMeasure, Agg: sqlir.AggregationSum}},
			{Expr: "ds", Column: dataflow.Column{ID: naming.Column("metric_time"), Kind: dataflow.KindTime}},
			{Expr: "listing_id", Column: dataflow.Column{ID: naming.Column("listing"), Kind: dataflow.KindEntity}},
		},
	}
	listings := &dataflow.SourceRead{
		NodeID: "src_listings",
		Table:  sqlir.TableName{Schema: "demo", Name: "dim_listings"},
		Columns: []dataflow.SourceColumn{
			{Expr: "listing_id", Column: dataflow.Column{ID: naming.Column("listing"), Kind: dataflow.KindEntity}},
			{Expr: "capacity", Column: dataflow.Column{ID: naming.Column("capacity"), Kind: dataflow.KindDimension}},
			{Expr: "active_from", Column: dataflow.Column{ID: naming.Column("window_start"), Kind: dataflow.KindDimension}},
			{Expr: "active_to", Column: dataflow.Column{ID: naming.Column("window_end"), Kind: dataflow.KindDimension}},
		},
	}
	return &dataflow.ComputeMetrics{
		NodeID: "metrics",
		Input: &dataflow.AggregateMeasures{
			NodeID: "aggregate",
			Input: &dataflow.FilterElements{
				NodeID: "filter_post",
				Input: &dataflow.ConstrainOutput{
					NodeID: "constrain_capacity",
					Input: &dataflow.JoinOnEntities{
						NodeID: "join_listings",
						Left: &dataflow.FilterElements{
							NodeID: "filter_bookings",
							Input:  bookings,
							Keep: []naming.ColumnID{
								naming.Column("bookings"),
								naming.Column("metric_time"),
								naming.Column("listing"),
							},
						},
						Right: &dataflow.FilterElements{
							NodeID: "filter_listings",
							Input:  listings,
							Keep: []naming.ColumnID{
								naming.Column("listing"),
								naming.Column("capacity"),
								naming.Column("window_start"),
								naming.Column("window_end"),
							},
						},
						JoinEntities: []string{"listing"},
						RightColumns: []naming.ColumnID{naming.Column("capacity")},
						Validity: &dataflow.ValidityWindow{
							TimeColumn:  naming.Column("metric_time"),
							WindowStart: naming.Column("window_start"),
							WindowEnd:   naming.Column("window_end"),
						},
					},
					Predicate: &dataflow.Comparison{
						Column: naming.PathColumn("capacity", "listing"),
						Op:     sqlir.OpGt,
						Value:  sqlir.Number("2"),
					},
				},
				Keep: []naming.ColumnID{
					naming.Column("bookings"),
					naming.Column("metric_time"),
				},
			},
		},
		Metrics: []dataflow.Metric{
			{Name: "family_bookings", Expr: &dataflow.MeasureRef{Measure: naming.Column("bookings")}},
		},
	}
}

const familyBookingsDuckDB = `-- Compute metrics: [family_bookings]
SELECT
  subq_7.metric_time AS metric_time,
  subq_7.bookings AS family_bookings
FROM (
  -- Aggregate measures: [bookings]
  SELECT
    subq_6.metric_time AS metric_time,
    SUM(subq_6.bookings) AS bookings
  FROM (
    -- Pass only elements: [bookings, metric_time]
    SELECT
      subq_5.bookings AS bookings,
      subq_5.metric_time AS metric_time
    FROM (
      -- Constrain output with WHERE listing__capacity > 2
      SELECT
        subq_4.bookings AS bookings,
        subq_4.metric_time AS metric_time,
        subq_4.listing AS listing,
        subq_4.listing__capacity AS listing__capacity
      FROM (
        -- Join on entities: [listing] within validity window
        SELECT
          subq_1.bookings AS bookings,
          subq_1.metric_time AS metric_time,
          subq_1.listing AS listing,
          subq_3.capacity AS listing__capacity
        FROM (
          -- Pass only elements: [bookings, metric_time, listing]
          SELECT
            subq_0.bookings AS bookings,
            subq_0.metric_time AS metric_time,
            subq_0.listing AS listing
          FROM (
            -- Read rows from 'demo.fct_bookings'
            SELECT
              1 AS bookings,
              fct_bookings_src.ds AS metric_time,
              DATE_TRUNC('week', fct_bookings_src.ds) AS metric_time__week,
              DATE_TRUNC('month', fct_bookings_src.ds) AS metric_time__month,
              DATE_TRUNC('quarter', fct_bookings_src.ds) AS metric_time__quarter,
              DATE_TRUNC('year', fct_bookings_src.ds) AS metric_time__year,
              fct_bookings_src.listing_id AS listing
            FROM demo.fct_bookings fct_bookings_src
          ) subq_0
        ) subq_1
        LEFT OUTER JOIN (
          -- Pass only elements: [listing, capacity, window_start, window_end]
          SELECT
            subq_2.listing AS listing,
            subq_2.capacity AS capacity,
            subq_2.window_start AS window_start,
            subq_2.window_end AS window_end
          FROM (
            -- Read rows from 'demo.dim_listings'
            SELECT
              dim_listings_src.listing_id AS listing,
              dim_listings_src.capacity AS capacity,
              dim_listings_src.active_from AS window_start,
              dim_listings_src.active_to AS window_end
            FROM demo.dim_listings dim_listings_src
          ) subq_2
        ) subq_3
        ON
          subq_1.listing = subq_3.listing AND subq_1.metric_time >= subq_3.window_start AND (subq_1.metric_time < subq_3.window_end OR subq_3.window_end IS NULL)
      ) subq_4
      WHERE
        subq_4.listing__capacity > 2
    ) subq_5
  ) subq_6
  GROUP BY
    subq_6.metric_time
) subq_7
`

func TestCompile_DuckDB(t *testing.T) {
	sql, err := Compile(familyBookingsPlan(), duckdb.DuckDB)
	require.NoError(t, err)
	assert.Equal(t, familyBookingsDuckDB, sql)
}

func TestCompile_Deterministic(t *testing.T) {
	first, err := Compile(familyBookingsPlan(), duckdb.DuckDB)
	require.NoError(t, err)
	second, err := Compile(familyBookingsPlan(), duckdb.DuckDB)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompile_AliasesUnique(t *testing.T) {
	sql, err := Compile(familyBookingsPlan(), duckdb.DuckDB)
	require.NoError(t, err)
	for _, alias := range []string{"subq_0", "subq_1", "subq_2", "subq_3", "subq_4", "subq_5", "subq_6", "subq_7"} {
		assert.Equal(t, 1, strings.Count(sql, ") "+alias+"\n"), "alias %s bound exactly once", alias)
	}
}

func TestCompile_DialectsDivergeOnSyntaxOnly(t *testing.T) {
	duck, err := Compile(familyBookingsPlan(), duckdb.DuckDB)
	require.NoError(t, err)

	pg, err := Compile(familyBookingsPlan(), postgres.Postgres)
	require.NoError(t, err)
	assert.Equal(t, duck, strings.ReplaceAll(pg, "::timestamp", ""),
		"postgres output differs only in truncation casts")

	bq, err := Compile(familyBookingsPlan(), bigquery.BigQuery)
	require.NoError(t, err)
	assert.Contains(t, bq, "TIMESTAMP_TRUNC(fct_bookings_src.ds, ISOWEEK)")
	assert.Contains(t, bq, "LEFT JOIN (")
	assert.NotContains(t, bq, "LEFT OUTER JOIN")

	// Aliases and structure stay identical across dialects.
	assert.Equal(t, strings.Count(duck, "subq_"), strings.Count(bq, "subq_"))
}

func TestCompile_PropagatesLoweringErrors(t *testing.T) {
	plan := &dataflow.ConstrainOutput{
		NodeID: "constrain",
		Input: &dataflow.SourceRead{
			NodeID: "src",
			Table:  sqlir.TableName{Name: "t"},
			Columns: []dataflow.SourceColumn{
				{Expr: "x", Column: dataflow.Column{ID: naming.Column("x"), Kind: dataflow.KindDimension}},
			},
		},
		Predicate: &dataflow.Comparison{
			Column: naming.Column("missing"),
			Op:     sqlir.OpEq,
			Value:  sqlir.Number("1"),
		},
	}
	_, err := Compile(plan, duckdb.DuckDB)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
