package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/quarry/pkg/dialect"
	"github.com/quarrylabs/quarry/pkg/naming"
	"github.com/quarrylabs/quarry/pkg/sqlir"
)

func testProfile() *dialect.Profile {
	return &dialect.Profile{
		Name:      "test",
		QuoteChar: `"`,
		DateTruncTemplates: map[naming.Granularity]string{
			naming.GranularityDay:  "DATE_TRUNC('day', %s)",
			naming.GranularityWeek: "DATE_TRUNC('week', %s)",
		},
		SupportsCountDistinct: true,
		JoinSpelling:          dialect.StandardJoinSpelling(),
	}
}

func TestRender_TableSelect(t *testing.T) {
	node := &sqlir.SelectNode{
		Description: "Read rows from 'demo.fct_bookings'",
		Select: []sqlir.SelectItem{
			{Expr: sqlir.Number("1"), Alias: "bookings"},
			{Expr: &sqlir.ColumnRef{Table: "fct_bookings_src", Column: "ds"}, Alias: "metric_time"},
		},
		From: &sqlir.TableSource{
			Table: sqlir.TableName{Schema: "demo", Name: "fct_bookings"},
			Alias: "fct_bookings_src",
		},
	}
	sql, err := Render(node, testProfile())
	require.NoError(t, err)
	assert.Equal(t, `-- Read rows from 'demo.fct_bookings'
SELECT
  1 AS bookings,
  fct_bookings_src.ds AS metric_time
FROM demo.fct_bookings fct_bookings_src
`, sql)
}

func TestRender_NestedSubquery(t *testing.T) {
	inner := &sqlir.SelectNode{
		Description: "Read rows from 'demo.fct_bookings'",
		Select: []sqlir.SelectItem{
			{Expr: &sqlir.ColumnRef{Table: "fct_bookings_src", Column: "ds"}, Alias: "metric_time"},
		},
		From: &sqlir.TableSource{
			Table: sqlir.TableName{Schema: "demo", Name: "fct_bookings"},
			Alias: "fct_bookings_src",
		},
	}
	node := &sqlir.SelectNode{
		Description: "Pass only elements: [metric_time]",
		Select: []sqlir.SelectItem{
			{Expr: &sqlir.ColumnRef{Table: "subq_0", Column: "metric_time"}, Alias: "metric_time"},
		},
		From: &sqlir.SubquerySource{Node: inner, Alias: "subq_0"},
	}
	sql, err := Render(node, testProfile())
	require.NoError(t, err)
	assert.Equal(t, `-- Pass only elements: [metric_time]
SELECT
  subq_0.metric_time AS metric_time
FROM (
  -- Read rows from 'demo.fct_bookings'
  SELECT
    fct_bookings_src.ds AS metric_time
  FROM demo.fct_bookings fct_bookings_src
) subq_0
`, sql)
}

func TestRender_JoinWhereGroupByLimit(t *testing.T) {
	source := func(table, alias string) *sqlir.SelectNode {
		return &sqlir.SelectNode{
			Select: []sqlir.SelectItem{
				{Expr: &sqlir.ColumnRef{Table: alias, Column: "id"}, Alias: "id"},
			},
			From: &sqlir.TableSource{Table: sqlir.TableName{Name: table}, Alias: alias},
		}
	}
	limit := int64(10)
	node := &sqlir.SelectNode{
		Select: []sqlir.SelectItem{
			{Expr: &sqlir.ColumnRef{Table: "subq_0", Column: "id"}, Alias: "id"},
		},
		From: &sqlir.SubquerySource{Node: source("left_t", "l"), Alias: "subq_0"},
		Joins: []sqlir.Join{{
			Node:  source("right_t", "r"),
			Alias: "subq_1",
			Type:  sqlir.JoinLeftOuter,
			On: &sqlir.Binary{
				Left:  &sqlir.ColumnRef{Table: "subq_0", Column: "id"},
				Op:    sqlir.OpEq,
				Right: &sqlir.ColumnRef{Table: "subq_1", Column: "id"},
			},
		}},
		Where: &sqlir.IsNull{
			Expr: &sqlir.ColumnRef{Table: "subq_1", Column: "id"},
			Not:  true,
		},
		GroupBy: []sqlir.Expr{&sqlir.ColumnRef{Table: "subq_0", Column: "id"}},
		OrderBy: []sqlir.OrderItem{
			{Expr: &sqlir.ColumnRef{Table: "subq_0", Column: "id"}, Desc: true},
		},
		Limit: &limit,
	}
	sql, err := Render(node, testProfile())
	require.NoError(t, err)
	assert.Equal(t, `SELECT
  subq_0.id AS id
FROM (
  SELECT
    l.id AS id
  FROM left_t l
) subq_0
LEFT OUTER JOIN (
  SELECT
    r.id AS id
  FROM right_t r
) subq_1
ON
  subq_0.id = subq_1.id
WHERE
  subq_1.id IS NOT NULL
GROUP BY
  subq_0.id
ORDER BY
  subq_0.id DESC
LIMIT 10
`, sql)
}

func TestRender_Expressions(t *testing.T) {
	tests := []struct {
		name string
		expr sqlir.Expr
		want string
	}{
		{
			name: "string literal escaping",
			expr: sqlir.String("it's"),
			want: "'it''s'",
		},
		{
			name: "null literal",
			expr: sqlir.Null(),
			want: "NULL",
		},
		{
			name: "date truncation",
			expr: &sqlir.DateTrunc{Granularity: naming.GranularityWeek, Arg: &sqlir.ColumnRef{Table: "t", Column: "ds"}},
			want: "DATE_TRUNC('week', t.ds)",
		},
		{
			name: "function call",
			expr: &sqlir.FuncCall{Name: "NULLIF", Args: []sqlir.Expr{
				&sqlir.ColumnRef{Table: "t", Column: "denom"},
				sqlir.Number("0"),
			}},
			want: "NULLIF(t.denom, 0)",
		},
		{
			name: "grouped disjunction",
			expr: &sqlir.Paren{Expr: &sqlir.Binary{
				Left:  &sqlir.Binary{Left: &sqlir.ColumnRef{Table: "t", Column: "a"}, Op: sqlir.OpLt, Right: sqlir.Number("5")},
				Op:    sqlir.OpOr,
				Right: &sqlir.IsNull{Expr: &sqlir.ColumnRef{Table: "t", Column: "a"}},
			}},
			want: "(t.a < 5 OR t.a IS NULL)",
		},
		{
			name: "negation",
			expr: &sqlir.Not{Expr: &sqlir.Paren{Expr: &sqlir.Binary{
				Left:  &sqlir.ColumnRef{Table: "t", Column: "a"},
				Op:    sqlir.OpEq,
				Right: sqlir.Number("0"),
			}}},
			want: "NOT (t.a = 0)",
		},
		{
			name: "count distinct",
			expr: &sqlir.AggregateCall{Agg: sqlir.AggregationCountDistinct, Arg: &sqlir.ColumnRef{Table: "t", Column: "user_id"}},
			want: "COUNT(DISTINCT t.user_id)",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			node := &sqlir.SelectNode{
				Select: []sqlir.SelectItem{{Expr: tc.expr, Alias: "v"}},
				From:   &sqlir.TableSource{Table: sqlir.TableName{Name: "t"}, Alias: "t"},
			}
			sql, err := Render(node, testProfile())
			require.NoError(t, err)
			assert.Equal(t, "SELECT\n  "+tc.want+" AS v\nFROM t t\n", sql)
		})
	}
}

func TestRender_QuotesNonPlainIdentifiers(t *testing.T) {
	node := &sqlir.SelectNode{
		Select: []sqlir.SelectItem{
			{Expr: &sqlir.ColumnRef{Table: "t", Column: "Order"}, Alias: "order_name"},
		},
		From: &sqlir.TableSource{Table: sqlir.TableName{Name: "t"}, Alias: "t"},
	}
	sql, err := Render(node, testProfile())
	require.NoError(t, err)
	assert.Contains(t, sql, `t."Order" AS order_name`)
}

func TestRender_UnsupportedCountDistinct(t *testing.T) {
	profile := testProfile()
	profile.SupportsCountDistinct = false
	node := &sqlir.SelectNode{
		Select: []sqlir.SelectItem{{
			Expr:  &sqlir.AggregateCall{Agg: sqlir.AggregationCountDistinct, Arg: &sqlir.ColumnRef{Table: "t", Column: "id"}},
			Alias: "users",
		}},
		From: &sqlir.TableSource{Table: sqlir.TableName{Name: "t"}, Alias: "t"},
	}
	_, err := Render(node, profile)

	var unsupported *UnsupportedConstructError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "test", unsupported.Dialect)
}

func TestRender_UnsupportedGranularity(t *testing.T) {
	node := &sqlir.SelectNode{
		Select: []sqlir.SelectItem{{
			Expr:  &sqlir.DateTrunc{Granularity: naming.GranularityQuarter, Arg: &sqlir.ColumnRef{Table: "t", Column: "ds"}},
			Alias: "q",
		}},
		From: &sqlir.TableSource{Table: sqlir.TableName{Name: "t"}, Alias: "t"},
	}
	_, err := Render(node, testProfile())

	var unsupported *UnsupportedConstructError
	require.ErrorAs(t, err, &unsupported)
	assert.Contains(t, unsupported.Construct, "quarter")
}

func TestRender_NilInputs(t *testing.T) {
	_, err := Render(nil, testProfile())
	require.Error(t, err)

	_, err = Render(&sqlir.SelectNode{}, nil)
	require.Error(t, err)
}
