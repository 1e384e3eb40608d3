package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/quarry/internal/config"
	"github.com/quarrylabs/quarry/internal/testutil"

	_ "github.com/quarrylabs/quarry/pkg/dialects/bigquery"
	_ "github.com/quarrylabs/quarry/pkg/dialects/duckdb"
	_ "github.com/quarrylabs/quarry/pkg/dialects/postgres"
)

func bookingsPlanPath() string {
	return filepath.Join("testdata", "bookings.yaml")
}

func runCommand(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	ctx := WithConfig(context.Background(), cfg)
	ctx = WithLogger(ctx, testutil.NewTestLogger(t))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func testConfig() *config.Config {
	return &config.Config{Dialect: "duckdb", Output: "text", LogLevel: "info"}
}

func TestCompileCommand_Text(t *testing.T) {
	out, err := runCommand(t, NewCompileCommand(), testConfig(), bookingsPlanPath())
	require.NoError(t, err)

	assert.Contains(t, out, "-- Compute metrics: [family_bookings]")
	assert.Contains(t, out, "SUM(subq_6.bookings) AS bookings")
	assert.Contains(t, out, "DATE_TRUNC('week', fct_bookings_src.ds) AS metric_time__week")
	assert.Contains(t, out, "LEFT OUTER JOIN (")
}

func TestCompileCommand_DialectFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Dialect = "bigquery"
	out, err := runCommand(t, NewCompileCommand(), cfg, bookingsPlanPath())
	require.NoError(t, err)

	assert.Contains(t, out, "TIMESTAMP_TRUNC(fct_bookings_src.ds, ISOWEEK)")
	assert.NotContains(t, out, "LEFT OUTER JOIN")
}

func TestCompileCommand_JSON(t *testing.T) {
	cfg := testConfig()
	cfg.Output = "json"
	out, err := runCommand(t, NewCompileCommand(), cfg, bookingsPlanPath())
	require.NoError(t, err)

	var result CompileOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "duckdb", result.Dialect)
	assert.Equal(t, bookingsPlanPath(), result.Plan)
	assert.Contains(t, result.SQL, "FROM demo.fct_bookings fct_bookings_src")
}

func TestCompileCommand_All(t *testing.T) {
	out, err := runCommand(t, NewCompileCommand(), testConfig(), bookingsPlanPath(), "--all")
	require.NoError(t, err)

	// Registered dialects are emitted in sorted order with headers.
	assert.Contains(t, out, "-- dialect: bigquery")
	assert.Contains(t, out, "-- dialect: duckdb")
	assert.Contains(t, out, "-- dialect: postgres")
}

func TestCompileCommand_AllJSON(t *testing.T) {
	cfg := testConfig()
	cfg.Output = "json"
	out, err := runCommand(t, NewCompileCommand(), cfg, bookingsPlanPath(), "--all")
	require.NoError(t, err)

	var results []CompileOutput
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	assert.Equal(t, "bigquery", results[0].Dialect)
}

func TestCompileCommand_UnknownDialect(t *testing.T) {
	cfg := testConfig()
	cfg.Dialect = "oracle"
	_, err := runCommand(t, NewCompileCommand(), cfg, bookingsPlanPath())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dialect")
}

func TestCompileCommand_MissingPlanFile(t *testing.T) {
	_, err := runCommand(t, NewCompileCommand(), testConfig(), filepath.Join("testdata", "nope.yaml"))
	require.Error(t, err)
}

func TestExplainCommand(t *testing.T) {
	out, err := runCommand(t, NewExplainCommand(), testConfig(), bookingsPlanPath())
	require.NoError(t, err)

	assert.Contains(t, out, "ALIAS")
	assert.Contains(t, out, "subq_0")
	assert.Contains(t, out, "(result)")
	assert.Contains(t, out, "Join on entities: [listing] within validity window")
}

func TestDialectsCommand(t *testing.T) {
	out, err := runCommand(t, NewDialectsCommand(), testConfig())
	require.NoError(t, err)

	assert.Contains(t, out, "duckdb")
	assert.Contains(t, out, "postgres")
	assert.Contains(t, out, "bigquery")
	assert.Contains(t, out, "COUNT DISTINCT")
}
