package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/store"
)

func executeHistory(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: format, Config: Config{DBPath: defaultDBPath}})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// seedHistory stores one finished and one abandoned session.
func seedHistory(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	start := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

	done, err := store.NewSink(ctx, st, store.Session{ID: "s-1", Workout: "Pair", StartedAt: start})
	require.NoError(t, err)
	for _, rec := range []ir.ExecutionRecord{
		{ID: "b-2", ParentID: "b-1", Label: "Run", Kind: "effort", SourceIDs: []int{1}, StartTime: start, EndTime: start.Add(4 * time.Minute),
			Metrics: []ir.Metric{{Type: ir.MetricElapsed, Value: 240000, Class: ir.ClassRecorded}}},
		{ID: "b-1", Label: "Workout", Kind: "root", SourceIDs: []int{}, StartTime: start, EndTime: start.Add(6 * time.Minute),
			Metrics: []ir.Metric{{Type: ir.MetricElapsed, Value: 360000, Class: ir.ClassRecorded}}},
	} {
		require.NoError(t, done.Record(rec))
	}

	partial, err := store.NewSink(ctx, st, store.Session{ID: "s-2", Workout: "Fran", StartedAt: start.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.NoError(t, partial.Record(ir.ExecutionRecord{
		ID: "b-9", ParentID: "b-8", Label: "Run", Kind: "effort", SourceIDs: []int{2},
		StartTime: start.Add(24 * time.Hour), EndTime: start.Add(24*time.Hour + time.Minute),
		Metrics: []ir.Metric{{Type: ir.MetricElapsed, Value: 60000, Class: ir.ClassRecorded}},
	}))

	return dbPath
}

func TestHistoryListSessions(t *testing.T) {
	dbPath := seedHistory(t)

	out, err := executeHistory(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "s-1  2024-03-01T06:00:00Z  Pair  6:00 (2 records)")
	assert.Contains(t, out, "s-2  2024-03-02T06:00:00Z  Fran  incomplete (1 records)")
}

func TestHistoryListSessionsJSON(t *testing.T) {
	dbPath := seedHistory(t)

	out, err := executeHistory(t, "json", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   []SessionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "s-1", resp.Data[0].ID)
	assert.True(t, resp.Data[0].Complete)
	assert.Equal(t, "Workout", resp.Data[0].RootLabel)
	assert.False(t, resp.Data[1].Complete)
	assert.Empty(t, resp.Data[1].Elapsed)
}

func TestHistoryShowSession(t *testing.T) {
	dbPath := seedHistory(t)

	out, err := executeHistory(t, "text", "--db", dbPath, "s-1")
	require.NoError(t, err)
	assert.Contains(t, out, "s-1  ")
	assert.Contains(t, out, "  Run 4:00\n")
	assert.Contains(t, out, "  Workout 6:00\n")
}

func TestHistoryByLabel(t *testing.T) {
	dbPath := seedHistory(t)

	out, err := executeHistory(t, "json", "--db", dbPath, "--label", "Run")
	require.NoError(t, err)

	var resp struct {
		Data []ir.ExecutionRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	for _, rec := range resp.Data {
		assert.Equal(t, "Run", rec.Label)
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	dbPath := seedHistory(t)

	out, err := executeHistory(t, "text", "--db", dbPath, "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "session not found: nope")
}

func TestHistoryMissingDatabase(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.db")

	out, err := executeHistory(t, "text", "--db", missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "database not found")
	assert.NoFileExists(t, missing)
}

func TestHistoryEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeHistory(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions.")
}

func TestHistoryDeleteSession(t *testing.T) {
	dbPath := seedHistory(t)

	out, err := executeHistory(t, "text", "--db", dbPath, "--delete", "s-1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ deleted s-1")

	out, err = executeHistory(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.NotContains(t, out, "s-1")
	assert.Contains(t, out, "s-2")

	_, err = executeHistory(t, "text", "--db", dbPath, "--delete", "s-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistoryDeleteNeedsSession(t *testing.T) {
	dbPath := seedHistory(t)

	_, err := executeHistory(t, "text", "--db", dbPath, "--delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a session id")
}
