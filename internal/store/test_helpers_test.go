package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/testutil"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession inserts a session starting at testutil.Epoch.
func createTestSession(t *testing.T, s *Store, id string) Session {
	t.Helper()
	sess := Session{ID: id, Workout: "Fran", StartedAt: testutil.Epoch}
	if err := s.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}

// createTestRecord builds a closed record with one span and an elapsed
// metric.
func createTestRecord(id, parent, label string, start time.Time, d time.Duration) ir.ExecutionRecord {
	end := start.Add(d)
	return ir.ExecutionRecord{
		ID:        id,
		ParentID:  parent,
		Label:     label,
		Kind:      "effort",
		SourceIDs: []int{1},
		StartTime: start,
		EndTime:   end,
		Spans:     []ir.TimeSpan{{Start: start, Stop: &end, Kind: ir.SpanWork}},
		Metrics: []ir.Metric{
			{Type: ir.MetricElapsed, Value: d.Milliseconds(), Unit: "ms", Class: ir.ClassRecorded},
		},
	}
}
