package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/roach88/wodrun/internal/testutil"
)

func TestReadRecords_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s-1")

	// Written out of order; seq decides.
	writes := []struct {
		id  string
		seq int64
	}{{"b-3", 2}, {"b-2", 1}, {"b-1", 3}}
	for _, w := range writes {
		rec := createTestRecord(w.id, "", w.id, testutil.Epoch, time.Second)
		if err := s.WriteRecord(ctx, "s-1", w.seq, rec); err != nil {
			t.Fatalf("WriteRecord(%s) failed: %v", w.id, err)
		}
	}

	got, err := s.ReadRecords(ctx, "s-1")
	if err != nil {
		t.Fatalf("ReadRecords() failed: %v", err)
	}
	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	want := []string{"b-2", "b-3", "b-1"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids = %v, want %v", ids, want)
			break
		}
	}
}

func TestReadRecords_Empty(t *testing.T) {
	s := createTestStore(t)
	got, err := s.ReadRecords(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("ReadRecords() failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ReadRecords() = %v, want empty non-nil slice", got)
	}
}

func TestReadSession_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadSession(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadSession() error = %v, want sql.ErrNoRows", err)
	}
}

func TestListSessions_OldestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	later := Session{ID: "s-b", Workout: "Cindy", StartedAt: testutil.Epoch.Add(24 * time.Hour)}
	earlier := Session{ID: "s-a", Workout: "Fran", StartedAt: testutil.Epoch}
	for _, sess := range []Session{later, earlier} {
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession(%s) failed: %v", sess.ID, err)
		}
	}

	got, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "s-a" || got[1].ID != "s-b" {
		t.Errorf("ListSessions() = %+v, want s-a then s-b", got)
	}
}

func TestReadRecordsByLabel_AcrossSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"s-1", "s-2"} {
		sess := Session{ID: id, Workout: "Fran", StartedAt: testutil.Epoch.Add(time.Duration(i) * time.Hour)}
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession() failed: %v", err)
		}
		rec := createTestRecord("b-2", "b-1", "Thrusters", sess.StartedAt, time.Duration(i+1)*time.Minute)
		if err := s.WriteRecord(ctx, id, 1, rec); err != nil {
			t.Fatalf("WriteRecord() failed: %v", err)
		}
		other := createTestRecord("b-3", "b-1", "Pullups", sess.StartedAt, time.Minute)
		if err := s.WriteRecord(ctx, id, 2, other); err != nil {
			t.Fatalf("WriteRecord() failed: %v", err)
		}
	}

	got, err := s.ReadRecordsByLabel(ctx, "Thrusters")
	if err != nil {
		t.Fatalf("ReadRecordsByLabel() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadRecordsByLabel() returned %d records, want 2", len(got))
	}
	if got[0].Duration() != time.Minute || got[1].Duration() != 2*time.Minute {
		t.Errorf("durations = %v, %v; want 1m then 2m", got[0].Duration(), got[1].Duration())
	}
}
