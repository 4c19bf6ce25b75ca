package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/wodrun/internal/ir"
)

// SessionSummary describes a stored session for listing and recovery.
type SessionSummary struct {
	Session     Session
	Records     int
	LastSeq     int64
	IsComplete  bool          // the root block (no parent) was recorded
	Elapsed     time.Duration // root record's elapsed metric, when complete
	RootLabel   string
	LeafRecords int
}

// GetSessionSummary reads a session and its records and summarizes them.
// Returns sql.ErrNoRows (wrapped) when the session does not exist.
func (s *Store) GetSessionSummary(ctx context.Context, sessionID string) (SessionSummary, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("get session summary: %w", err)
	}
	records, err := s.ReadRecords(ctx, sessionID)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("get session summary: %w", err)
	}

	summary := SessionSummary{Session: sess, Records: len(records)}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM records WHERE session_id = ?`, sessionID,
	).Scan(&summary.LastSeq); err != nil {
		return SessionSummary{}, fmt.Errorf("get session summary: %w", err)
	}

	parents := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.ParentID != "" {
			parents[rec.ParentID] = true
		}
	}
	for _, rec := range records {
		if !parents[rec.ID] {
			summary.LeafRecords++
		}
		if rec.ParentID == "" {
			summary.IsComplete = true
			summary.RootLabel = rec.Label
			if ms, ok := rec.MetricValue(ir.MetricElapsed); ok {
				summary.Elapsed = time.Duration(ms) * time.Millisecond
			}
		}
	}
	return summary, nil
}
