package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/wodrun/internal/ir"
)

// Session is one run of a workout.
type Session struct {
	ID            string
	Workout       string
	StartedAt     time.Time
	EngineVersion string
	IRVersion     string
}

// CreateSession inserts a session row.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	if sess.EngineVersion == "" {
		sess.EngineVersion = ir.EngineVersion
	}
	if sess.IRVersion == "" {
		sess.IRVersion = ir.IRVersion
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, workout, started_at, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.Workout,
		ir.FormatTime(sess.StartedAt),
		sess.EngineVersion,
		sess.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// WriteRecord appends an execution record to a session.
// Uses ON CONFLICT DO NOTHING so a duplicate (session, id) write is
// silently ignored.
//
// Note: The session must exist (foreign key constraint).
func (s *Store) WriteRecord(ctx context.Context, sessionID string, seq int64, rec ir.ExecutionRecord) error {
	sourceIDs, spans, metrics, err := marshalRecordParts(rec)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records
		(session_id, id, parent_id, label, kind, source_ids, start_time, end_time, duration_ms, spans, metrics, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		sessionID,
		rec.ID,
		rec.ParentID,
		rec.Label,
		rec.Kind,
		sourceIDs,
		ir.FormatTime(rec.StartTime),
		ir.FormatTime(rec.EndTime),
		rec.Duration().Milliseconds(),
		spans,
		metrics,
		seq,
	)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// DeleteSession removes a session and its records. Returns sql.ErrNoRows
// (wrapped) when the session does not exist.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session records: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	} else if n == 0 {
		return fmt.Errorf("delete session %s: %w", sessionID, sql.ErrNoRows)
	}
	return tx.Commit()
}
