package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/wodrun/internal/ir"
)

// ReadRecords returns all records for a session, ordered by seq ASC,
// id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the session has no records.
func (s *Store) ReadRecords(ctx context.Context, sessionID string) ([]ir.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, label, kind, source_ids, start_time, end_time, spans, metrics
		FROM records
		WHERE session_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []ir.ExecutionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ReadRecordsByLabel returns every stored record with the given label
// across sessions, oldest session first.
func (s *Store) ReadRecordsByLabel(ctx context.Context, label string) ([]ir.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.parent_id, r.label, r.kind, r.source_ids, r.start_time, r.end_time, r.spans, r.metrics
		FROM records r
		JOIN sessions s ON r.session_id = s.id
		WHERE r.label = ?
		ORDER BY s.started_at ASC, s.id COLLATE BINARY ASC, r.seq ASC
	`, label)
	if err != nil {
		return nil, fmt.Errorf("query records by label: %w", err)
	}
	defer rows.Close()

	records := []ir.ExecutionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ReadSession retrieves a single session by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workout, started_at, engine_version, ir_version
		FROM sessions
		WHERE id = ?
	`, id)
	return scanSession(row)
}

// ListSessions returns every session, oldest first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workout, started_at, engine_version, ir_version
		FROM sessions
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	var started string
	if err := row.Scan(&sess.ID, &sess.Workout, &started, &sess.EngineVersion, &sess.IRVersion); err != nil {
		if err == sql.ErrNoRows {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	t, err := parseTime(started)
	if err != nil {
		return Session{}, fmt.Errorf("scan session %s: %w", sess.ID, err)
	}
	sess.StartedAt = t
	return sess, nil
}

func scanRecord(row scanner) (ir.ExecutionRecord, error) {
	var (
		rec                       ir.ExecutionRecord
		sourceIDs, spans, metrics string
		start, end                string
	)
	if err := row.Scan(&rec.ID, &rec.ParentID, &rec.Label, &rec.Kind, &sourceIDs, &start, &end, &spans, &metrics); err != nil {
		return ir.ExecutionRecord{}, fmt.Errorf("scan record: %w", err)
	}

	var err error
	if rec.SourceIDs, err = unmarshalSourceIDs(sourceIDs); err != nil {
		return ir.ExecutionRecord{}, err
	}
	if rec.StartTime, err = parseTime(start); err != nil {
		return ir.ExecutionRecord{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	if rec.EndTime, err = parseTime(end); err != nil {
		return ir.ExecutionRecord{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	if rec.Spans, err = unmarshalSpans(spans); err != nil {
		return ir.ExecutionRecord{}, err
	}
	if rec.Metrics, err = unmarshalMetrics(metrics); err != nil {
		return ir.ExecutionRecord{}, err
	}
	return rec, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}
