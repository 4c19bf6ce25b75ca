package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/wodrun/internal/ir"
)

// Sink appends the records of one session. It satisfies
// runtime.HistorySink; seq increases with every record in the order the
// runtime hands them over.
type Sink struct {
	store     *Store
	ctx       context.Context
	sessionID string

	mu  sync.Mutex
	seq int64
}

// NewSink creates the session row and returns a sink for it. ctx bounds
// every write the sink performs, because HistorySink.Record carries none.
func NewSink(ctx context.Context, s *Store, sess Session) (*Sink, error) {
	if err := s.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("new sink: %w", err)
	}
	return &Sink{store: s, ctx: ctx, sessionID: sess.ID}, nil
}

// SessionID returns the session the sink writes to.
func (k *Sink) SessionID() string { return k.sessionID }

// Record writes rec with the next seq.
func (k *Sink) Record(rec ir.ExecutionRecord) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	next := k.seq + 1
	if err := k.store.WriteRecord(k.ctx, k.sessionID, next, rec); err != nil {
		return err
	}
	k.seq = next
	return nil
}

// Written returns how many records the sink has stored.
func (k *Sink) Written() int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.seq
}
