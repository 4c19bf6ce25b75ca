package runtime

import (
	"github.com/roach88/wodrun/internal/ir"
)

// HistorySink receives completed execution records as blocks unmount.
// Implementations never write back into runtime state.
type HistorySink interface {
	Record(rec ir.ExecutionRecord) error
}

// MemoryLog is a HistorySink that keeps records in memory.
type MemoryLog struct {
	records []ir.ExecutionRecord
}

// NewMemoryLog creates an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Record appends rec.
func (l *MemoryLog) Record(rec ir.ExecutionRecord) error {
	l.records = append(l.records, rec)
	return nil
}

// Records returns the records in emission order.
func (l *MemoryLog) Records() []ir.ExecutionRecord {
	return append([]ir.ExecutionRecord(nil), l.records...)
}

// Len returns the number of records.
func (l *MemoryLog) Len() int {
	return len(l.records)
}

// ByLabel returns the records with the given label.
func (l *MemoryLog) ByLabel(label string) []ir.ExecutionRecord {
	var out []ir.ExecutionRecord
	for _, r := range l.records {
		if r.Label == label {
			out = append(out, r)
		}
	}
	return out
}
