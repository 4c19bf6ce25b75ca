package ir

import "time"

// SpanKind classifies a time span.
type SpanKind string

const (
	SpanWork       SpanKind = "work"
	SpanRest       SpanKind = "rest"
	SpanTransition SpanKind = "transition"
)

// TimeSpan is a contiguous interval of timed execution.
// Stop is nil while the span is open. A closed span is never edited.
type TimeSpan struct {
	Start time.Time  `json:"start"`
	Stop  *time.Time `json:"stop,omitempty"`
	Kind  SpanKind   `json:"kind"`
}

// Open reports whether the span is still running.
func (s TimeSpan) Open() bool {
	return s.Stop == nil
}

// Duration returns the span length, measuring an open span against now.
func (s TimeSpan) Duration(now time.Time) time.Duration {
	end := now
	if s.Stop != nil {
		end = *s.Stop
	}
	if end.Before(s.Start) {
		return 0
	}
	return end.Sub(s.Start)
}

// Closed returns a copy of s stopped at t.
func (s TimeSpan) Closed(t time.Time) TimeSpan {
	stop := t
	return TimeSpan{Start: s.Start, Stop: &stop, Kind: s.Kind}
}

// Elapsed sums all spans, measuring the open one against now.
func Elapsed(spans []TimeSpan, now time.Time) time.Duration {
	var total time.Duration
	for _, s := range spans {
		total += s.Duration(now)
	}
	return total
}

// Metric is a single measured or declared value attached to a record.
type Metric struct {
	Type  FragmentType  `json:"type"`
	Value int64         `json:"value"`
	Unit  string        `json:"unit,omitempty"`
	Label string        `json:"label,omitempty"`
	Class BehaviorClass `json:"class"`
}

// Metric types the runtime records on its own.
const (
	MetricElapsed FragmentType = "elapsed"
	MetricRounds  FragmentType = "rounds_completed"
)

// ExecutionRecord is emitted when a block leaves the stack.
type ExecutionRecord struct {
	ID        string     `json:"id"`
	ParentID  string     `json:"parent_id,omitempty"`
	Label     string     `json:"label"`
	Kind      string     `json:"kind"`
	SourceIDs []int      `json:"source_ids"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Spans     []TimeSpan `json:"spans,omitempty"`
	Metrics   []Metric   `json:"metrics,omitempty"`
}

// Duration returns EndTime - StartTime.
func (r ExecutionRecord) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// MetricValue returns the first metric of type t.
func (r ExecutionRecord) MetricValue(t FragmentType) (int64, bool) {
	for _, m := range r.Metrics {
		if m.Type == t {
			return m.Value, true
		}
	}
	return 0, false
}
