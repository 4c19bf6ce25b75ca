package harness

import (
	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/telemetry"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Trace is the runtime trace, one line per action or event.
	Trace []string `json:"trace"`

	// Records are the execution records read back from the store.
	Records []ir.ExecutionRecord `json:"records"`

	// Status is the final workout status.
	Status string `json:"status"`

	// Stack lists the labels of the blocks still mounted, bottom to top.
	Stack []string `json:"stack"`

	// Compiles counts child groups compiled during the run.
	Compiles int `json:"compiles"`

	// ErrorCode is the code of the error that halted the runtime, if any.
	ErrorCode string `json:"error_code,omitempty"`

	// Metrics are the collector totals for the run.
	Metrics telemetry.Summary `json:"metrics"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Errors:  []string{},
		Trace:   []string{},
		Records: []ir.ExecutionRecord{},
		Stack:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// RecordsByLabel returns the records whose label is label, in order.
func (r *Result) RecordsByLabel(label string) []ir.ExecutionRecord {
	var out []ir.ExecutionRecord
	for _, rec := range r.Records {
		if rec.Label == label {
			out = append(out, rec)
		}
	}
	return out
}
