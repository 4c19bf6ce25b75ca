package harness

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/memory"
	"github.com/roach88/wodrun/internal/runtime"
	"github.com/roach88/wodrun/internal/script"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Trace    []string // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, line := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// AssertionContext carries what assertions read besides the result.
type AssertionContext struct {
	Runtime *runtime.Runtime
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertStackDepth:
		return expectEqual(a.Type, result.Trace, a.Depth, len(result.Stack))
	case AssertStackLabels:
		return expectLabels(a.Type, result.Trace, a.Labels, result.Stack)
	case AssertCompileCount:
		return expectEqual(a.Type, result.Trace, a.Count, result.Compiles)
	case AssertRecordCount:
		records := result.Records
		if a.Label != "" {
			records = result.RecordsByLabel(a.Label)
		}
		return expectEqual(a.Type, nil, a.Count, len(records))
	case AssertRecordLabels:
		labels := make([]string, len(result.Records))
		for i, rec := range result.Records {
			labels[i] = rec.Label
		}
		return expectLabels(a.Type, nil, a.Labels, labels)
	case AssertRecordMetric:
		return assertRecordMetric(result, a)
	case AssertStatus:
		return expectEqual(a.Type, result.Trace, a.Status, result.Status)
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertActionCount:
		return expectEqual(a.Type, result.Trace, a.Count, result.Metrics.Actions[a.Action])
	case AssertEventCount:
		return expectEqual(a.Type, result.Trace, a.Count, result.Metrics.Events[a.Event])
	case AssertMemoryValue:
		return assertMemoryValue(actx, a)
	case AssertError:
		return expectEqual(a.Type, result.Trace, a.Code, result.ErrorCode)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func expectEqual[T comparable](typ string, trace []string, want, got T) error {
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprint(want),
		Actual:   fmt.Sprint(got),
		Trace:    trace,
	}
}

func expectLabels(typ string, trace []string, want, got []string) error {
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%q", want),
		Actual:   fmt.Sprintf("%q", got),
		Trace:    trace,
	}
}

// actionOf extracts the action type from a trace line, or "" for events.
func actionOf(line string) string {
	_, rest, ok := strings.Cut(line, " action ")
	if !ok {
		return ""
	}
	return rest
}

// assertTraceContains checks that an action of the given type ran.
func assertTraceContains(trace []string, a Assertion) error {
	for _, line := range trace {
		if actionOf(line) == a.Action {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s", a.Action),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that actions first appear in the given order.
// Actions don't need to be consecutive.
func assertTraceOrder(trace []string, a Assertion) error {
	positions := make(map[string]int)
	for i, line := range trace {
		action := actionOf(line)
		if action != "" && positions[action] == 0 {
			positions[action] = i + 1 // 1-indexed for readability
		}
	}

	for _, action := range a.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", a.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Actions); i++ {
		prev, curr := a.Actions[i-1], a.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertRecordMetric checks a metric on the last record with the label.
// Elapsed values may be written as durations ("20:00", "90s").
func assertRecordMetric(result *Result, a Assertion) error {
	records := result.RecordsByLabel(a.Label)
	if len(records) == 0 {
		return &AssertionError{
			Type:     AssertRecordMetric,
			Expected: fmt.Sprintf("record %q", a.Label),
			Actual:   "no such record",
		}
	}
	rec := records[len(records)-1]

	want, err := metricValue(a.Value)
	if err != nil {
		return fmt.Errorf("record_metric %s: %w", a.Metric, err)
	}
	got, ok := rec.MetricValue(ir.FragmentType(a.Metric))
	if !ok {
		return &AssertionError{
			Type:     AssertRecordMetric,
			Expected: fmt.Sprintf("%s.%s = %d", a.Label, a.Metric, want),
			Actual:   "metric not recorded",
		}
	}
	if got != want {
		return &AssertionError{
			Type:     AssertRecordMetric,
			Expected: fmt.Sprintf("%s.%s = %d", a.Label, a.Metric, want),
			Actual:   fmt.Sprintf("%s.%s = %d", a.Label, a.Metric, got),
		}
	}
	return nil
}

func metricValue(v any) (int64, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case string:
		d, err := script.ParseDuration(val)
		if err != nil {
			return 0, err
		}
		return d.Milliseconds(), nil
	}
	return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
}

// assertMemoryValue finds the innermost reference of the given type among
// the mounted blocks and compares its value.
func assertMemoryValue(actx *AssertionContext, a Assertion) error {
	if actx == nil || actx.Runtime == nil {
		return fmt.Errorf("memory_value requires a runtime")
	}
	rt := actx.Runtime
	entries := rt.Memory().SearchEntries(memory.Criteria{Type: a.Memory}, rt.Stack().Keys())
	if len(entries) == 0 {
		return &AssertionError{
			Type:     AssertMemoryValue,
			Expected: fmt.Sprintf("%s = %s", a.Memory, formatValue(a.Value)),
			Actual:   "not allocated by any mounted block",
		}
	}
	got := formatValue(entries[0].Value)
	if want := formatValue(a.Value); got != want {
		return &AssertionError{
			Type:     AssertMemoryValue,
			Expected: fmt.Sprintf("%s = %s", a.Memory, want),
			Actual:   fmt.Sprintf("%s = %s (owner %s)", a.Memory, got, entries[0].Owner),
		}
	}
	return nil
}

// formatValue renders memory and YAML values the same way. Durations are
// compared in milliseconds.
func formatValue(v any) string {
	switch val := v.(type) {
	case time.Duration:
		return fmt.Sprint(val.Milliseconds())
	case nil:
		return "<nil>"
	}
	return fmt.Sprint(v)
}
