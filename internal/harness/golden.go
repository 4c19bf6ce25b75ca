package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/wodrun/internal/ir"
)

// GoldenDir is where golden traces live, relative to the test package.
const GoldenDir = "testdata/golden"

// TraceSnapshot captures the complete observable output of a scenario.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Status       string
	Trace        []string
	Records      []ir.ExecutionRecord
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, line := range s.Trace {
		trace[i] = line
	}
	records := make([]any, len(s.Records))
	for i, rec := range s.Records {
		records[i] = ir.RecordMap(rec)
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"status":        s.Status,
		"trace":         trace,
		"records":       records,
	}
}

// Snapshot renders result as canonical JSON.
func Snapshot(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: name,
		Status:       result.Status,
		Trace:        result.Trace,
		Records:      result.Records,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// GoldenDir/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Extra goldie options are applied after the defaults, so a test may point
// the fixture directory elsewhere.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...goldie.Option) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result, opts...)
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	newGoldie(t, opts...).Assert(t, name, data)
	return nil
}

// UpdateGolden writes result as the golden file for name.
func UpdateGolden(t *testing.T, name string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	return newGoldie(t, opts...).Update(t, name, data)
}

func newGoldie(t *testing.T, opts ...goldie.Option) *goldie.Goldie {
	defaults := []goldie.Option{
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	}
	return goldie.New(t, append(defaults, opts...)...)
}
