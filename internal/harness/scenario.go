package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/script"
)

// Scenario drives one workout script through a fixed sequence of inputs and
// checks the resulting stack, records and trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Script is a statement document path, relative to the scenario file.
	// Exactly one of Script and Statements must be set.
	Script string `yaml:"script,omitempty"`

	// Statements is an inline script.
	Statements []*ir.Statement `yaml:"statements,omitempty"`

	// Raw skips the keyword analyzers.
	Raw bool `yaml:"raw,omitempty"`

	// MaxIterations overrides the per-turn action limit.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// Steps are submitted in order, one runtime turn each (times repeats).
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`

	// dir is the directory Script is resolved against.
	dir string
}

// Step is a single input to the runtime.
type Step struct {
	// Action is one of the Step* constants.
	Action string `yaml:"action"`

	// Duration moves the clock for advance steps ("30s", "1m", "20:00").
	Duration string `yaml:"duration,omitempty"`

	// Event and Data are dispatched by event steps.
	Event string         `yaml:"event,omitempty"`
	Data  map[string]any `yaml:"data,omitempty"`

	// Times repeats the step. Zero means once.
	Times int `yaml:"times,omitempty"`

	// ExpectError is the error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step actions.
const (
	StepStart   = "start"
	StepNext    = "next"
	StepTick    = "tick"
	StepAdvance = "advance"
	StepEvent   = "event"
	StepPause   = "pause"
	StepResume  = "resume"
	StepStop    = "stop"
)

// Assertion validates the final runtime state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Depth is the expected stack depth (stack_depth).
	Depth int `yaml:"depth,omitempty"`

	// Labels are expected block labels bottom to top (stack_labels), or
	// expected record labels in order (record_labels).
	Labels []string `yaml:"labels,omitempty"`

	// Count is the expected number of occurrences (compile_count,
	// record_count, event_count, action_count).
	Count int `yaml:"count,omitempty"`

	// Label filters records (record_count, record_metric).
	Label string `yaml:"label,omitempty"`

	// Metric is the metric type (record_metric).
	Metric string `yaml:"metric,omitempty"`

	// Action is an action type (trace_contains, action_count).
	Action string `yaml:"action,omitempty"`

	// Actions is the expected action order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Event is an event name (event_count).
	Event string `yaml:"event,omitempty"`

	// Memory is a memory type searched innermost block first (memory_value).
	Memory string `yaml:"memory,omitempty"`

	// Value is the expected value (record_metric, memory_value).
	Value any `yaml:"value,omitempty"`

	// Status is the expected workout status (status).
	Status string `yaml:"status,omitempty"`

	// Code is the expected halting error code (error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertStackDepth    = "stack_depth"
	AssertStackLabels   = "stack_labels"
	AssertCompileCount  = "compile_count"
	AssertRecordCount   = "record_count"
	AssertRecordLabels  = "record_labels"
	AssertRecordMetric  = "record_metric"
	AssertStatus        = "status"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertActionCount   = "action_count"
	AssertEventCount    = "event_count"
	AssertMemoryValue   = "memory_value"
	AssertError         = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)

	if s.Script != "" {
		if _, err := os.Stat(s.ScriptPath()); os.IsNotExist(err) {
			return nil, &ScenarioNotFoundError{
				Scenario:     s.Name,
				ScriptPath:   s.Script,
				ResolvedPath: s.ScriptPath(),
			}
		}
	}
	return s, nil
}

// ParseScenario decodes a scenario from YAML. Relative script paths resolve
// against the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var s Scenario
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// ScriptPath returns Script resolved against the scenario file.
func (s *Scenario) ScriptPath() string {
	if s.Script == "" || filepath.IsAbs(s.Script) {
		return s.Script
	}
	return filepath.Join(s.dir, s.Script)
}

// LoadScript returns the statements the scenario runs.
func (s *Scenario) LoadScript() (*ir.Script, error) {
	if s.Script != "" {
		doc, err := script.Load(s.ScriptPath())
		if err != nil {
			return nil, err
		}
		return doc.Script, nil
	}
	// Inline statements go through the same normalization as documents.
	return script.FromStatements(s.Statements)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Script == "" && len(s.Statements) == 0 {
		return fmt.Errorf("script or statements is required")
	}
	if s.Script != "" && len(s.Statements) > 0 {
		return fmt.Errorf("script and statements are mutually exclusive")
	}
	if s.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	if step.Times < 0 {
		return fmt.Errorf("steps[%d]: times must be non-negative", index)
	}
	switch step.Action {
	case StepStart, StepNext, StepTick, StepPause, StepResume, StepStop:
	case StepAdvance:
		if step.Duration == "" {
			return fmt.Errorf("steps[%d]: duration is required for advance", index)
		}
		if _, err := stepDuration(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case StepEvent:
		if step.Event == "" {
			return fmt.Errorf("steps[%d]: event is required for event", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, step.Action)
	}
	return nil
}

func stepDuration(step Step) (time.Duration, error) {
	d, err := script.ParseDuration(step.Duration)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", step.Duration)
	}
	return d, nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStackDepth, AssertCompileCount:
		if a.Depth < 0 || a.Count < 0 {
			return fmt.Errorf("assertions[%d]: value must be non-negative for %s", index, a.Type)
		}
	case AssertStackLabels, AssertRecordLabels:
	case AssertRecordCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record_count", index)
		}
	case AssertRecordMetric:
		if a.Label == "" || a.Metric == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: label, metric and value are required for record_metric", index)
		}
	case AssertStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for status", index)
		}
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertActionCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for action_count", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
	case AssertMemoryValue:
		if a.Memory == "" {
			return fmt.Errorf("assertions[%d]: memory is required for memory_value", index)
		}
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
