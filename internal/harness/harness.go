package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/wodrun/internal/compiler"
	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/runtime"
	"github.com/roach88/wodrun/internal/store"
	"github.com/roach88/wodrun/internal/telemetry"
	"github.com/roach88/wodrun/internal/testutil"
)

// sessionID names the single session each scenario writes.
const sessionID = "scenario"

// Harness is the scenario execution engine. It owns one runtime driven by
// a manual clock and sequential block keys, so the same scenario always
// yields the same trace.
type Harness struct {
	scenario  *Scenario
	store     *store.Store
	runtime   *runtime.Runtime
	clock     *testutil.ManualClock
	trace     *runtime.Trace
	collector *telemetry.Collector
	logger    *slog.Logger
}

// Run executes a scenario with a background context.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database and a fresh
// metrics registry. The returned error covers setup problems only; step
// and assertion failures are reported through Result.
//
// Execution flow:
// 1. Load the script and annotate it (unless raw)
// 2. Build the runtime with a manual clock, keys, trace and store sink
// 3. Execute steps
// 4. Read records back from the store and evaluate assertions
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	script, err := scenario.LoadScript()
	if err != nil {
		return nil, fmt.Errorf("load script: %w", err)
	}
	if !scenario.Raw {
		script = compiler.Annotate(script)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewManualClock(testutil.Epoch)
	sink, err := store.NewSink(ctx, st, store.Session{
		ID:            sessionID,
		Workout:       scenario.Name,
		StartedAt:     clock.Now(),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	})
	if err != nil {
		return nil, err
	}

	collector, err := telemetry.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return nil, fmt.Errorf("create collector: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	trace := runtime.NewTrace()
	opts := []runtime.Option{
		runtime.WithClock(clock),
		runtime.WithKeys(testutil.NewSequentialKeys("b")),
		runtime.WithHistory(sink),
		runtime.WithObserver(trace),
		runtime.WithObserver(collector),
		runtime.WithLogger(logger),
	}
	if scenario.MaxIterations > 0 {
		opts = append(opts, runtime.WithMaxIterations(scenario.MaxIterations))
	}

	h := &Harness{
		scenario:  scenario,
		store:     st,
		runtime:   runtime.New(script, compiler.New(compiler.WithLogger(logger)), opts...),
		clock:     clock,
		trace:     trace,
		collector: collector,
		logger:    logger,
	}

	result := NewResult()
	h.executeSteps(result)
	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Runtime: h.runtime}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSteps submits every step. An unexpected error stops execution,
// since the runtime refuses further input once halted.
func (h *Harness) executeSteps(result *Result) {
	for i, step := range h.scenario.Steps {
		times := step.Times
		if times == 0 {
			times = 1
		}
		for n := 0; n < times; n++ {
			err := h.submit(step)
			if msg := checkStepError(step, err); msg != "" {
				result.AddError(fmt.Sprintf("steps[%d] %s (repeat %d): %s", i, step.Action, n+1, msg))
				return
			}
			h.logger.Debug("step completed",
				"step", i,
				"action", step.Action,
				"turn", h.runtime.Turn(),
				"depth", h.runtime.Stack().Depth())
		}
	}
}

func (h *Harness) submit(step Step) error {
	switch step.Action {
	case StepStart:
		return h.runtime.Start()
	case StepNext:
		return h.runtime.Next()
	case StepTick:
		return h.runtime.Tick()
	case StepAdvance:
		d, err := stepDuration(step)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
		return h.runtime.Tick()
	case StepEvent:
		return h.runtime.Dispatch(step.Event, step.Data)
	case StepPause:
		return h.runtime.Pause()
	case StepResume:
		return h.runtime.Resume()
	case StepStop:
		return h.runtime.Stop()
	}
	return fmt.Errorf("unknown action %q", step.Action)
}

// checkStepError compares a step error to the step's expectation and
// returns a failure message, or "" when they agree.
func checkStepError(step Step, err error) string {
	switch {
	case err == nil && step.ExpectError == "":
		return ""
	case err == nil:
		return fmt.Sprintf("expected error %s, got none", step.ExpectError)
	case step.ExpectError == "":
		return fmt.Sprintf("unexpected error: %v", err)
	}
	if code := telemetry.ErrorCode(err); code != step.ExpectError {
		return fmt.Sprintf("expected error %s, got %s: %v", step.ExpectError, code, err)
	}
	return ""
}

// collect fills result from the runtime, the trace, the collector and the
// store.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	result.Trace = append(result.Trace, h.trace.Lines()...)
	result.Status = string(h.runtime.Status())
	result.Compiles = h.runtime.Compiles()
	for _, b := range h.runtime.Stack().Blocks() {
		result.Stack = append(result.Stack, b.Label)
	}
	if err := h.runtime.Err(); err != nil {
		result.ErrorCode = telemetry.ErrorCode(err)
	}

	summary, err := h.collector.Snapshot()
	if err != nil {
		return fmt.Errorf("read metrics: %w", err)
	}
	result.Metrics = summary

	records, err := h.store.ReadRecords(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	result.Records = records
	return nil
}
