package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/wodrun/internal/compiler"
	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/runtime"
	"github.com/roach88/wodrun/internal/store"
	"github.com/roach88/wodrun/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database      string
	NoHistory     bool
	Tick          time.Duration
	MaxIterations int
	Metrics       bool
	Raw           bool

	// Clock and Keys override the system clock and UUIDv7 keys (for testing).
	Clock runtime.Clock
	Keys  runtime.KeyGenerator
}

// RunResult is the JSON payload of a finished run.
type RunResult struct {
	Name    string               `json:"name"`
	Status  string               `json:"status"`
	Records []ir.ExecutionRecord `json:"records"`
	Metrics []string             `json:"metrics,omitempty"`
}

// commands maps input lines to runtime control events.
var commands = map[string]string{
	"next":   runtime.EventBlockNext,
	"n":      runtime.EventBlockNext,
	"pause":  runtime.EventTimerPause,
	"p":      runtime.EventTimerPause,
	"resume": runtime.EventTimerStart,
	"r":      runtime.EventTimerStart,
	"stop":   runtime.EventWorkoutStop,
	"s":      runtime.EventWorkoutStop,
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}
	cfg := rootOpts.Config

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a workout script in real time",
		Long: `Run a workout statement script against the wall clock.

Timers tick every --tick. Control the workout by typing a command and
pressing enter:

  next, n     complete the current effort
  pause, p    pause timers
  resume, r   resume timers
  stop, s     stop the workout

Each block that leaves the stack is printed and, unless --no-history is
given, stored as a session in the history database.

Example:
  wodrun run ./workouts/fran.yaml
  wodrun run --db /tmp/history.db --tick 50ms ./workouts/cindy.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkout(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", cfg.DBPath, "path to SQLite history database")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "keep records in memory only")
	cmd.Flags().DurationVar(&opts.Tick, "tick", cfg.Tick, "timer tick interval")
	cmd.Flags().IntVar(&opts.MaxIterations, "max-iterations", cfg.MaxIterations, "action limit per turn")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print runtime counters when done")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "skip keyword analysis")

	return cmd
}

func runWorkout(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	logger, closeLog, err := NewLogger(cmd.ErrOrStderr(), opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	defer func() { _ = closeLog() }()

	loaded, err := LoadScript(path, opts.Raw)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if errs := compiler.Validate(loaded.Script); len(errs) > 0 {
		return outputValidationErrors(formatter, ValidationResult{
			Name:       loaded.Name,
			Statements: loaded.Script.Len(),
			Errors:     errs,
		})
	}
	logger.Info("script loaded", "name", loaded.Name, "statements", loaded.Script.Len())

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var history runtime.HistorySink = runtime.NewMemoryLog()
	var sessionID string
	if !opts.NoHistory {
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		clock := opts.clock()
		sink, err := store.NewSink(ctx, st, store.Session{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Workout:   loaded.Name,
			StartedAt: clock.Now(),
		})
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to create session", err)
		}
		history = sink
		sessionID = sink.SessionID()
		logger.Info("session created", "session", sessionID, "db", opts.Database)
	}

	report := &reportSink{next: history}
	if formatter.Format != "json" {
		report.w = formatter.Writer
	}

	collector, err := telemetry.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up metrics", err)
	}

	rt := runtime.New(loaded.Script, compiler.New(compiler.WithLogger(logger)),
		runtime.WithClock(opts.clock()),
		runtime.WithKeys(opts.keys()),
		runtime.WithHistory(report),
		runtime.WithObserver(collector),
		runtime.WithLogger(logger),
		runtime.WithMaxIterations(opts.MaxIterations),
	)
	driver := runtime.NewDriver(rt, opts.Tick)

	go readCommands(cmd.InOrStdin(), driver, formatter)

	if formatter.Format != "json" {
		fmt.Fprintf(formatter.Writer, "▶ %s\n", loaded.Name)
	}

	runErr := driver.Run(ctx)
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		logger.Info("run cancelled", "status", string(rt.Status()))
		runErr = nil
	}

	result := RunResult{
		Name:    loaded.Name,
		Status:  string(rt.Status()),
		Records: report.records,
	}
	if opts.Metrics {
		summary, err := collector.Snapshot()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read metrics", err)
		}
		result.Metrics = summary.Lines()
	}

	if runErr != nil {
		code := telemetry.ErrorCode(runErr)
		if formatter.Format == "json" {
			_ = encodeJSON(formatter.Writer, CLIResponse{
				Status:  "error",
				Data:    result,
				Error:   &CLIError{Code: code, Message: runErr.Error()},
				Session: sessionID,
			})
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s: %v\n", code, runErr)
		}
		return WrapExitError(ExitFailure, "workout halted", runErr)
	}

	return outputRunSuccess(formatter, result, sessionID)
}

func outputRunSuccess(formatter *OutputFormatter, result RunResult, sessionID string) error {
	if formatter.Format == "json" {
		return encodeJSON(formatter.Writer, CLIResponse{Status: "ok", Data: result, Session: sessionID})
	}

	fmt.Fprintf(formatter.Writer, "■ %s %s\n", result.Name, result.Status)
	if sessionID != "" {
		fmt.Fprintf(formatter.Writer, "session %s\n", sessionID)
	}
	for _, line := range result.Metrics {
		fmt.Fprintf(formatter.Writer, "  %s\n", line)
	}
	return nil
}

// readCommands forwards control lines to the driver until r is exhausted.
// Unknown lines are reported and ignored.
func readCommands(r io.Reader, driver *runtime.Driver, formatter *OutputFormatter) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" {
			continue
		}
		event, ok := commands[line]
		if !ok {
			fmt.Fprintf(formatter.GetErrWriter(), "unknown command %q (next, pause, resume, stop)\n", line)
			continue
		}
		if !driver.Send(event, nil) {
			return
		}
	}
}

// reportSink prints each record as it arrives, keeps a copy and forwards it.
type reportSink struct {
	next    runtime.HistorySink
	w       io.Writer
	records []ir.ExecutionRecord
}

func (s *reportSink) Record(rec ir.ExecutionRecord) error {
	if err := s.next.Record(rec); err != nil {
		return err
	}
	s.records = append(s.records, rec)
	if s.w != nil {
		fmt.Fprintf(s.w, "✓ %s\n", RecordLine(rec))
	}
	return nil
}

// RecordLine formats a record as "label elapsed [metrics]".
func RecordLine(rec ir.ExecutionRecord) string {
	var b strings.Builder
	b.WriteString(rec.Label)
	if ms, ok := rec.MetricValue(ir.MetricElapsed); ok {
		b.WriteString(" ")
		b.WriteString(ir.FormatDuration(time.Duration(ms) * time.Millisecond))
	}
	for _, m := range rec.Metrics {
		if m.Type == ir.MetricElapsed {
			continue
		}
		fmt.Fprintf(&b, " %s=%d", m.Type, m.Value)
	}
	return b.String()
}

func (o *RunOptions) clock() runtime.Clock {
	if o.Clock != nil {
		return o.Clock
	}
	return runtime.SystemClock{}
}

func (o *RunOptions) keys() runtime.KeyGenerator {
	if o.Keys != nil {
		return o.Keys
	}
	return runtime.UUIDKeys{}
}
