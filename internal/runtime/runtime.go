package runtime

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/wodrun/internal/eventbus"
	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/memory"
)

// Compiler turns statement groups into blocks. Compile returns nil when no
// strategy matches. Root builds the outermost block for the whole script.
type Compiler interface {
	Compile(ctx *ExecutionContext, statements []*ir.Statement) *Block
	Root(ctx *ExecutionContext) *Block
}

// Status is the workout-level state of a runtime.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusStopped  Status = "stopped"
	StatusHalted   Status = "halted"
)

// Runtime executes a compiled workout one turn at a time.
//
// Runtime is single-threaded: callers must not Submit from more than one
// goroutine. Driver serializes external input for real-time use.
type Runtime struct {
	script   *ir.Script
	compiler Compiler

	stack   *Stack
	memory  *memory.Store
	bus     *eventbus.Bus[Action]
	limiter *IterationLimiter

	clock     Clock
	logger    *slog.Logger
	history   HistorySink
	keys      KeyGenerator
	observers []Observer

	status    Status
	err       error
	turn      int
	executing bool
	compiles  int

	// cur is the context of the turn in progress, nil between turns.
	cur *ExecutionContext
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock sets the time source. Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(r *Runtime) {
		r.clock = c
	}
}

// WithMaxIterations sets the per-turn action limit.
// Non-positive values fall back to DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return func(r *Runtime) {
		r.limiter = NewIterationLimiter(n)
	}
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// WithHistory sets the sink for completed execution records.
func WithHistory(h HistorySink) Option {
	return func(r *Runtime) {
		r.history = h
	}
}

// WithKeys sets the block key generator. Defaults to UUIDKeys.
func WithKeys(k KeyGenerator) Option {
	return func(r *Runtime) {
		r.keys = k
	}
}

// WithObserver adds an observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(r *Runtime) {
		r.observers = append(r.observers, o)
	}
}

// New creates a runtime for script. The script is never mutated.
func New(script *ir.Script, compiler Compiler, opts ...Option) *Runtime {
	r := &Runtime{
		script:   script,
		compiler: compiler,
		limiter:  NewIterationLimiter(DefaultMaxIterations),
		clock:    SystemClock{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		keys:     UUIDKeys{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.init()
	return r
}

func (r *Runtime) init() {
	r.stack = NewStack()
	r.memory = memory.NewStore()
	r.bus = eventbus.New[Action]()
	r.status = StatusIdle
	r.err = nil
	r.bus.Register(EventWorkoutStop, SystemOwner, func(eventbus.Event) []Action {
		return []Action{Stop{}}
	})
}

// Submit runs action as a new turn. The clock is read once; every action
// and event inside the turn sees that reading.
//
// Submit returns ErrTurnInProgress when called from inside a turn and
// ErrHalted after a fatal error until Reset.
func (r *Runtime) Submit(action Action) error {
	if r.executing {
		return ErrTurnInProgress
	}
	if r.status == StatusHalted {
		return fmt.Errorf("%w: %v", ErrHalted, r.err)
	}

	r.executing = true
	defer func() {
		r.executing = false
		r.cur = nil
	}()

	r.turn++
	r.limiter.Reset()
	ctx := &ExecutionContext{rt: r, turn: r.turn, now: r.clock.Now()}
	r.cur = ctx
	r.observe(func(o Observer) { o.TurnStarted(ctx.turn, ctx.now) })

	err := ctx.Execute(action)
	iterations := r.limiter.Current()
	r.observe(func(o Observer) { o.TurnEnded(ctx.turn, iterations, err) })

	if err != nil {
		r.err = err
		r.status = StatusHalted
		r.logger.Error("execution halted",
			"turn", ctx.turn,
			"action", action.Type(),
			"iterations", iterations,
			"error", err)
		return fmt.Errorf("turn %d: %w", ctx.turn, err)
	}

	r.logger.Debug("turn complete",
		"turn", ctx.turn,
		"action", action.Type(),
		"iterations", iterations,
		"depth", r.stack.Depth())
	return nil
}

// Start pushes the root block. It returns ErrNotIdle unless the runtime is
// idle; a completed or stopped workout must be Reset before it runs again.
func (r *Runtime) Start() error {
	if r.status != StatusIdle && r.status != StatusHalted {
		return fmt.Errorf("%w: status %s", ErrNotIdle, r.status)
	}
	return r.Submit(Start{})
}

// Tick advances timers by one driver tick.
func (r *Runtime) Tick() error {
	return r.Submit(Tick{})
}

// Dispatch submits an external event as its own turn.
func (r *Runtime) Dispatch(name string, data map[string]any) error {
	return r.Submit(EmitEvent{Name: name, Data: data})
}

// Next signals that the athlete finished the current block.
func (r *Runtime) Next() error {
	return r.Dispatch(EventBlockNext, nil)
}

// Pause pauses all running timers.
func (r *Runtime) Pause() error {
	return r.Dispatch(EventTimerPause, nil)
}

// Resume resumes paused timers.
func (r *Runtime) Resume() error {
	return r.Dispatch(EventTimerStart, nil)
}

// Stop ends the workout, unmounting every block.
func (r *Runtime) Stop() error {
	return r.Dispatch(EventWorkoutStop, nil)
}

// Reset discards all blocks, memory and handlers and returns to idle.
// It is the only way out of the halted state.
func (r *Runtime) Reset() {
	r.logger.Info("runtime reset", "turn", r.turn, "status", string(r.status))
	r.init()
	r.limiter.Reset()
	r.compiles = 0
}

// Stack returns the runtime stack. Callers should only read it.
func (r *Runtime) Stack() *Stack { return r.stack }

// Memory returns the memory store. Callers should only read it.
func (r *Runtime) Memory() *memory.Store { return r.memory }

// Bus returns the event bus. Callers should only read it.
func (r *Runtime) Bus() *eventbus.Bus[Action] { return r.bus }

// Script returns the script being executed.
func (r *Runtime) Script() *ir.Script { return r.script }

// Status returns the workout status.
func (r *Runtime) Status() Status { return r.status }

// Err returns the fatal error that halted the runtime, if any.
func (r *Runtime) Err() error { return r.err }

// Turn returns the number of turns submitted so far.
func (r *Runtime) Turn() int { return r.turn }

// Compiles returns how many child groups have been compiled and pushed.
func (r *Runtime) Compiles() int { return r.compiles }

// Now returns the current clock reading.
func (r *Runtime) Now() time.Time { return r.clock.Now() }

func (r *Runtime) setStatus(s Status) {
	if r.status == s {
		return
	}
	r.logger.Info("workout status", "turn", r.turn, "from", string(r.status), "to", string(s))
	r.status = s
}

func (r *Runtime) observe(fn func(Observer)) {
	for _, o := range r.observers {
		fn(o)
	}
}
