package behaviors

import (
	"time"

	"github.com/roach88/wodrun/internal/eventbus"
	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/runtime"
)

// Timer measures work time as a list of spans. A countdown timer
// dispatches timer:complete once elapsed time reaches its duration; a
// count-up timer (Duration 0) only records.
//
// States: running after mount, paused by timer:pause, running again on
// timer:start, stopped on completion or unmount.
type Timer struct {
	Duration time.Duration
	Kind     ir.SpanKind
}

// NewCountdown returns a timer that completes after d of running time.
func NewCountdown(d time.Duration) *Timer {
	return &Timer{Duration: d, Kind: ir.SpanWork}
}

// NewStopwatch returns a count-up timer.
func NewStopwatch(kind ir.SpanKind) *Timer {
	if kind == "" {
		kind = ir.SpanWork
	}
	return &Timer{Kind: kind}
}

func (t *Timer) Name() string { return "timer" }

// Countdown reports whether the timer has a target duration.
func (t *Timer) Countdown() bool { return t.Duration > 0 }

func (t *Timer) OnMount(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	spans := []ir.TimeSpan{{Start: ctx.Now(), Kind: t.kind()}}
	if err := allocate(ctx, b, MemTimerSpans, spans); err != nil {
		return nil, err
	}
	if err := allocate(ctx, b, MemTimerRunning, true); err != nil {
		return nil, err
	}
	if err := allocate(ctx, b, MemTimerComplete, false); err != nil {
		return nil, err
	}
	return nil, allocate(ctx, b, MemTimerDuration, t.Duration)
}

func (t *Timer) Events() []string {
	return []string{runtime.EventTimerPause, runtime.EventTimerStart, runtime.EventTick}
}

func (t *Timer) OnEvent(ctx *runtime.ExecutionContext, b *runtime.Block, ev eventbus.Event) ([]runtime.Action, error) {
	switch ev.Name {
	case runtime.EventTimerPause:
		return t.pause(ctx, b)
	case runtime.EventTimerStart:
		return t.resume(ctx, b)
	case runtime.EventTick:
		return t.tick(ctx, b)
	}
	return nil, nil
}

// OnUnmount closes the open span so the history record sees final spans.
func (t *Timer) OnUnmount(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	running, err := get[bool](ctx, b, MemTimerRunning)
	if err != nil || !running {
		return nil, err
	}
	return nil, stopTimer(ctx, b)
}

func (t *Timer) pause(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	running, err := get[bool](ctx, b, MemTimerRunning)
	if err != nil || !running {
		return nil, err
	}
	if err := stopTimer(ctx, b); err != nil {
		return nil, err
	}
	return []runtime.Action{emit(EventTimerPaused, b, nil)}, nil
}

func (t *Timer) resume(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	running, err := get[bool](ctx, b, MemTimerRunning)
	if err != nil || running {
		return nil, err
	}
	complete, err := get[bool](ctx, b, MemTimerComplete)
	if err != nil || complete {
		return nil, err
	}
	if err := startTimer(ctx, b, t.kind()); err != nil {
		return nil, err
	}
	return []runtime.Action{emit(EventTimerStarted, b, nil)}, nil
}

func (t *Timer) tick(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	running, err := get[bool](ctx, b, MemTimerRunning)
	if err != nil || !running {
		return nil, err
	}
	duration, err := get[time.Duration](ctx, b, MemTimerDuration)
	if err != nil || duration <= 0 {
		return nil, err
	}
	elapsed, err := Elapsed(ctx, b)
	if err != nil || elapsed < duration {
		return nil, err
	}

	if err := stopTimer(ctx, b); err != nil {
		return nil, err
	}
	if err := set(ctx, b, MemTimerComplete, true); err != nil {
		return nil, err
	}
	return []runtime.Action{emit(EventTimerComplete, b, map[string]any{
		"elapsed_ms": elapsed.Milliseconds(),
	})}, nil
}

func (t *Timer) kind() ir.SpanKind {
	if t.Kind == "" {
		return ir.SpanWork
	}
	return t.Kind
}

// Elapsed returns the running time of b's timer at the turn's frozen clock.
func Elapsed(ctx *runtime.ExecutionContext, b *runtime.Block) (time.Duration, error) {
	spans, err := get[[]ir.TimeSpan](ctx, b, MemTimerSpans)
	if err != nil {
		return 0, err
	}
	return ir.Elapsed(spans, ctx.Now()), nil
}

// Remaining returns how much of a countdown is left, never below zero.
// Count-up timers report zero.
func Remaining(ctx *runtime.ExecutionContext, b *runtime.Block) (time.Duration, error) {
	duration, err := get[time.Duration](ctx, b, MemTimerDuration)
	if err != nil || duration <= 0 {
		return 0, err
	}
	elapsed, err := Elapsed(ctx, b)
	if err != nil {
		return 0, err
	}
	if elapsed >= duration {
		return 0, nil
	}
	return duration - elapsed, nil
}

func stopTimer(ctx *runtime.ExecutionContext, b *runtime.Block) error {
	ref, err := own[[]ir.TimeSpan](ctx, b, MemTimerSpans)
	if err != nil {
		return err
	}
	if err := ref.Update(func(spans []ir.TimeSpan) []ir.TimeSpan {
		return closeSpans(spans, ctx.Now())
	}); err != nil {
		return err
	}
	return set(ctx, b, MemTimerRunning, false)
}

func startTimer(ctx *runtime.ExecutionContext, b *runtime.Block, kind ir.SpanKind) error {
	ref, err := own[[]ir.TimeSpan](ctx, b, MemTimerSpans)
	if err != nil {
		return err
	}
	if err := ref.Update(func(spans []ir.TimeSpan) []ir.TimeSpan {
		return openSpan(spans, ctx.Now(), kind)
	}); err != nil {
		return err
	}
	return set(ctx, b, MemTimerRunning, true)
}

// closeSpans stops every open span at now. A span that would have zero
// length is dropped instead.
func closeSpans(spans []ir.TimeSpan, now time.Time) []ir.TimeSpan {
	out := make([]ir.TimeSpan, 0, len(spans))
	for _, s := range spans {
		switch {
		case !s.Open():
			out = append(out, s)
		case now.After(s.Start):
			out = append(out, s.Closed(now))
		}
	}
	return out
}

// openSpan starts a new span at now. Resuming at the instant the last span
// stopped replaces that span with an open one from the same start, so a
// zero-length pause leaves no trace.
func openSpan(spans []ir.TimeSpan, now time.Time, kind ir.SpanKind) []ir.TimeSpan {
	out := append([]ir.TimeSpan(nil), spans...)
	if n := len(out); n > 0 && out[n-1].Stop != nil && out[n-1].Stop.Equal(now) {
		out[n-1] = ir.TimeSpan{Start: out[n-1].Start, Kind: out[n-1].Kind}
		return out
	}
	return append(out, ir.TimeSpan{Start: now, Kind: kind})
}
