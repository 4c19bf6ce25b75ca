package compiler

import (
	"strings"
	"time"

	"github.com/roach88/wodrun/internal/behaviors"
	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/runtime"
)

// Strategy matches a statement group and builds its block.
type Strategy interface {
	Name() string
	Match(statements []*ir.Statement) bool
	Build(ctx *runtime.ExecutionContext, statements []*ir.Statement) *runtime.Block
}

// DefaultStrategies returns the strategies in precedence order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		TimeBoundRounds{},
		Interval{},
		TimerOnly{},
		RoundsOnly{},
		Group{},
		Effort{},
	}
}

// TimeBoundRounds matches a timer together with a rounds fragment or the
// AMRAP hint. The block repeats its children until the timer expires or
// the declared rounds are done. An EMOM hint defers to Interval.
type TimeBoundRounds struct{}

func (TimeBoundRounds) Name() string { return "time-bound-rounds" }

func (TimeBoundRounds) Match(statements []*ir.Statement) bool {
	st := primary(statements)
	if st == nil || !st.Has(ir.FragmentTimer) || st.HasHint(ir.HintEMOM) {
		return false
	}
	return st.Has(ir.FragmentRounds) || st.HasHint(ir.HintAMRAP)
}

func (s TimeBoundRounds) Build(ctx *runtime.ExecutionContext, statements []*ir.Statement) *runtime.Block {
	st := primary(statements)
	d, _ := timerOf(st)
	rounds := roundsOf(st)
	if st.HasHint(ir.HintAMRAP) {
		rounds.Total = 0
	}
	return newBlock(ctx, runtime.KindTimeBoundRounds, statements,
		behaviors.HistoryRecord{},
		behaviors.Display{},
		behaviors.NewCountdown(d),
		rounds,
		behaviors.RoundsDisplay{},
		behaviors.ChildRunner{},
		behaviors.RoundsAdvance{},
		behaviors.RoundsCompletion{},
		behaviors.Completion{},
		behaviors.TimerCompletion{},
	)
}

// Interval matches a timer with the EMOM hint. The timer is the length of
// one interval; the rounds fragment, when present, is the interval count.
type Interval struct{}

func (Interval) Name() string { return "interval" }

func (Interval) Match(statements []*ir.Statement) bool {
	st := primary(statements)
	return st != nil && st.Has(ir.FragmentTimer) && st.HasHint(ir.HintEMOM)
}

func (Interval) Build(ctx *runtime.ExecutionContext, statements []*ir.Statement) *runtime.Block {
	st := primary(statements)
	d, _ := timerOf(st)
	return newBlock(ctx, runtime.KindInterval, statements,
		behaviors.HistoryRecord{},
		behaviors.Display{},
		behaviors.NewCountdown(d),
		roundsOf(st),
		behaviors.RoundsDisplay{},
		behaviors.ChildRunner{},
		&behaviors.Interval{Every: d},
	)
}

// TimerOnly matches any remaining statement with a timer. A countdown
// completes the block on expiry; the count-up hint turns it into a
// stopwatch. With children the block also completes once they have run.
type TimerOnly struct{}

func (TimerOnly) Name() string { return "timer" }

func (TimerOnly) Match(statements []*ir.Statement) bool {
	st := primary(statements)
	return st != nil && st.Has(ir.FragmentTimer)
}

func (TimerOnly) Build(ctx *runtime.ExecutionContext, statements []*ir.Statement) *runtime.Block {
	st := primary(statements)
	d, _ := timerOf(st)

	list := []runtime.Behavior{behaviors.HistoryRecord{}, behaviors.Display{}}
	if st.HasHint(ir.HintCountUp) {
		list = append(list, behaviors.NewStopwatch(spanKind(st)))
	} else {
		list = append(list, behaviors.NewCountdown(d), behaviors.TimerCompletion{})
	}
	if len(st.Children) > 0 {
		list = append(list, behaviors.ChildRunner{}, behaviors.Completion{})
	} else {
		list = append(list, behaviors.NextOnEvent{})
	}
	return newBlock(ctx, runtime.KindTimer, statements, list...)
}

// RoundsOnly matches a rounds fragment without a timer. A rep scheme
// (21-15-9) sets both the round count and each round's reps.
type RoundsOnly struct{}

func (RoundsOnly) Name() string { return "rounds" }

func (RoundsOnly) Match(statements []*ir.Statement) bool {
	st := primary(statements)
	return st != nil && st.Has(ir.FragmentRounds)
}

func (RoundsOnly) Build(ctx *runtime.ExecutionContext, statements []*ir.Statement) *runtime.Block {
	st := primary(statements)
	list := []runtime.Behavior{
		behaviors.HistoryRecord{},
		behaviors.Display{},
		behaviors.NewStopwatch(ir.SpanWork),
		roundsOf(st),
		behaviors.RoundsDisplay{},
		behaviors.ChildRunner{},
		behaviors.RoundsAdvance{},
		behaviors.RoundsCompletion{},
		behaviors.Completion{},
	}
	if len(st.Children) == 0 {
		list = append(list, behaviors.NextOnEvent{})
	}
	return newBlock(ctx, runtime.KindRounds, statements, list...)
}

// Group matches a container with children and no timer.
type Group struct{}

func (Group) Name() string { return "group" }

func (Group) Match(statements []*ir.Statement) bool {
	st := primary(statements)
	return st != nil && len(st.Children) > 0
}

func (Group) Build(ctx *runtime.ExecutionContext, statements []*ir.Statement) *runtime.Block {
	return newBlock(ctx, runtime.KindGroup, statements,
		behaviors.HistoryRecord{},
		behaviors.Display{},
		behaviors.NewStopwatch(ir.SpanWork),
		behaviors.ChildRunner{},
		behaviors.Completion{},
	)
}

// Effort is the fallback. It always matches and builds a leaf the athlete
// completes with block:next.
type Effort struct{}

func (Effort) Name() string { return "effort" }

func (Effort) Match(statements []*ir.Statement) bool { return len(statements) > 0 }

func (Effort) Build(ctx *runtime.ExecutionContext, statements []*ir.Statement) *runtime.Block {
	return newBlock(ctx, runtime.KindEffort, statements,
		behaviors.HistoryRecord{},
		behaviors.Display{},
		behaviors.NewStopwatch(spanKind(primary(statements))),
		behaviors.NextOnEvent{},
	)
}

func primary(statements []*ir.Statement) *ir.Statement {
	if len(statements) == 0 {
		return nil
	}
	return statements[0]
}

// newBlock fills in identity shared by every strategy: key, label, source
// ids, fragments, and the primary statement's child groups.
func newBlock(ctx *runtime.ExecutionContext, kind string, statements []*ir.Statement, list ...runtime.Behavior) *runtime.Block {
	ids := make([]int, len(statements))
	labels := make([]string, 0, len(statements))
	var fragments []ir.Fragment
	for i, st := range statements {
		ids[i] = st.ID
		if l := st.Label(); l != "" {
			labels = append(labels, l)
		}
		fragments = append(fragments, st.Fragments...)
	}

	b := runtime.NewBlock(ctx.NewKey(), kind, strings.Join(labels, " + "), ids, list...)
	b.Fragments = fragments
	b.ChildGroups = GroupChildren(ctx.Script(), primary(statements).Children)
	return b
}

func timerOf(st *ir.Statement) (time.Duration, bool) {
	f, ok := st.Fragment(ir.FragmentTimer)
	if !ok {
		return 0, false
	}
	return f.Duration()
}

func roundsOf(st *ir.Statement) *behaviors.RoundsInit {
	f, ok := st.Fragment(ir.FragmentRounds)
	if !ok {
		return &behaviors.RoundsInit{}
	}
	if reps := f.Ints(); len(reps) > 1 {
		return &behaviors.RoundsInit{Total: len(reps), Reps: reps}
	}
	n, _ := f.Int()
	return &behaviors.RoundsInit{Total: int(n)}
}

func spanKind(st *ir.Statement) ir.SpanKind {
	if st != nil && st.HasHint(ir.HintRest) {
		return ir.SpanRest
	}
	return ir.SpanWork
}
