package behaviors

import (
	"time"

	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/runtime"
)

// HistoryRecord emits an ir.ExecutionRecord when its block unmounts.
// Compose it first in a block so its unmount hook runs last, after the
// timer has closed its spans.
type HistoryRecord struct{}

func (HistoryRecord) Name() string { return "history" }

func (HistoryRecord) OnMount(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	if err := allocate(ctx, b, MemHistoryStart, ctx.Now()); err != nil {
		return nil, err
	}
	parent := ""
	if p := ctx.Stack().Parent(b.Key); p != nil {
		parent = p.Key
	}
	return nil, allocate(ctx, b, MemHistoryParent, parent)
}

func (HistoryRecord) OnUnmount(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	rec, err := BuildRecord(ctx, b)
	if err != nil {
		return nil, err
	}
	return []runtime.Action{runtime.RecordHistory{Record: rec}}, nil
}

// BuildRecord assembles b's execution record from its memory at the
// turn's frozen clock.
func BuildRecord(ctx *runtime.ExecutionContext, b *runtime.Block) (ir.ExecutionRecord, error) {
	start, err := get[time.Time](ctx, b, MemHistoryStart)
	if err != nil {
		return ir.ExecutionRecord{}, err
	}
	parent, err := get[string](ctx, b, MemHistoryParent)
	if err != nil {
		return ir.ExecutionRecord{}, err
	}

	rec := ir.ExecutionRecord{
		ID:        b.Key,
		ParentID:  parent,
		Label:     b.Label,
		Kind:      b.Kind,
		SourceIDs: append([]int(nil), b.SourceIDs...),
		StartTime: start,
		EndTime:   ctx.Now(),
	}

	spans, timed, err := lookup[[]ir.TimeSpan](ctx, b, MemTimerSpans)
	if err != nil {
		return rec, err
	}
	if timed {
		rec.Spans = closeSpans(spans, ctx.Now())
		rec.Metrics = append(rec.Metrics, ir.Metric{
			Type:  ir.MetricElapsed,
			Value: ir.Elapsed(rec.Spans, ctx.Now()).Milliseconds(),
			Unit:  "ms",
			Class: ir.ClassRecorded,
		})
	}

	rounds, counted, err := lookup[int](ctx, b, MemRoundsCompleted)
	if err != nil {
		return rec, err
	}
	if counted {
		rec.Metrics = append(rec.Metrics, ir.Metric{
			Type:  ir.MetricRounds,
			Value: int64(rounds),
			Class: ir.ClassRecorded,
		})
	}

	hasReps := false
	for _, f := range b.Fragments {
		switch f.Type {
		case ir.FragmentRep, ir.FragmentResistance, ir.FragmentDistance:
		default:
			continue
		}
		v, ok := f.Int()
		if !ok {
			continue
		}
		class := f.Class
		if class == "" {
			class = ir.ClassDefined
		}
		rec.Metrics = append(rec.Metrics, ir.Metric{Type: f.Type, Value: v, Label: f.Image, Class: class})
		hasReps = hasReps || f.Type == ir.FragmentRep
	}
	if !hasReps && !counted {
		if reps, ok := nearest[int64](ctx, MemMetricReps); ok {
			rec.Metrics = append(rec.Metrics, ir.Metric{Type: ir.FragmentRep, Value: reps, Class: ir.ClassCalculated})
		}
	}
	return rec, nil
}
