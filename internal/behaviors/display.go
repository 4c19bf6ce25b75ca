package behaviors

import (
	"github.com/roach88/wodrun/internal/eventbus"
	"github.com/roach88/wodrun/internal/runtime"
)

// Display publishes the block label for presentation layers.
type Display struct{}

func (Display) Name() string { return "display" }

func (Display) OnMount(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	return nil, allocate(ctx, b, MemDisplayLabel, b.Label)
}

// Button is one control in the button bar. Pressing it dispatches Event.
type Button struct {
	Label string `json:"label" yaml:"label"`
	Event string `json:"event" yaml:"event"`
}

// Standard buttons.
var (
	PauseButton  = Button{Label: "Pause", Event: runtime.EventTimerPause}
	ResumeButton = Button{Label: "Resume", Event: runtime.EventTimerStart}
	NextButton   = Button{Label: "Next", Event: runtime.EventBlockNext}
	StopButton   = Button{Label: "Stop", Event: runtime.EventWorkoutStop}
)

// Buttons publishes the control bar and swaps Pause and Resume as timers
// pause and start.
type Buttons struct {
	Initial []Button
}

// DefaultButtons is the bar shown for a running workout.
func DefaultButtons() *Buttons {
	return &Buttons{Initial: []Button{PauseButton, NextButton, StopButton}}
}

func (bb *Buttons) Name() string { return "buttons" }

func (bb *Buttons) OnMount(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	return nil, allocate(ctx, b, MemButtons, append([]Button(nil), bb.Initial...))
}

func (bb *Buttons) Events() []string {
	return []string{EventTimerPaused, EventTimerStarted}
}

func (bb *Buttons) OnEvent(ctx *runtime.ExecutionContext, b *runtime.Block, ev eventbus.Event) ([]runtime.Action, error) {
	from, to := PauseButton, ResumeButton
	if ev.Name == EventTimerStarted {
		from, to = ResumeButton, PauseButton
	}
	ref, err := own[[]Button](ctx, b, MemButtons)
	if err != nil {
		return nil, err
	}
	current, err := ref.Get()
	if err != nil {
		return nil, err
	}

	changed := false
	next := make([]Button, len(current))
	for i, btn := range current {
		if btn == from {
			btn = to
			changed = true
		}
		next[i] = btn
	}
	if !changed {
		return nil, nil
	}
	return nil, ref.Set(next)
}
