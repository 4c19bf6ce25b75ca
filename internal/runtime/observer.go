package runtime

import (
	"fmt"
	"strings"
	"time"
)

// ActionExecution records one action run.
type ActionExecution struct {
	Turn      int
	Iteration int
	Depth     int
	Type      string
	Timestamp time.Time
}

// EventDispatch records one event dispatch.
type EventDispatch struct {
	Turn      int
	Iteration int
	Name      string
	Timestamp time.Time
	Handlers  int
}

// Observer receives diagnostic records as the runtime executes. Observers
// must not mutate runtime state.
type Observer interface {
	TurnStarted(turn int, now time.Time)
	ActionExecuted(rec ActionExecution)
	EventDispatched(rec EventDispatch)
	TurnEnded(turn int, iterations int, err error)
}

// TurnSummary describes a finished turn.
type TurnSummary struct {
	Turn       int
	Started    time.Time
	Iterations int
	Err        error
}

// Trace is an Observer that keeps everything in memory. Tests and the
// scenario harness read it back.
type Trace struct {
	Turns   []TurnSummary
	Actions []ActionExecution
	Events  []EventDispatch
}

// NewTrace creates an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

func (t *Trace) TurnStarted(turn int, now time.Time) {
	t.Turns = append(t.Turns, TurnSummary{Turn: turn, Started: now})
}

func (t *Trace) ActionExecuted(rec ActionExecution) {
	t.Actions = append(t.Actions, rec)
}

func (t *Trace) EventDispatched(rec EventDispatch) {
	t.Events = append(t.Events, rec)
}

func (t *Trace) TurnEnded(turn int, iterations int, err error) {
	for i := len(t.Turns) - 1; i >= 0; i-- {
		if t.Turns[i].Turn == turn {
			t.Turns[i].Iterations = iterations
			t.Turns[i].Err = err
			return
		}
	}
}

// ActionTypes lists executed action types in order.
func (t *Trace) ActionTypes() []string {
	out := make([]string, len(t.Actions))
	for i, a := range t.Actions {
		out[i] = a.Type
	}
	return out
}

// EventNames lists dispatched event names in order.
func (t *Trace) EventNames() []string {
	out := make([]string, len(t.Events))
	for i, e := range t.Events {
		out[i] = e.Name
	}
	return out
}

// ActionsInTurn returns the actions executed during turn.
func (t *Trace) ActionsInTurn(turn int) []ActionExecution {
	var out []ActionExecution
	for _, a := range t.Actions {
		if a.Turn == turn {
			out = append(out, a)
		}
	}
	return out
}

// Lines renders the trace as stable text, one entry per line, actions and
// events interleaved by turn and iteration.
func (t *Trace) Lines() []string {
	var lines []string
	ai, ei := 0, 0
	for ai < len(t.Actions) || ei < len(t.Events) {
		takeAction := ei >= len(t.Events)
		if !takeAction && ai < len(t.Actions) {
			a, e := t.Actions[ai], t.Events[ei]
			takeAction = a.Turn < e.Turn || (a.Turn == e.Turn && a.Iteration <= e.Iteration)
		}
		if takeAction {
			a := t.Actions[ai]
			lines = append(lines, fmt.Sprintf("turn=%d iter=%d %saction %s",
				a.Turn, a.Iteration, strings.Repeat("  ", a.Depth), a.Type))
			ai++
			continue
		}
		e := t.Events[ei]
		lines = append(lines, fmt.Sprintf("turn=%d iter=%d event %s handlers=%d",
			e.Turn, e.Iteration, e.Name, e.Handlers))
		ei++
	}
	return lines
}

// String joins Lines with newlines.
func (t *Trace) String() string {
	lines := t.Lines()
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
