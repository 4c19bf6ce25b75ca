package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern, name string
		want          bool
	}{
		{"timer:pause", "timer:pause", true},
		{"timer:pause", "timer:start", false},
		{"*", "anything", true},
		{"timer:*", "timer:tick", true},
		{"timer:*", "round:started", false},
		{"timer:*", "timer", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.name))
		})
	}
}

func TestDispatch_RegistrationOrder(t *testing.T) {
	b := New[string]()
	b.Register("block:next", "a", func(Event) []string { return []string{"a1", "a2"} })
	b.Register("*", "b", func(Event) []string { return []string{"b"} })
	b.Register("block:next", "c", func(Event) []string { return []string{"c"} })

	got := b.Dispatch(Event{Name: "block:next"})
	assert.Equal(t, []string{"a1", "a2", "b", "c"}, got)
}

// Dispatching with no handlers returns nothing and leaves the bus unchanged.
func TestDispatch_NoHandlers(t *testing.T) {
	b := New[string]()
	b.Register("timer:tick", "a", func(Event) []string { return []string{"x"} })

	got := b.Dispatch(Event{Name: "workout:stop"})
	assert.Empty(t, got)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 0, b.Matching("workout:stop"))
}

func TestUnregisterAllFor(t *testing.T) {
	b := New[int]()
	b.Register("x", "blk-1", func(Event) []int { return []int{1} })
	b.Register("y", "blk-1", func(Event) []int { return []int{2} })
	b.Register("x", "blk-2", func(Event) []int { return []int{3} })

	assert.Equal(t, 2, b.UnregisterAllFor("blk-1"))
	assert.Equal(t, 0, b.Count("blk-1"))
	assert.Equal(t, 1, b.Count("blk-2"))
	assert.Equal(t, []int{3}, b.Dispatch(Event{Name: "x"}))
	assert.Equal(t, 0, b.UnregisterAllFor("blk-1"))
}

func TestUnregister(t *testing.T) {
	b := New[int]()
	id := b.Register("x", "o", func(Event) []int { return []int{1} })
	assert.True(t, b.Unregister(id))
	assert.False(t, b.Unregister(id))
	assert.Empty(t, b.Dispatch(Event{Name: "x"}))
}

// A handler removed by an earlier handler in the same dispatch is skipped.
func TestDispatch_RemovedMidDispatch(t *testing.T) {
	b := New[string]()
	b.Register("x", "first", func(Event) []string {
		b.UnregisterAllFor("second")
		return []string{"first"}
	})
	b.Register("x", "second", func(Event) []string { return []string{"second"} })

	assert.Equal(t, []string{"first"}, b.Dispatch(Event{Name: "x"}))
}

func TestEvent_String(t *testing.T) {
	ev := Event{Name: "timer:complete", Data: map[string]any{"block": "blk-1", "n": 2}}
	assert.Equal(t, "blk-1", ev.String("block"))
	assert.Equal(t, "", ev.String("n"))
	assert.Equal(t, "", ev.String("missing"))
}

func TestDispatch_PassesEvent(t *testing.T) {
	b := New[string]()
	var seen Event
	b.Register("round:*", "o", func(ev Event) []string {
		seen = ev
		return nil
	})
	b.Dispatch(Event{Name: "round:started", Data: map[string]any{"round": 2}})
	require.Equal(t, "round:started", seen.Name)
	assert.Equal(t, 2, seen.Data["round"])
}
