package eventbus

import (
	"strings"
	"time"
)

// Wildcard matches every event name.
const Wildcard = "*"

// Event is a named signal with by-value payload.
type Event struct {
	Name      string
	Timestamp time.Time
	Data      map[string]any
}

// String returns a data field as a string, or "" when absent.
func (e Event) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

// Handler reacts to an event by returning actions to run.
type Handler[A any] func(ev Event) []A

type registration[A any] struct {
	id      int
	pattern string
	owner   string
	handler Handler[A]
}

// Bus is an ordered handler registry.
type Bus[A any] struct {
	regs   []registration[A]
	nextID int
}

// New creates an empty bus.
func New[A any]() *Bus[A] {
	return &Bus[A]{}
}

// Register adds a handler for pattern on behalf of owner and returns its
// registration id. Patterns are exact names, "*" or a "prefix:*" namespace.
func (b *Bus[A]) Register(pattern, owner string, h Handler[A]) int {
	b.nextID++
	b.regs = append(b.regs, registration[A]{
		id:      b.nextID,
		pattern: pattern,
		owner:   owner,
		handler: h,
	})
	return b.nextID
}

// Unregister removes a single registration. Returns false if unknown.
func (b *Bus[A]) Unregister(id int) bool {
	for i, r := range b.regs {
		if r.id == id {
			b.regs = append(b.regs[:i], b.regs[i+1:]...)
			return true
		}
	}
	return false
}

// UnregisterAllFor removes every handler owned by owner and returns how many
// were removed.
func (b *Bus[A]) UnregisterAllFor(owner string) int {
	kept := b.regs[:0]
	removed := 0
	for _, r := range b.regs {
		if r.owner == owner {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	// Clear the tail so dropped handlers can be collected.
	for i := len(kept); i < len(b.regs); i++ {
		b.regs[i] = registration[A]{}
	}
	b.regs = kept
	return removed
}

// Count returns the number of handlers registered by owner.
func (b *Bus[A]) Count(owner string) int {
	n := 0
	for _, r := range b.regs {
		if r.owner == owner {
			n++
		}
	}
	return n
}

// Len returns the total number of registrations.
func (b *Bus[A]) Len() int {
	return len(b.regs)
}

// Matching returns how many handlers would receive an event named name.
func (b *Bus[A]) Matching(name string) int {
	n := 0
	for _, r := range b.regs {
		if Match(r.pattern, name) {
			n++
		}
	}
	return n
}

// Dispatch invokes every matching handler in registration order and returns
// the concatenated actions. With no matching handler it returns nil and
// changes nothing.
func (b *Bus[A]) Dispatch(ev Event) []A {
	// Handlers may register or unregister while running; iterate a snapshot.
	regs := append([]registration[A](nil), b.regs...)

	var out []A
	for _, r := range regs {
		if !Match(r.pattern, ev.Name) {
			continue
		}
		if !b.live(r.id) {
			continue
		}
		out = append(out, r.handler(ev)...)
	}
	return out
}

func (b *Bus[A]) live(id int) bool {
	for _, r := range b.regs {
		if r.id == id {
			return true
		}
	}
	return false
}

// Match reports whether pattern accepts name.
func Match(pattern, name string) bool {
	switch {
	case pattern == Wildcard:
		return true
	case strings.HasSuffix(pattern, ":*"):
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	default:
		return pattern == name
	}
}
