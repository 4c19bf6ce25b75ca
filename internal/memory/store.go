package memory

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrReleased is returned when a released reference is used.
var ErrReleased = errors.New("memory reference released")

// Criteria filters a search. Empty fields match anything.
type Criteria struct {
	Type  string
	Owner string
}

func (c Criteria) matches(e *entry) bool {
	if c.Type != "" && c.Type != e.typ {
		return false
	}
	if c.Owner != "" && c.Owner != e.owner {
		return false
	}
	return true
}

// Entry is an untyped, read-only view of a reference. GoType is the type
// the reference was allocated with, which Value alone cannot show when it
// holds a nil interface.
type Entry struct {
	ID     uint64
	Type   string
	Owner  string
	Value  any
	GoType reflect.Type
}

type subscription struct {
	id int
	fn func(next, prev any)
}

type entry struct {
	id       uint64
	typ      string
	owner    string
	value    any
	goType   reflect.Type
	subs     []subscription
	released bool
}

// Store holds every live reference of one runtime.
type Store struct {
	entries map[uint64]*entry
	byOwner map[string][]uint64 // allocation order per owner
	nextID  uint64
	nextSub int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[uint64]*entry),
		byOwner: make(map[string][]uint64),
	}
}

func (s *Store) allocate(typ, owner string, goType reflect.Type, initial any) (*entry, error) {
	if typ == "" {
		return nil, fmt.Errorf("allocate: type is required")
	}
	if owner == "" {
		return nil, fmt.Errorf("allocate %s: owner is required", typ)
	}
	s.nextID++
	e := &entry{
		id:     s.nextID,
		typ:    typ,
		owner:  owner,
		value:  initial,
		goType: goType,
	}
	s.entries[e.id] = e
	s.byOwner[owner] = append(s.byOwner[owner], e.id)
	return e, nil
}

func (s *Store) lookup(id uint64) (*entry, error) {
	e, ok := s.entries[id]
	if !ok || e.released {
		return nil, ErrReleased
	}
	return e, nil
}

func (s *Store) set(id uint64, v any) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	prev := e.value
	e.value = v

	// Snapshot so callbacks may unsubscribe themselves.
	subs := append([]subscription(nil), e.subs...)
	for _, sub := range subs {
		sub.fn(v, prev)
	}
	return nil
}

func (s *Store) subscribe(id uint64, fn func(next, prev any)) (func(), error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	s.nextSub++
	subID := s.nextSub
	e.subs = append(e.subs, subscription{id: subID, fn: fn})

	return func() {
		for i, sub := range e.subs {
			if sub.id == subID {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				return
			}
		}
	}, nil
}

// Release drops every reference owned by owner, clearing subscribers and
// invalidating handles. Returns the number of references released.
func (s *Store) Release(owner string) int {
	ids := s.byOwner[owner]
	for _, id := range ids {
		if e, ok := s.entries[id]; ok {
			e.released = true
			e.subs = nil
			e.value = nil
			delete(s.entries, id)
		}
	}
	delete(s.byOwner, owner)
	return len(ids)
}

// Count returns the number of live references owned by owner.
func (s *Store) Count(owner string) int {
	return len(s.byOwner[owner])
}

// Len returns the total number of live references.
func (s *Store) Len() int {
	return len(s.entries)
}

// Subscribers returns the number of subscribers attached to owner's references.
func (s *Store) Subscribers(owner string) int {
	n := 0
	for _, id := range s.byOwner[owner] {
		if e, ok := s.entries[id]; ok {
			n += len(e.subs)
		}
	}
	return n
}

// SearchEntries returns untyped views of references matching c whose owner is
// in owners. Results follow the order of owners, then allocation order.
func (s *Store) SearchEntries(c Criteria, owners []string) []Entry {
	var out []Entry
	for _, owner := range owners {
		if c.Owner != "" && c.Owner != owner {
			continue
		}
		for _, id := range s.byOwner[owner] {
			e := s.entries[id]
			if e == nil || !c.matches(e) {
				continue
			}
			out = append(out, Entry{ID: e.id, Type: e.typ, Owner: e.owner, Value: e.value, GoType: e.goType})
		}
	}
	return out
}
