package memory

import (
	"fmt"
	"reflect"
)

// Ref is a typed handle to a block-owned value.
type Ref[T any] struct {
	store *Store
	id    uint64
	typ   string
	owner string
}

// Allocate creates a reference of the given type owned by owner.
func Allocate[T any](s *Store, typ, owner string, initial T) (*Ref[T], error) {
	e, err := s.allocate(typ, owner, reflect.TypeFor[T](), initial)
	if err != nil {
		return nil, err
	}
	return &Ref[T]{store: s, id: e.id, typ: typ, owner: owner}, nil
}

// ID returns the store-unique reference id.
func (r *Ref[T]) ID() uint64 { return r.id }

// Type returns the reference type tag.
func (r *Ref[T]) Type() string { return r.typ }

// Owner returns the owning block key. It never changes.
func (r *Ref[T]) Owner() string { return r.owner }

// Valid reports whether the reference is still live.
func (r *Ref[T]) Valid() bool {
	_, err := r.store.lookup(r.id)
	return err == nil
}

// Get returns the current value.
func (r *Ref[T]) Get() (T, error) {
	var zero T
	e, err := r.store.lookup(r.id)
	if err != nil {
		return zero, fmt.Errorf("get %s (owner %s): %w", r.typ, r.owner, err)
	}
	v, ok := e.value.(T)
	if !ok && e.value != nil {
		return zero, fmt.Errorf("get %s (owner %s): holds %T, not %T", r.typ, r.owner, e.value, zero)
	}
	return v, nil
}

// Set stores v and notifies every subscriber before returning.
func (r *Ref[T]) Set(v T) error {
	if err := r.store.set(r.id, v); err != nil {
		return fmt.Errorf("set %s (owner %s): %w", r.typ, r.owner, err)
	}
	return nil
}

// Update applies fn to the current value and stores the result.
func (r *Ref[T]) Update(fn func(T) T) error {
	cur, err := r.Get()
	if err != nil {
		return err
	}
	return r.Set(fn(cur))
}

// Subscribe registers fn for value changes. The returned function removes
// the subscription; it is safe to call after release.
func (r *Ref[T]) Subscribe(fn func(next, prev T)) (func(), error) {
	unsub, err := r.store.subscribe(r.id, func(next, prev any) {
		n, _ := next.(T)
		p, _ := prev.(T)
		fn(n, p)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s (owner %s): %w", r.typ, r.owner, err)
	}
	return unsub, nil
}

// Search returns typed handles for references matching c among the given
// live owners. References that cannot hold a T are skipped.
func Search[T any](s *Store, c Criteria, owners []string) []*Ref[T] {
	want := reflect.TypeFor[T]()
	var out []*Ref[T]
	for _, e := range s.SearchEntries(c, owners) {
		if !holds(e, want) {
			continue
		}
		out = append(out, &Ref[T]{store: s, id: e.ID, typ: e.Type, owner: e.Owner})
	}
	return out
}

// holds reports whether e is readable as want. A nil interface value says
// nothing about its type, so the allocated type decides.
func holds(e Entry, want reflect.Type) bool {
	if e.Value != nil && reflect.TypeOf(e.Value).AssignableTo(want) {
		return true
	}
	return e.GoType != nil && e.GoType.AssignableTo(want)
}

// Lookup returns owner's first reference of type typ.
func Lookup[T any](s *Store, typ, owner string) (*Ref[T], bool) {
	refs := Search[T](s, Criteria{Type: typ, Owner: owner}, []string{owner})
	if len(refs) == 0 {
		return nil, false
	}
	return refs[0], true
}
