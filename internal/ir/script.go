package ir

import (
	"fmt"
	"sort"
)

// Script is an indexed, read-only collection of statements.
type Script struct {
	statements []*Statement
	byID       map[int]*Statement
}

// NewScript indexes statements by id.
//
// Returns an error for duplicate ids, zero ids, or references to unknown
// parents/children.
func NewScript(statements []*Statement) (*Script, error) {
	s := &Script{
		statements: make([]*Statement, 0, len(statements)),
		byID:       make(map[int]*Statement, len(statements)),
	}
	for _, st := range statements {
		if st == nil {
			return nil, fmt.Errorf("nil statement")
		}
		if st.ID <= 0 {
			return nil, fmt.Errorf("statement id must be positive, got %d", st.ID)
		}
		if _, dup := s.byID[st.ID]; dup {
			return nil, fmt.Errorf("duplicate statement id %d", st.ID)
		}
		s.byID[st.ID] = st
		s.statements = append(s.statements, st)
	}

	for _, st := range s.statements {
		if st.Parent != 0 {
			if _, ok := s.byID[st.Parent]; !ok {
				return nil, fmt.Errorf("statement %d: unknown parent %d", st.ID, st.Parent)
			}
		}
		for _, child := range st.Children {
			if _, ok := s.byID[child]; !ok {
				return nil, fmt.Errorf("statement %d: unknown child %d", st.ID, child)
			}
		}
		for _, f := range st.Fragments {
			if !ValidFragmentTypes[f.Type] {
				return nil, fmt.Errorf("statement %d: unknown fragment type %q", st.ID, f.Type)
			}
		}
	}

	return s, nil
}

// MustScript is NewScript for tests and fixtures; it panics on error.
func MustScript(statements ...*Statement) *Script {
	s, err := NewScript(statements)
	if err != nil {
		panic(err)
	}
	return s
}

// Get returns the statement with the given id.
func (s *Script) Get(id int) (*Statement, bool) {
	st, ok := s.byID[id]
	return st, ok
}

// Resolve maps ids to statements, failing on the first unknown id.
func (s *Script) Resolve(ids []int) ([]*Statement, error) {
	out := make([]*Statement, 0, len(ids))
	for _, id := range ids {
		st, ok := s.byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown statement id %d", id)
		}
		out = append(out, st)
	}
	return out, nil
}

// Statements returns all statements in document order.
func (s *Script) Statements() []*Statement {
	return s.statements
}

// Roots returns the ids of top-level statements in document order.
func (s *Script) Roots() []int {
	var ids []int
	for _, st := range s.statements {
		if st.Parent == 0 {
			ids = append(ids, st.ID)
		}
	}
	return ids
}

// Len returns the number of statements.
func (s *Script) Len() int {
	return len(s.statements)
}

// IDs returns all statement ids in ascending order.
func (s *Script) IDs() []int {
	ids := make([]int, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Map returns a new script where every statement has been replaced by fn(st).
// Used by annotation passes; the receiver is left untouched.
func (s *Script) Map(fn func(*Statement) *Statement) *Script {
	out := &Script{
		statements: make([]*Statement, 0, len(s.statements)),
		byID:       make(map[int]*Statement, len(s.statements)),
	}
	for _, st := range s.statements {
		next := fn(st)
		out.statements = append(out.statements, next)
		out.byID[next.ID] = next
	}
	return out
}
