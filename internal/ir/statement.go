package ir

import (
	"fmt"
	"strings"
	"time"
)

// FragmentType identifies the semantic kind of a fragment.
type FragmentType string

const (
	FragmentTimer      FragmentType = "timer"
	FragmentRounds     FragmentType = "rounds"
	FragmentEffort     FragmentType = "effort"
	FragmentRep        FragmentType = "rep"
	FragmentResistance FragmentType = "resistance"
	FragmentDistance   FragmentType = "distance"
	FragmentAction     FragmentType = "action"
	FragmentLap        FragmentType = "lap"
	FragmentText       FragmentType = "text"
	FragmentIncrement  FragmentType = "increment"
)

// ValidFragmentTypes lists every fragment type a statement document may use.
var ValidFragmentTypes = map[FragmentType]bool{
	FragmentTimer:      true,
	FragmentRounds:     true,
	FragmentEffort:     true,
	FragmentRep:        true,
	FragmentResistance: true,
	FragmentDistance:   true,
	FragmentAction:     true,
	FragmentLap:        true,
	FragmentText:       true,
	FragmentIncrement:  true,
}

// BehaviorClass records where a fragment value came from.
type BehaviorClass string

const (
	// ClassDefined values were written in the script.
	ClassDefined BehaviorClass = "defined"
	// ClassHinted values were attached by an analyzer.
	ClassHinted BehaviorClass = "hinted"
	// ClassCollected values were entered by the athlete during execution.
	ClassCollected BehaviorClass = "collected"
	// ClassRecorded values were captured by the runtime (elapsed time, rounds).
	ClassRecorded BehaviorClass = "recorded"
	// ClassCalculated values were derived from other values.
	ClassCalculated BehaviorClass = "calculated"
)

// Lap markers. A child statement whose lap fragment is LapCompose joins the
// group of the statement before it.
const (
	LapCompose = "+"
	LapRound   = "-"
)

// Fragment is a typed semantic token extracted from a statement.
//
// Value is one of: int64, string, []int64. Loaders normalize numbers to
// int64 so accessors never see float64 or plain int.
type Fragment struct {
	Type  FragmentType  `json:"type" yaml:"type"`
	Value any           `json:"value" yaml:"value"`
	Class BehaviorClass `json:"class,omitempty" yaml:"class,omitempty"`
	Image string        `json:"image,omitempty" yaml:"image,omitempty"`
}

// Int returns the fragment value as an integer.
// A rep scheme ([]int64) yields its first element.
func (f Fragment) Int() (int64, bool) {
	switch v := f.Value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case []int64:
		if len(v) > 0 {
			return v[0], true
		}
	}
	return 0, false
}

// Ints returns the fragment value as a list of integers.
func (f Fragment) Ints() []int64 {
	switch v := f.Value.(type) {
	case []int64:
		out := make([]int64, len(v))
		copy(out, v)
		return out
	case int64:
		return []int64{v}
	case int:
		return []int64{int64(v)}
	}
	return nil
}

// String returns the textual value, falling back to Image.
func (f Fragment) String() string {
	switch v := f.Value.(type) {
	case string:
		return v
	case nil:
		return f.Image
	}
	if f.Image != "" {
		return f.Image
	}
	return fmt.Sprint(f.Value)
}

// Duration interprets an integer value as milliseconds.
func (f Fragment) Duration() (time.Duration, bool) {
	ms, ok := f.Int()
	if !ok {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// Statement is one parsed line of a workout script.
// Statements are produced upstream and never mutated by the engine.
type Statement struct {
	ID        int               `json:"id" yaml:"id"`
	Parent    int               `json:"parent,omitempty" yaml:"parent,omitempty"`
	Children  []int             `json:"children,omitempty" yaml:"children,omitempty"`
	Fragments []Fragment        `json:"fragments" yaml:"fragments"`
	Hints     []string          `json:"hints,omitempty" yaml:"hints,omitempty"`
	Meta      map[string]string `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Fragment returns the first fragment of the given type.
func (s *Statement) Fragment(t FragmentType) (Fragment, bool) {
	for _, f := range s.Fragments {
		if f.Type == t {
			return f, true
		}
	}
	return Fragment{}, false
}

// FragmentsOf returns all fragments of the given type in order.
func (s *Statement) FragmentsOf(t FragmentType) []Fragment {
	var out []Fragment
	for _, f := range s.Fragments {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// Has reports whether the statement carries a fragment of type t.
func (s *Statement) Has(t FragmentType) bool {
	_, ok := s.Fragment(t)
	return ok
}

// HasHint reports whether an analyzer tagged the statement with hint.
func (s *Statement) HasHint(hint string) bool {
	for _, h := range s.Hints {
		if h == hint {
			return true
		}
	}
	return false
}

// Label renders a human readable label from the statement's fragments.
func (s *Statement) Label() string {
	var parts []string
	for _, f := range s.Fragments {
		switch f.Type {
		case FragmentLap, FragmentIncrement:
			continue
		case FragmentTimer:
			if d, ok := f.Duration(); ok && f.Image == "" {
				parts = append(parts, FormatDuration(d))
				continue
			}
		case FragmentRounds:
			if f.Image == "" {
				if reps := f.Ints(); len(reps) > 1 {
					parts = append(parts, joinInts(reps, "-"))
				} else if n, ok := f.Int(); ok {
					parts = append(parts, fmt.Sprintf("(%d)", n))
				}
				continue
			}
		}
		if text := f.String(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Clone returns a deep copy suitable for annotation passes.
func (s *Statement) Clone() *Statement {
	c := *s
	c.Children = append([]int(nil), s.Children...)
	c.Fragments = append([]Fragment(nil), s.Fragments...)
	c.Hints = append([]string(nil), s.Hints...)
	if s.Meta != nil {
		c.Meta = make(map[string]string, len(s.Meta))
		for k, v := range s.Meta {
			c.Meta[k] = v
		}
	}
	return &c
}

// FormatDuration renders d as m:ss or h:mm:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

func joinInts(vals []int64, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, sep)
}
