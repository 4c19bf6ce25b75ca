package compiler

import (
	"fmt"

	"github.com/roach88/wodrun/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrEmptyScript    = "E100" // script has no statements
	ErrInvalidTimer   = "E101" // timer must be a positive millisecond count
	ErrInvalidRounds  = "E102" // rounds must be positive, rep schemes non-empty
	ErrParentMismatch = "E103" // child does not name its parent back
	ErrLeadingCompose = "E104" // "+" lap on a first child has nothing to join
	ErrStatementCycle = "E105" // statement reaches itself through children
	ErrFloatValue     = "E106" // fragment values must be integers or strings
)

// ValidationError represents a script validation error.
type ValidationError struct {
	Field     string `json:"field"`
	Message   string `json:"message"`
	Code      string `json:"code"`
	Statement int    `json:"statement,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Statement > 0 {
		return fmt.Sprintf("[%s] statement %d: %s: %s", e.Code, e.Statement, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a script before execution.
// Returns all errors found (does not fail-fast).
func Validate(script *ir.Script) []ValidationError {
	var errs []ValidationError
	if script == nil || script.Len() == 0 {
		return []ValidationError{{
			Field:   "statements",
			Message: "script has no statements",
			Code:    ErrEmptyScript,
		}}
	}

	if roots := script.Roots(); len(roots) > 0 {
		if first, ok := script.Get(roots[0]); ok && composes(first) {
			errs = append(errs, ValidationError{
				Field:     "fragments",
				Message:   "first statement cannot compose with a previous statement",
				Code:      ErrLeadingCompose,
				Statement: first.ID,
			})
		}
	}

	for _, st := range script.Statements() {
		errs = append(errs, validateFragments(st)...)
		errs = append(errs, validateChildren(script, st)...)
	}

	for _, w := range AnalyzeCycles(script) {
		errs = append(errs, ValidationError{
			Field:     "children",
			Message:   w.Message,
			Code:      ErrStatementCycle,
			Statement: w.Path[0],
		})
	}
	return errs
}

func validateFragments(st *ir.Statement) []ValidationError {
	var errs []ValidationError
	for i, f := range st.Fragments {
		field := fmt.Sprintf("fragments[%d]", i)

		switch f.Value.(type) {
		case float32, float64:
			errs = append(errs, ValidationError{
				Field:     field + ".value",
				Message:   fmt.Sprintf("%s value %v is a float", f.Type, f.Value),
				Code:      ErrFloatValue,
				Statement: st.ID,
			})
			continue
		}

		switch f.Type {
		case ir.FragmentTimer:
			if d, ok := f.Duration(); !ok || d <= 0 {
				errs = append(errs, ValidationError{
					Field:     field + ".value",
					Message:   fmt.Sprintf("timer must be a positive millisecond count, got %v", f.Value),
					Code:      ErrInvalidTimer,
					Statement: st.ID,
				})
			}
		case ir.FragmentRounds:
			if msg := checkRounds(f); msg != "" {
				errs = append(errs, ValidationError{
					Field:     field + ".value",
					Message:   msg,
					Code:      ErrInvalidRounds,
					Statement: st.ID,
				})
			}
		}
	}
	return errs
}

func checkRounds(f ir.Fragment) string {
	reps := f.Ints()
	if len(reps) == 0 {
		return fmt.Sprintf("rounds must be an integer or rep scheme, got %v", f.Value)
	}
	for _, n := range reps {
		if n <= 0 {
			return fmt.Sprintf("rounds must be positive, got %d", n)
		}
	}
	return ""
}

func validateChildren(script *ir.Script, st *ir.Statement) []ValidationError {
	var errs []ValidationError
	for i, id := range st.Children {
		child, ok := script.Get(id)
		if !ok {
			continue
		}
		if child.Parent != st.ID {
			errs = append(errs, ValidationError{
				Field:     fmt.Sprintf("children[%d]", i),
				Message:   fmt.Sprintf("child %d names parent %d", id, child.Parent),
				Code:      ErrParentMismatch,
				Statement: st.ID,
			})
		}
		if i == 0 && composes(child) {
			errs = append(errs, ValidationError{
				Field:     "fragments",
				Message:   fmt.Sprintf("first child of statement %d cannot compose with a previous statement", st.ID),
				Code:      ErrLeadingCompose,
				Statement: id,
			})
		}
	}
	return errs
}
