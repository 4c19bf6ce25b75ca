package runtime

import (
	"errors"
	"fmt"
)

// ErrTurnInProgress is returned when Submit is called while a turn is
// executing. Nested work must go through ExecutionContext.Execute.
var ErrTurnInProgress = errors.New("turn already in progress")

// ErrHalted is returned by Submit after a fatal error until Reset is called.
var ErrHalted = errors.New("execution halted")

// ErrNotIdle is returned by Start once a workout has run. Reset first.
var ErrNotIdle = errors.New("workout already started")

// RuntimeErrorCode categorizes fatal runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeRecursionLimit indicates a turn executed more actions than allowed.
	ErrCodeRecursionLimit RuntimeErrorCode = "RECURSION_LIMIT_EXCEEDED"

	// ErrCodeCompileFailed indicates no strategy produced a block.
	ErrCodeCompileFailed RuntimeErrorCode = "COMPILE_FAILED"

	// ErrCodeLeak indicates a popped block still owns memory or handlers.
	ErrCodeLeak RuntimeErrorCode = "RESOURCE_LEAK"
)

// RuntimeError is a fatal engine error. It halts the current turn.
type RuntimeError struct {
	Code     RuntimeErrorCode
	Message  string
	BlockKey string
	Turn     int
	Details  map[string]string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.BlockKey != "" {
		return fmt.Sprintf("%s: %s (block=%s, turn=%d)", e.Code, e.Message, e.BlockKey, e.Turn)
	}
	return fmt.Sprintf("%s: %s (turn=%d)", e.Code, e.Message, e.Turn)
}

// RecursionLimitError is returned when a turn exceeds its iteration limit.
type RecursionLimitError struct {
	Turn       int
	Iterations int
	Limit      int
	ActionType string
}

// Error implements the error interface.
func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("turn %d exceeded max iterations: %d > %d (action %s)",
		e.Turn, e.Iterations, e.Limit, e.ActionType)
}

// RuntimeError returns the error type name, matching RuntimeError codes.
func (e *RecursionLimitError) RuntimeError() string {
	return string(ErrCodeRecursionLimit)
}

// IsRecursionLimit reports whether err is (or wraps) a recursion limit error.
func IsRecursionLimit(err error) bool {
	var rl *RecursionLimitError
	if errors.As(err, &rl) {
		return true
	}
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeRecursionLimit
}

// IsCompileError reports whether err is a compile failure.
func IsCompileError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeCompileFailed
}

// IsLeak reports whether err is a resource leak error.
func IsLeak(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeLeak
}

// NewCompileError creates a RuntimeError for a group no strategy matched.
func NewCompileError(turn int, parent string, ids []int) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeCompileFailed,
		Message:  fmt.Sprintf("no strategy matched statements %v", ids),
		BlockKey: parent,
		Turn:     turn,
	}
}

// NewLeakError creates a RuntimeError for a block that left resources behind.
func NewLeakError(turn int, key string, refs, handlers int) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeLeak,
		Message:  "popped block still owns resources",
		BlockKey: key,
		Turn:     turn,
		Details: map[string]string{
			"memory_refs": fmt.Sprintf("%d", refs),
			"handlers":    fmt.Sprintf("%d", handlers),
		},
	}
}
