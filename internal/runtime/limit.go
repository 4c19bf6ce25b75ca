package runtime

// DefaultMaxIterations bounds the number of actions one turn may execute.
const DefaultMaxIterations = 20

// IterationLimiter counts action executions within a turn and enforces the
// configured maximum. It catches runaway action chains, for example a block
// whose next hook keeps pushing children that complete immediately.
type IterationLimiter struct {
	max     int
	current int
}

// NewIterationLimiter creates a limiter allowing max executions per turn.
func NewIterationLimiter(max int) *IterationLimiter {
	if max <= 0 {
		max = DefaultMaxIterations
	}
	return &IterationLimiter{max: max}
}

// Check increments the counter. It returns a *RecursionLimitError once the
// count exceeds the maximum, so exactly max executions are allowed.
func (l *IterationLimiter) Check(turn int, actionType string) error {
	l.current++
	if l.current > l.max {
		return &RecursionLimitError{
			Turn:       turn,
			Iterations: l.current,
			Limit:      l.max,
			ActionType: actionType,
		}
	}
	return nil
}

// Reset zeroes the counter at the start of a turn.
func (l *IterationLimiter) Reset() {
	l.current = 0
}

// Current returns the number of executions in the current turn.
func (l *IterationLimiter) Current() int {
	return l.current
}

// Max returns the configured limit.
func (l *IterationLimiter) Max() int {
	return l.max
}
