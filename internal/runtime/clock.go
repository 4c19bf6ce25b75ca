package runtime

import "time"

// Clock is the runtime's time source. It is read once at the start of each
// turn; everything inside the turn sees that frozen reading.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}
