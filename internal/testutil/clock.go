package testutil

import (
	"strconv"
	"sync"
	"time"
)

// Epoch is the default start time of a ManualClock.
var Epoch = time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)

// ManualClock is a clock that only moves when told to.
//
// It also counts reads, which lets tests verify that the runtime reads the
// clock once per turn.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu    sync.Mutex
	now   time.Time
	reads int
}

// NewManualClock creates a clock at start. A zero start means Epoch.
func NewManualClock(start time.Time) *ManualClock {
	if start.IsZero() {
		start = Epoch
	}
	return &ManualClock{now: start}
}

// Now returns the current reading.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	return c.now
}

// Advance moves the clock forward by d and returns the new reading.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Reads returns how many times Now has been called.
func (c *ManualClock) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// SequentialKeys generates block keys "<prefix>-1", "<prefix>-2", ...
// The same scenario with the same generator yields identical keys, which
// keeps golden traces byte-stable.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialKeys struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialKeys creates a generator. An empty prefix means "block".
func NewSequentialKeys(prefix string) *SequentialKeys {
	if prefix == "" {
		prefix = "block"
	}
	return &SequentialKeys{prefix: prefix}
}

// Next returns the next key.
func (k *SequentialKeys) Next() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.n++
	return k.prefix + "-" + strconv.Itoa(k.n)
}

// Reset restarts numbering at 1.
func (k *SequentialKeys) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.n = 0
}

