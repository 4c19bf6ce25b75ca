package runtime

import (
	"sync"
)

// inputQueue is a thread-safe FIFO of actions waiting for their own turn.
//
// Producers are presentation layers on other goroutines; the driver loop is
// the only consumer. The signal channel lets the loop wait on the queue and
// a context at the same time.
type inputQueue struct {
	mu      sync.Mutex
	actions []Action
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newInputQueue() *inputQueue {
	return &inputQueue{
		actions: make([]Action, 0, 16),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds a to the back of the queue. Returns false once closed.
func (q *inputQueue) Enqueue(a Action) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.actions = append(q.actions, a)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front action without blocking.
func (q *inputQueue) TryDequeue() (Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return nil, false
	}
	a := q.actions[0]
	q.actions[0] = nil
	if len(q.actions) == 1 {
		q.actions = q.actions[:0]
	} else {
		q.actions = q.actions[1:]
	}
	return a, true
}

// Wait returns a channel that fires when actions may be available.
// It is closed once the queue is closed.
func (q *inputQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued actions.
func (q *inputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Close rejects further enqueues and wakes any waiter.
func (q *inputQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *inputQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
