package runtime

import (
	"context"
	"time"
)

// DefaultTickInterval is the driver's timer resolution.
const DefaultTickInterval = 100 * time.Millisecond

// Driver owns a Runtime and feeds it real-time input. One goroutine runs
// the loop; other goroutines hand it actions through Enqueue. Every tick
// and every queued action is its own turn.
type Driver struct {
	rt       *Runtime
	queue    *inputQueue
	interval time.Duration
}

// NewDriver creates a driver ticking every interval. A non-positive
// interval disables ticks, leaving only queued input.
func NewDriver(rt *Runtime, interval time.Duration) *Driver {
	return &Driver{
		rt:       rt,
		queue:    newInputQueue(),
		interval: interval,
	}
}

// Enqueue schedules a for its own turn. Safe for concurrent use.
// Returns false after the driver stopped.
func (d *Driver) Enqueue(a Action) bool {
	return d.queue.Enqueue(a)
}

// Send schedules an external event, e.g. timer:pause from a button bar.
func (d *Driver) Send(name string, data map[string]any) bool {
	return d.Enqueue(EmitEvent{Name: name, Data: data})
}

// Close stops accepting input. Run drains what is already queued and
// returns.
func (d *Driver) Close() {
	d.queue.Close()
}

// Run starts the workout and loops until it completes, stops, halts, the
// queue is closed, or ctx is cancelled. Cancellation only ends the loop;
// a turn in progress always runs to completion.
func (d *Driver) Run(ctx context.Context) error {
	logger := d.rt.logger
	if d.rt.Status() == StatusIdle {
		if err := d.rt.Start(); err != nil {
			return err
		}
	}
	logger.Info("driver starting", "interval", d.interval.String())

	var tick <-chan time.Time
	if d.interval > 0 {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if d.finished() {
			logger.Info("driver stopping", "status", string(d.rt.Status()))
			d.queue.Close()
			return nil
		}

		if a, ok := d.queue.TryDequeue(); ok {
			if err := d.rt.Submit(a); err != nil {
				d.queue.Close()
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			logger.Info("driver stopping: context cancelled")
			d.queue.Close()
			return ctx.Err()

		case <-tick:
			if err := d.rt.Tick(); err != nil {
				d.queue.Close()
				return err
			}

		case <-d.queue.Wait():
			if d.queue.Closed() && d.queue.Len() == 0 {
				logger.Info("driver stopping: queue closed")
				return nil
			}
		}
	}
}

func (d *Driver) finished() bool {
	switch d.rt.Status() {
	case StatusComplete, StatusStopped, StatusHalted:
		return true
	}
	return false
}
