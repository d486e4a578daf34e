package explorer

import (
	"sync"
	"time"
)

// CancelFunc cancels a scheduled callback if it has not fired yet
type CancelFunc func()

// Scheduler defers a callback by a delay. The timer implementation is
// used in production; tests substitute a manual implementation so that
// debounce behavior is deterministic without real timers.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) CancelFunc
}

// TimerScheduler schedules callbacks on real timers
type TimerScheduler struct{}

// Schedule runs fn after delay unless cancelled first
func (TimerScheduler) Schedule(delay time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}

// Debouncer collapses rapid repeated triggers into a single callback at
// the end of the window. Each trigger cancels the pending one, so N
// triggers inside a window produce exactly one invocation.
type Debouncer struct {
	mu     sync.Mutex
	sched  Scheduler
	window time.Duration
	cancel CancelFunc
}

// NewDebouncer creates a debouncer over the given scheduler
func NewDebouncer(sched Scheduler, window time.Duration) *Debouncer {
	return &Debouncer{sched: sched, window: window}
}

// Trigger arms the debouncer with fn, replacing any pending callback
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	d.cancel = d.sched.Schedule(d.window, func() {
		d.mu.Lock()
		d.cancel = nil
		d.mu.Unlock()
		fn()
	})
}

// Stop cancels any pending callback
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
