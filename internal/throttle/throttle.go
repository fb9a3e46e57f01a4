// Package throttle coalesces bursts of calls into trailing-edge invocations.
package throttle

import (
	"sync"
	"time"
)

// Throttler runs a callback at most once per interval with the value passed
// to the most recent Call. The first Call in a quiet period opens a window;
// calls inside the window only replace the pending value, and the callback
// fires with that value when the window closes.
//
// All methods are safe for concurrent use. The callback never runs
// concurrently with itself from the same Throttler.
type Throttler[T any] struct {
	mu       sync.Mutex
	interval time.Duration
	callback func(T)

	timer   *time.Timer
	pending bool
	value   T
	seq     uint64 // invalidates timers that were cancelled or flushed
	stopped bool

	run sync.Mutex // serializes callback invocations
}

// New creates a throttler that calls fn at most once per interval.
func New[T any](interval time.Duration, fn func(T)) *Throttler[T] {
	return &Throttler[T]{
		interval: interval,
		callback: fn,
	}
}

// Call records v as the pending value and opens a window if none is open.
// Calls after Stop are ignored.
func (t *Throttler[T]) Call(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.value = v
	t.pending = true
	if t.timer != nil {
		return
	}

	t.seq++
	seq := t.seq
	t.timer = time.AfterFunc(t.interval, func() {
		t.fire(seq)
	})
}

func (t *Throttler[T]) fire(seq uint64) {
	t.mu.Lock()
	if seq != t.seq || !t.pending {
		t.mu.Unlock()
		return
	}
	v := t.take()
	t.mu.Unlock()

	t.invoke(v)
}

// take clears the pending state and returns the value (must hold lock).
func (t *Throttler[T]) take() T {
	v := t.value
	var zero T
	t.value = zero
	t.pending = false
	t.timer = nil
	return v
}

func (t *Throttler[T]) invoke(v T) {
	t.run.Lock()
	defer t.run.Unlock()
	t.callback(v)
}

// Flush runs the pending call immediately, if any, and closes the window.
// It reports whether a call was made.
func (t *Throttler[T]) Flush() bool {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.seq++
	if !t.pending {
		t.timer = nil
		t.mu.Unlock()
		return false
	}
	v := t.take()
	t.mu.Unlock()

	t.invoke(v)
	return true
}

// Cancel drops the pending call. A callback that is already running is not
// interrupted.
func (t *Throttler[T]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.seq++
	t.take()
}

// Stop drops the pending call and makes every later Call a no-op.
func (t *Throttler[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.seq++
	t.take()
}

// Pending reports whether a call is waiting for its window to close.
func (t *Throttler[T]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}
