package reactive

import (
	"math/rand/v2"
	"sync"
	"time"
)

// ThrottledObserver follows a source observer but republishes at most once
// per interval, coalescing bursts into the latest value. Each delay carries
// a random jitter of up to half the interval so that many throttles created
// together do not republish in lockstep.
type ThrottledObserver[T any] struct {
	out      *Source[T]
	interval time.Duration
	handle   *CallbackHandle

	mu      sync.Mutex
	latest  T
	pending bool
	closed  bool
	timer   *time.Timer
}

// NewThrottledObserver wraps src with a throttle of the given interval. The
// returned adapter's Observer starts at src's current value.
func NewThrottledObserver[T any](src *Observer[T], interval time.Duration, opts ...ObserverOption) *ThrottledObserver[T] {
	init := src.GetSnapshot()
	t := &ThrottledObserver[T]{
		out:      NewSource(init.Value(), opts...),
		interval: interval,
	}
	t.handle = src.AddCallback(func(s Snapshot[T]) {
		if s.Version() <= init.Version() {
			return
		}
		t.observe(s.Value())
	})
	return t
}

func (t *ThrottledObserver[T]) observe(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = v
	if t.closed || t.pending {
		return
	}
	t.pending = true
	t.timer = time.AfterFunc(t.jitteredDelay(), t.flush)
}

func (t *ThrottledObserver[T]) jitteredDelay() time.Duration {
	d := t.interval
	if half := d / 2; half > 0 {
		d += rand.N(half)
	}
	return d
}

func (t *ThrottledObserver[T]) flush() {
	t.mu.Lock()
	t.pending = false
	v := t.latest
	closed := t.closed
	t.mu.Unlock()
	if !closed {
		t.out.Set(v)
	}
}

// Observer returns the throttled reader handle.
func (t *ThrottledObserver[T]) Observer() *Observer[T] {
	return t.out.Observer()
}

// Close detaches from the source and stops any pending republication.
func (t *ThrottledObserver[T]) Close() {
	t.handle.Cancel()
	t.mu.Lock()
	t.closed = true
	timer := t.timer
	t.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}
