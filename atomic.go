package reactive

import "sync/atomic"

// AtomicObserver caches the latest value of an observer behind a single
// atomic pointer. Get is one atomic load with no snapshot bookkeeping, for
// hot paths that read a scalar far more often than it changes.
type AtomicObserver[T any] struct {
	obs     *Observer[T]
	current atomic.Pointer[T]
	handle  *CallbackHandle
}

// NewAtomicObserver subscribes to src and mirrors its publications into the
// atomic cell. The cell is primed synchronously before this returns.
func NewAtomicObserver[T any](src *Observer[T]) *AtomicObserver[T] {
	a := &AtomicObserver[T]{obs: src}
	a.handle = src.AddCallback(func(s Snapshot[T]) {
		v := s.Value()
		a.current.Store(&v)
	})
	return a
}

// Get returns the most recently published value.
func (a *AtomicObserver[T]) Get() T {
	return *a.current.Load()
}

// Observer returns the underlying observer handle.
func (a *AtomicObserver[T]) Observer() *Observer[T] {
	return a.obs
}

// Close stops mirroring. A delivery already in flight may still land.
func (a *AtomicObserver[T]) Close() {
	a.handle.Cancel()
}
