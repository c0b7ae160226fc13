package reactive

import (
	"github.com/petermattis/goid"
	"github.com/puzpuzpuz/xsync/v4"
)

// CachedObserver keeps a per-goroutine copy of the typed snapshot, refreshed
// only when the node has published a newer version. Repeated reads from one
// goroutine reuse the cached conversion instead of re-materializing it.
type CachedObserver[T any] struct {
	obs   *Observer[T]
	cache *xsync.Map[int64, Snapshot[T]]
}

// NewCachedObserver wraps src with a per-goroutine snapshot cache.
func NewCachedObserver[T any](src *Observer[T]) *CachedObserver[T] {
	return &CachedObserver[T]{
		obs:   src,
		cache: xsync.NewMap[int64, Snapshot[T]](),
	}
}

// GetSnapshot returns the current snapshot, serving it from this goroutine's
// cache when still fresh. Reads are recorded as dependencies like any other.
func (c *CachedObserver[T]) GetSnapshot() Snapshot[T] {
	s := c.obs.n.read()
	gid := goid.Get()
	if cached, ok := c.cache.Load(gid); ok && cached.Version() == s.version {
		return cached
	}
	typed := typedSnapshot[T](s)
	c.cache.Store(gid, typed)
	return typed
}

// Get returns the current value; shorthand for GetSnapshot().Value().
func (c *CachedObserver[T]) Get() T {
	return c.GetSnapshot().Value()
}

// Observer returns the underlying observer handle.
func (c *CachedObserver[T]) Observer() *Observer[T] {
	return c.obs
}
