package reactive

import (
	"runtime"
	"sync/atomic"
)

// nodeConfig collects per-node construction options.
type nodeConfig struct {
	name  string
	tags  map[any]any
	equal func(prev, next any) bool
}

// ObserverOption is a modifier for observer and source construction
type ObserverOption func(*nodeConfig)

// WithName returns an option that names a node, for debugging and graph
// visualization. The name is also available via NameTag.
func WithName(name string) ObserverOption {
	return func(c *nodeConfig) {
		c.name = name
		c.tags[NameTag] = name
	}
}

// WithTag returns an option that attaches metadata to a node
func WithTag[T any](tag Tag[T], val T) ObserverOption {
	return func(c *nodeConfig) {
		c.tags[tag] = val
	}
}

// WithEqual returns an option that overrides the change-detection predicate
// used to decide whether a re-evaluation publishes a new snapshot.
func WithEqual[T any](eq func(prev, next T) bool) ObserverOption {
	return func(c *nodeConfig) {
		c.equal = func(prev, next any) bool {
			p, pok := prev.(T)
			nx, nok := next.(T)
			if !pok || !nok {
				return false
			}
			return eq(p, nx)
		}
	}
}

func newNodeConfig(opts []ObserverOption) *nodeConfig {
	cfg := &nodeConfig{tags: make(map[any]any)}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Observer is a read handle to a node. Observers are cheap to copy and safe
// for concurrent use; GetSnapshot is wait-free in the common case.
type Observer[T any] struct {
	n *node
}

// MakeObserver creates a derived node from an evaluator. The evaluator may
// read any other observers; the set it reads is recorded automatically and
// becomes the node's dependency set, rebuilt on every evaluation.
//
// The initial evaluation runs synchronously before MakeObserver returns, so
// Get is defined from birth; if it fails, the error is returned and no
// observer is returned. The evaluator must be safe to invoke from any worker goroutine
// at arbitrary times. MakeObserver may itself be called from inside another
// evaluator; the nested construction records into its own frame.
func MakeObserver[T any](evaluator func() (T, error), opts ...ObserverOption) (*Observer[T], error) {
	m := DefaultManager()
	n := m.newNode(func() (any, error) { return evaluator() }, newNodeConfig(opts))
	if err := m.initialEvaluate(n); err != nil {
		return nil, err
	}
	return &Observer[T]{n: n}, nil
}

// GetSnapshot returns the node's current snapshot. When called from inside an
// evaluator, the read is recorded as a dependency. A node that is being
// re-evaluated elsewhere contributes its previous published snapshot; reads
// never block on evaluation.
func (o *Observer[T]) GetSnapshot() Snapshot[T] {
	return typedSnapshot[T](o.n.read())
}

// Get returns the current value; shorthand for GetSnapshot().Value().
func (o *Observer[T]) Get() T {
	return o.GetSnapshot().Value()
}

// AddCallback registers fn to be invoked with every newly published snapshot,
// plus once immediately with the current one. Callbacks run on manager
// workers (the immediate invocation runs on the caller); rapid publications
// may coalesce so that only the latest snapshot is delivered.
//
// The subscription stays live while the returned handle is reachable.
// Cancel releases it; an unreachable handle releases it on collection, so
// reassigning a handle variable does not accumulate subscriptions.
func (o *Observer[T]) AddCallback(fn func(Snapshot[T])) *CallbackHandle {
	n := o.n
	sub := n.addSub(func(s *snapshot) { fn(typedSnapshot[T](s)) })
	h := &CallbackHandle{n: n, id: sub.id}
	h.cleanup = runtime.AddCleanup(h, func(ref subRef) { ref.n.removeSub(ref.id) }, subRef{n: n, id: sub.id})
	// The immediate invocation goes through the same per-subscription
	// delivery guard as the notify sweep, so a publish racing this call
	// cannot hand the subscriber the same version twice.
	if s := n.snap.Load(); s != nil {
		sub.deliver(s)
	}
	return h
}

func (o *Observer[T]) tagValue(key any) (any, bool) {
	return o.n.tagValue(key)
}

type subRef struct {
	n  *node
	id uint64
}

// CallbackHandle owns one callback subscription.
type CallbackHandle struct {
	n         *node
	id        uint64
	cancelled atomic.Bool
	cleanup   runtime.Cleanup
}

// Cancel unregisters the callback. No invocation starts after Cancel
// returns, but an invocation already in flight on a worker may still
// complete; callers must tolerate one final concurrent delivery. Cancel is
// safe to call from inside the callback itself, and is idempotent.
func (h *CallbackHandle) Cancel() {
	if h == nil || !h.cancelled.CompareAndSwap(false, true) {
		return
	}
	h.cleanup.Stop()
	h.n.removeSub(h.id)
}
