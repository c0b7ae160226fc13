package reactive

// Source is an externally writable leaf node.
type Source[T any] struct {
	n *node
}

// NewSource creates a source holding initial. Its observer publishes the
// initial value at version 1, epoch 0 (initial values predate the first
// update).
func NewSource[T any](initial T, opts ...ObserverOption) *Source[T] {
	m := DefaultManager()
	n := m.newNode(nil, newNodeConfig(opts))
	n.mu.Lock()
	n.publishLocked(initial, 0)
	n.mu.Unlock()
	return &Source[T]{n: n}
}

// NewSourceDefault creates a source holding T's zero value.
func NewSourceDefault[T any](opts ...ObserverOption) *Source[T] {
	var zero T
	return NewSource(zero, opts...)
}

// Set publishes v with an incremented version, stamps a fresh global epoch,
// and queues propagation to dependents. Set is non-blocking: dependents
// re-evaluate on manager workers. Rapid Sets coalesce; dependents observe
// the latest value, and after WaitForAllUpdates returns every dependent has
// seen a version at least as new as the last Set.
//
// A Set always publishes, even when v equals the prior value; use
// MakeValueObserver downstream to suppress no-op updates.
func (s *Source[T]) Set(v T) {
	n := s.n
	m := n.mgr
	op := &Operation{Kind: OpSet, Node: n.info(), Manager: m}
	m.runWrapped(op, func() (any, error) {
		n.mu.Lock()
		epoch := m.epoch.Add(1)
		n.publishLocked(v, epoch)
		n.mu.Unlock()
		m.enqueue(n)
		return nil, nil
	})
}

// Observer returns a reader handle to this source's node.
func (s *Source[T]) Observer() *Observer[T] {
	return &Observer[T]{n: s.n}
}

func (s *Source[T]) tagValue(key any) (any, bool) {
	return s.n.tagValue(key)
}
