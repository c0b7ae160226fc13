package reactive

import "sync"

// PollOps parameterizes a poll-with-callback source over three external
// operations. Get fetches the current value and may block; Subscribe
// registers a notification callback fired whenever the external value may
// have changed; Unsubscribe removes it. Subscribe and Unsubscribe may be nil
// for purely pull-based backends refreshed via Refresh.
type PollOps[T any] struct {
	Get         func() (T, error)
	Subscribe   func(onChange func())
	Unsubscribe func()
}

// PollSource adapts an external, pollable value into a source node. Each
// successful refresh that changes the value publishes under a fresh epoch.
type PollSource[T any] struct {
	n   *node
	mgr *Manager
	ops PollOps[T]

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewPollSource establishes the subscription, then fetches the initial value
// synchronously; the constructor does not return until both are done. If the
// initial fetch fails, the subscription is removed and the error returned.
func NewPollSource[T any](ops PollOps[T], opts ...ObserverOption) (*PollSource[T], error) {
	m := DefaultManager()
	p := &PollSource[T]{mgr: m, ops: ops}
	n := m.newNode(p.refresh, newNodeConfig(opts))
	n.stampEpoch = true
	p.n = n

	// The node enters the evaluating state before the subscription is
	// live, so change notifications arriving mid-construction mark it
	// dirty-again instead of racing the initial fetch.
	m.beginInitial(n)
	if ops.Subscribe != nil {
		ops.Subscribe(func() { m.enqueue(n) })
	}
	if err := m.finishInitial(n); err != nil {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		if ops.Unsubscribe != nil {
			ops.Unsubscribe()
		}
		return nil, err
	}
	return p, nil
}

// refresh is the node evaluator: one guarded call to ops.Get.
func (p *PollSource[T]) refresh() (any, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrSourceClosed
	}
	p.inflight.Add(1)
	p.mu.Unlock()
	defer p.inflight.Done()
	return p.ops.Get()
}

// Refresh queues a re-fetch, as if the external change callback had fired.
func (p *PollSource[T]) Refresh() {
	p.mgr.enqueue(p.n)
}

// Observer returns a reader handle to this source's node.
func (p *PollSource[T]) Observer() *Observer[T] {
	return &Observer[T]{n: p.n}
}

// Close removes the external subscription and joins any in-flight fetch: when
// Close returns, no further ops.Get can start and none is running. Refreshes
// queued during or after Close fail internally with ErrSourceClosed and the
// node retains its last snapshot. Close is idempotent.
func (p *PollSource[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if p.ops.Unsubscribe != nil {
		p.ops.Unsubscribe()
	}
	p.inflight.Wait()
	return nil
}

func (p *PollSource[T]) tagValue(key any) (any, bool) {
	return p.n.tagValue(key)
}
