package reactive

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/gammazero/deque"
	"github.com/puzpuzpuz/xsync/v4"
)

// Manager is the process-wide update scheduler. It owns the dirty queue, the
// worker pool, the global update epoch, and the quiescence barrier.
//
// One manager exists per process; it lazy-initializes on first Source or
// observer construction (see DefaultManager) and lives until process exit.
type Manager struct {
	mu         sync.Mutex
	cond       *sync.Cond
	queue      deque.Deque[*node]
	tasks      deque.Deque[func()]
	active     int
	taskActive bool
	disposed   bool

	epoch     atomic.Uint64
	idCounter atomic.Uint64

	extMu      sync.RWMutex
	extensions []Extension

	// nodes holds weak references to every live node, for graph export.
	nodes *xsync.Map[uint64, weak.Pointer[node]]

	workers int
	wg      sync.WaitGroup
}

var (
	defaultManagerOnce sync.Once
	defaultManagerInst *Manager
)

// DefaultManager returns the process-wide manager, initializing it on first
// use. There is no API to reset it; it is torn down with the process.
func DefaultManager() *Manager {
	defaultManagerOnce.Do(func() {
		defaultManagerInst = newManager(defaultWorkerCount())
	})
	return defaultManagerInst
}

// WaitForAllUpdates blocks until the default manager is quiescent.
func WaitForAllUpdates() {
	DefaultManager().WaitForAllUpdates()
}

// RunOnManagerThread schedules fn on a worker of the default manager.
func RunOnManagerThread(fn func()) {
	DefaultManager().RunOnManagerThread(fn)
}

func defaultWorkerCount() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return n
}

func newManager(workers int) *Manager {
	if workers < 1 {
		workers = 1
	}
	m := &Manager{
		workers: workers,
		nodes:   xsync.NewMap[uint64, weak.Pointer[node]](),
	}
	m.cond = sync.NewCond(&m.mu)
	m.wg.Add(workers)
	for range workers {
		go m.worker()
	}
	return m
}

// Epoch returns the current global update epoch. Each top-level source update
// increments it.
func (m *Manager) Epoch() uint64 {
	return m.epoch.Load()
}

// CurrentlyEvaluating returns the id of the node whose evaluator is running
// on the calling goroutine, if any.
func (m *Manager) CurrentlyEvaluating() (uint64, bool) {
	if f := currentFrame(); f != nil {
		return f.nodeID, true
	}
	return 0, false
}

// UseExtension registers an extension; extensions wrap every evaluation and
// source update in Order() order.
func (m *Manager) UseExtension(ext Extension) error {
	m.extMu.Lock()
	m.extensions = append(m.extensions, ext)
	sort.SliceStable(m.extensions, func(i, j int) bool {
		return m.extensions[i].Order() < m.extensions[j].Order()
	})
	m.extMu.Unlock()

	return ext.Init(m)
}

// WaitForAllUpdates blocks until the dirty queue is empty and no worker is
// evaluating. It must not be called from inside an evaluator: doing so would
// deadlock, and panics with ErrQuiescenceFromEvaluator instead.
func (m *Manager) WaitForAllUpdates() {
	if currentFrame() != nil {
		panic(ErrQuiescenceFromEvaluator)
	}
	m.mu.Lock()
	for !m.disposed && (m.queue.Len() > 0 || m.tasks.Len() > 0 || m.active > 0) {
		m.cond.Wait()
	}
	m.mu.Unlock()
}

// RunOnManagerThread schedules a one-shot task on a worker. The task starts
// only when no worker is evaluating a node, and no worker pops a node until it
// completes, so it may read any observer without tearing mid-propagation
// state. Initial evaluations that MakeObserver and NewPollSource run on the
// calling goroutine are not counted and may overlap the task.
func (m *Manager) RunOnManagerThread(fn func()) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.tasks.PushBack(fn)
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Dispose stops the workers and runs extension teardown. The default manager
// is never disposed; this exists for embedded/test managers.
func (m *Manager) Dispose() error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return ErrManagerDisposed
	}
	m.disposed = true
	m.cond.Broadcast()
	m.mu.Unlock()
	m.wg.Wait()

	m.extMu.RLock()
	exts := make([]Extension, len(m.extensions))
	copy(exts, m.extensions)
	m.extMu.RUnlock()

	for _, ext := range exts {
		if err := ext.Dispose(m); err != nil {
			return fmt.Errorf("disposing extension %s: %w", ext.Name(), err)
		}
	}
	return nil
}

func (m *Manager) newNode(evaluator func() (any, error), cfg *nodeConfig) *node {
	n := &node{
		id:         m.idCounter.Add(1),
		mgr:        m,
		evaluator:  evaluator,
		equal:      defaultEqual,
		deps:       make(map[*node]uint64),
		dependents: make(map[uint64]weak.Pointer[node]),
		tags:       make(map[any]any),
	}
	if cfg != nil {
		n.name = cfg.name
		if cfg.equal != nil {
			n.equal = cfg.equal
		}
		for k, v := range cfg.tags {
			n.tags[k] = v
		}
	}
	m.nodes.Store(n.id, weak.Make(n))
	return n
}

// enqueue marks a node dirty and queues it. Idempotent: enqueues of an
// already-queued node collapse, and enqueues during evaluation mark the node
// dirty-again so it is re-queued on completion.
func (m *Manager) enqueue(n *node) {
	n.mu.Lock()
	switch n.state {
	case nodeDirty, nodeEvaluatingDirty:
		n.mu.Unlock()
		return
	case nodeEvaluating:
		n.state = nodeEvaluatingDirty
		n.mu.Unlock()
		return
	default:
		n.state = nodeDirty
	}
	n.mu.Unlock()
	m.push(n)
}

func (m *Manager) push(n *node) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.queue.PushBack(n)
	m.cond.Broadcast()
	m.mu.Unlock()
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		m.mu.Lock()
		var task func()
		var n *node
		for {
			if m.disposed {
				m.mu.Unlock()
				return
			}
			// A task runs only while no worker is evaluating a node, and
			// holds off further pops until it completes. Pending tasks
			// also pause node pops so the pool can drain to zero.
			if !m.taskActive {
				if m.tasks.Len() > 0 {
					if m.active == 0 {
						task = m.tasks.PopFront()
						m.taskActive = true
						break
					}
				} else if m.queue.Len() > 0 {
					n = m.queue.PopFront()
					break
				}
			}
			m.cond.Wait()
		}
		m.active++
		m.mu.Unlock()

		if task != nil {
			task()
		} else {
			m.process(n)
		}

		m.mu.Lock()
		m.active--
		if task != nil {
			m.taskActive = false
		}
		m.cond.Broadcast()
		m.mu.Unlock()
	}
}

// process handles one popped dirty node.
func (m *Manager) process(n *node) {
	n.mu.Lock()
	if n.state != nodeDirty {
		n.mu.Unlock()
		return
	}
	n.state = nodeEvaluating
	n.mu.Unlock()

	if n.evaluator == nil {
		// Set-value source: the snapshot was already published by Set;
		// this pass propagates it.
		m.fanOut(n)
		m.finish(n, nil)
		return
	}
	if n.depsUnchanged() {
		m.finish(n, nil)
		return
	}
	m.finish(n, m.evaluate(n, false))
}

// finish completes an evaluation pass, re-queueing the node when enqueues
// arrived mid-evaluation.
func (m *Manager) finish(n *node, err error) {
	var requeue bool
	n.mu.Lock()
	requeue = n.state == nodeEvaluatingDirty
	if err != nil {
		n.lastErr = err
		n.lastFailed = true
		n.state = nodeFailed
	} else {
		n.lastErr = nil
		n.lastFailed = false
		n.state = nodeFresh
	}
	if requeue {
		n.state = nodeDirty
	}
	n.mu.Unlock()
	if requeue {
		m.push(n)
	}
}

func (m *Manager) beginInitial(n *node) {
	n.mu.Lock()
	n.state = nodeEvaluating
	n.mu.Unlock()
}

func (m *Manager) finishInitial(n *node) error {
	err := m.evaluate(n, true)
	m.finish(n, err)
	return err
}

// initialEvaluate runs a node's first evaluation synchronously on the caller
// goroutine, so the observer's value is defined from birth.
func (m *Manager) initialEvaluate(n *node) error {
	m.beginInitial(n)
	return m.finishInitial(n)
}

// evaluate runs the evaluator under a fresh recorder frame, swaps in the
// recorded dependency set, and publishes the result when it differs from the
// prior snapshot.
func (m *Manager) evaluate(n *node, initial bool) error {
	op := &Operation{Kind: OpEvaluate, Node: n.info(), Manager: m}

	frame := globalPools.acquireFrame(n.id)
	pushFrame(frame)
	value, err := m.invoke(n, op)
	popFrame()

	if err == nil && isNilResult(value) {
		err = ErrNilResult
	}
	if err != nil {
		globalPools.releaseFrame(frame)
		var ee *EvaluationError
		if !errors.As(err, &ee) {
			err = newEvaluationError(n, err, initial)
		}
		m.notifyError(err, op)
		return err
	}

	var root uint64
	newDeps := make(map[*node]uint64, len(frame.reads))
	for d, r := range frame.reads {
		if d == n {
			continue
		}
		newDeps[d] = r.version
		if r.rootVersion > root {
			root = r.rootVersion
		}
	}
	globalPools.releaseFrame(frame)

	n.mu.Lock()
	old := n.deps
	n.deps = newDeps
	n.evaluated = true
	n.mu.Unlock()

	for d := range newDeps {
		if _, ok := old[d]; !ok {
			d.addDependent(n)
		}
	}
	for d := range old {
		if _, ok := newDeps[d]; !ok {
			d.removeDependent(n.id)
		}
	}

	prev := n.snap.Load()
	if prev == nil || !n.equal(prev.value, value) {
		if n.stampEpoch {
			// Poll-source refreshes are source updates in their own right.
			root = m.epoch.Add(1)
		}
		n.mu.Lock()
		s := n.publishLocked(value, root)
		n.mu.Unlock()
		if !initial {
			m.fanOutSnapshot(n, s)
		}
	}

	// A dependency may have published between the evaluator's read and the
	// back-link registration above, in which case its fan-out missed this
	// node. Re-queue rather than miss the update.
	stale := false
	n.mu.Lock()
	for d, ver := range n.deps {
		if s := d.snap.Load(); s == nil || s.version != ver {
			stale = true
			break
		}
	}
	n.mu.Unlock()
	if stale {
		m.enqueue(n)
	}
	return nil
}

// invoke runs the evaluator through the extension chain, converting panics
// into errors.
func (m *Manager) invoke(n *node, op *Operation) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			if e, ok := r.(error); ok {
				err = fmt.Errorf("evaluator panic: %w", e)
			} else {
				err = fmt.Errorf("evaluator panic: %v", r)
			}
		}
	}()
	return m.runWrapped(op, n.evaluator)
}

func (m *Manager) runWrapped(op *Operation, next func() (any, error)) (any, error) {
	m.extMu.RLock()
	exts := m.extensions
	m.extMu.RUnlock()

	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) {
			return ext.Wrap(context.Background(), currentNext, op)
		}
	}
	return next()
}

func (m *Manager) notifyError(err error, op *Operation) {
	m.extMu.RLock()
	exts := m.extensions
	m.extMu.RUnlock()
	for _, ext := range exts {
		ext.OnError(err, op, m)
	}
}

func (m *Manager) fanOut(n *node) {
	if s := n.snap.Load(); s != nil {
		m.fanOutSnapshot(n, s)
	}
}

// fanOutSnapshot enqueues every live dependent and delivers callbacks.
func (m *Manager) fanOutSnapshot(n *node, s *snapshot) {
	for _, d := range n.collectDependents() {
		m.enqueue(d)
	}
	n.notify(s)
}
