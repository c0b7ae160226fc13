// Package reactive provides a value-propagation engine for directed acyclic
// graphs of observed values: change a source, and every transitive dependent
// is recomputed incrementally on a worker pool.
//
// # Overview
//
// The engine organizes code around three core concepts:
//
//  1. Sources: externally writable leaf nodes
//  2. Observers: derived nodes computed by pure evaluators over other nodes
//  3. Snapshots: immutable, versioned views of one published value
//
// # Basic Usage
//
// Create a source and derive observers from it:
//
//	s := reactive.NewSource(42)
//	so := s.Observer()
//
//	d, err := reactive.MakeObserver(func() (int, error) {
//	    return so.Get() + 1, nil
//	})
//
//	d.Get() // 43
//
//	s.Set(24)
//	reactive.WaitForAllUpdates()
//	d.Get() // 25
//
// # Automatic Dependency Tracking
//
// An evaluator does not declare its inputs. While it runs, every snapshot it
// reads is recorded by a per-goroutine dependency recorder, and the recorded
// set becomes the node's dependency set, rebuilt on each evaluation. A
// conditional read therefore tracks precisely:
//
//	d, _ := reactive.MakeObserver(func() (int, error) {
//	    if mode.Get() == "a" {
//	        return a.Get(), nil // depends on mode and a
//	    }
//	    return b.Get(), nil // depends on mode and b
//	})
//
// MakeObserver may be called from inside another evaluator; the nested
// construction records into its own frame and does not disturb the outer
// dependency set.
//
// # Update Propagation
//
// Set publishes a new snapshot, stamps a fresh global epoch, and enqueues the
// source into the manager's dirty queue. Workers drain the queue: each popped
// node is re-evaluated, and when the result differs from its prior value a
// new snapshot is published and all dependents are enqueued in turn. Enqueues
// of an already-queued node collapse, so bursts of updates coalesce into a
// bounded amount of recomputation while still converging on the latest
// values. WaitForAllUpdates blocks until the queue is empty and no worker is
// evaluating.
//
// Reads never block on evaluation: GetSnapshot is an atomic load of the
// latest published snapshot. A node that is mid-evaluation elsewhere simply
// contributes its previous value, which is also what keeps accidental
// dependency cycles live-lock free: once the cycle reaches a fixed point,
// publish-if-changed stops the churn.
//
// # Callbacks
//
// Subscribe to publications with AddCallback:
//
//	handle := d.AddCallback(func(s reactive.Snapshot[int]) {
//	    fmt.Println("new value:", s.Value())
//	})
//	defer handle.Cancel()
//
// The callback fires once immediately with the current snapshot, then on
// every publication. Cancelling is safe from inside the callback; a handle
// that becomes unreachable cancels itself.
//
// # Failure Semantics
//
// An evaluator that returns an error (or panics) does not publish: the node
// keeps its prior snapshot, dependents are not re-evaluated, and the next
// dirty-trigger retries. Only a failure of the very first evaluation
// surfaces to the caller, as an error from MakeObserver.
//
// # Sources With External Backends
//
// NewPollSource adapts an external value that must be fetched: it is
// parameterized by a Get/Subscribe/Unsubscribe triple, fetches synchronously
// on construction and on every change notification, and joins any in-flight
// fetch on Close.
//
// # Adapters
//
// Thin layers over the core cover common read patterns:
//
//   - MakeValueObserver: republish only on value change (equality filter)
//   - NewAtomicObserver: single-atomic-load reads of the latest value
//   - NewCachedObserver: per-goroutine snapshot cache
//   - NewThrottledObserver: rate-limited republication with jitter
//   - Unwrap: flatten an observer-of-observer selection
//
// # Extensions
//
// Extensions hook the update lifecycle through the manager: Wrap intercepts
// every evaluation and source update, OnError observes failures. The
// extensions subpackage ships structured logging and dependency-graph
// visualization built on these hooks.
//
// # Thread Safety
//
// All operations are thread-safe:
//   - Sources may be Set from any goroutine; Set does not block
//   - Observers may be read concurrently; snapshot reads are wait-free
//   - Evaluation of a single node is serialized; distinct nodes evaluate in
//     parallel on distinct workers
package reactive
