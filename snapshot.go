package reactive

// snapshot is the type-erased immutable record a node publishes. Readers
// obtain it via an atomic pointer load; a newer snapshot may be published
// concurrently, but a copy already obtained stays valid.
type snapshot struct {
	value       any
	version     uint64
	rootVersion uint64
	nodeID      uint64
}

// Snapshot is an immutable view of one published value of a node, together
// with the node's version metadata.
//
// Version increments every time the node publishes a new value.
// RootVersion is the highest update epoch of any source that contributed to
// this value; a reader that observes RootVersion >= E has incorporated every
// source update up to epoch E along this node's dependency paths.
type Snapshot[T any] struct {
	value       T
	version     uint64
	rootVersion uint64
	nodeID      uint64
}

// Value returns the published value.
func (s Snapshot[T]) Value() T {
	return s.value
}

// Version returns the node-local publication counter.
func (s Snapshot[T]) Version() uint64 {
	return s.version
}

// RootVersion returns the highest contributing source epoch.
func (s Snapshot[T]) RootVersion() uint64 {
	return s.rootVersion
}

// NodeID returns the stable id of the publishing node.
func (s Snapshot[T]) NodeID() uint64 {
	return s.nodeID
}

func typedSnapshot[T any](s *snapshot) Snapshot[T] {
	return Snapshot[T]{
		value:       s.value.(T),
		version:     s.version,
		rootVersion: s.rootVersion,
		nodeID:      s.nodeID,
	}
}
