package reactive

import (
	"sort"
	"weak"
)

// NodeInfo is an exported point-in-time description of one node, for
// debugging and graph visualization.
type NodeInfo struct {
	ID          uint64
	Name        string
	State       string
	Version     uint64
	RootVersion uint64
	Source      bool
	Failed      bool
	Err         error
}

// GraphSnapshot is a point-in-time export of the live dependency graph.
//
// Dependents maps a node id to the ids of the nodes that read it during
// their last evaluation (the propagation direction); Dependencies is the
// reverse. Nodes that have been collected since their last evaluation are
// pruned from the export.
type GraphSnapshot struct {
	Nodes        []NodeInfo
	Dependents   map[uint64][]uint64
	Dependencies map[uint64][]uint64
}

// GraphSnapshot exports the manager's current dependency graph. Traversal is
// iterative over the registry, not recursive over edges, so arbitrarily deep
// graphs export without stack growth.
func (m *Manager) GraphSnapshot() GraphSnapshot {
	gs := GraphSnapshot{
		Dependents:   make(map[uint64][]uint64),
		Dependencies: make(map[uint64][]uint64),
	}
	var dead []uint64
	m.nodes.Range(func(id uint64, wp weak.Pointer[node]) bool {
		n := wp.Value()
		if n == nil {
			dead = append(dead, id)
			return true
		}
		gs.Nodes = append(gs.Nodes, n.info())
		n.mu.Lock()
		for d := range n.deps {
			gs.Dependents[d.id] = append(gs.Dependents[d.id], n.id)
			gs.Dependencies[n.id] = append(gs.Dependencies[n.id], d.id)
		}
		n.mu.Unlock()
		return true
	})
	for _, id := range dead {
		m.nodes.Delete(id)
	}
	sort.Slice(gs.Nodes, func(i, j int) bool { return gs.Nodes[i].ID < gs.Nodes[j].ID })
	for _, ids := range gs.Dependents {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	for _, ids := range gs.Dependencies {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return gs
}
