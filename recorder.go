package reactive

import (
	"github.com/petermattis/goid"
	"github.com/puzpuzpuz/xsync/v4"
)

// The dependency recorder captures which nodes an evaluator reads. The
// manager pushes a frame onto the calling goroutine's stack before invoking
// the evaluator; node.read records into the top frame. Nested frames support
// re-entrant construction: MakeObserver invoked from inside another evaluator
// records into its own frame and leaves the outer one untouched.
//
// Frames are keyed by goroutine id so that snapshot reads on unrelated
// goroutines are never recorded.
var evalFrames = xsync.NewMap[int64, *evalFrame]()

type evalFrame struct {
	nodeID uint64
	reads  map[*node]readRecord
	prev   *evalFrame
}

type readRecord struct {
	version     uint64
	rootVersion uint64
}

func (f *evalFrame) record(n *node, s *snapshot) {
	if s == nil {
		return
	}
	f.reads[n] = readRecord{version: s.version, rootVersion: s.rootVersion}
}

func pushFrame(f *evalFrame) {
	gid := goid.Get()
	if top, ok := evalFrames.Load(gid); ok {
		f.prev = top
	}
	evalFrames.Store(gid, f)
}

func popFrame() {
	gid := goid.Get()
	top, ok := evalFrames.Load(gid)
	if !ok {
		return
	}
	if top.prev != nil {
		evalFrames.Store(gid, top.prev)
		top.prev = nil
	} else {
		evalFrames.Delete(gid)
	}
}

// currentFrame returns the active recorder frame for this goroutine, nil when
// no evaluation is in progress here.
func currentFrame() *evalFrame {
	f, _ := evalFrames.Load(goid.Get())
	return f
}
