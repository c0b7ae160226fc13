package reactive

import "sync"

// poolManager reuses the transient allocations of the hot evaluation path:
// recorder frames and callback dispatch buffers.
type poolManager struct {
	framePool  sync.Pool
	subBufPool sync.Pool

	metrics poolMetrics
}

type poolMetrics struct {
	mu          sync.Mutex
	frameHits   uint64
	frameMisses uint64
	bufHits     uint64
	bufMisses   uint64
}

func newPoolManager() *poolManager {
	return &poolManager{}
}

func (pm *poolManager) acquireFrame(nodeID uint64) *evalFrame {
	f, _ := pm.framePool.Get().(*evalFrame)
	if f != nil {
		clear(f.reads)
		f.nodeID = nodeID
		pm.metrics.mu.Lock()
		pm.metrics.frameHits++
		pm.metrics.mu.Unlock()
		return f
	}
	pm.metrics.mu.Lock()
	pm.metrics.frameMisses++
	pm.metrics.mu.Unlock()
	return &evalFrame{nodeID: nodeID, reads: make(map[*node]readRecord, 8)}
}

func (pm *poolManager) releaseFrame(f *evalFrame) {
	if f == nil {
		return
	}
	f.nodeID = 0
	f.prev = nil
	pm.framePool.Put(f)
}

func (pm *poolManager) acquireSubBuf() []*subscription {
	buf, _ := pm.subBufPool.Get().([]*subscription)
	if buf != nil {
		pm.metrics.mu.Lock()
		pm.metrics.bufHits++
		pm.metrics.mu.Unlock()
		return buf[:0]
	}
	pm.metrics.mu.Lock()
	pm.metrics.bufMisses++
	pm.metrics.mu.Unlock()
	return make([]*subscription, 0, 8)
}

func (pm *poolManager) releaseSubBuf(buf []*subscription) {
	if buf == nil {
		return
	}
	for i := range buf {
		buf[i] = nil
	}
	//nolint:staticcheck // slice is rebound via [:0] on acquire
	pm.subBufPool.Put(buf[:0])
}

var globalPools = newPoolManager()
