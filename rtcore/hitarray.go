package rtcore

import (
	"sync"

	"github.com/sarchlab/arches/bvh"
)

// GlobalHitArray is the simplest implementation of HitArray: a flat
// slice of best-hit-so-far records, one per in-flight global ray id,
// guarded by a mutex so it can be shared safely across unit groups. It
// backs the early-termination mode of spec.md §4.6 ("early termination
// via global hit record").
type GlobalHitArray struct {
	mu   sync.Mutex
	hits []bvh.Hit
}

// NewGlobalHitArray builds a GlobalHitArray sized for capacity distinct
// global ray ids.
func NewGlobalHitArray(capacity int) *GlobalHitArray {
	return &GlobalHitArray{hits: make([]bvh.Hit, capacity)}
}

func (h *GlobalHitArray) ReadHit(globalID uint32) bvh.Hit {
	h.mu.Lock()
	defer h.mu.Unlock()
	if int(globalID) >= len(h.hits) {
		return bvh.Hit{}
	}
	return h.hits[globalID]
}

func (h *GlobalHitArray) WriteHit(globalID uint32, hit bvh.Hit) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if int(globalID) >= len(h.hits) {
		return
	}
	if !hit.Found {
		return
	}
	cur := h.hits[globalID]
	if !cur.Found || hit.T < cur.T {
		h.hits[globalID] = hit
	}
}
