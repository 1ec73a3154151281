package stream

import (
	"fmt"

	"github.com/sarchlab/arches/cache"
	"github.com/sarchlab/arches/interconnect"
	"github.com/sarchlab/arches/sim"
	"github.com/sarchlab/arches/transaction"
)

// SceneBufferConfig configures a SceneBuffer.
type SceneBufferConfig struct {
	NumSlots        int    `yaml:"num_slots"`         // K treelets
	TreeletBaseAddr uint64 `yaml:"treelet_base_addr"` // same base the streaming RT core addresses into
	TreeletStride   uint64 `yaml:"treelet_stride"`    // byte span reserved per treelet slot
	BlockSize       int    `yaml:"block_size"`
	LeadingBlocks   int    `yaml:"leading_blocks"` // dynamic-prefetch mode: blocks fetched eagerly
	DynamicPrefetch bool   `yaml:"dynamic_prefetch"`
}

type sbSlot struct {
	allocated  bool
	segmentID  uint32
	blockCount int
	valid      []bool
	pending    map[int]bool // blocks with an in-flight fetch (half-miss suppression)
}

// SceneBuffer is the on-chip treelet cache of spec.md §4.8: it presents
// the same memory-port contract a cache bank does to the streaming RT
// core, while a side channel (Prefetch/IsPrefetchComplete/Retire) lets
// the stream scheduler drive slot allocation directly.
type SceneBuffer struct {
	sim.UnitBase

	kernel *sim.Kernel
	cfg    SceneBufferConfig
	lower  cache.Higher

	slots    []sbSlot
	allocMap map[uint32]int

	in  *interconnect.FIFOArray[transaction.Request]
	out *interconnect.RegisterArray[transaction.Return]

	prefetchDone map[uint32]bool
	inFlight     map[uint64]blockRef
	fetchQueue   []fetchJob
}

// fetchJob is a queued (not yet issued) block fetch. issueFetches sends
// queued jobs to the lower memory level while it accepts them and keeps
// the rest queued.
type fetchJob struct {
	slot  int
	block int
}

// blockRef names the slot and block a fetch in flight belongs to,
// keyed by the fetch's physical address (Reg is too narrow — 16 bits —
// to carry both fields once NumSlots grows past a handful).
type blockRef struct {
	slot  int
	block int
}

// NewSceneBuffer builds a SceneBuffer and registers it with kernel.
func NewSceneBuffer(kernel *sim.Kernel, name string, cfg SceneBufferConfig, lower cache.Higher, inDepth int) *SceneBuffer {
	b := &SceneBuffer{
		kernel:       kernel,
		cfg:          cfg,
		lower:        lower,
		slots:        make([]sbSlot, cfg.NumSlots),
		allocMap:     make(map[uint32]int),
		in:           interconnect.NewFIFOArray[transaction.Request](1, inDepth),
		out:          interconnect.NewRegisterArray[transaction.Return](1),
		prefetchDone: make(map[uint32]bool),
		inFlight:     make(map[uint64]blockRef),
	}
	id := kernel.RegisterUnit(b)
	b.InitUnitBase(id, name)
	return b
}

func (b *SceneBuffer) Reset() {
	for i := range b.slots {
		b.slots[i] = sbSlot{}
	}
	b.allocMap = make(map[uint32]int)
	b.prefetchDone = make(map[uint32]bool)
	b.inFlight = make(map[uint64]blockRef)
	b.fetchQueue = nil
}

// --- cache.Higher contract, consumed by the streaming RT core. ---

func (b *SceneBuffer) IsRequestWritable() bool { return b.in.IsWriteValid(0) }

func (b *SceneBuffer) WriteRequest(req transaction.Request) bool {
	if b.in.Write(0, req) {
		b.kernel.Activate()
		return true
	}
	return false
}

func (b *SceneBuffer) IsReturnReadable() bool { return b.out.IsReadValid(0) }

func (b *SceneBuffer) PeekReturn() transaction.Return {
	ret, _ := b.out.Peek(0)
	return ret
}

func (b *SceneBuffer) ReadReturn() transaction.Return {
	ret, ok := b.out.Read(0)
	if ok {
		b.kernel.Deactivate()
	}
	return ret
}

// --- scheduler-facing control surface. ---

// RequestPrefetch allocates a slot for segmentID and begins pulling its
// treelet from the lower memory level (spec.md §4.7/§4.8). Returns
// false if every slot is in use — the scheduler must wait for a
// Retire before trying again.
func (b *SceneBuffer) RequestPrefetch(segmentID uint32, blockCount int) bool {
	if _, ok := b.allocMap[segmentID]; ok {
		return true // already resident or in flight
	}

	slotIdx := b.freeSlot()
	if slotIdx < 0 {
		return false
	}

	b.slots[slotIdx] = sbSlot{
		allocated:  true,
		segmentID:  segmentID,
		blockCount: blockCount,
		valid:      make([]bool, blockCount),
		pending:    make(map[int]bool),
	}
	b.allocMap[segmentID] = slotIdx
	delete(b.prefetchDone, segmentID)

	leading := blockCount
	if b.cfg.DynamicPrefetch && b.cfg.LeadingBlocks < leading {
		leading = b.cfg.LeadingBlocks
	}
	for i := 0; i < leading; i++ {
		b.queueFetch(slotIdx, i)
	}
	return true
}

func (b *SceneBuffer) freeSlot() int {
	for i := range b.slots {
		if !b.slots[i].allocated {
			return i
		}
	}
	return -1
}

// IsPrefetchComplete reports whether segmentID's leading blocks (or, in
// non-dynamic mode, every block) have arrived.
func (b *SceneBuffer) IsPrefetchComplete(segmentID uint32) bool {
	return b.prefetchDone[segmentID]
}

// Retire frees segmentID's slot and clears its bitmap.
func (b *SceneBuffer) Retire(segmentID uint32) {
	idx, ok := b.allocMap[segmentID]
	if !ok {
		return
	}
	b.slots[idx] = sbSlot{}
	delete(b.allocMap, segmentID)
	delete(b.prefetchDone, segmentID)
}

func (b *SceneBuffer) treeletBase(segmentID uint32) uint64 {
	return b.cfg.TreeletBaseAddr + uint64(segmentID)*b.cfg.TreeletStride
}

func (b *SceneBuffer) blockOf(segmentID uint32, paddr uint64) int {
	return int((paddr - b.treeletBase(segmentID)) / uint64(b.cfg.BlockSize))
}

// queueFetch marks block pending and queues it for issueFetches, which
// sends it once the lower level accepts a request.
func (b *SceneBuffer) queueFetch(slotIdx, block int) {
	s := &b.slots[slotIdx]
	if s.pending[block] || (block < len(s.valid) && s.valid[block]) {
		return
	}
	s.pending[block] = true
	b.fetchQueue = append(b.fetchQueue, fetchJob{slot: slotIdx, block: block})
}

// issueFetches drains the fetch queue into the lower memory level,
// never dropping a job on back-pressure (spec.md §4.8).
func (b *SceneBuffer) issueFetches() {
	var remaining []fetchJob
	for _, job := range b.fetchQueue {
		if !b.lower.IsRequestWritable() {
			remaining = append(remaining, job)
			continue
		}
		s := &b.slots[job.slot]
		addr := b.treeletBase(s.segmentID) + uint64(job.block)*uint64(b.cfg.BlockSize)
		if !b.lower.WriteRequest(transaction.Request{
			Type:  transaction.ReqLoad,
			Size:  uint8(b.cfg.BlockSize),
			PAddr: addr,
		}) {
			remaining = append(remaining, job)
			continue
		}
		b.inFlight[addr] = blockRef{slot: job.slot, block: job.block}
	}
	b.fetchQueue = remaining
}

func (b *SceneBuffer) ClockRise() {
	for b.lower.IsReturnReadable() {
		ref, ok := b.inFlight[b.lower.PeekReturn().PAddr]
		if !ok {
			break // not one of our fetches: left for the lower level's other reader
		}
		ret := b.lower.ReadReturn()
		delete(b.inFlight, ret.PAddr)
		s := &b.slots[ref.slot]
		if !s.allocated || ref.block >= len(s.valid) {
			continue
		}
		s.valid[ref.block] = true
		delete(s.pending, ref.block)
		b.checkPrefetchComplete(ref.slot)
	}
}

func (b *SceneBuffer) checkPrefetchComplete(slotIdx int) {
	s := &b.slots[slotIdx]
	leading := s.blockCount
	if b.cfg.DynamicPrefetch && b.cfg.LeadingBlocks < leading {
		leading = b.cfg.LeadingBlocks
	}
	for i := 0; i < leading; i++ {
		if !s.valid[i] {
			return
		}
	}
	b.prefetchDone[s.segmentID] = true
}

func (b *SceneBuffer) ClockFall() {
	b.issueFetches()

	if !b.in.IsReadValid(0) {
		return
	}
	req, _ := b.in.Peek(0)

	segmentID := uint32((req.PAddr - b.cfg.TreeletBaseAddr) / b.cfg.TreeletStride)
	slotIdx, ok := b.allocMap[segmentID]
	if !ok {
		panic(fmt.Sprintf("stream: scene buffer miss on unallocated segment %d", segmentID))
	}
	s := &b.slots[slotIdx]
	block := b.blockOf(segmentID, req.PAddr)

	if block < len(s.valid) && s.valid[block] {
		if !b.out.IsWriteValid(0) {
			return
		}
		b.in.Read(0)
		ret := req.MakeReturn()
		b.out.Write(0, ret)
		return
	}

	// Half-miss: a fetch for this block may already be in flight from
	// dynamic prefetch, in which case we just wait, not re-request
	// (spec.md §4.8, "Requests for a block still being prefetched are
	// half-misses").
	b.queueFetch(slotIdx, block)
}
