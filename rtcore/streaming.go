package rtcore

import (
	"github.com/sarchlab/arches/bvh"
	"github.com/sarchlab/arches/cache"
	"github.com/sarchlab/arches/interconnect"
	"github.com/sarchlab/arches/sim"
	"github.com/sarchlab/arches/transaction"
)

// RayWorkItem is a ray in flight through the streaming engine: the ray
// itself, its global id (for the hit array), the segment (treelet) it
// currently targets, and a scheduler-assigned hint order (spec.md
// §4.6).
type RayWorkItem struct {
	Ray       bvh.Ray
	GlobalID  uint32
	SegmentID uint32
	HintOrder uint16
	Port      uint16
	Dst       transaction.DstStack
	Reg       transaction.DstDescriptor

	// TerminationMarker carries the stream scheduler's size-0
	// shutdown signal (spec.md §4.7, "Failure"): every ray has
	// retired and no work remains, so the RT core should retire its
	// slot instead of treating this as a real ray.
	TerminationMarker bool
}

// Scheduler is the stream scheduler's work-item-facing port, satisfied
// structurally by stream.Scheduler. Kept as a local interface (rather
// than importing the stream package) per spec.md §9's cycle-breaking
// design note: the streaming core and the scheduler only ever talk
// through this narrow contract, never through a shared reference.
type Scheduler interface {
	IsWorkItemRequestWritable() bool
	WriteWorkItemRequest(item RayWorkItem) bool
	IsWorkItemReturnReadable() bool
	PeekWorkItemReturn() RayWorkItem
	ReadWorkItemReturn() RayWorkItem
}

// HitArray is the global best-hit table the early-termination mode
// reads before traversing a newly-fetched bucket (spec.md §4.6). A nil
// HitArray disables early termination.
type HitArray interface {
	ReadHit(globalID uint32) bvh.Hit
	WriteHit(globalID uint32, hit bvh.Hit)
}

// StreamingConfig configures a StreamingCore.
type StreamingConfig struct {
	NumSlots        int    `yaml:"num_slots"`
	TreeletBaseAddr uint64 `yaml:"treelet_base_addr"`
	BoxLatency      int    `yaml:"box_latency"`
	BoxII           int    `yaml:"box_ii"`
	TriLatency      int    `yaml:"tri_latency"`
	TriII           int    `yaml:"tri_ii"`
	EarlyTerminate  bool   `yaml:"early_terminate"`
}

// crossing is a pending treelet-crossing re-injection: the originating
// slot (which keeps traversing other entries) and the new work-item to
// hand to the scheduler.
type crossing struct {
	id   int
	item RayWorkItem
}

type streamSlot struct {
	phase      Phase
	busy       bool
	item       RayWorkItem
	hit        bvh.Hit
	stack      []stackEntry
	treelet    uint32 // current treelet (segment) id being traversed
	node       bvh.Node
	tri        bvh.Triangle
	fetchIndex uint32
	triLeft    uint8
}

// StreamingCore is the streaming/treelet RT core of spec.md §4.6: it
// pulls ray-work-items from the stream scheduler, traverses within one
// treelet at a time, and re-injects a fresh work-item whenever
// traversal crosses into a different treelet instead of following the
// link directly.
type StreamingCore struct {
	sim.UnitBase

	kernel *sim.Kernel
	cfg    StreamingConfig
	cache  cache.Higher
	sched  Scheduler
	hits   HitArray

	slots []streamSlot

	out *interconnect.RegisterArray[HitReturn]

	schedQueue []int
	fetchQueue []int
	hitQueue   []int
	crossQueue []crossing // cross-treelet work items ready to re-inject

	boxPipe *throughputPipeline[int]
	triPipe *throughputPipeline[int]
}

// NewStreamingCore builds a StreamingCore and registers it with kernel.
func NewStreamingCore(kernel *sim.Kernel, name string, cfg StreamingConfig, mem cache.Higher, sched Scheduler, hits HitArray) *StreamingCore {
	c := &StreamingCore{
		kernel:  kernel,
		cfg:     cfg,
		cache:   mem,
		sched:   sched,
		hits:    hits,
		slots:   make([]streamSlot, cfg.NumSlots),
		out:     interconnect.NewRegisterArray[HitReturn](1),
		boxPipe: newThroughputPipeline[int](cfg.BoxLatency, cfg.BoxII),
		triPipe: newThroughputPipeline[int](cfg.TriLatency, cfg.TriII),
	}
	id := kernel.RegisterUnit(c)
	c.InitUnitBase(id, name)
	return c
}

func (c *StreamingCore) Reset() {
	for i := range c.slots {
		c.slots[i] = streamSlot{}
	}
	c.schedQueue, c.fetchQueue, c.hitQueue, c.crossQueue = nil, nil, nil, nil
}

func (c *StreamingCore) IsReturnReadable() bool { return c.out.IsReadValid(0) }

func (c *StreamingCore) PeekReturn() HitReturn {
	ret, _ := c.out.Peek(0)
	return ret
}

func (c *StreamingCore) ReadReturn() HitReturn {
	ret, ok := c.out.Read(0)
	if ok {
		c.kernel.Deactivate()
	}
	return ret
}

func (c *StreamingCore) ClockRise() {
	c.readCacheReturns()
}

func (c *StreamingCore) ClockFall() {
	c.pullWorkItem()
	c.stepSchedule()
	c.stepNodePipeline()
	c.stepTriPipeline()
	c.issueFetches()
	c.issueCrossings()
	c.issueHits()
	c.boxPipe.Clock()
	c.triPipe.Clock()
}

func (c *StreamingCore) pullWorkItem() {
	id := c.allocSlot()
	if id < 0 || !c.sched.IsWorkItemReturnReadable() {
		return
	}
	item := c.sched.PeekWorkItemReturn()
	if item.TerminationMarker {
		// Size-0 shutdown signal (spec.md §4.7, "Failure"): consume it
		// and retire without allocating a slot for it.
		c.sched.ReadWorkItemReturn()
		return
	}
	item = c.sched.ReadWorkItemReturn()
	c.kernel.Activate()

	best := bvh.Hit{T: item.Ray.TMax}
	if c.cfg.EarlyTerminate && c.hits != nil {
		if prior := c.hits.ReadHit(item.GlobalID); prior.Found {
			best = prior
			sim.Trace("StreamingCore",
				"Behavior", "EarlyTerminateSeed",
				"Core", c.Name(),
				"GlobalID", item.GlobalID, "T", prior.T,
			)
		}
	}

	c.slots[id] = streamSlot{
		phase:   PhaseScheduled,
		busy:    true,
		item:    item,
		hit:     best,
		treelet: item.SegmentID,
		stack:   []stackEntry{{t: item.Ray.TMin, index: 0}},
	}
	c.schedQueue = append(c.schedQueue, id)
}

func (c *StreamingCore) allocSlot() int {
	for i := range c.slots {
		if !c.slots[i].busy {
			return i
		}
	}
	return -1
}

func (c *StreamingCore) stepSchedule() {
	queue := c.schedQueue
	c.schedQueue = nil

	for _, id := range queue {
		s := &c.slots[id]
		if len(s.stack) == 0 {
			s.phase = PhaseHitReturn
			c.hitQueue = append(c.hitQueue, id)
			continue
		}

		top := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]

		if top.t >= s.hit.T {
			c.schedQueue = append(c.schedQueue, id)
			continue
		}

		if top.leaf {
			s.phase = PhaseTriFetch
			s.fetchIndex = top.index
			s.triLeft = top.triCount
			c.fetchQueue = append(c.fetchQueue, id)
		} else {
			s.phase = PhaseNodeFetch
			s.fetchIndex = top.index
			c.fetchQueue = append(c.fetchQueue, id)
		}
	}
}

func (c *StreamingCore) issueFetches() {
	var remaining []int
	for _, id := range c.fetchQueue {
		if !c.cache.IsRequestWritable() {
			remaining = append(remaining, id)
			continue
		}
		s := &c.slots[id]
		req := c.buildFetchRequest(id, s)
		if !c.cache.WriteRequest(req) {
			remaining = append(remaining, id)
		}
	}
	c.fetchQueue = remaining
}

func (c *StreamingCore) buildFetchRequest(id int, s *streamSlot) transaction.Request {
	base := c.cfg.TreeletBaseAddr + uint64(s.treelet)*uint64(bvh.TreeletHeaderWireSize)
	if s.phase == PhaseTriFetch {
		return transaction.Request{
			Type:  transaction.ReqLoad,
			Size:  bvh.TriangleWireSize,
			PAddr: base + uint64(bvh.TreeletHeaderWireSize) + uint64(s.fetchIndex)*uint64(bvh.TriangleWireSize),
			Reg:   transaction.DstDescriptor(id),
		}
	}
	return transaction.Request{
		Type:  transaction.ReqLoad,
		Size:  bvh.NodeWireSize,
		PAddr: base + uint64(s.fetchIndex)*uint64(bvh.NodeWireSize),
		Reg:   transaction.DstDescriptor(id),
	}
}

func (c *StreamingCore) readCacheReturns() {
	for c.cache.IsReturnReadable() {
		ret := c.cache.ReadReturn()
		id := int(ret.Reg)
		if id < 0 || id >= len(c.slots) {
			continue
		}
		s := &c.slots[id]
		switch s.phase {
		case PhaseNodeFetch:
			s.node = bvh.DecodeNode(ret.Data[:bvh.NodeWireSize])
			s.phase = PhaseNodeIsect
			if c.boxPipe.IsWriteValid() {
				c.boxPipe.Write(id)
			}
		case PhaseTriFetch:
			s.tri = bvh.DecodeTriangle(ret.Data[:bvh.TriangleWireSize])
			s.phase = PhaseTriIsect
			if c.triPipe.IsWriteValid() {
				c.triPipe.Write(id)
			}
		}
	}
}

func (c *StreamingCore) stepNodePipeline() {
	if id, ok := c.boxPipe.Read(); ok {
		c.finishNodeIsect(id)
	}
}

// finishNodeIsect evaluates a node's children. A child that stays
// within the slot's current treelet is pushed onto the local stack; a
// child that names a different treelet is instead queued as a fresh
// work-item re-injected to the scheduler (spec.md §4.6, "Treelet
// crossing").
func (c *StreamingCore) finishNodeIsect(id int) {
	s := &c.slots[id]
	for _, sl := range s.node.Slots {
		if sl.Empty {
			continue
		}
		t := bvh.IntersectAABB(sl.Min, sl.Max, s.item.Ray)
		if t >= s.hit.T {
			continue
		}

		if sl.CrossTreelet {
			// Child.Child names the target segment id directly; the RT
			// core never follows the link, it re-injects a fresh
			// work-item at the scheduler instead (spec.md §4.6).
			item := s.item
			item.SegmentID = sl.Child
			c.crossQueue = append(c.crossQueue, crossing{id: id, item: item})
			continue
		}

		s.stack = insertSorted(s.stack, stackEntry{
			t:        t,
			index:    sl.Child,
			leaf:     sl.Leaf,
			triCount: sl.TriCount,
		})
		if len(s.stack) > bvh.MaxStackDepth {
			panic("rtcore: ray stack overflow")
		}
	}
	s.phase = PhaseScheduled
	c.schedQueue = append(c.schedQueue, id)
}

func (c *StreamingCore) issueCrossings() {
	var remaining []crossing
	for _, x := range c.crossQueue {
		if !c.sched.IsWorkItemRequestWritable() {
			remaining = append(remaining, x)
			continue
		}
		if !c.sched.WriteWorkItemRequest(x.item) {
			remaining = append(remaining, x)
		}
	}
	c.crossQueue = remaining
}

func (c *StreamingCore) stepTriPipeline() {
	if id, ok := c.triPipe.Read(); ok {
		c.finishTriIsect(id)
	}
}

func (c *StreamingCore) finishTriIsect(id int) {
	s := &c.slots[id]
	bvh.IntersectTriangle(s.tri, s.item.Ray, &s.hit)
	s.triLeft--
	if s.triLeft > 0 {
		s.fetchIndex++
		s.phase = PhaseTriFetch
		c.fetchQueue = append(c.fetchQueue, id)
		return
	}
	s.phase = PhaseScheduled
	c.schedQueue = append(c.schedQueue, id)
}

func (c *StreamingCore) issueHits() {
	var remaining []int
	for _, id := range c.hitQueue {
		s := &c.slots[id]
		if c.hits != nil && s.hit.Found {
			c.hits.WriteHit(s.item.GlobalID, s.hit)
		}
		if !c.out.IsWriteValid(0) {
			remaining = append(remaining, id)
			continue
		}
		c.out.Write(0, HitReturn{Hit: s.hit, Port: s.item.Port, Dst: s.item.Dst, Reg: s.item.Reg})
		*s = streamSlot{}
	}
	c.hitQueue = remaining
}
