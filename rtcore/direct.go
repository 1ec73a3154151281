// Package rtcore implements the two ray-traversal engines of spec.md
// §4.5/§4.6: a direct RT core that walks a monolithic BVH through a
// single shared cache port, and a streaming/treelet RT core that
// coalesces rays per-treelet through the stream scheduler. Grounded on
// original_source/src/arches-v2/units/trax/unit-rt-core.{hpp,cpp} and
// .../trax/unit-treelet-rt-core.{hpp,cpp}.
package rtcore

import (
	"github.com/sarchlab/arches/bvh"
	"github.com/sarchlab/arches/cache"
	"github.com/sarchlab/arches/interconnect"
	"github.com/sarchlab/arches/sim"
	"github.com/sarchlab/arches/transaction"
)

// Phase is a ray slot's position in the state machine of spec.md §4.5.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseScheduled
	PhaseNodeFetch
	PhaseTriFetch
	PhaseNodeIsect
	PhaseTriIsect
	PhaseHitReturn
)

// stackEntry is one saved traversal candidate: its parent-bound entry
// distance (for pop-cull ordering) and either a child node index or a
// leaf's triangle base/count.
type stackEntry struct {
	t        float32
	index    uint32
	leaf     bool
	triCount uint8
}

// RayRequest is an intersection request from the instruction-stream
// collaborator (spec.md §6): a ray plus the routing fields needed to
// send its hit back to the requesting client.
type RayRequest struct {
	Ray  bvh.Ray
	Port uint16
	Dst  transaction.DstStack
	Reg  transaction.DstDescriptor
}

// HitReturn is a completed intersection: the best hit found (or
// Hit.Found == false if the stack emptied with none) and the routing
// fields copied from the originating RayRequest.
type HitReturn struct {
	Hit  bvh.Hit
	Port uint16
	Dst  transaction.DstStack
	Reg  transaction.DstDescriptor
}

// Config configures a DirectCore.
type Config struct {
	NumSlots     int    `yaml:"num_slots"`
	NodeBaseAddr uint64 `yaml:"node_base_addr"`
	TriBaseAddr  uint64 `yaml:"tri_base_addr"`
	BoxLatency   int    `yaml:"box_latency"`
	BoxII        int    `yaml:"box_ii"`
	TriLatency   int    `yaml:"tri_latency"`
	TriII        int    `yaml:"tri_ii"`
}

type slot struct {
	phase      Phase
	busy       bool
	req        RayRequest
	hit        bvh.Hit
	stack      []stackEntry
	node       bvh.Node
	tri        bvh.Triangle
	fetchIndex uint32
	triLeft    uint8 // remaining triangles to test in the current leaf group
}

// DirectCore is the RT core of spec.md §4.5.
type DirectCore struct {
	sim.UnitBase

	kernel *sim.Kernel
	cfg    Config
	cache  cache.Higher

	slots []slot

	in  *interconnect.FIFOArray[RayRequest]
	out *interconnect.RegisterArray[HitReturn]

	// scheduling queues: slot indices awaiting each phase's work.
	schedQueue []int
	fetchQueue []int // slots whose phase names the fetch (NodeFetch or TriFetch) to issue
	hitQueue   []int

	boxPipe *throughputPipeline[int]
	triPipe *throughputPipeline[int]
}

// NewDirectCore builds a DirectCore and registers it with kernel.
func NewDirectCore(kernel *sim.Kernel, name string, cfg Config, mem cache.Higher, inDepth int) *DirectCore {
	c := &DirectCore{
		kernel:  kernel,
		cfg:     cfg,
		cache:   mem,
		slots:   make([]slot, cfg.NumSlots),
		in:      interconnect.NewFIFOArray[RayRequest](1, inDepth),
		out:     interconnect.NewRegisterArray[HitReturn](1),
		boxPipe: newThroughputPipeline[int](cfg.BoxLatency, cfg.BoxII),
		triPipe: newThroughputPipeline[int](cfg.TriLatency, cfg.TriII),
	}
	id := kernel.RegisterUnit(c)
	c.InitUnitBase(id, name)
	return c
}

func (c *DirectCore) Reset() {
	for i := range c.slots {
		c.slots[i] = slot{}
	}
	c.schedQueue = nil
	c.fetchQueue = nil
	c.hitQueue = nil
}

func (c *DirectCore) IsRequestWritable() bool { return c.in.IsWriteValid(0) }

func (c *DirectCore) WriteRequest(req RayRequest) bool {
	if !c.in.Write(0, req) {
		return false
	}
	c.kernel.Activate()
	return true
}

func (c *DirectCore) IsReturnReadable() bool { return c.out.IsReadValid(0) }

func (c *DirectCore) PeekReturn() HitReturn {
	ret, _ := c.out.Peek(0)
	return ret
}

func (c *DirectCore) ReadReturn() HitReturn {
	ret, ok := c.out.Read(0)
	if ok {
		c.kernel.Deactivate()
	}
	return ret
}

func (c *DirectCore) ClockRise() {
	c.readCacheReturns()
}

func (c *DirectCore) ClockFall() {
	c.acceptNewRay()
	c.stepSchedule()
	c.stepNodePipeline()
	c.stepTriPipeline()
	c.issueFetches()
	c.issueHits()
	c.boxPipe.Clock()
	c.triPipe.Clock()
}

func (c *DirectCore) acceptNewRay() {
	if !c.in.IsReadValid(0) {
		return
	}
	id := c.allocSlot()
	if id < 0 {
		return
	}
	req, _ := c.in.Peek(0)
	c.in.Read(0)
	c.slots[id] = slot{
		phase: PhaseScheduled,
		busy:  true,
		req:   req,
		hit:   bvh.Hit{T: req.Ray.TMax},
		stack: []stackEntry{{t: req.Ray.TMin, index: 0, leaf: false}},
	}
	c.schedQueue = append(c.schedQueue, id)
}

func (c *DirectCore) allocSlot() int {
	for i := range c.slots {
		if !c.slots[i].busy {
			return i
		}
	}
	return -1
}

// stepSchedule inspects the stack top of every scheduled slot: pop-cull,
// descend into a node fetch, or begin a triangle fetch.
func (c *DirectCore) stepSchedule() {
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
			c.schedQueue = append(c.schedQueue, id) // pop-cull; re-examine next entry
			continue
		}

		if top.leaf {
			s.phase = PhaseTriFetch
			s.fetchIndex = top.index
			s.triLeft = top.triCount
		} else {
			s.phase = PhaseNodeFetch
			s.fetchIndex = top.index // also used as the node index while fetching a node
		}
		c.fetchQueue = append(c.fetchQueue, id)
	}
}

// issueFetches drains the fetch queue into the shared cache port,
// retrying next tick on back-pressure without dropping the slot
// (spec.md §4.5, Back-pressure).
func (c *DirectCore) issueFetches() {
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

func (c *DirectCore) buildFetchRequest(id int, s *slot) transaction.Request {
	if s.phase == PhaseTriFetch {
		return transaction.Request{
			Type:  transaction.ReqLoad,
			Size:  bvh.TriangleWireSize,
			PAddr: c.cfg.TriBaseAddr + uint64(s.fetchIndex)*uint64(bvh.TriangleWireSize),
			Reg:   transaction.DstDescriptor(id),
		}
	}
	return transaction.Request{
		Type:  transaction.ReqLoad,
		Size:  bvh.NodeWireSize,
		PAddr: c.cfg.NodeBaseAddr + uint64(s.fetchIndex)*uint64(bvh.NodeWireSize),
		Reg:   transaction.DstDescriptor(id),
	}
}

// readCacheReturns drains the cache's return port, routing each fill to
// the slot named by its Reg field and pushing it into the right
// intersection pipeline.
func (c *DirectCore) readCacheReturns() {
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

func (c *DirectCore) stepNodePipeline() {
	if id, ok := c.boxPipe.Read(); ok {
		c.finishNodeIsect(id)
	}
}

func (c *DirectCore) finishNodeIsect(id int) {
	s := &c.slots[id]
	for _, sl := range s.node.Slots {
		if sl.Empty {
			continue
		}
		t := bvh.IntersectAABB(sl.Min, sl.Max, s.req.Ray)
		if t >= s.req.Ray.TMax {
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

// insertSorted inserts e into stack keeping nearest-t at the end (top
// of stack), per spec.md §4.5's "sorted order (nearest on top)".
func insertSorted(stack []stackEntry, e stackEntry) []stackEntry {
	i := len(stack)
	stack = append(stack, e)
	for i > 0 && stack[i-1].t < e.t {
		stack[i] = stack[i-1]
		i--
	}
	stack[i] = e
	return stack
}

func (c *DirectCore) stepTriPipeline() {
	if id, ok := c.triPipe.Read(); ok {
		c.finishTriIsect(id)
	}
}

func (c *DirectCore) finishTriIsect(id int) {
	s := &c.slots[id]
	bvh.IntersectTriangle(s.tri, s.req.Ray, &s.hit)
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

func (c *DirectCore) issueHits() {
	var remaining []int
	for _, id := range c.hitQueue {
		if !c.out.IsWriteValid(0) {
			remaining = append(remaining, id)
			continue
		}
		s := &c.slots[id]
		c.out.Write(0, HitReturn{Hit: s.hit, Port: s.req.Port, Dst: s.req.Dst, Reg: s.req.Reg})
		*s = slot{}
	}
	c.hitQueue = remaining
}
