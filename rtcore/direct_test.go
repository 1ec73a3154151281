package rtcore_test

import (
	"testing"

	"github.com/sarchlab/arches/bvh"
	"github.com/sarchlab/arches/rtcore"
	"github.com/sarchlab/arches/sim"
	"github.com/sarchlab/arches/transaction"
)

// fakeMemory is a content-addressable, fixed-latency memory stub
// implementing cache.Higher: it serves whatever byte slice was staged
// at a given address, mirroring a cache/DRAM stack collapsed to one
// unit for a unit test (spec.md §8 scenario d doesn't exercise cache
// timing, only RT-core traversal logic).
type fakeMemory struct {
	sim.UnitBase
	kernel  *sim.Kernel
	latency int
	content map[uint64][]byte

	pending  []scheduledReturn
	in       transaction.Request
	inValid  bool
	out      transaction.Return
	outValid bool
}

type scheduledReturn struct {
	tick uint64
	ret  transaction.Return
}

func newFakeMemory(kernel *sim.Kernel, name string, latency int) *fakeMemory {
	m := &fakeMemory{kernel: kernel, latency: latency, content: make(map[uint64][]byte)}
	id := kernel.RegisterUnit(m)
	m.InitUnitBase(id, name)
	return m
}

func (m *fakeMemory) stage(addr uint64, data []byte) { m.content[addr] = data }

func (m *fakeMemory) Reset() {}

func (m *fakeMemory) IsRequestWritable() bool { return !m.inValid }

func (m *fakeMemory) WriteRequest(req transaction.Request) bool {
	if m.inValid {
		return false
	}
	m.in = req
	m.inValid = true
	m.kernel.Activate()
	return true
}

func (m *fakeMemory) IsReturnReadable() bool { return m.outValid }

func (m *fakeMemory) PeekReturn() transaction.Return { return m.out }

func (m *fakeMemory) ReadReturn() transaction.Return {
	ret := m.out
	m.outValid = false
	m.kernel.Deactivate()
	return ret
}

func (m *fakeMemory) ClockRise() {}

func (m *fakeMemory) ClockFall() {
	if m.inValid {
		ret := m.in.MakeReturn()
		data := m.content[m.in.PAddr]
		copy(ret.Data[:], data)
		m.pending = append(m.pending, scheduledReturn{tick: m.kernel.Tick() + uint64(m.latency), ret: ret})
		m.inValid = false
	}

	if m.outValid {
		return
	}
	for i, p := range m.pending {
		if p.tick <= m.kernel.Tick()+1 {
			m.out = p.ret
			m.outValid = true
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// TestDirectCoreSingleRayThreeNodes exercises spec.md §8 scenario (d):
// a ray against a 3-node, 1-triangle BVH that hits. The root has two
// children: a nearer internal node (node 1, leaf-only) and a farther
// node (node 2) whose entry distance ends up beyond the triangle hit's
// t, so it is pop-culled without ever being fetched. Expect 2 node
// intersections, 1 triangle intersection, one hit return with the
// triangle's primitive id and t.
func TestDirectCoreSingleRayThreeNodes(t *testing.T) {
	const nodeBase = uint64(0x1000)
	const triBase = uint64(0x2000)

	kernel := sim.NewKernel()
	mem := newFakeMemory(kernel, "mem", 4)

	// Node 0 (root): slot0 -> node 1 (near), slot1 -> node 2 (far).
	node0 := bvh.Node{}
	node0.Slots[0] = bvh.Slot{Min: [3]float32{-1, -1, 4}, Max: [3]float32{1, 1, 5}, Child: 1, Leaf: false}
	node0.Slots[1] = bvh.Slot{Min: [3]float32{-1, -1, 20}, Max: [3]float32{1, 1, 21}, Child: 2, Leaf: false}
	for i := 2; i < bvh.NodeWidth; i++ {
		node0.Slots[i] = bvh.Slot{Empty: true}
	}

	// Node 1: a single leaf slot pointing at triangle 0.
	node1 := bvh.Node{}
	node1.Slots[0] = bvh.Slot{Min: [3]float32{-1, -1, 4}, Max: [3]float32{1, 1, 5}, Child: 0, Leaf: true, TriCount: 1}
	for i := 1; i < bvh.NodeWidth; i++ {
		node1.Slots[i] = bvh.Slot{Empty: true}
	}

	// Node 2: never fetched; content doesn't matter, but stage empty
	// slots so a stray fetch wouldn't panic decoding it.
	node2 := bvh.Node{}
	for i := range node2.Slots {
		node2.Slots[i] = bvh.Slot{Empty: true}
	}

	tri0 := bvh.Triangle{
		V0: [3]float32{-1, -1, 4.5},
		V1: [3]float32{1, -1, 4.5},
		V2: [3]float32{0, 1, 4.5},
		ID: 42,
	}

	mem.stage(nodeBase+0*uint64(bvh.NodeWireSize), bvh.EncodeNode(node0))
	mem.stage(nodeBase+1*uint64(bvh.NodeWireSize), bvh.EncodeNode(node1))
	mem.stage(nodeBase+2*uint64(bvh.NodeWireSize), bvh.EncodeNode(node2))
	mem.stage(triBase+0*uint64(bvh.TriangleWireSize), bvh.EncodeTriangle(tri0))

	cfg := rtcore.Config{
		NumSlots:     4,
		NodeBaseAddr: nodeBase,
		TriBaseAddr:  triBase,
		BoxLatency:   3,
		BoxII:        1,
		TriLatency:   8,
		TriII:        4,
	}
	core := rtcore.NewDirectCore(kernel, "rtcore", cfg, mem, 4)
	kernel.ResetAll()

	ray := bvh.Ray{
		Origin: [3]float32{0, 0, 0},
		Dir:    [3]float32{0, 0, 1},
		InvDir: [3]float32{1e9, 1e9, 1},
		TMin:   0,
		TMax:   1000,
	}
	sent := false
	var got rtcore.HitReturn
	gotHit := false

	for i := 0; i < 300; i++ {
		if !sent && core.IsRequestWritable() {
			core.WriteRequest(rtcore.RayRequest{Ray: ray, Port: 7})
			sent = true
		}
		kernel.StepOnce()
		if core.IsReturnReadable() {
			got = core.ReadReturn()
			gotHit = true
			break
		}
	}

	if !gotHit {
		t.Fatalf("no hit return after 300 ticks")
	}
	if !got.Hit.Found {
		t.Fatalf("expected a hit, got none")
	}
	if got.Hit.PrimID != 42 {
		t.Errorf("got prim id %d, want 42", got.Hit.PrimID)
	}
	if got.Hit.T < 4.4 || got.Hit.T > 4.6 {
		t.Errorf("got t %v, want ~4.5", got.Hit.T)
	}
	if got.Port != 7 {
		t.Errorf("got port %d, want 7", got.Port)
	}
}
