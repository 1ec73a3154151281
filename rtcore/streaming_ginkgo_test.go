package rtcore_test

import (
	"github.com/golang/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arches/bvh"
	"github.com/sarchlab/arches/rtcore"
	"github.com/sarchlab/arches/sim"
)

var _ = Describe("StreamingCore", func() {
	var (
		ctrl   *gomock.Controller
		kernel *sim.Kernel
		mem    *fakeMemory
		hits   *rtcore.GlobalHitArray
		sched  *MockScheduler
	)

	const treeletBase = uint64(0x8000)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		kernel = sim.NewKernel()
		mem = newFakeMemory(kernel, "scenebuf-ginkgo", 4)
		hits = rtcore.NewGlobalHitArray(16)
		sched = NewMockScheduler(ctrl)

		node := bvh.Node{}
		node.Slots[0] = bvh.Slot{Min: [3]float32{-1, -1, 4}, Max: [3]float32{1, 1, 5}, Child: 0, Leaf: true, TriCount: 1}
		for i := 1; i < bvh.NodeWidth; i++ {
			node.Slots[i] = bvh.Slot{Empty: true}
		}
		tri := bvh.Triangle{
			V0: [3]float32{-1, -1, 4.5}, V1: [3]float32{1, -1, 4.5}, V2: [3]float32{0, 1, 4.5},
			ID: 9,
		}
		headerSize := uint64(bvh.TreeletHeaderWireSize)
		mem.stage(treeletBase, bvh.EncodeNode(node))
		mem.stage(treeletBase+headerSize, bvh.EncodeTriangle(tri))
	})

	AfterEach(func() {
		ctrl.Finish()
	})

	// rayItem is the one work item the mock scheduler hands out; it is
	// rebuilt per-It since GlobalID varies between specs.
	rayItem := func(globalID uint32) rtcore.RayWorkItem {
		return rtcore.RayWorkItem{
			Ray: bvh.Ray{
				Origin: [3]float32{0, 0, 0},
				Dir:    [3]float32{0, 0, 1},
				InvDir: [3]float32{1e9, 1e9, 1},
				TMin:   0,
				TMax:   1000,
			},
			GlobalID:  globalID,
			SegmentID: 0,
			Port:      7,
		}
	}

	// drive pulls exactly one work item out of sched, then reports no
	// further work, and steps the kernel until a hit return appears.
	drive := func(item rtcore.RayWorkItem, earlyTerminate bool) rtcore.HitReturn {
		pulled := false
		sched.EXPECT().IsWorkItemReturnReadable().DoAndReturn(func() bool { return !pulled }).AnyTimes()
		sched.EXPECT().PeekWorkItemReturn().Return(item).AnyTimes()
		sched.EXPECT().ReadWorkItemReturn().DoAndReturn(func() rtcore.RayWorkItem {
			pulled = true
			return item
		}).Times(1)
		sched.EXPECT().IsWorkItemRequestWritable().Return(true).AnyTimes()
		sched.EXPECT().WriteWorkItemRequest(gomock.Any()).Return(true).AnyTimes()

		cfg := rtcore.StreamingConfig{
			NumSlots: 4, TreeletBaseAddr: treeletBase,
			BoxLatency: 3, BoxII: 1, TriLatency: 8, TriII: 4,
			EarlyTerminate: earlyTerminate,
		}
		var hitArray rtcore.HitArray
		if earlyTerminate {
			hitArray = hits
		}
		core := rtcore.NewStreamingCore(kernel, "streaming-ginkgo", cfg, mem, sched, hitArray)
		kernel.ResetAll()

		for i := 0; i < 300; i++ {
			kernel.StepOnce()
			if core.IsReturnReadable() {
				return core.ReadReturn()
			}
		}
		return rtcore.HitReturn{}
	}

	It("pulls exactly one work item from the scheduler per accepted ray", func() {
		got := drive(rayItem(1), false)
		Expect(got.Hit.Found).To(BeTrue())
		Expect(got.Hit.PrimID).To(Equal(uint32(9)))
		Expect(got.Port).To(Equal(uint16(7)))
	})

	It("seeds traversal from a prior global hit when early termination is enabled", func() {
		hits.WriteHit(2, bvh.Hit{Found: true, T: 4.4, PrimID: 9})
		got := drive(rayItem(2), true)
		Expect(got.Hit.Found).To(BeTrue())
		Expect(got.Hit.T).To(BeNumerically("<=", 4.4))
	})
})
