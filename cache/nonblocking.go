package cache

import (
	"container/list"

	"github.com/sarchlab/arches/interconnect"
	"github.com/sarchlab/arches/sim"
	"github.com/sarchlab/arches/transaction"
)

// NonBlockingBank is the MSHR-backed cache of spec.md §4.3. Unlike
// BlockingBank it keeps accepting requests while misses are outstanding,
// up to mshrCapacity concurrent line-misses; a miss with no free MSHR
// back-pressures the input port instead of stalling the whole bank.
type NonBlockingBank struct {
	sim.UnitBase

	kernel *sim.Kernel
	addr   AddressMap
	higher Higher

	sets, ways, hitLatency int
	writeMiss              WriteMissPolicy

	tags        [][]tagEntry
	replaceNext []int
	mshrs       *mshrFile
	bankID      uint32

	// RetireGrace enables the "retired-LFB check" mode of spec.md §4.3:
	// keeping a recently-retired MSHR addressable for one extra tick.
	// Per DESIGN.md (Open Question 1) the enabled-path is intentionally
	// left unimplemented: the spec notes its semantics are
	// under-specified and says to "note but do not guess."
	RetireGrace bool

	in       *interconnect.FIFOArray[transaction.Request]
	hitPipe  *interconnect.Pipeline[transaction.Return]
	drainFor *list.List // FIFO of lineAddr whose MSHR just retired, waiters still to drain one-per-cycle
	draining map[uint64][]transaction.Request

	out *interconnect.RegisterArray[transaction.Return]
}

// NewNonBlockingBank builds a non-blocking bank with up to mshrCapacity
// concurrent line-misses per bank.
func NewNonBlockingBank(
	kernel *sim.Kernel,
	name string,
	bankID uint32,
	addr AddressMap,
	sets, ways, hitLatency, mshrCapacity, inDepth int,
	writeMiss WriteMissPolicy,
	higher Higher,
) *NonBlockingBank {
	b := &NonBlockingBank{
		kernel:      kernel,
		addr:        addr,
		higher:      higher,
		sets:        sets,
		ways:        ways,
		hitLatency:  hitLatency,
		writeMiss:   writeMiss,
		tags:        make([][]tagEntry, sets),
		replaceNext: make([]int, sets),
		mshrs:       newMSHRFile(mshrCapacity),
		bankID:      bankID,
		in:          interconnect.NewFIFOArray[transaction.Request](1, inDepth),
		hitPipe:     interconnect.NewPipeline[transaction.Return](hitLatency),
		drainFor:    list.New(),
		draining:    make(map[uint64][]transaction.Request),
		out:         interconnect.NewRegisterArray[transaction.Return](1),
	}
	for s := range b.tags {
		b.tags[s] = make([]tagEntry, ways)
	}
	id := kernel.RegisterUnit(b)
	b.InitUnitBase(id, name)
	return b
}

func (b *NonBlockingBank) Reset() {
	for s := range b.tags {
		for w := range b.tags[s] {
			b.tags[s][w] = tagEntry{}
		}
	}
}

func (b *NonBlockingBank) IsRequestWritable() bool { return b.in.IsWriteValid(0) }

func (b *NonBlockingBank) WriteRequest(req transaction.Request) bool {
	if b.in.Write(0, req) {
		b.kernel.Activate()
		return true
	}
	return false
}

func (b *NonBlockingBank) IsReturnReadable() bool { return b.out.IsReadValid(0) }

func (b *NonBlockingBank) PeekReturn() transaction.Return {
	ret, _ := b.out.Peek(0)
	return ret
}

func (b *NonBlockingBank) ReadReturn() transaction.Return {
	ret, ok := b.out.Read(0)
	if ok {
		b.kernel.Deactivate()
	}
	return ret
}

func (b *NonBlockingBank) ClockRise() {}

func (b *NonBlockingBank) ClockFall() {
	b.hitPipe.Clock()
	b.serviceHigherReturn()
	b.admitRequest()
	b.egress()
}

// admitRequest dequeues at most one incoming request and either
// completes it (hit) or allocates/merges an MSHR (miss).
func (b *NonBlockingBank) admitRequest() {
	req, ok := b.in.Peek(0)
	if !ok {
		return
	}

	lineAddr := b.addr.LineAddress(req.PAddr)
	tag, set, _, _ := b.addr.Decompose(lineAddr)

	if way, hit := b.findLine(int(set), tag); hit {
		if req.Type == transaction.ReqStore || req.Type.IsAtomic() {
			b.tags[set][way].state = LineValidDirty
		}
		if !b.hitPipe.IsWriteValid() {
			return
		}
		b.hitPipe.Write(req.MakeReturn())
		b.in.Read(0)
		return
	}

	if !b.mshrs.has(lineAddr) && !b.higher.IsRequestWritable() {
		return // a new miss waits in the input queue until its forward can be sent
	}
	merged, ok := b.mshrs.allocOrMerge(lineAddr, req)
	if !ok {
		return // MSHR file full: back-pressure, not an error (spec.md §7)
	}
	b.in.Read(0)

	if merged {
		return // an MSHR for this line is already outstanding
	}

	fwd := req
	fwd.Dst.Push(b.bankID, 8)
	b.higher.WriteRequest(fwd)
}

// serviceHigherReturn drains one fill from the higher level, if any,
// installs the line, and queues its waiters for one-per-cycle egress.
func (b *NonBlockingBank) serviceHigherReturn() {
	if !b.higher.IsReturnReadable() {
		return
	}
	ret := b.higher.PeekReturn()
	bankID := ret.Dst.Pop(8)
	if bankID != b.bankID {
		return // not ours this tick
	}

	lineAddr := b.addr.LineAddress(ret.PAddr)
	if !b.mshrs.has(lineAddr) {
		panic("cache: fill for a line with no outstanding MSHR")
	}

	waiters := b.mshrs.retire(lineAddr)
	b.installLine(lineAddr, waiters)

	b.higher.ReadReturn()

	if len(waiters) == 0 {
		return
	}
	b.draining[lineAddr] = waiters
	b.drainFor.PushBack(lineAddr)
}

// installLine retires the MSHR and inserts the line atomically, so a
// line address is represented in either the tag array or an MSHR, never
// both, at any observable instant (spec.md §3, §8 property 4).
func (b *NonBlockingBank) installLine(lineAddr uint64, waiters []transaction.Request) {
	tag, set, _, _ := b.addr.Decompose(lineAddr)
	way := b.victim(int(set))

	state := LineValid
	for _, w := range waiters {
		if w.Type == transaction.ReqStore || w.Type.IsAtomic() {
			state = LineValidDirty
			break
		}
	}
	if b.tags[set][way].state != LineEmpty && b.tags[set][way].tag == tag {
		panic("cache: double-insert of a line into tag array")
	}
	b.tags[set][way] = tagEntry{state: state, tag: tag}
}

// egress drains one hit or one miss-waiter into the output register per
// tick, hits taking priority when both are ready in the same tick.
func (b *NonBlockingBank) egress() {
	if !b.out.IsWriteValid(0) {
		return
	}

	if b.hitPipe.IsReadValid() {
		ret, _ := b.hitPipe.Read()
		b.out.Write(0, ret)
		return
	}

	for b.drainFor.Len() > 0 {
		front := b.drainFor.Front()
		lineAddr := front.Value.(uint64)
		waiters := b.draining[lineAddr]
		if len(waiters) == 0 {
			b.drainFor.Remove(front)
			delete(b.draining, lineAddr)
			continue
		}

		req := waiters[0]
		b.draining[lineAddr] = waiters[1:]
		if len(waiters) == 1 {
			b.drainFor.Remove(front)
			delete(b.draining, lineAddr)
		}
		b.out.Write(0, req.MakeReturn())
		return
	}
}

func (b *NonBlockingBank) findLine(set int, tag uint64) (way int, hit bool) {
	for w, e := range b.tags[set] {
		if e.state != LineEmpty && e.tag == tag {
			return w, true
		}
	}
	return 0, false
}

func (b *NonBlockingBank) victim(set int) int {
	for w, e := range b.tags[set] {
		if e.state == LineEmpty {
			return w
		}
	}
	w := b.replaceNext[set]
	b.replaceNext[set] = (w + 1) % b.ways
	if b.tags[set][w].state == LineValidDirty {
		sim.Trace("Cache",
			"Behavior", "DirtyEvictionDropped",
			"Bank", b.Name(),
			"Set", set, "Way", w, "Tag", b.tags[set][w].tag,
		)
	}
	return w
}
