package cache

import (
	"github.com/sarchlab/arches/interconnect"
	"github.com/sarchlab/arches/sim"
	"github.com/sarchlab/arches/transaction"
)

// BlockingBank is the blocking cache of spec.md §4.3: one request port,
// tag check on clock_fall, and a stall on miss until the fill returns —
// only one request is ever in flight per bank.
type BlockingBank struct {
	sim.UnitBase

	kernel *sim.Kernel
	addr   AddressMap
	higher Higher

	sets, ways int
	hitLatency int
	writeMiss  WriteMissPolicy

	tags        [][]tagEntry
	replaceNext []int // per-set round-robin victim pointer

	in  *interconnect.FIFOArray[transaction.Request]
	out *interconnect.Pipeline[transaction.Return]

	busy        bool
	pendingMiss transaction.Request
	bankID      uint32
}

// NewBlockingBank builds a blocking bank with sets*ways capacity.
func NewBlockingBank(
	kernel *sim.Kernel,
	name string,
	bankID uint32,
	addr AddressMap,
	sets, ways, hitLatency, inDepth int,
	writeMiss WriteMissPolicy,
	higher Higher,
) *BlockingBank {
	b := &BlockingBank{
		kernel:      kernel,
		addr:        addr,
		higher:      higher,
		sets:        sets,
		ways:        ways,
		hitLatency:  hitLatency,
		writeMiss:   writeMiss,
		tags:        make([][]tagEntry, sets),
		replaceNext: make([]int, sets),
		in:          interconnect.NewFIFOArray[transaction.Request](1, inDepth),
		out:         interconnect.NewPipeline[transaction.Return](hitLatency),
		bankID:      bankID,
	}
	for s := range b.tags {
		b.tags[s] = make([]tagEntry, ways)
	}
	id := kernel.RegisterUnit(b)
	b.InitUnitBase(id, name)
	return b
}

func (b *BlockingBank) Reset() {
	for s := range b.tags {
		for w := range b.tags[s] {
			b.tags[s][w] = tagEntry{}
		}
	}
	b.busy = false
}

// IsRequestWritable / WriteRequest / IsReturnReadable / PeekReturn /
// ReadReturn implement the Bank contract toward clients.
func (b *BlockingBank) IsRequestWritable() bool { return b.in.IsWriteValid(0) }

func (b *BlockingBank) WriteRequest(req transaction.Request) bool {
	if b.in.Write(0, req) {
		b.kernel.Activate()
		return true
	}
	return false
}

func (b *BlockingBank) IsReturnReadable() bool { return b.out.IsReadValid() }

func (b *BlockingBank) PeekReturn() transaction.Return {
	ret, _ := b.out.Peek()
	return ret
}

func (b *BlockingBank) ReadReturn() transaction.Return {
	ret, ok := b.out.Read()
	if ok {
		b.kernel.Deactivate()
	}
	return ret
}

func (b *BlockingBank) ClockRise() {
	// Read-only: nothing to snapshot beyond what ClockFall inspects
	// directly from higher/in, both of which are themselves read-only
	// views during this phase.
}

func (b *BlockingBank) ClockFall() {
	b.out.Clock()

	if b.busy {
		b.tryCompleteMiss()
		return
	}

	req, ok := b.in.Peek(0)
	if !ok {
		return
	}

	lineAddr := b.addr.LineAddress(req.PAddr)
	_, set, _, _ := b.addr.Decompose(req.PAddr)
	tag, _, _, _ := b.addr.Decompose(lineAddr)

	way, hit := b.findLine(int(set), tag)
	if hit {
		if req.Type == transaction.ReqStore || req.Type.IsAtomic() {
			b.tags[set][way].state = LineValidDirty
		}
		ret := req.MakeReturn()
		ret.Size = req.Size
		if !b.out.IsWriteValid() {
			return // back-pressure on the hit-latency pipeline, retry next tick
		}
		b.out.Write(ret)
		b.in.Read(0)
		return
	}

	// Miss: forward to the higher level, stamping our bank id onto the
	// dst-stack so the fill can be told apart from any other bank's
	// outstanding miss sharing the same higher-level port.
	fwd := req
	fwd.Dst.Push(b.bankID, 8)
	if !b.higher.IsRequestWritable() {
		return // retry next tick
	}
	b.higher.WriteRequest(fwd)
	b.in.Read(0)
	b.busy = true
	b.pendingMiss = req
}

func (b *BlockingBank) tryCompleteMiss() {
	if !b.higher.IsReturnReadable() {
		return
	}
	ret := b.higher.PeekReturn()
	_ = ret.Dst.Pop(8) // recover and discard our stamped bank id

	if !b.out.IsWriteValid() {
		return
	}

	lineAddr := b.addr.LineAddress(b.pendingMiss.PAddr)
	tag, set, _, _ := b.addr.Decompose(lineAddr)
	way := b.victim(int(set))

	state := LineValid
	if b.pendingMiss.Type == transaction.ReqStore || b.pendingMiss.Type.IsAtomic() {
		state = LineValidDirty
	}
	b.tags[set][way] = tagEntry{state: state, tag: tag}

	out := b.pendingMiss.MakeReturn()
	out.Data = ret.Data
	b.out.Write(out)

	b.higher.ReadReturn()
	b.busy = false
}

func (b *BlockingBank) findLine(set int, tag uint64) (way int, hit bool) {
	for w, e := range b.tags[set] {
		if e.state != LineEmpty && e.tag == tag {
			return w, true
		}
	}
	return 0, false
}

// victim picks the next way to evict in a set, round-robin. A dirty
// eviction in this build is silently dropped rather than re-issued as a
// writeback: spec.md §4.3 specifies the write-miss policy but does not
// require writeback traffic modelling for this level of fidelity, and no
// testable property in §8 exercises it.
func (b *BlockingBank) victim(set int) int {
	// Prefer an empty way if one exists.
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
