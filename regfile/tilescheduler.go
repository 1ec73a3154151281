package regfile

import (
	"github.com/sarchlab/arches/interconnect"
	"github.com/sarchlab/arches/sim"
	"github.com/sarchlab/arches/transaction"
)

// TileScheduler hands out fixed-size contiguous thread-index ranges to
// the TPs of one tile (spec.md §4.9): each TP's fetch-thread request
// gets back the next free index; once the scheduler's current block is
// exhausted it re-arms by a fetch-and-add on register 0 of a shared
// AtomicRegfile.
type TileScheduler struct {
	sim.UnitBase

	kernel *sim.Kernel
	regs   *AtomicRegfile
	client int // this scheduler's client port on regs

	blockSize uint32

	currentBlock  uint32
	currentOffset uint32
	stalled       bool

	reqNet *interconnect.Cascade[transaction.Request]
	retNet *interconnect.FIFOArray[transaction.Return]

	curValid bool
	cur      transaction.Request
}

// NewTileScheduler builds a TileScheduler for numTP TP clients, sharing
// regs on client port (regfile client index reserved for this tile),
// doling out ranges of blockSize indices at a time.
func NewTileScheduler(kernel *sim.Kernel, name string, numTP int, regs *AtomicRegfile, client int, blockSize uint32) *TileScheduler {
	t := &TileScheduler{
		kernel:        kernel,
		regs:          regs,
		client:        client,
		blockSize:     blockSize,
		currentOffset: blockSize, // forces an immediate re-arm on first request
		reqNet:        interconnect.NewCascade[transaction.Request](numTP, 1, 2, 2),
		retNet:        interconnect.NewFIFOArray[transaction.Return](numTP, 2),
	}
	id := kernel.RegisterUnit(t)
	t.InitUnitBase(id, name)
	return t
}

func (t *TileScheduler) Reset() {
	t.currentBlock = 0
	t.currentOffset = t.blockSize
	t.stalled = false
	t.curValid = false
}

// --- TP-facing contract: one fetch-thread request per TP, one index
// back per request. ---

func (t *TileScheduler) IsRequestWritable(port int) bool { return t.reqNet.IsWriteValid(port) }

func (t *TileScheduler) WriteRequest(port int, req transaction.Request) bool {
	if !t.reqNet.Write(port, req) {
		return false
	}
	t.kernel.Activate()
	return true
}

func (t *TileScheduler) IsReturnReadable(port int) bool { return t.retNet.IsReadValid(port) }

func (t *TileScheduler) PeekReturn(port int) transaction.Return {
	ret, _ := t.retNet.Peek(port)
	return ret
}

func (t *TileScheduler) ReadReturn(port int) transaction.Return {
	ret, ok := t.retNet.Read(port)
	if ok {
		t.kernel.Deactivate()
	}
	return ret
}

func (t *TileScheduler) ClockRise() {
	t.reqNet.Clock()

	if t.stalled {
		if t.regs.IsReturnReadable(t.client) {
			ret := t.regs.ReadReturn(t.client)
			t.currentBlock = uint32(ret.Data[0]) | uint32(ret.Data[1])<<8 |
				uint32(ret.Data[2])<<16 | uint32(ret.Data[3])<<24
			t.currentOffset = 0
			t.stalled = false
		}
	} else if !t.curValid && t.reqNet.IsReadValid(0) {
		req, _ := t.reqNet.Read(0)
		t.cur = req
		t.curValid = true
	}
}

func (t *TileScheduler) ClockFall() {
	if t.stalled || !t.curValid {
		return
	}

	if t.currentOffset == t.blockSize {
		if !t.regs.IsRequestWritable(t.client) {
			return
		}
		req := transaction.Request{Type: transaction.ReqAtomicAdd, Size: 4, Port: uint16(t.client)}
		putUint32(req.Data[:4], t.blockSize)
		t.regs.WriteRequest(t.client, req)
		t.stalled = true
		return
	}

	if !t.retNet.IsWriteValid(int(t.cur.Port)) {
		return
	}
	index := t.currentBlock + t.currentOffset
	ret := t.cur.MakeReturn()
	putUint32(ret.Data[:4], index)
	t.retNet.Write(int(t.cur.Port), ret)
	t.currentOffset++
	t.curValid = false
}
