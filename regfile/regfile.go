// Package regfile implements the atomic register bank and tile thread
// scheduler of spec.md §4.9: a small counter file serving read-modify-
// write requests from any client, and a per-tile dispenser built on top
// of it that hands out contiguous thread-index ranges to TPs.
package regfile

import (
	"github.com/sarchlab/arches/interconnect"
	"github.com/sarchlab/arches/sim"
	"github.com/sarchlab/arches/transaction"
)

// NumRegs is the size of the atomic counter bank.
const NumRegs = 32

// regIndex recovers the register index the same way the teacher's
// UnitAtomicRegfile does: the low 5 bits of (paddr >> 2), i.e. paddr
// addresses registers on 4-byte strides.
func regIndex(paddr uint64) uint32 {
	return uint32((paddr >> 2) & 0b11111)
}

// AtomicRegfile is a NumRegs-entry bank of 32-bit counters serviced by
// read-modify-write requests (spec.md §4.9). Any number of clients (TPs
// or TileSchedulers) share it through a Cascade request network; each
// client has its own dedicated return slot.
type AtomicRegfile struct {
	sim.UnitBase

	kernel *sim.Kernel
	regs   [NumRegs]uint32

	reqNet *interconnect.Cascade[transaction.Request]
	retNet *interconnect.RegisterArray[transaction.Return]

	curValid bool
	cur      transaction.Request
}

// NewAtomicRegfile builds an AtomicRegfile serving numClients request
// ports and registers it with kernel.
func NewAtomicRegfile(kernel *sim.Kernel, name string, numClients int) *AtomicRegfile {
	r := &AtomicRegfile{
		kernel: kernel,
		reqNet: interconnect.NewCascade[transaction.Request](numClients, 1, 2, 2),
		retNet: interconnect.NewRegisterArray[transaction.Return](numClients),
	}
	id := kernel.RegisterUnit(r)
	r.InitUnitBase(id, name)
	return r
}

func (r *AtomicRegfile) Reset() {
	for i := range r.regs {
		r.regs[i] = 0
	}
	r.curValid = false
}

// IsRequestWritable reports whether client port can accept a new
// atomic/load/store request this tick.
func (r *AtomicRegfile) IsRequestWritable(port int) bool {
	return r.reqNet.IsWriteValid(port)
}

// WriteRequest submits req on behalf of client port. req.Port must
// equal port: it doubles as the return slot the result comes back on.
func (r *AtomicRegfile) WriteRequest(port int, req transaction.Request) bool {
	if !r.reqNet.Write(port, req) {
		return false
	}
	r.kernel.Activate()
	return true
}

func (r *AtomicRegfile) IsReturnReadable(port int) bool { return r.retNet.IsReadValid(port) }

func (r *AtomicRegfile) PeekReturn(port int) transaction.Return {
	ret, _ := r.retNet.Peek(port)
	return ret
}

func (r *AtomicRegfile) ReadReturn(port int) transaction.Return {
	ret, ok := r.retNet.Read(port)
	if ok {
		r.kernel.Deactivate()
	}
	return ret
}

func (r *AtomicRegfile) ClockRise() {
	r.reqNet.Clock()

	if !r.curValid && r.reqNet.IsReadValid(0) {
		req, _ := r.reqNet.Read(0)
		r.cur = req
		r.curValid = true
	}
}

func (r *AtomicRegfile) ClockFall() {
	if r.curValid {
		if r.cur.Type != transaction.ReqStore && !r.retNet.IsWriteValid(int(r.cur.Port)) {
			return
		}

		idx := regIndex(r.cur.PAddr)
		reqVal := uint32(r.cur.Data[0]) | uint32(r.cur.Data[1])<<8 |
			uint32(r.cur.Data[2])<<16 | uint32(r.cur.Data[3])<<24
		prev := r.regs[idx]

		switch r.cur.Type {
		case transaction.ReqStore:
			r.regs[idx] = reqVal
		case transaction.ReqLoad:
		case transaction.ReqAtomicAdd:
			r.regs[idx] = prev + reqVal
		case transaction.ReqAtomicAnd:
			r.regs[idx] = prev & reqVal
		case transaction.ReqAtomicOr:
			r.regs[idx] = prev | reqVal
		case transaction.ReqAtomicXor:
			r.regs[idx] = prev ^ reqVal
		case transaction.ReqAtomicMin:
			if int32(reqVal) < int32(prev) {
				r.regs[idx] = reqVal
			}
		case transaction.ReqAtomicMax:
			if int32(reqVal) > int32(prev) {
				r.regs[idx] = reqVal
			}
		case transaction.ReqAtomicMinU:
			if reqVal < prev {
				r.regs[idx] = reqVal
			}
		case transaction.ReqAtomicMaxU:
			if reqVal > prev {
				r.regs[idx] = reqVal
			}
		}

		if r.cur.Type != transaction.ReqStore {
			ret := r.cur.MakeReturn()
			putUint32(ret.Data[:4], prev)
			r.retNet.Write(int(r.cur.Port), ret)
		}

		r.curValid = false
	}
}

func putUint32(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}
