package cache

import "github.com/sarchlab/arches/transaction"

// Higher is the uniform request/return contract a cache bank uses to
// talk to the next level of the memory hierarchy — another cache bank,
// the DRAM controller, or (in tests) a stub. It is identical in shape to
// the contract a bank itself exposes downward, which is what lets the
// hierarchy compose without a cache needing to know what's above it
// (spec.md §2: "This contract is the universal language of the
// simulator").
type Higher interface {
	IsRequestWritable() bool
	WriteRequest(req transaction.Request) bool
	IsReturnReadable() bool
	PeekReturn() transaction.Return
	ReadReturn() transaction.Return
}

// Bank is satisfied by both BlockingBank and NonBlockingBank.
type Bank interface {
	Higher
}

// LineState is the (set, way) -> state mapping of spec.md §3.
type LineState uint8

const (
	LineEmpty LineState = iota
	LineValid
	LineValidDirty
)

// tagEntry is one (set, way) slot in a bank's tag array.
type tagEntry struct {
	state LineState
	tag   uint64
}

// WriteMissPolicy names a bank's store-miss policy. Both banks take it
// as a construction parameter and store it, but neither reads it: a
// store miss fetches and installs the line just as a load miss does, so
// WriteThrough behaves the same as WriteAllocate.
type WriteMissPolicy int

const (
	WriteAllocate WriteMissPolicy = iota
	WriteThrough
)
