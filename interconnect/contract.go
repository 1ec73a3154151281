// Package interconnect implements the typed wiring primitives that
// connect units: pipelines, FIFO arrays, register arrays, cascades,
// decascades, crossbars, and cascaded crossbars (spec.md §3, §4.2).
//
// Every primitive exposes the same four-operation contract at each of
// its endpoints: IsWriteValid, Write, IsReadValid, Peek/Read. Single-
// ended primitives (Pipeline) implement Endpoint directly; multi-port
// primitives expose the same four operations indexed by port number,
// since a single Go interface value can't describe "N ports" generically
// without either reflection or an awkward slice-of-interfaces
// allocation on every access.
//
// Three invariants hold across every primitive in this package:
// back-pressure (a write is refused, never blocks, when the downstream
// buffer is full), conservation (no payload is created or destroyed),
// and fairness (round-robin arbiters advance their pointer on every
// grant, whether or not the current tick offered a winner).
package interconnect

// Endpoint is the four-operation contract for a single-ended primitive.
type Endpoint[T any] interface {
	IsWriteValid() bool
	Write(v T) bool
	IsReadValid() bool
	Peek() (T, bool)
	Read() (T, bool)
}
