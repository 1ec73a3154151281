package interconnect

// Crossbar is a full M-to-N any-to-any network with per-sink
// round-robin arbitration (spec.md §3, §4.2). Clock runs two nested
// loops: first every source with a pending payload registers itself
// with its target sink's arbiter; then every sink with room grants one
// winner. Grounded on
// original_source/src/arches-v2/units/unit-crossbar.hpp's clock_rise
// (request-read) / clock_fall (grant-and-write) split, folded here into
// a single Clock call since interconnect primitives sit inside a unit's
// own rise/fall rather than being units themselves.
type Crossbar[T any] struct {
	m, n int
	get  SinkFunc[T]

	sources []*queue[T]
	sinks   []*queue[T]

	arbiters []*RoundRobinArbiter // one per sink, width m
}

// NewCrossbar builds an m x n crossbar; m and n are unconstrained
// relative to each other (that's what distinguishes it from Cascade and
// Decascade, which both bound the smaller side's fan-in/out via a
// static grouping).
func NewCrossbar[T any](m, n, sourceDepth, sinkDepth int, get SinkFunc[T]) *Crossbar[T] {
	x := &Crossbar[T]{
		m:        m,
		n:        n,
		get:      get,
		sources:  make([]*queue[T], m),
		sinks:    make([]*queue[T], n),
		arbiters: make([]*RoundRobinArbiter, n),
	}

	for i := range x.sources {
		x.sources[i] = newQueue[T](sourceDepth)
	}
	for i := range x.sinks {
		x.sinks[i] = newQueue[T](sinkDepth)
		x.arbiters[i] = NewRoundRobinArbiter(m)
	}

	return x
}

func (x *Crossbar[T]) IsWriteValid(source int) bool { return x.sources[source].canPush() }

func (x *Crossbar[T]) Write(source int, v T) bool { return x.sources[source].push(v) }

func (x *Crossbar[T]) IsReadValid(sink int) bool { return x.sinks[sink].canPop() }

func (x *Crossbar[T]) Peek(sink int) (T, bool) { return x.sinks[sink].peek() }

func (x *Crossbar[T]) Read(sink int) (T, bool) { return x.sinks[sink].pop() }

// Clock arbitrates and moves at most one payload per sink, any source
// eligible, each tick.
func (x *Crossbar[T]) Clock() {
	requestingBySink := make([][]bool, x.n)
	for sink := range requestingBySink {
		requestingBySink[sink] = make([]bool, x.m)
	}

	// Loop 1: every source with a pending payload registers with its
	// target sink's arbiter.
	for src := 0; src < x.m; src++ {
		v, ok := x.sources[src].peek()
		if !ok {
			continue
		}
		sink := x.get(v)
		requestingBySink[sink][src] = true
	}

	// Loop 2: every sink with room grants one winner.
	for sink := 0; sink < x.n; sink++ {
		if !x.sinks[sink].canPush() {
			continue
		}

		winner, ok := x.arbiters[sink].Grant(requestingBySink[sink])
		if !ok {
			continue
		}

		v, _ := x.sources[winner].pop()
		x.sinks[sink].push(v)
	}
}
