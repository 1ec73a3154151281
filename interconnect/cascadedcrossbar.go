package interconnect

// CascadedCrossbar has the same external semantics as Crossbar — any
// source can reach any sink — but is built internally as three stages,
// M -> wSrc -> wSink -> N (spec.md §3, §4.2). Only the first stage's
// arbiters see all M sources; each arbiter of the middle stage sees at
// most wSrc competitors, and each of the output stage at most wSink.
//
// Internally it chains three Crossbar stages and relays payloads
// between them on every Clock: a stage's sink becoming readable makes
// its payload available to be written into the next stage's
// corresponding source, same tick. Coarse routing in stages A and B
// only needs to narrow the destination down to the next stage's sink
// count; stage C resolves the exact final sink.
type CascadedCrossbar[T any] struct {
	n   int
	get SinkFunc[T]

	stageA *Crossbar[T] // M -> wSrc
	stageB *Crossbar[T] // wSrc -> wSink
	stageC *Crossbar[T] // wSink -> N
}

// NewCascadedCrossbar builds an m x n cascaded crossbar with middle
// stage width wSrc and wSink.
func NewCascadedCrossbar[T any](m, n, wSrc, wSink, depth int, get SinkFunc[T]) *CascadedCrossbar[T] {
	cc := &CascadedCrossbar[T]{n: n, get: get}

	cc.stageA = NewCrossbar[T](m, wSrc, depth, depth, func(v T) int {
		return get(v) * wSrc / n
	})
	cc.stageB = NewCrossbar[T](wSrc, wSink, depth, depth, func(v T) int {
		return get(v) * wSink / n
	})
	cc.stageC = NewCrossbar[T](wSink, n, depth, depth, func(v T) int {
		return get(v)
	})

	return cc
}

func (cc *CascadedCrossbar[T]) IsWriteValid(source int) bool { return cc.stageA.IsWriteValid(source) }

func (cc *CascadedCrossbar[T]) Write(source int, v T) bool { return cc.stageA.Write(source, v) }

func (cc *CascadedCrossbar[T]) IsReadValid(sink int) bool { return cc.stageC.IsReadValid(sink) }

func (cc *CascadedCrossbar[T]) Peek(sink int) (T, bool) { return cc.stageC.Peek(sink) }

func (cc *CascadedCrossbar[T]) Read(sink int) (T, bool) { return cc.stageC.Read(sink) }

// Clock advances all three stages and relays payloads between them.
// Stages are clocked back-to-front so a payload that was already
// sitting in a later stage's sink queue is drained (freeing room) before
// an earlier stage tries to push into it.
func (cc *CascadedCrossbar[T]) Clock() {
	cc.stageC.Clock()
	cc.stageB.Clock()
	cc.stageA.Clock()

	relay(cc.stageA, cc.stageB)
	relay(cc.stageB, cc.stageC)
}

// relay moves every ready sink payload in upstream into the
// correspondingly indexed source of downstream, for as many sinks as
// downstream has sources (the two stages are sized equal at every
// cascade boundary by construction).
func relay[T any](upstream, downstream *Crossbar[T]) {
	for i := 0; i < upstream.n; i++ {
		if !upstream.IsReadValid(i) {
			continue
		}
		if !downstream.IsWriteValid(i) {
			continue
		}
		v, _ := upstream.Read(i)
		downstream.Write(i, v)
	}
}
