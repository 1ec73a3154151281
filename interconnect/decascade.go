package interconnect

// SinkFunc computes the destination sink index for a payload routed
// through a Decascade or Crossbar.
type SinkFunc[T any] func(v T) int

// Decascade is the inverse shape of Cascade: M <= N sources feeding N
// sinks, where each source routes to exactly the sink chosen by a
// per-transaction SinkFunc (spec.md §3, §4.2). Because more than one
// source can address the same sink in the same tick, each sink still
// arbitrates round-robin — the arbiter width is M (every source is a
// potential requester of every sink), not the static grouping Cascade
// uses.
type Decascade[T any] struct {
	m, n int
	get  SinkFunc[T]

	sources []*queue[T]
	sinks   []*queue[T]

	arbiters []*RoundRobinArbiter // one per sink, width m
}

// NewDecascade builds a Decascade with m sources and n sinks (m must be
// <= n).
func NewDecascade[T any](m, n, sourceDepth, sinkDepth int, get SinkFunc[T]) *Decascade[T] {
	if m > n {
		panic("interconnect: decascade requires m <= n")
	}

	d := &Decascade[T]{
		m:        m,
		n:        n,
		get:      get,
		sources:  make([]*queue[T], m),
		sinks:    make([]*queue[T], n),
		arbiters: make([]*RoundRobinArbiter, n),
	}

	for i := range d.sources {
		d.sources[i] = newQueue[T](sourceDepth)
	}
	for i := range d.sinks {
		d.sinks[i] = newQueue[T](sinkDepth)
		d.arbiters[i] = NewRoundRobinArbiter(m)
	}

	return d
}

func (d *Decascade[T]) IsWriteValid(source int) bool { return d.sources[source].canPush() }

func (d *Decascade[T]) Write(source int, v T) bool { return d.sources[source].push(v) }

func (d *Decascade[T]) IsReadValid(sink int) bool { return d.sinks[sink].canPop() }

func (d *Decascade[T]) Peek(sink int) (T, bool) { return d.sinks[sink].peek() }

func (d *Decascade[T]) Read(sink int) (T, bool) { return d.sinks[sink].pop() }

// Clock: every source that has a queued payload adds itself as a
// requester of the sink its SinkFunc names; each sink with room grants
// one requester round-robin.
func (d *Decascade[T]) Clock() {
	requestingBySink := make([][]bool, d.n)
	for sink := range requestingBySink {
		requestingBySink[sink] = make([]bool, d.m)
	}

	for src := 0; src < d.m; src++ {
		v, ok := d.sources[src].peek()
		if !ok {
			continue
		}
		sink := d.get(v)
		requestingBySink[sink][src] = true
	}

	for sink := 0; sink < d.n; sink++ {
		if !d.sinks[sink].canPush() {
			continue
		}

		winner, ok := d.arbiters[sink].Grant(requestingBySink[sink])
		if !ok {
			continue
		}

		v, _ := d.sources[winner].pop()
		d.sinks[sink].push(v)
	}
}
