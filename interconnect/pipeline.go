package interconnect

// Pipeline is a FIFO with fixed latency L: a payload written at tick t
// becomes readable no earlier than tick t+L (spec.md §3, §4.2). Writes
// may occur while earlier slots are occupied, provided the tail stage
// is free; occupancy is tracked as a bitmap (stored here as a []bool,
// the Go-idiomatic equivalent) so sparse pipelines — most slots empty —
// don't need to materialize a value in every stage. There are L+1
// stages: Write fills the tail (stage 0) and each Clock moves a payload
// one stage on, so it reaches the head (stage L) after L Clock calls.
//
// Callers must invoke Clock exactly once per simulator tick, after any
// Write calls for that tick have been issued — conventionally from the
// owning unit's ClockFall, mirroring the teacher's "advance registers at
// the end of the phase that decided them" pattern.
type Pipeline[T any] struct {
	latency  int
	stages   []T
	occupied []bool
}

// NewPipeline creates a Pipeline with the given fixed latency. Latency
// must be >= 1.
func NewPipeline[T any](latency int) *Pipeline[T] {
	if latency < 1 {
		panic("interconnect: pipeline latency must be >= 1")
	}
	return &Pipeline[T]{
		latency:  latency,
		stages:   make([]T, latency+1),
		occupied: make([]bool, latency+1),
	}
}

// IsWriteValid reports whether the tail stage (index 0) is free.
func (p *Pipeline[T]) IsWriteValid() bool {
	return !p.occupied[0]
}

// Write inserts v into the tail stage. Returns false (back-pressure)
// if the tail stage is already occupied.
func (p *Pipeline[T]) Write(v T) bool {
	if !p.IsWriteValid() {
		return false
	}
	p.stages[0] = v
	p.occupied[0] = true
	return true
}

// IsReadValid reports whether the head stage holds a readable payload.
func (p *Pipeline[T]) IsReadValid() bool {
	return p.occupied[p.latency]
}

// Peek returns the head-stage payload without removing it.
func (p *Pipeline[T]) Peek() (T, bool) {
	var zero T
	if !p.IsReadValid() {
		return zero, false
	}
	return p.stages[p.latency], true
}

// Read removes and returns the head-stage payload.
func (p *Pipeline[T]) Read() (T, bool) {
	v, ok := p.Peek()
	if ok {
		p.occupied[p.latency] = false
	}
	return v, ok
}

// Clock moves every payload one stage toward the head when the stage
// ahead of it is free. A payload at the head stays there until it is
// read, and the payloads behind it wait. Must be called exactly once
// per tick.
func (p *Pipeline[T]) Clock() {
	for i := p.latency; i > 0; i-- {
		if p.occupied[i-1] && !p.occupied[i] {
			p.stages[i] = p.stages[i-1]
			p.occupied[i] = true
			p.occupied[i-1] = false
		}
	}
}

// Occupancy returns a copy of the stage-occupancy bitmap, tail first,
// for telemetry (utilisation counters, spec.md §2).
func (p *Pipeline[T]) Occupancy() []bool {
	out := make([]bool, len(p.occupied))
	copy(out, p.occupied)
	return out
}
