package rtcore

import "github.com/sarchlab/arches/interconnect"

// throughputPipeline wraps interconnect.Pipeline with a minimum spacing
// between accepted writes, modelling the initiation-interval the box
// and triangle intersection pipelines need beyond interconnect.Pipeline's
// plain fixed-latency shift register (spec.md §4.5: "latency-L,
// initiation-interval-1 ... or latency-22, II-8").
type throughputPipeline[T any] struct {
	stages   *interconnect.Pipeline[T]
	ii       int
	cooldown int
}

func newThroughputPipeline[T any](latency, ii int) *throughputPipeline[T] {
	if ii < 1 {
		ii = 1
	}
	return &throughputPipeline[T]{stages: interconnect.NewPipeline[T](latency), ii: ii}
}

func (p *throughputPipeline[T]) IsWriteValid() bool {
	return p.cooldown == 0 && p.stages.IsWriteValid()
}

func (p *throughputPipeline[T]) Write(v T) bool {
	if !p.IsWriteValid() {
		return false
	}
	p.stages.Write(v)
	p.cooldown = p.ii
	return true
}

func (p *throughputPipeline[T]) IsReadValid() bool { return p.stages.IsReadValid() }

func (p *throughputPipeline[T]) Read() (T, bool) { return p.stages.Read() }

// Clock must be called exactly once per tick, mirroring
// interconnect.Pipeline's own contract.
func (p *throughputPipeline[T]) Clock() {
	p.stages.Clock()
	if p.cooldown > 0 {
		p.cooldown--
	}
}
