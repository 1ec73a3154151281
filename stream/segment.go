package stream

// TraversalPolicy selects how the scheduler picks the next segment to
// prefetch (spec.md §4.7(b)).
type TraversalPolicy int

const (
	TraversalBFS TraversalPolicy = iota
	TraversalDFS
)

// WeightScheme selects how a DFS stack orders its candidates. Scheme 2
// (memory order) is the experimental one flagged in DESIGN.md's Open
// Questions.
type WeightScheme int

const (
	WeightTotal WeightScheme = iota
	WeightAverage
	WeightMemoryOrder
)

// lowWaterMark is the buckets-ready threshold below which the
// candidate set is grown (spec.md §4.7, "Scheduling heuristics").
const lowWaterMark = 16

// segmentState is one entry in the scheduler's segment-id → state map
// (spec.md §3, "Segment state").
type segmentState struct {
	id        uint32
	parentID  uint32
	hasParent bool
	depth     int

	parentFinished      bool
	prefetchIssued      bool
	prefetchComplete    bool
	childOrderGenerated bool
	retired             bool

	buckets     []bucketRef // FIFO of bucket locations, oldest first
	nextChannel int         // round-robin cursor for striping new buckets

	totalBuckets   int
	retiredBuckets int

	weight   float64
	rayCount int
}

func newSegmentState(id uint32, parentID uint32, hasParent bool, depth int) *segmentState {
	return &segmentState{id: id, parentID: parentID, hasParent: hasParent, depth: depth}
}

// bucketRef names one bucket's physical address and the channel it was
// striped onto.
type bucketRef struct {
	addr    uint64
	channel int
}

// nextStripe returns the channel the next bucket should be allocated
// on and advances the round-robin cursor (spec.md §4.7, "Memory
// manager").
func (s *segmentState) nextStripe(numChannels int) int {
	ch := s.nextChannel
	s.nextChannel = (s.nextChannel + 1) % numChannels
	return ch
}

// pushBucket records a bucket as durably written on the given channel.
func (s *segmentState) pushBucket(addr uint64, channel int) {
	s.buckets = append(s.buckets, bucketRef{addr: addr, channel: channel})
	s.totalBuckets++
}

// popBucket pops the oldest bucket location, FIFO.
func (s *segmentState) popBucket() (bucketRef, bool) {
	if len(s.buckets) == 0 {
		return bucketRef{}, false
	}
	ref := s.buckets[0]
	s.buckets = s.buckets[1:]
	return ref, true
}

func (s *segmentState) retireBucket() { s.retiredBuckets++ }

// readyToRetire reports whether every lifecycle condition in spec.md
// §4.7(b)'s final transition has been met.
func (s *segmentState) readyToRetire() bool {
	return s.parentFinished &&
		s.childOrderGenerated &&
		s.retiredBuckets >= s.totalBuckets &&
		len(s.buckets) == 0
}

// ready reports whether the segment has been prefetched into the
// scene buffer and has at least one bucket to dispatch.
func (s *segmentState) ready() bool {
	return s.prefetchComplete && len(s.buckets) > 0
}
