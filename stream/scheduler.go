package stream

import (
	"github.com/sarchlab/arches/cache"
	"github.com/sarchlab/arches/rtcore"
	"github.com/sarchlab/arches/sim"
	"github.com/sarchlab/arches/transaction"
)

// subBlockSize is the granularity a bucket is streamed to DRAM in —
// one transaction payload's worth (spec.md §4.7(c), "streams
// block-sized sub-requests").
const subBlockSize = transaction.MaxSize

// blocksPerBucket is how many sub-requests move one 2 KiB bucket.
const blocksPerBucket = BucketSize / subBlockSize

// Config configures a Scheduler.
type Config struct {
	NumChannels      int             `yaml:"num_channels"`
	ChannelBase      uint64          `yaml:"channel_base"`
	RowStride        uint64          `yaml:"row_stride"`
	MaxActiveSegment int             `yaml:"max_active_segment"`
	Policy           TraversalPolicy `yaml:"policy"`
	Weight           WeightScheme    `yaml:"weight"`
}

// bucketJob is one in-flight DRAM move of a whole bucket, streamed as
// blocksPerBucket sub-requests (spec.md §4.7(c)).
type bucketJob struct {
	isWrite   bool
	addr      uint64
	segmentID uint32
	channel   int
	buf       [BucketSize]byte
	nextBlock int // next sub-request index to issue
	inFlight  int // sub-requests issued but not yet returned
	done      int // sub-requests fully returned
}

// blockRefJob names the job and block index a streamed sub-request
// belongs to, keyed by its physical address.
type blockRefJob struct {
	job   *bucketJob
	block int
}

// Scheduler is the stream scheduler of spec.md §4.7: it coalesces
// incoming ray-work-items into 2 KiB buckets, tracks segment (treelet)
// lifecycle, drives the scene buffer's prefetch pipeline, and streams
// buckets to and from DRAM. It implements rtcore.Scheduler so a
// StreamingCore can be wired directly to it.
type Scheduler struct {
	sim.UnitBase

	kernel *sim.Kernel
	cfg    Config
	dram   cache.Higher
	scene  *SceneBuffer
	mem    *memoryManager

	partial map[uint32]*bucket // segment-id -> partial (not yet full) bucket

	segments map[uint32]*segmentState

	candidates []uint32 // BFS queue (front=next) or DFS stack (back=next)
	pending    []uint32 // segments written but not yet in the candidate set

	jobQueue    []*bucketJob
	inFlightJob map[uint64]blockRefJob

	ready []rtcore.RayWorkItem // dispatched rays awaiting pickup by the RT core

	raysInjected int
	raysRetired  int
	terminated   bool
}

// NewScheduler builds a Scheduler and registers it with kernel.
func NewScheduler(kernel *sim.Kernel, name string, cfg Config, dram cache.Higher, scene *SceneBuffer) *Scheduler {
	s := &Scheduler{
		kernel:      kernel,
		cfg:         cfg,
		dram:        dram,
		scene:       scene,
		mem:         newMemoryManager(cfg.NumChannels, cfg.ChannelBase, cfg.RowStride),
		partial:     make(map[uint32]*bucket),
		segments:    make(map[uint32]*segmentState),
		inFlightJob: make(map[uint64]blockRefJob),
	}
	id := kernel.RegisterUnit(s)
	s.InitUnitBase(id, name)
	return s
}

func (s *Scheduler) Reset() {
	s.partial = make(map[uint32]*bucket)
	s.segments = make(map[uint32]*segmentState)
	s.candidates, s.pending, s.jobQueue, s.ready = nil, nil, nil, nil
	s.inFlightJob = make(map[uint64]blockRefJob)
	s.raysInjected, s.raysRetired = 0, 0
	s.terminated = false
}

// segmentFor returns (creating if necessary) segmentID's lifecycle
// state (spec.md §4.7(b)).
func (s *Scheduler) segmentFor(id uint32) *segmentState {
	seg, ok := s.segments[id]
	if !ok {
		seg = newSegmentState(id, 0, false, 0)
		s.segments[id] = seg
	}
	return seg
}

// --- rtcore.Scheduler contract, consumed by the streaming RT core. ---

func (s *Scheduler) IsWorkItemRequestWritable() bool { return true }

// WriteWorkItemRequest coalesces item into its segment's partial
// bucket (spec.md §4.7(a)). Every ray entering the streaming engine —
// first injection and cross-treelet re-injection alike — goes through
// this one path.
func (s *Scheduler) WriteWorkItemRequest(item rtcore.RayWorkItem) bool {
	s.raysInjected++
	s.kernel.Activate()

	b, ok := s.partial[item.SegmentID]
	if !ok {
		b = newBucket(item.SegmentID)
		s.partial[item.SegmentID] = b
		s.markWritten(item.SegmentID)
	}
	b.rays = append(b.rays, item)
	if b.full() {
		s.flushBucket(item.SegmentID)
	}
	return true
}

// markWritten records a segment's first bucket write, per spec.md
// §4.7(b)'s "First bucket written" transition: the segment becomes a
// candidate for prefetch.
func (s *Scheduler) markWritten(id uint32) {
	if _, ok := s.segments[id]; !ok {
		s.segments[id] = newSegmentState(id, 0, false, 0)
	}
	s.pending = append(s.pending, id)
}

// flushSegment drains segmentID's partial bucket regardless of fill
// (spec.md §4.7(a)), e.g. because its parent just retired.
func (s *Scheduler) flushSegment(id uint32) {
	if b, ok := s.partial[id]; ok && len(b.rays) > 0 {
		s.flushBucket(id)
	}
}

func (s *Scheduler) flushBucket(id uint32) {
	b := s.partial[id]
	delete(s.partial, id)

	seg := s.segmentFor(id)
	channel := seg.nextStripe(s.cfg.NumChannels)
	addr := s.mem.alloc(channel)

	job := &bucketJob{isWrite: true, addr: addr, segmentID: id, channel: channel}
	copy(job.buf[:], b.encode())
	s.jobQueue = append(s.jobQueue, job)

	seg.rayCount += len(b.rays)
	seg.weight += float64(len(b.rays))
}

func (s *Scheduler) IsWorkItemReturnReadable() bool { return len(s.ready) > 0 }

func (s *Scheduler) PeekWorkItemReturn() rtcore.RayWorkItem { return s.ready[0] }

func (s *Scheduler) ReadWorkItemReturn() rtcore.RayWorkItem {
	item := s.ready[0]
	s.ready = s.ready[1:]
	if !item.TerminationMarker {
		s.raysRetired++
		s.kernel.Deactivate()
	}
	return item
}

// --- clocked behaviour. ---

func (s *Scheduler) ClockRise() {
	for s.dram.IsReturnReadable() {
		ret := s.dram.ReadReturn()
		s.absorbReturn(ret)
	}
}

func (s *Scheduler) absorbReturn(ret transaction.Return) {
	ref, ok := s.inFlightJob[ret.PAddr]
	if !ok {
		return
	}
	delete(s.inFlightJob, ret.PAddr)

	job := ref.job
	if !job.isWrite {
		copy(job.buf[ref.block*subBlockSize:], ret.Data[:subBlockSize])
	}
	job.inFlight--
	job.done++
	if job.done >= blocksPerBucket {
		s.completeJob(job)
	}
}

func (s *Scheduler) completeJob(job *bucketJob) {
	seg := s.segmentFor(job.segmentID)
	if job.isWrite {
		// Only now, with the bucket durably in DRAM, does it join the
		// segment's FIFO and the segment become a prefetch candidate
		// (spec.md §4.7(b), "First bucket written").
		seg.pushBucket(job.addr, job.channel)
		return
	}
	rays := decodeBucket(job.buf[:])
	s.ready = append(s.ready, rays...)
	seg.retireBucket()
	s.mem.free(job.channel, job.addr)
	s.checkRetire(seg)
}

func (s *Scheduler) ClockFall() {
	s.issueJobBlocks()
	s.growCandidateSet()
	s.drivePrefetch()
	s.dispatchReadyBuckets()
	s.checkTermination()
}

// issueJobBlocks streams one sub-request from the head job, per tick,
// to the shared DRAM controller (spec.md §4.7(c)).
func (s *Scheduler) issueJobBlocks() {
	if len(s.jobQueue) == 0 || !s.dram.IsRequestWritable() {
		return
	}
	job := s.jobQueue[0]
	addr := job.addr + uint64(job.nextBlock*subBlockSize)

	req := transaction.Request{PAddr: addr, Size: subBlockSize}
	if job.isWrite {
		req.Type = transaction.ReqStore
		copy(req.Data[:subBlockSize], job.buf[job.nextBlock*subBlockSize:])
	} else {
		req.Type = transaction.ReqLoad
	}

	if !s.dram.WriteRequest(req) {
		return
	}
	s.inFlightJob[addr] = blockRefJob{job: job, block: job.nextBlock}
	job.nextBlock++
	job.inFlight++

	if job.nextBlock >= blocksPerBucket {
		// Every sub-request has been issued; the job itself drains out
		// of inFlightJob as the remaining acks/fills return.
		s.jobQueue = s.jobQueue[1:]
	}
}

// growCandidateSet expands the candidate set when buckets-ready falls
// below the low-water mark (spec.md §4.7, "Scheduling heuristics").
// BFS drains pending in child-index (arrival) order; DFS always picks
// the heaviest pending segment first, approximating a weight-ascending
// stack push followed by a pop of the top.
func (s *Scheduler) growCandidateSet() {
	ready := 0
	for _, id := range s.candidates {
		ready += len(s.segments[id].buckets)
	}
	for ready < lowWaterMark && len(s.candidates) < s.cfg.MaxActiveSegment && len(s.pending) > 0 {
		idx := s.nextPendingIndex()
		id := s.pending[idx]
		s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
		s.candidates = append(s.candidates, id)
		ready += len(s.segments[id].buckets)
	}
}

func (s *Scheduler) nextPendingIndex() int {
	if s.cfg.Policy == TraversalBFS {
		return 0
	}
	best := 0
	bestWeight := s.weightOf(s.pending[0])
	for i := 1; i < len(s.pending); i++ {
		if w := s.weightOf(s.pending[i]); w > bestWeight {
			best, bestWeight = i, w
		}
	}
	return best
}

func (s *Scheduler) weightOf(id uint32) float64 {
	seg := s.segments[id]
	switch s.cfg.Weight {
	case WeightAverage:
		if seg.rayCount == 0 {
			return 0
		}
		return seg.weight / float64(seg.rayCount)
	case WeightMemoryOrder:
		return -float64(seg.id) // experimental: lower segment id first
	default:
		return seg.weight
	}
}

// drivePrefetch issues scene-buffer prefetches for candidates not yet
// issued, and promotes prefetch-complete candidates to ready.
func (s *Scheduler) drivePrefetch() {
	for _, id := range s.candidates {
		seg := s.segments[id]
		if seg.retired {
			continue
		}
		if !seg.prefetchIssued {
			blockCount := BucketSize / s.scene.cfg.BlockSize
			if s.scene.RequestPrefetch(id, blockCount) {
				seg.prefetchIssued = true
			}
			continue
		}
		if !seg.prefetchComplete && s.scene.IsPrefetchComplete(id) {
			seg.prefetchComplete = true
		}
	}
}

// dispatchReadyBuckets pops the oldest bucket from each ready segment
// and enqueues a DRAM read work item (spec.md §4.7(b)).
func (s *Scheduler) dispatchReadyBuckets() {
	next := s.candidates[:0]
	for _, id := range s.candidates {
		seg := s.segments[id]
		if seg.ready() {
			if ref, ok := seg.popBucket(); ok {
				job := &bucketJob{segmentID: id, addr: ref.addr, channel: ref.channel}
				s.jobQueue = append(s.jobQueue, job)
			}
		}
		if !seg.readyToRetire() {
			next = append(next, id)
		} else {
			seg.retired = true
			s.scene.Retire(id)
		}
	}
	s.candidates = next
}

func (s *Scheduler) checkRetire(seg *segmentState) {
	if seg.hasParent {
		if parent, ok := s.segments[seg.parentID]; ok && parent.retired {
			seg.parentFinished = true
			s.flushSegment(seg.id)
		}
	} else {
		seg.parentFinished = true
	}
	seg.childOrderGenerated = true // leaf-only scenes: no children to order further
}

// checkTermination implements spec.md §4.7's failure/shutdown path:
// once every injected ray has retired and no work remains, the
// scheduler emits a size-0 termination marker.
func (s *Scheduler) checkTermination() {
	if s.terminated {
		return
	}
	if s.raysInjected == 0 || s.raysRetired < s.raysInjected {
		return
	}
	if len(s.jobQueue) > 0 || len(s.partial) > 0 || len(s.pending) > 0 || len(s.candidates) > 0 {
		return
	}
	s.terminated = true
	s.ready = append(s.ready, rtcore.RayWorkItem{TerminationMarker: true})
}
