package stream

// memoryManager is the streaming engine's bucket allocator (spec.md
// §4.7, "Memory manager"): per channel, a bump allocator of BucketSize
// buckets aligned to DRAM row boundaries, with a free list for retired
// buckets. Allocation round-robins across channels within a segment so
// a segment's bandwidth fans out across every channel.
type memoryManager struct {
	numChannels int
	rowStride   uint64
	channelBase []uint64
	bumpOffset  []uint64
	freeList    [][]uint64
}

func newMemoryManager(numChannels int, channelBase uint64, rowStride uint64) *memoryManager {
	m := &memoryManager{
		numChannels: numChannels,
		rowStride:   rowStride,
		channelBase: make([]uint64, numChannels),
		bumpOffset:  make([]uint64, numChannels),
		freeList:    make([][]uint64, numChannels),
	}
	for ch := range m.channelBase {
		m.channelBase[ch] = channelBase + uint64(ch)*rowStride*1024
	}
	return m
}

// alloc returns a fresh bucket address on channel ch (channel selection
// is the caller's responsibility, per the round-robin striping rule).
func (m *memoryManager) alloc(ch int) uint64 {
	if n := len(m.freeList[ch]); n > 0 {
		addr := m.freeList[ch][n-1]
		m.freeList[ch] = m.freeList[ch][:n-1]
		return addr
	}
	addr := m.channelBase[ch] + m.bumpOffset[ch]
	m.bumpOffset[ch] += BucketSize
	return addr
}

func (m *memoryManager) free(ch int, addr uint64) {
	m.freeList[ch] = append(m.freeList[ch], addr)
}
