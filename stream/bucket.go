// Package stream implements the stream scheduler and scene buffer of
// spec.md §4.7/§4.8: the streaming engine's ray coalescer, segment
// lifecycle, DRAM channel machines, and bump-allocator memory manager,
// plus the on-chip treelet cache that feeds the streaming RT core.
// Grounded on
// original_source/src/arches-v2/units/dual-streaming/unit-stream-scheduler.{hpp,cpp}
// and .../unit-scene-buffer.{hpp,cpp}.
package stream

import (
	"encoding/binary"
	"math"

	"github.com/sarchlab/arches/rtcore"
)

func encodeFloat(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) }
func decodeFloat(b []byte) float32    { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }

// BucketSize is the fixed DRAM-traffic granularity of the streaming
// engine (spec.md §3, "Ray bucket"): a 2 KiB packed record.
const BucketSize = 2048

// bucketHeaderSize is next-bucket-addr(8) + segment-id(4) + flags(2) +
// count(2).
const bucketHeaderSize = 8 + 4 + 2 + 2

// rayPayloadSize is one ray-work-item's packed form inside a bucket:
// origin+dir (6 float32 = 24B) + global id (4B) + hint order (2B) + pad
// (2B).
const rayPayloadSize = 4*6 + 4 + 2 + 2

// MaxRaysPerBucket is the number of ray payloads that fit in one
// BucketSize-byte bucket after its header.
const MaxRaysPerBucket = (BucketSize - bucketHeaderSize) / rayPayloadSize

// bucket is an in-flight (not yet written, or just read) packed bucket:
// its header fields and the dense ray-payload array.
type bucket struct {
	segmentID  uint32
	nextBucket uint64
	rays       []rtcore.RayWorkItem
}

func newBucket(segmentID uint32) *bucket {
	return &bucket{segmentID: segmentID}
}

func (b *bucket) full() bool { return len(b.rays) >= MaxRaysPerBucket }

// encode packs b into a BucketSize-byte wire record.
func (b *bucket) encode() []byte {
	buf := make([]byte, BucketSize)
	binary.LittleEndian.PutUint64(buf[0:8], b.nextBucket)
	binary.LittleEndian.PutUint32(buf[8:12], b.segmentID)
	binary.LittleEndian.PutUint16(buf[14:16], uint16(len(b.rays)))

	off := bucketHeaderSize
	for _, r := range b.rays {
		encodeFloat(buf[off:], r.Ray.Origin[0])
		encodeFloat(buf[off+4:], r.Ray.Origin[1])
		encodeFloat(buf[off+8:], r.Ray.Origin[2])
		encodeFloat(buf[off+12:], r.Ray.Dir[0])
		encodeFloat(buf[off+16:], r.Ray.Dir[1])
		encodeFloat(buf[off+20:], r.Ray.Dir[2])
		binary.LittleEndian.PutUint32(buf[off+24:off+28], r.GlobalID)
		binary.LittleEndian.PutUint16(buf[off+28:off+30], r.HintOrder)
		off += rayPayloadSize
	}
	return buf
}

// decodeBucket unpacks a BucketSize-byte wire record back into its
// rays, given the segment id they all target (bucket granularity is
// per-segment, spec.md §4.7).
func decodeBucket(buf []byte) []rtcore.RayWorkItem {
	segmentID := binary.LittleEndian.Uint32(buf[8:12])
	count := int(binary.LittleEndian.Uint16(buf[14:16]))

	out := make([]rtcore.RayWorkItem, 0, count)
	off := bucketHeaderSize
	for i := 0; i < count; i++ {
		var item rtcore.RayWorkItem
		item.Ray.Origin[0] = decodeFloat(buf[off:])
		item.Ray.Origin[1] = decodeFloat(buf[off+4:])
		item.Ray.Origin[2] = decodeFloat(buf[off+8:])
		item.Ray.Dir[0] = decodeFloat(buf[off+12:])
		item.Ray.Dir[1] = decodeFloat(buf[off+16:])
		item.Ray.Dir[2] = decodeFloat(buf[off+20:])
		for a := 0; a < 3; a++ {
			item.Ray.InvDir[a] = 1.0 / item.Ray.Dir[a]
		}
		item.Ray.TMin = 0
		item.Ray.TMax = 1e30
		item.GlobalID = binary.LittleEndian.Uint32(buf[off+24 : off+28])
		item.HintOrder = binary.LittleEndian.Uint16(buf[off+28 : off+30])
		item.SegmentID = segmentID
		out = append(out, item)
		off += rayPayloadSize
	}
	return out
}
