// Package bvh defines the scene-geometry data model (spec.md §3, §6) and
// the external collaborator contract the core reads it through: a flat
// byte array addressed by physical address, never an in-process object
// graph. Node/triangle/treelet layout is intentionally a simplified,
// uncompressed wide representation — geometry math and file-format
// fidelity are explicitly out of scope (spec.md §1, Non-goals); only the
// traversal shape the RT cores drive needs to survive.
package bvh

import (
	"encoding/binary"
	"math"
)

// NodeWidth is the wide-node fan-out (tree width), grounded on the
// original's n_ary_sz.
const NodeWidth = 8

// MaxStackDepth is the per-ray stack capacity in entries, 32 ×
// NodeWidth (spec.md §4.5).
const MaxStackDepth = 32 * NodeWidth

// Slot is one child of a wide node: its bounding box, and either a
// child node index (internal), a triangle base index and count (leaf),
// or — in the streaming engine — the id of a different treelet this
// child belongs to (CrossTreelet), which the RT core must not follow
// directly (spec.md §4.6, "Treelet crossing").
type Slot struct {
	Min, Max     [3]float32
	Child        uint32
	TriCount     uint8
	Leaf         bool
	Empty        bool
	CrossTreelet bool
}

// Node is one wide BVH node: up to NodeWidth children.
type Node struct {
	Slots [NodeWidth]Slot
}

const slotWireSize = 4*3 + 4*3 + 4 + 1 + 1 + 2 // mins+maxs+child+tricount+flags+pad
const NodeWireSize = slotWireSize * NodeWidth

// DecodeNode parses a Node out of a NodeWireSize-byte buffer.
func DecodeNode(buf []byte) Node {
	var n Node
	for i := 0; i < NodeWidth; i++ {
		b := buf[i*slotWireSize : (i+1)*slotWireSize]
		var s Slot
		for a := 0; a < 3; a++ {
			s.Min[a] = decodeFloat32(b[a*4:])
		}
		for a := 0; a < 3; a++ {
			s.Max[a] = decodeFloat32(b[12+a*4:])
		}
		s.Child = binary.LittleEndian.Uint32(b[24:28])
		s.TriCount = b[28]
		flags := b[29]
		s.Leaf = flags&0x1 != 0
		s.Empty = flags&0x2 != 0
		s.CrossTreelet = flags&0x4 != 0
		n.Slots[i] = s
	}
	return n
}

func decodeFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// EncodeNode is the inverse of DecodeNode, used by test harnesses and
// scene-preparation tooling to build the byte array a Collaborator
// serves.
func EncodeNode(n Node) []byte {
	buf := make([]byte, NodeWireSize)
	for i, s := range n.Slots {
		b := buf[i*slotWireSize : (i+1)*slotWireSize]
		for a := 0; a < 3; a++ {
			encodeFloat32(b[a*4:], s.Min[a])
		}
		for a := 0; a < 3; a++ {
			encodeFloat32(b[12+a*4:], s.Max[a])
		}
		binary.LittleEndian.PutUint32(b[24:28], s.Child)
		b[28] = s.TriCount
		var flags byte
		if s.Leaf {
			flags |= 0x1
		}
		if s.Empty {
			flags |= 0x2
		}
		if s.CrossTreelet {
			flags |= 0x4
		}
		b[29] = flags
	}
	return buf
}

func encodeFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

// Triangle is a single scene primitive: three vertices and its
// primitive id.
type Triangle struct {
	V0, V1, V2 [3]float32
	ID         uint32
}

const TriangleWireSize = 4*3*3 + 4

// DecodeTriangle parses a Triangle out of a TriangleWireSize-byte buffer.
func DecodeTriangle(buf []byte) Triangle {
	var t Triangle
	for a := 0; a < 3; a++ {
		t.V0[a] = decodeFloat32(buf[a*4:])
	}
	for a := 0; a < 3; a++ {
		t.V1[a] = decodeFloat32(buf[12+a*4:])
	}
	for a := 0; a < 3; a++ {
		t.V2[a] = decodeFloat32(buf[24+a*4:])
	}
	t.ID = binary.LittleEndian.Uint32(buf[36:40])
	return t
}

// EncodeTriangle is the inverse of DecodeTriangle.
func EncodeTriangle(t Triangle) []byte {
	buf := make([]byte, TriangleWireSize)
	for a := 0; a < 3; a++ {
		encodeFloat32(buf[a*4:], t.V0[a])
	}
	for a := 0; a < 3; a++ {
		encodeFloat32(buf[12+a*4:], t.V1[a])
	}
	for a := 0; a < 3; a++ {
		encodeFloat32(buf[24+a*4:], t.V2[a])
	}
	binary.LittleEndian.PutUint32(buf[36:40], t.ID)
	return buf
}

// TreeletHeader describes a streaming-engine treelet's shape (spec.md
// §3): parent/child treelet ids, depth, subtree size, and a per-page
// SAH weight vector the stream scheduler's prefetcher reads.
type TreeletHeader struct {
	SegmentID   uint32
	ParentID    uint32
	ChildIDs    [NodeWidth]uint32
	Depth       uint16
	SubtreeSize uint32
	NodeCount   uint32
	NodeBase    uint64 // paddr of this treelet's node array
	TriBase     uint64 // paddr of this treelet's triangle array
	PageWeights [4]float32
	BlockCount  uint32 // number of BlockSize-aligned blocks this treelet spans
}

const TreeletHeaderWireSize = 4 + 4 + 4*NodeWidth + 2 + 2 /*pad*/ + 4 + 4 + 8 + 8 + 4*4 + 4

// DecodeTreeletHeader parses a TreeletHeader out of a
// TreeletHeaderWireSize-byte buffer.
func DecodeTreeletHeader(buf []byte) TreeletHeader {
	var h TreeletHeader
	off := 0
	h.SegmentID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.ParentID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	for i := range h.ChildIDs {
		h.ChildIDs[i] = binary.LittleEndian.Uint32(buf[off:])
		off += 4
	}
	h.Depth = binary.LittleEndian.Uint16(buf[off:])
	off += 2 + 2
	h.SubtreeSize = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.NodeCount = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.NodeBase = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.TriBase = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	for i := range h.PageWeights {
		h.PageWeights[i] = decodeFloat32(buf[off:])
		off += 4
	}
	h.BlockCount = binary.LittleEndian.Uint32(buf[off:])
	return h
}

// Ray is the per-ray geometric state a slot carries (spec.md §3).
type Ray struct {
	Origin, Dir, InvDir [3]float32
	TMin, TMax          float32
}

// Hit is the best-hit-so-far record a slot accumulates and, on
// retirement, returns to the client.
type Hit struct {
	T      float32
	U, V   float32 // barycentrics
	PrimID uint32
	Found  bool
}

// Collaborator is the external BVH supplier (spec.md §6): a flat,
// paddr-addressed byte array containing nodes, triangles, and (for the
// streaming engine) treelet headers. The core never shares structure
// with it in-process; it only ever asks for bytes at an address.
type Collaborator interface {
	ReadBytes(paddr uint64, n int) []byte
}
