package transaction

// DstStack is the small fixed-width LIFO of bit-fields carried by every
// memory transaction (spec.md §3, "Destination bit-stack"). Each
// crossbar or cascade layer that multiplexes sources pushes its
// input-port index onto the stack on the request path; the return path
// pops the top field to recover the next hop.
//
// Two widths are used in practice: 27 bits of payload with a 5-bit
// cursor (32 bits total) for the narrow variant, and 58 bits of payload
// with a 6-bit cursor (64 bits total) for the wide variant. DstStack
// itself is width-parameterized so both fit the same type. The zero
// value is ready to use: its first Push gives it the wide capacity.
type DstStack struct {
	capacity uint8 // 27 or 58
	bits     uint64
	cursor   uint8 // bits currently occupied
}

// NewDstStack27 returns an empty narrow (27-bit payload, 5-bit cursor)
// dst-stack, the variant used where a transaction crosses few hops.
func NewDstStack27() DstStack {
	return DstStack{capacity: 27}
}

// NewDstStack58 returns an empty wide (58-bit payload, 6-bit cursor)
// dst-stack, the variant used for deep hop counts (e.g. the stream
// scheduler's channel + bank + segment routing).
func NewDstStack58() DstStack {
	return DstStack{capacity: 58}
}

// Len reports the number of bits currently occupied on the stack. Used
// to check the round-trip invariant: the length on return must equal
// the length at injection (spec.md §8, property 3).
func (s DstStack) Len() uint8 { return s.cursor }

// Push stamps value (only its low width bits are used) onto the top of
// the stack. Panics — a fatal simulator error per spec.md §7 — if the
// stack has no room left, since that indicates a topology with more
// hops than the configured dst-stack width supports.
func (s *DstStack) Push(value uint32, width uint8) {
	if width == 0 {
		return
	}
	if s.capacity == 0 {
		s.capacity = 58
	}
	if s.cursor+width > s.capacity {
		panic("transaction: dst-stack push overflow")
	}

	mask := uint64(1)<<width - 1
	s.bits = (s.bits << width) | (uint64(value) & mask)
	s.cursor += width
}

// Pop recovers the most recently pushed width-bit field. Panics on
// underflow (spec.md §7, "Bit-stack underflow on return").
func (s *DstStack) Pop(width uint8) uint32 {
	if width == 0 {
		return 0
	}
	if width > s.cursor {
		panic("transaction: dst-stack pop underflow")
	}

	mask := uint64(1)<<width - 1
	value := uint32(s.bits & mask)
	s.bits >>= width
	s.cursor -= width

	return value
}

// Empty reports whether the stack has been fully unwound.
func (s DstStack) Empty() bool { return s.cursor == 0 }
