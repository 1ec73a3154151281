package dram

import "math/bits"

// fieldWidths holds the bit width of each address field, derived once
// from a Config's geometry.
type fieldWidths struct {
	offset, column, channel, rank, bank, row int
}

func bitWidth(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

func (c *Config) widths() fieldWidths {
	return fieldWidths{
		offset:  bitWidth(c.BlockSize),
		column:  bitWidth(c.Columns),
		channel: bitWidth(c.Channels),
		rank:    bitWidth(c.Ranks),
		bank:    bitWidth(c.Banks),
		row:     bitWidth(c.Rows),
	}
}

// Decode is the pure function (paddr) -> (channel, rank, bank, row,
// column) spec.md §6 calls for. Field order depends on c.Mapping:
//
//   - ColumnLowInterleaved: offset | column | channel | rank | bank | row
//   - ChannelAboveOffset:   offset | channel | column | bank | rank | row
func (c *Config) Decode(paddr uint64) (channel, rank, bank, row, column uint32) {
	w := c.widths()
	a := paddr >> uint(w.offset)

	switch c.Mapping {
	case ChannelAboveOffset:
		channel = uint32(extract(&a, w.channel))
		column = uint32(extract(&a, w.column))
		bank = uint32(extract(&a, w.bank))
		rank = uint32(extract(&a, w.rank))
		row = uint32(extract(&a, w.row))
	default: // ColumnLowInterleaved
		column = uint32(extract(&a, w.column))
		channel = uint32(extract(&a, w.channel))
		rank = uint32(extract(&a, w.rank))
		bank = uint32(extract(&a, w.bank))
		row = uint32(extract(&a, w.row))
	}

	return channel, rank, bank, row, column
}

// extract pulls the low `width` bits off *a and shifts them out.
func extract(a *uint64, width int) uint64 {
	if width == 0 {
		return 0
	}
	mask := uint64(1)<<uint(width) - 1
	v := *a & mask
	*a >>= uint(width)
	return v
}

// RowStride returns the address delta that advances exactly one row on
// the same channel/rank/bank (the "row-stride" address used by the
// spec.md §8 scenario c test): one full row's worth of columns, shifted
// into the row field's position.
func (c *Config) RowStride() uint64 {
	w := c.widths()
	var shift int
	switch c.Mapping {
	case ChannelAboveOffset:
		shift = w.offset + w.channel + w.column + w.bank + w.rank
	default:
		shift = w.offset + w.column + w.channel + w.rank + w.bank
	}
	return uint64(1) << uint(shift)
}
