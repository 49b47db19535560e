package load

import "math/bits"

// BitRange is an inclusive [Lsb, Msb] bit range.
type BitRange struct {
	Lsb, Msb uint
}

// Width is the number of bits the range spans.
func (r BitRange) Width() uint { return r.Msb - r.Lsb + 1 }

// SplitDiscontiguousMask implements spec.md §4.2's ATDF discontiguous
// field mask rule: when mask's popcount differs from its [lsb,msb] span
// width, the field is not contiguous and must be split into one
// single-bit field per set bit, named "<Name>_bitK" where K is that
// bit's absolute position. Enum attachment is dropped for split fields
// (the caller is responsible for not propagating enum_ref).
//
// Contiguous masks (popcount == span width) are returned as a single
// BitRange and IsSplit is false.
func SplitDiscontiguousMask(mask uint64) (ranges []BitRange, isSplit bool) {
	if mask == 0 {
		return nil, false
	}
	lsb := uint(bits.TrailingZeros64(mask))
	msb := uint(63 - bits.LeadingZeros64(mask))
	span := BitRange{Lsb: lsb, Msb: msb}
	popcount := bits.OnesCount64(mask)
	if uint(popcount) == span.Width() {
		return []BitRange{span}, false
	}
	out := make([]BitRange, 0, popcount)
	for bit := lsb; bit <= msb; bit++ {
		if mask&(1<<bit) != 0 {
			out = append(out, BitRange{Lsb: bit, Msb: bit})
		}
	}
	return out, true
}
