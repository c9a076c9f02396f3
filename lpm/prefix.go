// Package lpm implements the longest-prefix matchers that back dictionary
// training and encoding: an unbounded-length Matcher and a 16-byte-capped
// CappedMatcher with a denser frozen form for the parsing phase.
package lpm

import (
	"encoding/binary"
	"unsafe"
)

// masks extracts the low k bytes of a little-endian uint64, k in 0..=8.
var masks = [9]uint64{
	0x0000000000000000,
	0x00000000000000FF,
	0x000000000000FFFF,
	0x0000000000FFFFFF,
	0x00000000FFFFFFFF,
	0x000000FFFFFFFFFF,
	0x0000FFFFFFFFFFFF,
	0x00FFFFFFFFFFFFFF,
	0xFFFFFFFFFFFFFFFF,
}

// MinMatch is the byte width of the prefix key used to bucket long patterns.
const MinMatch = 8

// prefixWord loads up to 8 bytes from the head of b as a little-endian u64,
// masked to length bytes (0..=8). For length < 8 this produces the same
// value an 8-byte load followed by masking would, without reading past the
// end of a short slice.
func prefixWord(b []byte, length int) uint64 {
	if length > 8 {
		length = 8
	}
	if length < 0 {
		length = 0
	}

	if len(b) < 8 {
		var buf [8]byte
		copy(buf[:], b)
		return binary.LittleEndian.Uint64(buf[:]) & masks[length]
	}

	// b has at least 8 bytes: an unaligned 8-byte load is safe and avoids
	// the bounds-checked path above on the hot short-pattern lookup.
	word := *(*uint64)(unsafe.Pointer(&b[0]))
	return word & masks[length]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
