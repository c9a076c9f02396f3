package lpm

import "math/bits"

// MaxCappedLength is the hard ceiling on token length for the 16-capped
// dictionary variant.
const MaxCappedLength = 16

// BucketMax is the hard capacity of a long-pattern bucket in the capped
// variant. Insert refuses patterns that would push a bucket past this.
const BucketMax = 128

type cappedBucketEntry struct {
	suffix uint64
	length uint8
	id     uint16
}

// CappedMatcher is the training-time longest-prefix matcher for the
// 16-byte-capped dictionary variant. Unlike Matcher, long-pattern suffixes
// (up to 8 bytes beyond the 8-byte prefix) are packed inline into a uint64
// rather than stored in a byte arena, since a capped pattern is at
// most 16 bytes total. Call Freeze once training completes to obtain the
// denser read-only representation used during encoding.
type CappedMatcher struct {
	short   map[prefixKey]uint16
	buckets map[uint64][]cappedBucketEntry
}

// NewCapped creates an empty capped matcher.
func NewCapped() *CappedMatcher {
	return &CappedMatcher{
		short:   make(map[prefixKey]uint16),
		buckets: make(map[uint64][]cappedBucketEntry),
	}
}

// Insert registers pattern (1..=16 bytes) as mapping to id. Returns false
// without mutating state if the pattern's bucket is already at BucketMax —
// the caller should treat this as a dropped promotion, not an error.
func (m *CappedMatcher) Insert(pattern []byte, id uint16) bool {
	if len(pattern) <= MinMatch {
		key := prefixKey{prefix: prefixWord(pattern, len(pattern)), length: uint8(len(pattern))}
		m.short[key] = id
		return true
	}

	prefix := prefixWord(pattern, MinMatch)
	bucket := m.buckets[prefix]
	if len(bucket) >= BucketMax {
		return false
	}

	suffixLen := len(pattern) - MinMatch
	entry := cappedBucketEntry{
		suffix: prefixWord(pattern[MinMatch:], suffixLen),
		length: uint8(suffixLen),
		id:     id,
	}
	bucket = append(bucket, entry)
	for i := len(bucket) - 1; i > 0; i-- {
		if bucket[i].length > bucket[i-1].length {
			bucket[i], bucket[i-1] = bucket[i-1], bucket[i]
		} else {
			break
		}
	}
	m.buckets[prefix] = bucket
	return true
}

// FindLongestMatch returns the id and length of the longest registered
// pattern that is a prefix of buf.
func (m *CappedMatcher) FindLongestMatch(buf []byte) (id uint16, length int, ok bool) {
	if len(buf) > MinMatch {
		prefix := prefixWord(buf, MinMatch)
		if bucket, found := m.buckets[prefix]; found {
			suffixAvail := len(buf) - MinMatch
			inputSuffix := prefixWord(buf[MinMatch:], min(suffixAvail, MinMatch))
			for _, entry := range bucket {
				if isPackedPrefix(inputSuffix, entry.suffix, suffixAvail, int(entry.length)) {
					return entry.id, MinMatch + int(entry.length), true
				}
			}
		}
	}

	maxLen := min(len(buf), MinMatch)
	for l := maxLen; l >= 1; l-- {
		key := prefixKey{prefix: prefixWord(buf, l), length: uint8(l)}
		if candidate, found := m.short[key]; found {
			return candidate, l, true
		}
	}

	return 0, 0, false
}

// isPackedPrefix reports whether the stored suffix (packed into a uint64,
// storedLen bytes significant) is a prefix of the input suffix (packed the
// same way, with inputLen bytes actually available from the source
// buffer). Comparing trailing-zero counts of the XOR avoids an explicit
// byte-by-byte loop for patterns of at most 8 bytes.
func isPackedPrefix(input, stored uint64, inputLen, storedLen int) bool {
	if storedLen > inputLen {
		return false
	}
	if storedLen == 0 {
		return true
	}
	return bits.TrailingZeros64(input^stored)>>3 >= storedLen
}
