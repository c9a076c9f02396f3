package lpm

import "bytes"

// prefixKey is the (prefix, length) composite key for the short-pattern
// lookup table.
type prefixKey struct {
	prefix uint64
	length uint8
}

// Matcher is the unbounded-length longest-prefix matcher. Short patterns
// (<= 8 bytes) live in a direct hash map; long patterns are bucketed by
// their 8-byte prefix, with suffix bytes held in a shared arena and each
// bucket kept sorted longest-first so the first hit is the longest match.
//
// Token ids must be inserted in ascending order starting from 0 — see
// Insert.
type Matcher struct {
	short map[prefixKey]uint16
	long  map[uint64][]uint16 // 8-byte prefix -> ids, longest suffix first

	arena []byte   // suffix bytes for long patterns, beyond the 8-byte prefix
	end   []uint32 // id's suffix bytes are arena[end[id]:end[id+1]]; end[0] == 0
}

// New creates an empty unbounded matcher.
func New() *Matcher {
	return &Matcher{
		short: make(map[prefixKey]uint16),
		long:  make(map[uint64][]uint16),
		arena: make([]byte, 0, 1<<16),
		end:   []uint32{0},
	}
}

// Insert registers pattern as mapping to id. Callers must insert ids
// sequentially starting at 0, and must never insert the same pattern twice
// with different ids.
func (m *Matcher) Insert(pattern []byte, id uint16) {
	if len(pattern) <= MinMatch {
		key := prefixKey{prefix: prefixWord(pattern, len(pattern)), length: uint8(len(pattern))}
		m.short[key] = id
		m.end = append(m.end, uint32(len(m.arena)))
		return
	}

	prefix := prefixWord(pattern, MinMatch)
	suffix := pattern[MinMatch:]
	m.arena = append(m.arena, suffix...)
	m.end = append(m.end, uint32(len(m.arena)))

	bucket := m.long[prefix]
	bucket = append(bucket, id)
	insertionSortByLengthDesc(bucket, m.end)
	m.long[prefix] = bucket
}

// insertionSortByLengthDesc re-sorts a freshly-appended bucket entry into
// place by descending pattern length. Buckets are small and grow one entry
// at a time, so a single insertion-sort pass is cheaper than a full sort.
func insertionSortByLengthDesc(bucket []uint16, end []uint32) {
	lengthOf := func(id uint16) int { return int(end[id+1]) - int(end[id]) }
	for i := len(bucket) - 1; i > 0; i-- {
		if lengthOf(bucket[i]) > lengthOf(bucket[i-1]) {
			bucket[i], bucket[i-1] = bucket[i-1], bucket[i]
		} else {
			break
		}
	}
}

// FindLongestMatch returns the id and length of the longest registered
// pattern that is a prefix of buf. ok is false when buf is empty, or when
// no registered pattern is a prefix of buf (which cannot happen for a
// non-empty buf once the 256 single-byte tokens are installed).
func (m *Matcher) FindLongestMatch(buf []byte) (id uint16, length int, ok bool) {
	if len(buf) > MinMatch {
		prefix := prefixWord(buf, MinMatch)
		if bucket, found := m.long[prefix]; found {
			suffixIn := buf[MinMatch:]
			for _, candidate := range bucket {
				if int(candidate)+1 >= len(m.end) {
					continue
				}
				start, stop := int(m.end[candidate]), int(m.end[candidate+1])
				if start < 0 || stop > len(m.arena) || start > stop {
					continue
				}
				suffix := m.arena[start:stop]
				if len(suffixIn) >= len(suffix) && bytes.HasPrefix(suffixIn, suffix) {
					return candidate, MinMatch + len(suffix), true
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
