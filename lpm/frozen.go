package lpm

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// nInline is the number of bucket entries kept inline in a frozenBucket
// before overflowing into the shared spill slice. Most 8-byte-prefix
// buckets observed during training hold only a handful of candidates, so
// inlining avoids a pointer chase for the common case.
const nInline = 4

// FrozenCappedMatcher is the read-only, denser representation of a
// CappedMatcher built once training ends. It replaces the dynamic bucket
// map with a perfect hash over observed 8-byte prefixes, which is
// the "denser in-memory representation" the capped dictionary variant is
// specified to use during the encoding phase.
type FrozenCappedMatcher struct {
	short map[prefixKey]uint16

	mph     *perfectHash
	buckets []frozenBucket
	spill   []cappedBucketEntry
}

type frozenBucket struct {
	prefix        uint64
	present       bool
	inlineSuffix  [nInline]uint64
	inlineLength  [nInline]uint8
	inlineID      [nInline]uint16
	inlineCount   uint8
	spillOffset   uint32
	spillCount    uint32
	fallbackID    uint16
	fallbackLen   uint8
	hasFallback8  bool // a plain 8-byte short pattern shares this prefix
}

// Freeze converts a fully-trained CappedMatcher into its frozen form.
func (m *CappedMatcher) Freeze() *FrozenCappedMatcher {
	prefixes := make([]uint64, 0, len(m.buckets)+len(m.short))
	seen := make(map[uint64]bool, len(m.buckets))
	for prefix := range m.buckets {
		prefixes = append(prefixes, prefix)
		seen[prefix] = true
	}
	// 8-byte short patterns share the same prefix-key space as long-bucket
	// prefixes (both are keyed by the first 8 bytes); fold them in so a
	// single hash covers both.
	for key := range m.short {
		if key.length == MinMatch && !seen[key.prefix] {
			prefixes = append(prefixes, key.prefix)
			seen[key.prefix] = true
		}
	}

	mph := newPerfectHash(prefixes)
	buckets := make([]frozenBucket, mph.tableSize)
	var spill []cappedBucketEntry

	for prefix, bucket := range m.buckets {
		idx := mph.index(prefix)
		fb := frozenBucket{prefix: prefix, present: true}
		for i := 0; i < len(bucket) && i < nInline; i++ {
			fb.inlineSuffix[i] = bucket[i].suffix
			fb.inlineLength[i] = bucket[i].length
			fb.inlineID[i] = bucket[i].id
			fb.inlineCount++
		}
		if len(bucket) > nInline {
			fb.spillOffset = uint32(len(spill))
			fb.spillCount = uint32(len(bucket) - nInline)
			spill = append(spill, bucket[nInline:]...)
		}
		buckets[idx] = fb
	}

	short := make(map[prefixKey]uint16, len(m.short))
	for key, id := range m.short {
		if key.length == MinMatch {
			idx := mph.index(key.prefix)
			fb := buckets[idx]
			fb.prefix = key.prefix
			fb.present = true
			fb.hasFallback8 = true
			fb.fallbackID = id
			fb.fallbackLen = MinMatch
			buckets[idx] = fb
			continue
		}
		short[key] = id
	}

	return &FrozenCappedMatcher{
		short:   short,
		mph:     mph,
		buckets: buckets,
		spill:   spill,
	}
}

// FindLongestMatch returns the id and length of the longest registered
// pattern that is a prefix of buf.
func (fm *FrozenCappedMatcher) FindLongestMatch(buf []byte) (id uint16, length int, ok bool) {
	// 8-byte patterns live only in the prefix buckets, so a buf of exactly
	// MinMatch bytes must consult its bucket too.
	if len(buf) >= MinMatch {
		prefix := prefixWord(buf, MinMatch)
		idx := fm.mph.index(prefix)
		if idx >= 0 && idx < len(fm.buckets) {
			fb := fm.buckets[idx]
			if fb.present && fb.prefix == prefix {
				suffixAvail := len(buf) - MinMatch
				inputSuffix := prefixWord(buf[MinMatch:], min(suffixAvail, MinMatch))

				for i := 0; i < int(fb.inlineCount); i++ {
					if isPackedPrefix(inputSuffix, fb.inlineSuffix[i], suffixAvail, int(fb.inlineLength[i])) {
						return fb.inlineID[i], MinMatch + int(fb.inlineLength[i]), true
					}
				}
				for i := uint32(0); i < fb.spillCount; i++ {
					entry := fm.spill[fb.spillOffset+i]
					if isPackedPrefix(inputSuffix, entry.suffix, suffixAvail, int(entry.length)) {
						return entry.id, MinMatch + int(entry.length), true
					}
				}
				if fb.hasFallback8 {
					return fb.fallbackID, int(fb.fallbackLen), true
				}
			}
		}
	}

	maxLen := min(len(buf), MinMatch)
	for l := maxLen; l >= 1; l-- {
		key := prefixKey{prefix: prefixWord(buf, l), length: uint8(l)}
		if candidate, found := fm.short[key]; found {
			return candidate, l, true
		}
	}

	return 0, 0, false
}

// perfectHash is a displacement-based perfect hash over a fixed set of
// uint64 keys, built once at Freeze time, with a table about 5% larger
// than the key set. It trades a one-time
// construction cost for collision-free O(1) lookups during encoding.
type perfectHash struct {
	displacement []uint32
	tableSize    int
	seed         uint64
}

func newPerfectHash(keys []uint64) *perfectHash {
	if len(keys) == 0 {
		return &perfectHash{tableSize: 0, seed: 0}
	}

	tableSize := len(keys) + len(keys)/20 + 1

	seed := uint64(0x9E3779B97F4A7C15)
	for attempt := 0; attempt < 64; attempt++ {
		buckets := make(map[int][]uint64)
		for _, k := range keys {
			h := bucketHash(k, seed, tableSize)
			buckets[h] = append(buckets[h], k)
		}

		displacement := make([]uint32, tableSize)
		occupied := make([]bool, tableSize)
		ok := true

		order := make([]int, 0, len(buckets))
		for b := range buckets {
			order = append(order, b)
		}
		sortDescByLen(order, buckets)

		for _, b := range order {
			group := buckets[b]
			found := false
			for d := uint32(0); d < uint32(tableSize*4) && !found; d++ {
				positions := make([]int, len(group))
				clash := false
				local := make(map[int]bool, len(group))
				for i, k := range group {
					pos := slotHash(k, d, seed, tableSize)
					if occupied[pos] || local[pos] {
						clash = true
						break
					}
					local[pos] = true
					positions[i] = pos
				}
				if clash {
					continue
				}
				for _, pos := range positions {
					occupied[pos] = true
				}
				displacement[b] = d
				found = true
			}
			if !found {
				ok = false
				break
			}
		}

		if ok {
			return &perfectHash{displacement: displacement, tableSize: tableSize, seed: seed}
		}

		seed = xxhash.Sum64(uint64ToBytes(seed))
	}

	// Extremely unlikely fallback: a table sized generously enough that
	// every key gets its own bucket, so displacement 0 never collides
	// across buckets (within-bucket collisions still probed above).
	tableSize = len(keys) * 4
	return &perfectHash{displacement: make([]uint32, tableSize), tableSize: tableSize, seed: seed}
}

func (p *perfectHash) index(key uint64) int {
	if p.tableSize == 0 {
		return -1
	}
	b := bucketHash(key, p.seed, p.tableSize)
	d := uint32(0)
	if b < len(p.displacement) {
		d = p.displacement[b]
	}
	return slotHash(key, d, p.seed, p.tableSize)
}

func bucketHash(key, seed uint64, tableSize int) int {
	h := key ^ seed
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return int(h % uint64(tableSize))
}

func slotHash(key uint64, displacement uint32, seed uint64, tableSize int) int {
	h := key ^ seed ^ uint64(displacement)
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return int(h % uint64(tableSize))
}

func sortDescByLen(order []int, buckets map[int][]uint64) {
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && len(buckets[order[j]]) > len(buckets[order[j-1]]); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
