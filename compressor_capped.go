package onpair

import (
	"fmt"
	"unsafe"

	"github.com/onpairdb/onpair/internal/memo"
	"github.com/onpairdb/onpair/internal/rng"
	"github.com/onpairdb/onpair/lpm"
)

// CompressorCapped is the 16-byte-capped dictionary variant. No token may
// exceed lpm.MaxCappedLength bytes, which lets the frozen matcher built at
// the end of training use a denser, hash-indexed representation instead of
// the unbounded variant's suffix byte arena.
type CompressorCapped struct {
	cfg Config

	frozen        *lpm.FrozenCappedMatcher
	dictionary    []byte
	tokenOffsets  []uint32
	compressed    []uint16
	stringOffsets []int

	memo *memo.Cache
}

// New16 creates an empty capped compressor.
func New16(opts ...Option) *CompressorCapped {
	cfg := newConfig(opts)
	return &CompressorCapped{
		cfg:          cfg,
		dictionary:   make([]byte, 0),
		tokenOffsets: make([]uint32, 0),
		compressed:   make([]uint16, 0),
		memo:         memo.New(cfg.MemoCapacity),
	}
}

// WithCapacity16 creates an empty capped compressor with capacity hints.
func WithCapacity16(nStrings, nBytes int, opts ...Option) *CompressorCapped {
	cfg := newConfig(opts)
	return &CompressorCapped{
		cfg:           cfg,
		dictionary:    make([]byte, 0, nBytes/4+1024),
		tokenOffsets:  make([]uint32, 0, 1<<16),
		compressed:    make([]uint16, 0, nBytes/2+1),
		stringOffsets: make([]int, 0, nStrings+1),
		memo:          memo.New(cfg.MemoCapacity),
	}
}

// CompressStrings trains and compresses, flattening the input for the
// caller.
func (c *CompressorCapped) CompressStrings(strings []string) {
	data, endPositions := flattenStrings(strings)
	c.CompressBytes(data, endPositions)
}

// CompressBytes trains a dictionary on pre-flattened data and compresses
// it.
func (c *CompressorCapped) CompressBytes(data []byte, endPositions []int) {
	dynamic := c.train(data, endPositions)
	c.frozen = dynamic.Freeze()
	c.parse(data, endPositions)
}

// train builds the capped dictionary. Unlike the unbounded variant, a
// merge is only considered when the combined length stays within
// lpm.MaxCappedLength, and the matcher may refuse an insertion on bucket
// overflow — in which case training simply continues as if the threshold
// had not fired.
func (c *CompressorCapped) train(data []byte, endPositions []int) *lpm.CappedMatcher {
	matcher := lpm.NewCapped()
	c.tokenOffsets = append(c.tokenOffsets, 0)

	for i := 0; i < singleByteTokens; i++ {
		token := []byte{byte(i)}
		matcher.Insert(token, uint16(i))
		c.dictionary = append(c.dictionary, token...)
		c.tokenOffsets = append(c.tokenOffsets, uint32(len(c.dictionary)))
	}

	numStrings := len(endPositions) - 1
	if numStrings <= 0 {
		c.dictionary = append(c.dictionary, make([]byte, fastCopyWidth)...)
		return matcher
	}

	shuffled := make([]int, numStrings)
	for i := range shuffled {
		shuffled[i] = i
	}
	rng.New(c.cfg.Seed).ShuffleInts(shuffled)

	threshold := c.cfg.Threshold
	if threshold == 0 {
		threshold = promotionThreshold(len(data))
	}

	frequency := make(map[[2]uint16]uint16)
	nextTokenID := uint16(singleByteTokens)

outer:
	for _, index := range shuffled {
		start, end := endPositions[index], endPositions[index+1]
		if start == end {
			continue
		}

		prevID, prevLen, ok := matcher.FindLongestMatch(data[start:end])
		if !ok {
			continue
		}
		pos := start + prevLen

		for pos < end {
			curID, curLen, ok := matcher.FindLongestMatch(data[pos:end])
			if !ok {
				break
			}

			if prevLen+curLen > lpm.MaxCappedLength {
				prevID, prevLen = curID, curLen
				pos += curLen
				continue
			}

			pair := [2]uint16{prevID, curID}
			frequency[pair]++

			if frequency[pair] >= threshold {
				merged := data[pos-prevLen : pos+curLen]
				if matcher.Insert(merged, nextTokenID) {
					c.dictionary = append(c.dictionary, merged...)
					c.tokenOffsets = append(c.tokenOffsets, uint32(len(c.dictionary)))
					delete(frequency, pair)

					prevID, prevLen = nextTokenID, len(merged)
					if nextTokenID == maxTokenID {
						break outer
					}
					nextTokenID++
				} else {
					// Bucket overflow: the candidate token is
					// silently dropped. Training continues as if
					// the threshold had not fired.
					prevID, prevLen = curID, curLen
				}
			} else {
				prevID, prevLen = curID, curLen
			}
			pos += curLen
		}
	}

	c.dictionary = append(c.dictionary, make([]byte, fastCopyWidth)...)
	return matcher
}

func (c *CompressorCapped) parse(data []byte, endPositions []int) {
	c.stringOffsets = append(c.stringOffsets, 0)
	for i := 0; i < len(endPositions)-1; i++ {
		start, end := endPositions[i], endPositions[i+1]
		ids := c.encodeSpan(data[start:end])
		c.compressed = append(c.compressed, ids...)
		c.stringOffsets = append(c.stringOffsets, len(c.compressed))
	}
}

func (c *CompressorCapped) encodeSpan(span []byte) []uint16 {
	if len(span) == 0 {
		return nil
	}
	if ids, ok := c.memo.Get(string(span)); ok {
		return ids
	}

	ids := make([]uint16, 0, len(span)/2+1)
	pos := 0
	for pos < len(span) {
		id, length, ok := c.frozen.FindLongestMatch(span[pos:])
		if !ok {
			break
		}
		ids = append(ids, id)
		pos += length
	}
	c.memo.Put(string(span), ids)
	return ids
}

// DecompressString writes string index's original bytes into buffer and
// returns their length.
func (c *CompressorCapped) DecompressString(index int, buffer []byte) int {
	start, stop := c.stringOffsets[index], c.stringOffsets[index+1]
	return c.decodeInto(buffer, c.compressed[start:stop])
}

// DecompressAll writes every string's bytes, concatenated in order, into
// buffer and returns the total length.
func (c *CompressorCapped) DecompressAll(buffer []byte) int {
	return c.decodeInto(buffer, c.compressed)
}

// DecompressStringChecked is DecompressString with a precomputed bounds
// check, returning ErrShortBuffer instead of writing past buffer. Unlike
// DecompressString it copies each token at its exact length rather than
// using the unconditional fastCopyWidth-byte overcopy, so a buffer sized
// to exactly the decoded length is never written past.
func (c *CompressorCapped) DecompressStringChecked(index int, buffer []byte) (int, error) {
	start, stop := c.stringOffsets[index], c.stringOffsets[index+1]
	ids := c.compressed[start:stop]
	if n := c.decodedLength(ids); n > len(buffer) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, len(buffer))
	}
	return c.decodeExact(buffer, ids), nil
}

// DecompressAllChecked is DecompressAll with a precomputed bounds check.
func (c *CompressorCapped) DecompressAllChecked(buffer []byte) (int, error) {
	if n := c.decodedLength(c.compressed); n > len(buffer) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, len(buffer))
	}
	return c.decodeExact(buffer, c.compressed), nil
}

func (c *CompressorCapped) decodedLength(ids []uint16) int {
	total := 0
	for _, id := range ids {
		if int(id)+1 >= len(c.tokenOffsets) {
			continue
		}
		start, stop := c.tokenOffsets[id], c.tokenOffsets[id+1]
		if stop >= start {
			total += int(stop - start)
		}
	}
	return total
}

// decodeExact copies each token at its precise length, matching the
// teacher's checked archive decode. Used by the Checked variants, which
// guarantee buffer holds exactly the decoded length with no overcopy
// slack.
func (c *CompressorCapped) decodeExact(buffer []byte, ids []uint16) int {
	size := 0
	for _, id := range ids {
		if int(id)+1 >= len(c.tokenOffsets) {
			continue
		}
		start, stop := c.tokenOffsets[id], c.tokenOffsets[id+1]
		if stop < start || int(stop) > len(c.dictionary) {
			continue
		}
		size += copy(buffer[size:], c.dictionary[start:stop])
	}
	return size
}

func (c *CompressorCapped) decodeInto(buffer []byte, ids []uint16) int {
	if len(c.dictionary) == 0 || len(ids) == 0 {
		return 0
	}

	dictPtr := unsafe.Pointer(&c.dictionary[0])
	offPtr := unsafe.Pointer(&c.tokenOffsets[0])
	size := 0

	for _, id := range ids {
		if int(id)+1 >= len(c.tokenOffsets) {
			continue
		}
		start := *(*uint32)(unsafe.Pointer(uintptr(offPtr) + uintptr(id)*4))
		stop := *(*uint32)(unsafe.Pointer(uintptr(offPtr) + (uintptr(id)+1)*4))
		if stop < start || int(stop) > len(c.dictionary) {
			continue
		}
		length := int(stop - start)

		src := unsafe.Pointer(uintptr(dictPtr) + uintptr(start))
		dst := unsafe.Pointer(&buffer[size])

		// Every token is at most lpm.MaxCappedLength (16) bytes, so a
		// single unconditional 16-byte copy always covers it; shorter
		// tokens are overcopied into buffer's slack.
		*(*[fastCopyWidth]byte)(dst) = *(*[fastCopyWidth]byte)(src)

		size += length
	}

	return size
}

// SpaceUsed reports the total bytes held by the compressor's internal
// arrays.
func (c *CompressorCapped) SpaceUsed() int {
	return len(c.compressed)*2 + len(c.dictionary) + len(c.tokenOffsets)*4
}

// Dictionary returns the token arena (D) for inspection or persistence.
func (c *CompressorCapped) Dictionary() []byte { return c.dictionary }

// TokenOffsets returns the token offsets array (off) for inspection or
// persistence.
func (c *CompressorCapped) TokenOffsets() []uint32 { return c.tokenOffsets }

// Codes returns the compressed token stream (C) for inspection or
// persistence.
func (c *CompressorCapped) Codes() []uint16 { return c.compressed }

// StringOffsets returns the per-string boundary array (B) for inspection
// or persistence.
func (c *CompressorCapped) StringOffsets() []int { return c.stringOffsets }

// TokenCount returns the number of installed tokens, T.
func (c *CompressorCapped) TokenCount() int { return len(c.tokenOffsets) - 1 }

// Trained reports whether train has produced a frozen matcher.
func (c *CompressorCapped) Trained() bool { return c.frozen != nil }
