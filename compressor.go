package onpair

import (
	"fmt"
	"unsafe"

	"github.com/onpairdb/onpair/internal/memo"
	"github.com/onpairdb/onpair/internal/rng"
	"github.com/onpairdb/onpair/lpm"
)

// fastCopyWidth is the unconditional copy size used by the decode fast
// path; the dictionary arena and every destination buffer must carry this
// much slack past a token's true length to absorb the overcopy safely.
const fastCopyWidth = 16

// Compressor is the unbounded-length dictionary variant: tokens may grow
// to any length during training. The matcher keeps its own copy of each
// long token's suffix bytes in a private arena; it does not read them from
// dictionary through tokenOffsets.
type Compressor struct {
	cfg Config

	matcher       *lpm.Matcher
	dictionary    []byte   // D: token bytes, concatenated in id order
	tokenOffsets  []uint32 // off[0..=T]; off[0] == 0
	compressed    []uint16 // C
	stringOffsets []int    // B[0..=N]; B[0] == 0

	memo *memo.Cache
}

// New creates an empty unbounded compressor.
func New(opts ...Option) *Compressor {
	cfg := newConfig(opts)
	return &Compressor{
		cfg:          cfg,
		dictionary:   make([]byte, 0),
		tokenOffsets: make([]uint32, 0),
		compressed:   make([]uint16, 0),
		memo:         memo.New(cfg.MemoCapacity),
	}
}

// WithCapacity creates an empty unbounded compressor with capacity hints
// for its internal arrays, to avoid reallocation while training or
// encoding a corpus of roughly the given size.
func WithCapacity(nStrings, nBytes int, opts ...Option) *Compressor {
	cfg := newConfig(opts)
	return &Compressor{
		cfg:           cfg,
		dictionary:    make([]byte, 0, nBytes/4+1024),
		tokenOffsets:  make([]uint32, 0, 1<<16),
		compressed:    make([]uint16, 0, nBytes/2+1),
		stringOffsets: make([]int, 0, nStrings+1),
		memo:          memo.New(cfg.MemoCapacity),
	}
}

// CompressStrings trains a dictionary on strings and compresses them,
// flattening the input for the caller.
func (c *Compressor) CompressStrings(strings []string) {
	data, endPositions := flattenStrings(strings)
	c.CompressBytes(data, endPositions)
}

// CompressBytes trains a dictionary on the pre-flattened data and
// compresses it, without copying data. endPositions is a prefix-sum array
// with endPositions[0] == 0.
func (c *Compressor) CompressBytes(data []byte, endPositions []int) {
	c.train(data, endPositions)
	c.parse(data, endPositions)
}

// train is the Trainer: it builds the dictionary (matcher, arena, and
// offsets) by interleaving longest-prefix tokenization of a shuffled
// training order with frequency-triggered promotion.
func (c *Compressor) train(data []byte, endPositions []int) {
	c.matcher = lpm.New()
	c.tokenOffsets = append(c.tokenOffsets, 0)

	for i := 0; i < singleByteTokens; i++ {
		token := []byte{byte(i)}
		c.matcher.Insert(token, uint16(i))
		c.dictionary = append(c.dictionary, token...)
		c.tokenOffsets = append(c.tokenOffsets, uint32(len(c.dictionary)))
	}

	defer func() {
		// Pad the arena so the decode fast path's unconditional
		// fastCopyWidth-byte read of the last token never reads past
		// the backing array; the tracked length still advances by the
		// token's true size, so the extra bytes are never surfaced to
		// a caller.
		c.dictionary = append(c.dictionary, make([]byte, fastCopyWidth)...)
	}()

	numStrings := len(endPositions) - 1
	if numStrings <= 0 {
		return
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

		prevID, prevLen, ok := c.matcher.FindLongestMatch(data[start:end])
		if !ok {
			continue
		}
		pos := start + prevLen

		for pos < end {
			curID, curLen, ok := c.matcher.FindLongestMatch(data[pos:end])
			if !ok {
				break
			}

			pair := [2]uint16{prevID, curID}
			frequency[pair]++

			if frequency[pair] >= threshold {
				merged := data[pos-prevLen : pos+curLen]
				c.matcher.Insert(merged, nextTokenID)
				c.dictionary = append(c.dictionary, merged...)
				c.tokenOffsets = append(c.tokenOffsets, uint32(len(c.dictionary)))
				delete(frequency, pair)

				prevID, prevLen = nextTokenID, len(merged)
				if nextTokenID == maxTokenID {
					break outer
				}
				nextTokenID++
			} else {
				prevID, prevLen = curID, curLen
			}
			pos += curLen
		}
	}
}

// parse is the Encoder: it replays the trained dictionary greedily across
// every string, mutating the compressor's own compressed/stringOffsets
// state (matching the "populates internal state" contract in the external
// interfaces table).
func (c *Compressor) parse(data []byte, endPositions []int) {
	c.stringOffsets = append(c.stringOffsets, 0)
	for i := 0; i < len(endPositions)-1; i++ {
		start, end := endPositions[i], endPositions[i+1]
		ids := c.encodeSpan(data[start:end])
		c.compressed = append(c.compressed, ids...)
		c.stringOffsets = append(c.stringOffsets, len(c.compressed))
	}
}

// encodeSpan greedily tokenizes one string's bytes against the trained
// matcher, consulting and populating the whole-string memoization cache
// for exact repeats.
func (c *Compressor) encodeSpan(span []byte) []uint16 {
	if len(span) == 0 {
		return nil
	}
	if ids, ok := c.memo.Get(string(span)); ok {
		return ids
	}

	ids := make([]uint16, 0, len(span)/2+1)
	pos := 0
	for pos < len(span) {
		id, length, ok := c.matcher.FindLongestMatch(span[pos:])
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
// returns their length. buffer must have fastCopyWidth bytes of slack past
// the true decoded length to safely absorb the fast path's overcopy.
func (c *Compressor) DecompressString(index int, buffer []byte) int {
	start, stop := c.stringOffsets[index], c.stringOffsets[index+1]
	return c.decodeInto(buffer, c.compressed[start:stop])
}

// DecompressAll writes every string's bytes, concatenated in order, into
// buffer and returns the total length.
func (c *Compressor) DecompressAll(buffer []byte) int {
	return c.decodeInto(buffer, c.compressed)
}

// DecompressStringChecked is DecompressString with a precomputed bounds
// check, returning ErrShortBuffer instead of writing past buffer. Unlike
// DecompressString it copies each token at its exact length rather than
// using the unconditional fastCopyWidth-byte overcopy, so a buffer sized
// to exactly the decoded length is never written past. Prefer
// DecompressString on the hot path; this is for callers that cannot
// guarantee destination overcopy slack ahead of time.
func (c *Compressor) DecompressStringChecked(index int, buffer []byte) (int, error) {
	start, stop := c.stringOffsets[index], c.stringOffsets[index+1]
	ids := c.compressed[start:stop]
	if n := c.decodedLength(ids); n > len(buffer) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, len(buffer))
	}
	return c.decodeExact(buffer, ids), nil
}

// DecompressAllChecked is DecompressAll with a precomputed bounds check.
func (c *Compressor) DecompressAllChecked(buffer []byte) (int, error) {
	if n := c.decodedLength(c.compressed); n > len(buffer) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, len(buffer))
	}
	return c.decodeExact(buffer, c.compressed), nil
}

// decodeExact copies each token at its precise length, matching the
// teacher's checked archive decode (archive.go's offset+len copy). Used
// by the Checked variants, which guarantee buffer holds exactly the
// decoded length with no overcopy slack.
func (c *Compressor) decodeExact(buffer []byte, ids []uint16) int {
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

func (c *Compressor) decodedLength(ids []uint16) int {
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

func (c *Compressor) decodeInto(buffer []byte, ids []uint16) int {
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

		*(*[fastCopyWidth]byte)(dst) = *(*[fastCopyWidth]byte)(src)
		if length > fastCopyWidth {
			tailSrc := unsafe.Pointer(uintptr(src) + fastCopyWidth)
			tailDst := unsafe.Pointer(uintptr(dst) + fastCopyWidth)
			remaining := length - fastCopyWidth
			copy((*[1 << 30]byte)(tailDst)[:remaining:remaining], (*[1 << 30]byte)(tailSrc)[:remaining:remaining])
		}

		size += length
	}

	return size
}

// SpaceUsed reports the total bytes held by the compressor's internal
// arrays.
func (c *Compressor) SpaceUsed() int {
	return len(c.compressed)*2 + len(c.dictionary) + len(c.tokenOffsets)*4
}

// ShrinkToFit releases excess capacity from every internal array.
func (c *Compressor) ShrinkToFit() {
	c.compressed = append([]uint16(nil), c.compressed...)
	c.stringOffsets = append([]int(nil), c.stringOffsets...)
	c.dictionary = append([]byte(nil), c.dictionary...)
	c.tokenOffsets = append([]uint32(nil), c.tokenOffsets...)
}

// Dictionary returns the token arena (D) for inspection or persistence.
func (c *Compressor) Dictionary() []byte { return c.dictionary }

// TokenOffsets returns the token offsets array (off) for inspection or
// persistence.
func (c *Compressor) TokenOffsets() []uint32 { return c.tokenOffsets }

// Codes returns the compressed token stream (C) for inspection or
// persistence.
func (c *Compressor) Codes() []uint16 { return c.compressed }

// StringOffsets returns the per-string boundary array (B) for inspection
// or persistence.
func (c *Compressor) StringOffsets() []int { return c.stringOffsets }

// TokenCount returns the number of installed tokens, T.
func (c *Compressor) TokenCount() int { return len(c.tokenOffsets) - 1 }

// Trained reports whether train has populated a matcher.
func (c *Compressor) Trained() bool { return c.matcher != nil }
