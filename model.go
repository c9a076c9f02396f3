package onpair

import (
	"fmt"
	"unsafe"

	"github.com/onpairdb/onpair/internal/memo"
	"github.com/onpairdb/onpair/internal/rng"
	"github.com/onpairdb/onpair/lpm"
	"github.com/onpairdb/onpair/persist"
)

// Model is a trained unbounded dictionary kept separate from any one
// encoding of data against it. Where Compressor trains and encodes a
// single corpus in one pass, Model supports training once and calling
// Encode repeatedly against different inputs, producing an independent
// persist.Archive each time.
type Model struct {
	cfg Config

	matcher      *lpm.Matcher
	dictionary   []byte
	tokenOffsets []uint32

	memo *memo.Cache
}

// NewModel creates an empty, untrained model.
func NewModel(opts ...Option) *Model {
	cfg := newConfig(opts)
	return &Model{cfg: cfg, memo: memo.New(cfg.MemoCapacity)}
}

// Trained reports whether Train has been called.
func (m *Model) Trained() bool { return m.matcher != nil }

// TrainStrings trains the model's dictionary on strings, flattening the
// input for the caller.
func (m *Model) TrainStrings(strings []string) {
	data, endPositions := flattenStrings(strings)
	m.Train(data, endPositions)
}

// Train builds the model's dictionary from pre-flattened data, following
// the same trainer algorithm as Compressor.
func (m *Model) Train(data []byte, endPositions []int) {
	m.matcher = lpm.New()
	m.dictionary = make([]byte, 0, len(data)/4+1024)
	m.tokenOffsets = append(m.tokenOffsets[:0], 0)

	for i := 0; i < singleByteTokens; i++ {
		token := []byte{byte(i)}
		m.matcher.Insert(token, uint16(i))
		m.dictionary = append(m.dictionary, token...)
		m.tokenOffsets = append(m.tokenOffsets, uint32(len(m.dictionary)))
	}

	defer func() {
		m.dictionary = append(m.dictionary, make([]byte, fastCopyWidth)...)
	}()

	numStrings := len(endPositions) - 1
	if numStrings <= 0 {
		return
	}

	shuffled := make([]int, numStrings)
	for i := range shuffled {
		shuffled[i] = i
	}
	rng.New(m.cfg.Seed).ShuffleInts(shuffled)

	threshold := m.cfg.Threshold
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

		prevID, prevLen, ok := m.matcher.FindLongestMatch(data[start:end])
		if !ok {
			continue
		}
		pos := start + prevLen

		for pos < end {
			curID, curLen, ok := m.matcher.FindLongestMatch(data[pos:end])
			if !ok {
				break
			}

			pair := [2]uint16{prevID, curID}
			frequency[pair]++

			if frequency[pair] >= threshold {
				merged := data[pos-prevLen : pos+curLen]
				m.matcher.Insert(merged, nextTokenID)
				m.dictionary = append(m.dictionary, merged...)
				m.tokenOffsets = append(m.tokenOffsets, uint32(len(m.dictionary)))
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

// EncodeStrings encodes strings against the model's trained dictionary,
// flattening the input for the caller.
func (m *Model) EncodeStrings(strings []string) (*persist.Archive, error) {
	data, endPositions := flattenStrings(strings)
	return m.Encode(data, endPositions)
}

// Encode replays the model's trained dictionary greedily across every
// string in the pre-flattened data, returning a self-contained archive.
// It does not mutate the model and may be called repeatedly against
// different inputs.
func (m *Model) Encode(data []byte, endPositions []int) (*persist.Archive, error) {
	if !m.Trained() {
		return nil, ErrUntrainedModel
	}

	stringOffsets := make([]int, 1, len(endPositions))
	codes := make([]uint16, 0, len(data)/2+1)

	for i := 0; i < len(endPositions)-1; i++ {
		start, end := endPositions[i], endPositions[i+1]
		ids := m.encodeSpan(data[start:end])
		codes = append(codes, ids...)
		stringOffsets = append(stringOffsets, len(codes))
	}

	return &persist.Archive{
		Off:    append([]uint32(nil), m.tokenOffsets...),
		Dict:   append([]byte(nil), m.dictionary...),
		Bounds: stringOffsets,
		Codes:  codes,
	}, nil
}

func (m *Model) encodeSpan(span []byte) []uint16 {
	if len(span) == 0 {
		return nil
	}
	if ids, ok := m.memo.Get(string(span)); ok {
		return ids
	}

	ids := make([]uint16, 0, len(span)/2+1)
	pos := 0
	for pos < len(span) {
		id, length, ok := m.matcher.FindLongestMatch(span[pos:])
		if !ok {
			break
		}
		ids = append(ids, id)
		pos += length
	}
	m.memo.Put(string(span), ids)
	return ids
}

// TokenCount returns the number of installed tokens, T.
func (m *Model) TokenCount() int { return len(m.tokenOffsets) - 1 }

// Dictionary returns the token arena (D) for inspection.
func (m *Model) Dictionary() []byte { return m.dictionary }

// TokenOffsets returns the token offsets array (off) for inspection.
func (m *Model) TokenOffsets() []uint32 { return m.tokenOffsets }

// DecodeString writes string index's original bytes, as recorded in an
// archive previously returned by Encode (or restored from disk via
// persist.Archive.ReadFrom), into buffer and returns their length. It
// requires no live Model: the archive is fully self-contained. buffer must
// have fastCopyWidth bytes of slack past the true decoded length to safely
// absorb the fast path's overcopy.
func DecodeString(a *persist.Archive, index int, buffer []byte) int {
	start, stop := a.Bounds[index], a.Bounds[index+1]
	return decodeArchive(a, buffer, a.Codes[start:stop])
}

// DecodeAll writes every string's bytes, concatenated in order, into
// buffer and returns the total length.
func DecodeAll(a *persist.Archive, buffer []byte) int {
	return decodeArchive(a, buffer, a.Codes)
}

// DecodeStringChecked is DecodeString with a precomputed bounds check,
// returning ErrShortBuffer instead of writing past buffer. It copies each
// token at its exact length rather than using the unconditional
// fastCopyWidth-byte overcopy, so a buffer sized to exactly the decoded
// length is never written past.
func DecodeStringChecked(a *persist.Archive, index int, buffer []byte) (int, error) {
	start, stop := a.Bounds[index], a.Bounds[index+1]
	ids := a.Codes[start:stop]
	if n := archiveDecodedLength(a, ids); n > len(buffer) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, len(buffer))
	}
	return decodeArchiveExact(a, buffer, ids), nil
}

// DecodeAllChecked is DecodeAll with a precomputed bounds check.
func DecodeAllChecked(a *persist.Archive, buffer []byte) (int, error) {
	if n := archiveDecodedLength(a, a.Codes); n > len(buffer) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, len(buffer))
	}
	return decodeArchiveExact(a, buffer, a.Codes), nil
}

// archiveDecodedLength returns the exact total decoded byte length of ids
// without writing anything, so callers can size a buffer before decoding.
func archiveDecodedLength(a *persist.Archive, ids []uint16) int {
	total := 0
	for _, id := range ids {
		if int(id)+1 >= len(a.Off) {
			continue
		}
		start, stop := a.Off[id], a.Off[id+1]
		if stop >= start {
			total += int(stop - start)
		}
	}
	return total
}

// decodeArchiveExact copies each token at its precise length, matching the
// teacher's checked archive decode (archive.go's offset+len copy). Used by
// the Checked variants, which guarantee buffer holds exactly the decoded
// length with no overcopy slack.
func decodeArchiveExact(a *persist.Archive, buffer []byte, ids []uint16) int {
	size := 0
	for _, id := range ids {
		if int(id)+1 >= len(a.Off) {
			continue
		}
		start, stop := a.Off[id], a.Off[id+1]
		if stop < start || int(stop) > len(a.Dict) {
			continue
		}
		size += copy(buffer[size:], a.Dict[start:stop])
	}
	return size
}

func decodeArchive(a *persist.Archive, buffer []byte, ids []uint16) int {
	if len(a.Dict) == 0 || len(ids) == 0 {
		return 0
	}

	dictPtr := unsafe.Pointer(&a.Dict[0])
	offPtr := unsafe.Pointer(&a.Off[0])
	size := 0

	for _, id := range ids {
		if int(id)+1 >= len(a.Off) {
			continue
		}
		start := *(*uint32)(unsafe.Pointer(uintptr(offPtr) + uintptr(id)*4))
		stop := *(*uint32)(unsafe.Pointer(uintptr(offPtr) + (uintptr(id)+1)*4))
		if stop < start || int(stop) > len(a.Dict) {
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
