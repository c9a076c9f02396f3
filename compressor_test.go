package onpair

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func decodeAll(t *testing.T, c *Compressor, strs []string) []string {
	t.Helper()
	out := make([]string, len(strs))
	buf := make([]byte, 1<<16)
	for i := range strs {
		n := c.DecompressString(i, buf)
		out[i] = string(buf[:n])
	}
	return out
}

func TestCompressorRoundTrip(t *testing.T) {
	cases := [][]string{
		{"a", "b", "c"},
		{"ab", "ab"},
		{"", "x", "", "yy"},
		{"user_001", "user_002", "user_001", "user_003"},
	}

	for _, strs := range cases {
		c := New(WithSeed(1))
		c.CompressStrings(strs)

		got := decodeAll(t, c, strs)
		for i, want := range strs {
			if got[i] != want {
				t.Errorf("string %d: got %q, want %q", i, got[i], want)
			}
		}

		buf := make([]byte, 1<<16)
		n := c.DecompressAll(buf)
		wantAll := joinStrings(strs)
		if string(buf[:n]) != wantAll {
			t.Errorf("DecompressAll: got %q, want %q", buf[:n], wantAll)
		}
	}
}

func joinStrings(strs []string) string {
	var b strings.Builder
	for _, s := range strs {
		b.WriteString(s)
	}
	return b.String()
}

func TestCompressorTrivialAlphabet(t *testing.T) {
	c := New(WithSeed(1))
	strs := []string{"a", "b", "c"}
	c.CompressStrings(strs)

	wantB := []int{0, 1, 2, 3}
	if !equalIntSlice(c.StringOffsets(), wantB) {
		t.Fatalf("B = %v, want %v", c.StringOffsets(), wantB)
	}
	wantC := []uint16{0x61, 0x62, 0x63}
	if !equalU16Slice(c.Codes(), wantC) {
		t.Fatalf("C = %v, want %v", c.Codes(), wantC)
	}
	if c.TokenCount() != singleByteTokens {
		t.Fatalf("token count = %d, want %d (no pair repeats)", c.TokenCount(), singleByteTokens)
	}
}

func TestCompressorRepeatedPhraseBelowThreshold(t *testing.T) {
	c := New(WithSeed(1), WithThreshold(2))
	strs := []string{"ab", "ab"}
	c.CompressStrings(strs)

	if c.TokenCount() < singleByteTokens {
		t.Fatalf("token count = %d, want >= %d", c.TokenCount(), singleByteTokens)
	}
	for i, want := range strs {
		buf := make([]byte, 32)
		n := c.DecompressString(i, buf)
		if string(buf[:n]) != want {
			t.Errorf("string %d: got %q, want %q", i, buf[:n], want)
		}
	}
}

func TestCompressorRepeatedPhraseAboveThreshold(t *testing.T) {
	strs := make([]string, 100)
	for i := range strs {
		strs[i] = "foobar"
	}

	c := New(WithSeed(1), WithThreshold(2))
	c.CompressStrings(strs)

	if c.TokenCount() <= singleByteTokens {
		t.Fatalf("expected at least one promoted token, token count = %d", c.TokenCount())
	}

	foundShort := false
	for i := range strs {
		start, stop := c.StringOffsets()[i], c.StringOffsets()[i+1]
		if stop-start < len(strs[i]) {
			foundShort = true
		}
	}
	if !foundShort {
		t.Fatalf("expected at least one string encoded shorter than its byte length")
	}

	got := decodeAll(t, c, strs)
	for i, want := range strs {
		if got[i] != want {
			t.Errorf("string %d: got %q, want %q", i, got[i], want)
		}
	}
}

func TestCompressorAll256BytesCoverage(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}

	c := New(WithSeed(1))
	c.CompressStrings([]string{string(data)})

	buf := make([]byte, 512)
	n := c.DecompressString(0, buf)
	if !bytes.Equal(buf[:n], data) {
		t.Fatalf("decoded bytes do not match original 256-byte sequence")
	}
}

func TestCompressorEmptyCorpus(t *testing.T) {
	c := New(WithSeed(1))
	c.CompressStrings(nil)

	if c.TokenCount() != singleByteTokens {
		t.Fatalf("token count = %d, want %d", c.TokenCount(), singleByteTokens)
	}
	if len(c.Codes()) != 0 {
		t.Fatalf("C = %v, want empty", c.Codes())
	}
	if !equalIntSlice(c.StringOffsets(), []int{0}) {
		t.Fatalf("B = %v, want [0]", c.StringOffsets())
	}
}

func TestCompressorSingleEmptyString(t *testing.T) {
	c := New(WithSeed(1))
	c.CompressStrings([]string{""})

	if len(c.Codes()) != 0 {
		t.Fatalf("C = %v, want empty", c.Codes())
	}
	if !equalIntSlice(c.StringOffsets(), []int{0, 0}) {
		t.Fatalf("B = %v, want [0, 0]", c.StringOffsets())
	}
}

func TestCompressorAllIdenticalStrings(t *testing.T) {
	strs := make([]string, 20)
	for i := range strs {
		strs[i] = "repeatedpayload"
	}

	c := New(WithSeed(2))
	c.CompressStrings(strs)

	got := decodeAll(t, c, strs)
	for i, want := range strs {
		if got[i] != want {
			t.Errorf("string %d: got %q, want %q", i, got[i], want)
		}
	}
}

func TestCompressorEmptyNonemptyInterleaved(t *testing.T) {
	c := New(WithSeed(1))
	strs := []string{"", "x", "", "yy"}
	c.CompressStrings(strs)

	b := c.StringOffsets()
	if b[1] != b[0] {
		t.Fatalf("B[1] = %d, want B[0] = %d", b[1], b[0])
	}
	if b[3] != b[2] {
		t.Fatalf("B[3] = %d, want B[2] = %d", b[3], b[2])
	}

	got := decodeAll(t, c, strs)
	for i, want := range strs {
		if got[i] != want {
			t.Errorf("string %d: got %q, want %q", i, got[i], want)
		}
	}
}

func TestCompressorIDRangeInvariant(t *testing.T) {
	strs := make([]string, 200)
	for i := range strs {
		strs[i] = strings.Repeat("ab", (i%7)+1) + "_tail"
	}

	c := New(WithSeed(3))
	c.CompressStrings(strs)

	maxID := uint16(c.TokenCount())
	for _, id := range c.Codes() {
		if id >= maxID {
			t.Fatalf("id %d >= token count %d", id, maxID)
		}
	}
}

func TestCompressorArenaMonotonicity(t *testing.T) {
	strs := []string{"alpha", "beta", "alpha", "gamma", "beta", "alpha"}
	c := New(WithSeed(4), WithThreshold(2))
	c.CompressStrings(strs)

	off := c.TokenOffsets()
	for i := 1; i < len(off); i++ {
		if off[i] < off[i-1] {
			t.Fatalf("off not non-decreasing at %d: %d < %d", i, off[i], off[i-1])
		}
	}

	b := c.StringOffsets()
	for i := 1; i < len(b); i++ {
		if b[i] < b[i-1] {
			t.Fatalf("B not non-decreasing at %d: %d < %d", i, b[i], b[i-1])
		}
	}

	if len(b) != len(strs)+1 {
		t.Fatalf("|B| = %d, want %d", len(b), len(strs)+1)
	}
	if len(off) != c.TokenCount()+1 {
		t.Fatalf("|off| = %d, want %d", len(off), c.TokenCount()+1)
	}
}

func TestCompressorSingleByteSeeding(t *testing.T) {
	c := New(WithSeed(1))
	c.CompressStrings([]string{"z"})

	off := c.TokenOffsets()
	dict := c.Dictionary()
	for i := 0; i < singleByteTokens; i++ {
		if off[i+1]-off[i] != 1 {
			t.Fatalf("token %d length = %d, want 1", i, off[i+1]-off[i])
		}
		if dict[off[i]] != byte(i) {
			t.Fatalf("D[off[%d]] = %d, want %d", i, dict[off[i]], i)
		}
	}
}

func TestCompressorSpaceUsedAndShrinkToFit(t *testing.T) {
	c := WithCapacity(10, 1024, WithSeed(1))
	strs := []string{"hello", "world", "hello"}
	c.CompressStrings(strs)

	before := c.SpaceUsed()
	if before <= 0 {
		t.Fatalf("SpaceUsed = %d, want > 0", before)
	}

	c.ShrinkToFit()
	got := decodeAll(t, c, strs)
	for i, want := range strs {
		if got[i] != want {
			t.Errorf("string %d after ShrinkToFit: got %q, want %q", i, got[i], want)
		}
	}
}

func TestCompressorDecompressCheckedRejectsShortBuffer(t *testing.T) {
	c := New(WithSeed(1))
	strs := []string{"hello world", "another string"}
	c.CompressStrings(strs)

	tiny := make([]byte, 2)
	_, err := c.DecompressStringChecked(0, tiny)
	if !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("err = %v, want ErrShortBuffer", err)
	}

	_, err = c.DecompressAllChecked(tiny)
	if !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("err = %v, want ErrShortBuffer", err)
	}

	big := make([]byte, 256)
	n, err := c.DecompressStringChecked(0, big)
	if err != nil {
		t.Fatalf("unexpected error with adequately sized buffer: %v", err)
	}
	if string(big[:n]) != strs[0] {
		t.Fatalf("got %q, want %q", big[:n], strs[0])
	}

	// A buffer sized to exactly the decoded length must not panic or
	// read/write out of bounds, even though strs[0]'s last token is
	// shorter than fastCopyWidth.
	exact := make([]byte, len(strs[0]))
	n, err = c.DecompressStringChecked(0, exact)
	if err != nil {
		t.Fatalf("unexpected error with exactly sized buffer: %v", err)
	}
	if string(exact[:n]) != strs[0] {
		t.Fatalf("got %q, want %q", exact[:n], strs[0])
	}

	exactAll := make([]byte, len(strs[0])+len(strs[1]))
	n, err = c.DecompressAllChecked(exactAll)
	if err != nil {
		t.Fatalf("unexpected error with exactly sized buffer: %v", err)
	}
	if string(exactAll[:n]) != strs[0]+strs[1] {
		t.Fatalf("got %q, want %q", exactAll[:n], strs[0]+strs[1])
	}
}

func equalIntSlice(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalU16Slice(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
