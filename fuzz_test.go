package onpair

import (
	"math/rand"
	"testing"
)

// randomCorpus generates n strings of random length (up to maxLen) drawn
// from a byte alphabet of the given size, deterministically from seed.
func randomCorpus(seed int64, n, maxLen, alphabetSize int) []string {
	r := rand.New(rand.NewSource(seed))
	out := make([]string, n)
	for i := range out {
		length := r.Intn(maxLen + 1)
		b := make([]byte, length)
		for j := range b {
			b[j] = byte(r.Intn(alphabetSize))
		}
		out[i] = string(b)
	}
	return out
}

func TestPropertyRoundTripRandomCorpora(t *testing.T) {
	configs := []struct {
		n, maxLen, alphabet int
	}{
		{20, 8, 4},
		{200, 16, 16},
		{500, 32, 256},
		{5, 0, 1},
	}

	for seed, cfg := range configs {
		strs := randomCorpus(int64(seed+1), cfg.n, cfg.maxLen, cfg.alphabet)

		c := New(WithSeed(uint64(seed + 1)))
		c.CompressStrings(strs)

		got := decodeAll(t, c, strs)
		for i, want := range strs {
			if got[i] != want {
				t.Fatalf("config %d string %d: got %q, want %q", seed, i, got[i], want)
			}
		}

		capped := New16(WithSeed(uint64(seed + 1)))
		capped.CompressStrings(strs)
		gotCapped := decodeAllCapped(t, capped, strs)
		for i, want := range strs {
			if gotCapped[i] != want {
				t.Fatalf("capped config %d string %d: got %q, want %q", seed, i, gotCapped[i], want)
			}
		}
	}
}

func FuzzCompressorRoundTrip(f *testing.F) {
	f.Add("hello", "world", uint64(1))
	f.Add("", "", uint64(2))
	f.Add("aaaaaaaaaa", "aaaaaaaaaa", uint64(3))

	f.Fuzz(func(t *testing.T, a, b string, seed uint64) {
		strs := []string{a, b, a}
		c := New(WithSeed(seed))
		c.CompressStrings(strs)

		buf := make([]byte, len(a)+len(b)+len(a)+64)
		for i, want := range strs {
			n := c.DecompressString(i, buf)
			if string(buf[:n]) != want {
				t.Fatalf("string %d: got %q, want %q", i, buf[:n], want)
			}
		}
	})
}
