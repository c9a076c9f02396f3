package onpair

import "errors"

const (
	singleByteTokens = 256   // ids 0..255 are reserved for single-byte tokens
	maxTokenID       = 65535 // ID_MAX
)

var (
	// ErrUntrainedModel is returned by Model.Encode when called before
	// Train.
	ErrUntrainedModel = errors.New("onpair: model is not trained")
	// ErrShortBuffer is returned by a Decompress call whose destination
	// buffer cannot hold the decoded bytes.
	ErrShortBuffer = errors.New("onpair: destination buffer too small")
)

// Config holds the tunable knobs for training. The zero Config selects the
// spec's defaults: a size-derived promotion threshold and a
// non-deterministic shuffle seed.
type Config struct {
	// Threshold is the minimum pair-frequency count required before a
	// pair is promoted to a new token. Zero selects the size-derived
	// default: max(floor(log2(corpus MiB)), 2).
	Threshold uint16

	// Seed drives the deterministic shuffle applied to training order.
	// Zero selects a non-deterministic seed drawn from crypto/rand.
	Seed uint64

	// MemoCapacity bounds the number of distinct input strings whose
	// encoded token span is memoized across CompressStrings calls. Zero
	// disables memoization.
	MemoCapacity int
}

// Option configures a Config.
type Option func(*Config)

// WithThreshold fixes the promotion threshold instead of deriving it from
// corpus size.
func WithThreshold(t uint16) Option {
	return func(c *Config) { c.Threshold = t }
}

// WithSeed fixes the training shuffle's seed, for reproducible tests. The
// default is a non-deterministic seed drawn at training time.
func WithSeed(seed uint64) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithMemoCapacity bounds the whole-string encode memoization cache. Only
// useful for corpora with many exactly-repeated strings.
func WithMemoCapacity(n int) Option {
	return func(c *Config) { c.MemoCapacity = n }
}

func newConfig(opts []Option) Config {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// flattenStrings concatenates strings into a single byte buffer alongside
// a prefix-sum array of end offsets (endPositions[0] == 0).
func flattenStrings(strings []string) ([]byte, []int) {
	total := 0
	for _, s := range strings {
		total += len(s)
	}

	data := make([]byte, 0, total)
	endPositions := make([]int, 0, len(strings)+1)
	endPositions = append(endPositions, 0)

	for _, s := range strings {
		data = append(data, s...)
		endPositions = append(endPositions, len(data))
	}

	return data, endPositions
}
