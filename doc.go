// Package onpair compresses large collections of short, repetitive byte
// strings by learning a 16-bit token dictionary from the corpus itself,
// then re-encoding every string as a sequence of token ids.
//
// # Overview
//
// Training interleaves longest-prefix tokenization of the input with
// frequency-triggered token promotion: adjacent token pairs that recur
// often enough are merged into a single new token, until the dictionary
// fills or the corpus is exhausted. Encoding then replays the trained
// dictionary greedily across each string.
//
// Two dictionary variants are provided. Compressor has no limit on token
// length and its matcher stores long-token suffixes in a byte arena. CompressorCapped
// caps tokens at 16 bytes and uses a denser, frozen lookup structure once
// training completes, at the cost of occasionally refusing a promotion
// when its internal bucket fills.
//
// # When to use this over general-purpose compression
//
// This package is tuned for corpora of many short, similar strings —
// database identifier columns, URLs, log keys — where a general byte
// compressor's framing overhead dominates. It is not a general-purpose
// compressor: there is no guarantee of optimal compression (training is
// randomized and greedy), no ordered or lexicographic access to tokens,
// and no support for updating a dictionary after training completes.
//
// # Basic usage
//
//	c := onpair.New()
//	c.CompressStrings([]string{"user_001", "user_002", "user_001"})
//
//	buf := make([]byte, 64)
//	n := c.DecompressString(0, buf)
//	_ = buf[:n] // "user_001"
package onpair
