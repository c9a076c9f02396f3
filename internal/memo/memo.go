// Package memo provides a bounded cache of whole-string encode results,
// for corpora dominated by exact duplicates (the spec's target domain:
// database columns of identifiers, repeated log keys). It wraps
// hashicorp/golang-lru, a dependency the teacher's go.mod already listed
// but never imported.
package memo

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// span is a slice of token ids, cloned out of whatever backing array the
// cache's owner mutates after a lookup.
type span []uint16

// Cache memoizes the token-id span produced by encoding a given string, so
// repeated identical inputs skip re-running the longest-prefix parse.
type Cache struct {
	lru *lru.Cache[string, span]
}

// New creates a cache holding up to capacity distinct strings. A capacity
// of 0 disables memoization (Get always misses, Put is a no-op) — callers
// that don't expect duplication can skip the bookkeeping entirely.
func New(capacity int) *Cache {
	if capacity <= 0 {
		return &Cache{}
	}
	c, err := lru.New[string, span](capacity)
	if err != nil {
		// Only returns an error for a non-positive size, already excluded
		// above.
		return &Cache{}
	}
	return &Cache{lru: c}
}

// Get returns a copy of the memoized token span for s, if present.
func (c *Cache) Get(s string) ([]uint16, bool) {
	if c.lru == nil {
		return nil, false
	}
	ids, ok := c.lru.Get(s)
	if !ok {
		return nil, false
	}
	out := make([]uint16, len(ids))
	copy(out, ids)
	return out, true
}

// Put memoizes the token span produced for s.
func (c *Cache) Put(s string, ids []uint16) {
	if c.lru == nil {
		return
	}
	stored := make(span, len(ids))
	copy(stored, ids)
	c.lru.Add(s, stored)
}
