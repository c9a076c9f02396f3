package main

import (
	"github.com/onpairdb/onpair"
	"github.com/onpairdb/onpair/persist"
)

// archiveView adapts either compressor variant's accessor methods to a
// persist.Archive without requiring Compressor and CompressorCapped to
// share an interface solely for this CLI's benefit.
type archiveView struct {
	off    []uint32
	dict   []byte
	bounds []int
	codes  []uint16
}

func (v *archiveView) toArchive() *persist.Archive {
	return &persist.Archive{Off: v.off, Dict: v.dict, Bounds: v.bounds, Codes: v.codes}
}

func fromUnbounded(c *onpair.Compressor) *archiveView {
	return &archiveView{
		off:    c.TokenOffsets(),
		dict:   c.Dictionary(),
		bounds: c.StringOffsets(),
		codes:  c.Codes(),
	}
}

func fromCapped(c *onpair.CompressorCapped) *archiveView {
	return &archiveView{
		off:    c.TokenOffsets(),
		dict:   c.Dictionary(),
		bounds: c.StringOffsets(),
		codes:  c.Codes(),
	}
}
