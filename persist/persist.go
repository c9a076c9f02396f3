// Package persist serializes and restores the minimal sufficient state of
// a trained compressor — the four arrays spec.md §6 names: the token
// offsets, the dictionary arena, the string boundaries, and the
// compressed token stream. The core package treats persistence as an
// external concern; this package is the thin wrapper that consumes its
// interface contracts, grounded on the teacher's archive.go stage-framed
// wire format but trimmed to just those four arrays (the teacher's
// 12-bit/codebook variants are a different, unrelated feature).
package persist

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	magic   = "OPA1"
	version = uint16(1)
)

// Archive is the serializable snapshot of a trained compressor: the token
// offsets array (off), the dictionary arena (D), the per-string boundary
// array (B), and the compressed token stream (C).
type Archive struct {
	Off    []uint32 // off[0..=T], off[0]==0
	Dict   []byte   // D
	Bounds []int    // B[0..=N], B[0]==0
	Codes  []uint16 // C
}

// WriteTo writes the archive in a flate-compressed, versioned wire format.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if err := writeUint32Slice(&buf, a.Off); err != nil {
		return 0, fmt.Errorf("persist: write off: %w", err)
	}
	if err := writeBytes(&buf, a.Dict); err != nil {
		return 0, fmt.Errorf("persist: write dict: %w", err)
	}
	if err := writeIntSliceAsUint32(&buf, a.Bounds); err != nil {
		return 0, fmt.Errorf("persist: write bounds: %w", err)
	}
	if err := writeUint16Slice(&buf, a.Codes); err != nil {
		return 0, fmt.Errorf("persist: write codes: %w", err)
	}

	var payload bytes.Buffer
	fw, err := flate.NewWriter(&payload, flate.BestSpeed)
	if err != nil {
		return 0, fmt.Errorf("persist: new flate writer: %w", err)
	}
	if _, err := fw.Write(buf.Bytes()); err != nil {
		return 0, fmt.Errorf("persist: compress payload: %w", err)
	}
	if err := fw.Close(); err != nil {
		return 0, fmt.Errorf("persist: close flate writer: %w", err)
	}

	header := make([]byte, 0, 4+2+4)
	header = append(header, magic...)
	header = binary.LittleEndian.AppendUint16(header, version)
	header = binary.LittleEndian.AppendUint32(header, uint32(payload.Len()))

	n1, err := w.Write(header)
	if err != nil {
		return int64(n1), fmt.Errorf("persist: write header: %w", err)
	}
	n2, err := w.Write(payload.Bytes())
	return int64(n1 + n2), err
}

// ReadFrom restores an archive previously produced by WriteTo.
func (a *Archive) ReadFrom(r io.Reader) (int64, error) {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	total := int64(n)
	if err != nil {
		return total, fmt.Errorf("persist: read header: %w", err)
	}
	if string(header[:4]) != magic {
		return total, fmt.Errorf("persist: bad magic %q", header[:4])
	}
	if got := binary.LittleEndian.Uint16(header[4:6]); got != version {
		return total, fmt.Errorf("persist: unsupported version %d", got)
	}
	payloadLen := binary.LittleEndian.Uint32(header[6:10])

	payload := make([]byte, payloadLen)
	n2, err := io.ReadFull(r, payload)
	total += int64(n2)
	if err != nil {
		return total, fmt.Errorf("persist: read payload: %w", err)
	}

	fr := flate.NewReader(bytes.NewReader(payload))
	defer fr.Close()
	raw, err := io.ReadAll(fr)
	if err != nil {
		return total, fmt.Errorf("persist: decompress payload: %w", err)
	}

	buf := bytes.NewReader(raw)
	off, err := readUint32Slice(buf)
	if err != nil {
		return total, fmt.Errorf("persist: read off: %w", err)
	}
	dict, err := readBytes(buf)
	if err != nil {
		return total, fmt.Errorf("persist: read dict: %w", err)
	}
	bounds, err := readIntSliceFromUint32(buf)
	if err != nil {
		return total, fmt.Errorf("persist: read bounds: %w", err)
	}
	codes, err := readUint16Slice(buf)
	if err != nil {
		return total, fmt.Errorf("persist: read codes: %w", err)
	}

	a.Off, a.Dict, a.Bounds, a.Codes = off, dict, bounds, codes
	return total, nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeUint32Slice(w io.Writer, xs []uint32) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(xs))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, xs)
}

func readUint32Slice(r io.Reader) ([]uint32, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	xs := make([]uint32, n)
	if err := binary.Read(r, binary.LittleEndian, xs); err != nil {
		return nil, err
	}
	return xs, nil
}

func writeUint16Slice(w io.Writer, xs []uint16) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(xs))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, xs)
}

func readUint16Slice(r io.Reader) ([]uint16, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	xs := make([]uint16, n)
	if err := binary.Read(r, binary.LittleEndian, xs); err != nil {
		return nil, err
	}
	return xs, nil
}

func writeIntSliceAsUint32(w io.Writer, xs []int) error {
	conv := make([]uint32, len(xs))
	for i, v := range xs {
		conv[i] = uint32(v)
	}
	return writeUint32Slice(w, conv)
}

func readIntSliceFromUint32(r io.Reader) ([]int, error) {
	conv, err := readUint32Slice(r)
	if err != nil {
		return nil, err
	}
	xs := make([]int, len(conv))
	for i, v := range conv {
		xs[i] = int(v)
	}
	return xs, nil
}
