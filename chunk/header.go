// Package chunk implements the world file container: a fixed header locating
// four segments, an append-only chunk table with its key directory, and the
// atomic file writer.
//
// File layout, all offsets absolute:
//
//	[0, HeaderSize)                 Header
//	[TreeOffset, +TreeSize)         spatial index
//	[WorldOffset, +WorldSize)       region hierarchy
//	[TableOffset, +TableSize)       chunk directory
//	[DataOffset, +DataSize)         concatenated chunk bytes
package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the encoded size of Header: eight little-endian int64 fields.
const HeaderSize = 64

var (
	// ErrShortHeader is returned when fewer than HeaderSize bytes are available.
	ErrShortHeader = errors.New("chunk: short header")
	// ErrBadLayout is returned when header segments are out of order or out of bounds.
	ErrBadLayout = errors.New("chunk: bad segment layout")
)

// Range is a half-open byte range [Offset, Offset+Size).
type Range struct {
	Offset int64
	Size   int64
}

// End returns the exclusive end offset.
func (r Range) End() int64 { return r.Offset + r.Size }

// Slice returns the bytes of b covered by r, or false when r is out of bounds.
func (r Range) Slice(b []byte) ([]byte, bool) {
	if r.Offset < 0 || r.Size < 0 || r.End() > int64(len(b)) {
		return nil, false
	}
	return b[r.Offset:r.End()], true
}

// Header locates the four segments of a world file.
type Header struct {
	Tree  Range
	World Range
	Table Range
	Data  Range
}

// BuildHeader lays the segments out back to back right after the header, in
// the order tree, world, table, data.
func BuildHeader(treeSize, worldSize, tableSize, dataSize int64) Header {
	var h Header
	off := int64(HeaderSize)
	for _, s := range []struct {
		r    *Range
		size int64
	}{{&h.Tree, treeSize}, {&h.World, worldSize}, {&h.Table, tableSize}, {&h.Data, dataSize}} {
		*s.r = Range{Offset: off, Size: s.size}
		off += s.size
	}
	return h
}

// Segments returns the ranges in file order.
func (h Header) Segments() [4]Range { return [4]Range{h.Tree, h.World, h.Table, h.Data} }

// FileSize is the total size of a file with this header.
func (h Header) FileSize() int64 { return h.Data.End() }

// MarshalBinary encodes the header.
func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	for i, r := range h.Segments() {
		binary.LittleEndian.PutUint64(b[i*16:], uint64(r.Offset))
		binary.LittleEndian.PutUint64(b[i*16+8:], uint64(r.Size))
	}
	return b, nil
}

// UnmarshalBinary decodes the header without validating it.
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("%w: %d bytes", ErrShortHeader, len(b))
	}
	var segs [4]Range
	for i := range segs {
		segs[i] = Range{
			Offset: int64(binary.LittleEndian.Uint64(b[i*16:])),
			Size:   int64(binary.LittleEndian.Uint64(b[i*16+8:])),
		}
	}
	*h = Header{Tree: segs[0], World: segs[1], Table: segs[2], Data: segs[3]}
	return nil
}

// Validate checks that segments are contiguous from HeaderSize and end within
// fileSize.
func (h Header) Validate(fileSize int64) error {
	off := int64(HeaderSize)
	for i, r := range h.Segments() {
		if r.Offset != off || r.Size < 0 {
			return fmt.Errorf("%w: segment %d at %d+%d, expected offset %d", ErrBadLayout, i, r.Offset, r.Size, off)
		}
		off = r.End()
	}
	if off > fileSize {
		return fmt.Errorf("%w: segments end at %d past file size %d", ErrBadLayout, off, fileSize)
	}
	return nil
}

// ParseHeader decodes and validates the header at the start of b, which is the
// whole file.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	if err := h.UnmarshalBinary(b); err != nil {
		return Header{}, err
	}
	if err := h.Validate(int64(len(b))); err != nil {
		return Header{}, err
	}
	return h, nil
}
