package chunk

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrDuplicateKey is returned by AddChunk for a key already in the table.
	ErrDuplicateKey = errors.New("chunk: duplicate key")
	// ErrUnknownKey is returned by PullChunk for a key not in the table.
	ErrUnknownKey = errors.New("chunk: unknown key")
	// ErrBadRange is returned when a range does not fit the data blob.
	ErrBadRange = errors.New("chunk: range out of bounds")
	// ErrBadKey is returned by ParseKey for keys without a LOD suffix.
	ErrBadKey = errors.New("chunk: malformed key")
)

// Key builds the chunk key for a region at a LOD.
func Key(regionKey string, lod int) string {
	return regionKey + "-" + strconv.Itoa(lod)
}

// ParseKey splits a chunk key at its last hyphen.
func ParseKey(key string) (regionKey string, lod int, err error) {
	i := strings.LastIndexByte(key, '-')
	if i <= 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	lod, err = strconv.Atoi(key[i+1:])
	if err != nil || lod < 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return key[:i], lod, nil
}

// Entry maps one chunk key to its bytes in the data blob.
type Entry struct {
	Key   string
	Range Range
}

// Directory is the chunk key index stored in the file.
type Directory struct {
	LodCount int
	Entries  []Entry

	index map[string]int
}

// Lookup returns the range for key.
func (d *Directory) Lookup(key string) (Range, bool) {
	if d.index == nil {
		d.buildIndex()
	}
	i, ok := d.index[key]
	if !ok {
		return Range{}, false
	}
	return d.Entries[i].Range, true
}

// Len returns the number of chunks.
func (d *Directory) Len() int { return len(d.Entries) }

func (d *Directory) buildIndex() {
	d.index = make(map[string]int, len(d.Entries))
	for i, e := range d.Entries {
		d.index[e.Key] = i
	}
}

// Encode serializes the directory with gob.
func (d *Directory) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d); err != nil {
		return nil, fmt.Errorf("encoding chunk directory: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeDirectory restores a directory and checks that its ranges are
// contiguous, in insertion order, and within dataSize.
func DecodeDirectory(b []byte, dataSize int64) (*Directory, error) {
	d := &Directory{}
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(d); err != nil {
		return nil, fmt.Errorf("decoding chunk directory: %w", err)
	}
	var off int64
	d.index = make(map[string]int, len(d.Entries))
	for i, e := range d.Entries {
		if e.Range.Offset != off || e.Range.Size < 0 {
			return nil, fmt.Errorf("%w: %q at %d, expected %d", ErrBadRange, e.Key, e.Range.Offset, off)
		}
		if _, dup := d.index[e.Key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, e.Key)
		}
		d.index[e.Key] = i
		off = e.Range.End()
	}
	if off > dataSize {
		return nil, fmt.Errorf("%w: chunks end at %d past data size %d", ErrBadRange, off, dataSize)
	}
	return d, nil
}

// Table accumulates chunks at bake time. Each chunk is its own gob stream so
// it can be decoded without its neighbours.
type Table struct {
	Directory
	data bytes.Buffer
}

// NewTable creates an empty table for lodCount levels of detail.
func NewTable(lodCount int) *Table {
	return &Table{Directory: Directory{LodCount: lodCount, index: map[string]int{}}}
}

// AddChunk serializes v and appends it under key. Chunks must be added in a
// stable order for the output to be reproducible.
func (t *Table) AddChunk(key string, v any) error {
	if _, dup := t.index[key]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	start := int64(t.data.Len())
	if err := gob.NewEncoder(&t.data).Encode(v); err != nil {
		t.data.Truncate(int(start))
		return fmt.Errorf("encoding chunk %q: %w", key, err)
	}
	t.index[key] = len(t.Entries)
	t.Entries = append(t.Entries, Entry{Key: key, Range: Range{Offset: start, Size: int64(t.data.Len()) - start}})
	return nil
}

// Data returns the concatenated chunk bytes.
func (t *Table) Data() []byte { return t.data.Bytes() }

// PullChunk decodes the chunk stored under key into out.
func (t *Table) PullChunk(key string, out any) error {
	r, ok := t.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return decodeInto(t.Data(), r, out)
}

// Pull decodes the chunk at r in data.
func Pull[T any](data []byte, r Range) (T, error) {
	var v T
	err := decodeInto(data, r, &v)
	return v, err
}

func decodeInto(data []byte, r Range, out any) error {
	b, ok := r.Slice(data)
	if !ok {
		return fmt.Errorf("%w: %d+%d of %d", ErrBadRange, r.Offset, r.Size, len(data))
	}
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(out); err != nil {
		return fmt.Errorf("decoding chunk at %d: %w", r.Offset, err)
	}
	return nil
}
