// Package quadtree is a bounded-depth, axis-aligned quad-tree over arbitrary
// payloads. Nodes live in one arena slice and address their children by index,
// which keeps the tree trivially serializable.
//
// A value descends only while exactly one child quadrant fully contains its
// box. Values straddling a split line stay at the current node, so nothing is
// ever stored twice and depth is bounded by MaxDepth whatever the box size.
package quadtree

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r1"
)

// NoChild marks an absent child in Node.Children.
const NoChild int32 = -1

// DefaultMaxDepth is used when New is given a non-positive depth.
const DefaultMaxDepth = 8

// ErrCorrupt is returned by Decode for structurally invalid trees.
var ErrCorrupt = errors.New("quadtree: corrupt tree")

// Entry is one stored value with the key used to remove it.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
	Box   r2.Rect
}

// Node is an arena slot. Quadrants are ordered SW, SE, NW, NE.
type Node[K comparable, V any] struct {
	Bounds   r2.Rect
	Depth    int
	Children [4]int32
	Entries  []Entry[K, V]
}

// QuadTree is not safe for concurrent mutation. Concurrent Query calls on an
// unchanging tree are fine.
type QuadTree[K comparable, V any] struct {
	Nodes    []Node[K, V]
	MaxDepth int
	count    int
}

// New creates a tree covering bounds.
func New[K comparable, V any](bounds r2.Rect, maxDepth int) *QuadTree[K, V] {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	t := &QuadTree[K, V]{MaxDepth: maxDepth}
	t.newNode(bounds, 0)
	return t
}

// WorldBounds is the whole lon/lat plane.
func WorldBounds() r2.Rect {
	return r2.Rect{X: r1.Interval{Lo: -180, Hi: 180}, Y: r1.Interval{Lo: -90, Hi: 90}}
}

func (t *QuadTree[K, V]) newNode(bounds r2.Rect, depth int) int32 {
	t.Nodes = append(t.Nodes, Node[K, V]{
		Bounds:   bounds,
		Depth:    depth,
		Children: [4]int32{NoChild, NoChild, NoChild, NoChild},
	})
	return int32(len(t.Nodes) - 1)
}

// Bounds returns the root bounds.
func (t *QuadTree[K, V]) Bounds() r2.Rect { return t.Nodes[0].Bounds }

// Len returns the number of stored entries.
func (t *QuadTree[K, V]) Len() int { return t.count }

func quadrant(bounds r2.Rect, i int) r2.Rect {
	c := bounds.Center()
	x := r1.Interval{Lo: bounds.X.Lo, Hi: c.X}
	if i&1 == 1 {
		x = r1.Interval{Lo: c.X, Hi: bounds.X.Hi}
	}
	y := r1.Interval{Lo: bounds.Y.Lo, Hi: c.Y}
	if i&2 == 2 {
		y = r1.Interval{Lo: c.Y, Hi: bounds.Y.Hi}
	}
	return r2.Rect{X: x, Y: y}
}

// Insert stores value under key with the given box.
func (t *QuadTree[K, V]) Insert(key K, value V, box r2.Rect) {
	n := int32(0)
	for t.Nodes[n].Depth < t.MaxDepth {
		next := -1
		for i := 0; i < 4; i++ {
			if quadrant(t.Nodes[n].Bounds, i).Contains(box) {
				if next >= 0 {
					// Degenerate box on a split line: both quadrants contain it.
					next = -1
					break
				}
				next = i
			}
		}
		if next < 0 {
			break
		}
		child := t.Nodes[n].Children[next]
		if child == NoChild {
			child = t.newNode(quadrant(t.Nodes[n].Bounds, next), t.Nodes[n].Depth+1)
			t.Nodes[n].Children[next] = child
		}
		n = child
	}
	t.Nodes[n].Entries = append(t.Nodes[n].Entries, Entry[K, V]{Key: key, Value: value, Box: box})
	t.count++
}

// Query returns every entry stored at a node whose bounds intersect box. It is
// a conservative filter: callers wanting an exact test must re-check Entry.Box.
// Root entries are always returned since they may lie outside the root bounds.
func (t *QuadTree[K, V]) Query(box r2.Rect) []Entry[K, V] {
	var out []Entry[K, V]
	out = append(out, t.Nodes[0].Entries...)
	stack := make([]int32, 0, 16)
	for _, c := range t.Nodes[0].Children {
		if c != NoChild {
			stack = append(stack, c)
		}
	}
	for len(stack) > 0 {
		n := &t.Nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if !n.Bounds.Intersects(box) {
			continue
		}
		out = append(out, n.Entries...)
		for _, c := range n.Children {
			if c != NoChild {
				stack = append(stack, c)
			}
		}
	}
	return out
}

// QueryExact filters Query results with an exact box intersection test.
func (t *QuadTree[K, V]) QueryExact(box r2.Rect) []Entry[K, V] {
	candidates := t.Query(box)
	out := candidates[:0]
	for _, e := range candidates {
		if e.Box.Intersects(box) {
			out = append(out, e)
		}
	}
	return out
}

// Remove deletes the first entry stored under key. Tree shape is unchanged.
func (t *QuadTree[K, V]) Remove(key K) bool {
	for i := range t.Nodes {
		entries := t.Nodes[i].Entries
		for j := range entries {
			if entries[j].Key == key {
				t.Nodes[i].Entries = append(entries[:j:j], entries[j+1:]...)
				t.count--
				return true
			}
		}
	}
	return false
}

// Visit calls fn for every node in arena order, for debug drawing.
func (t *QuadTree[K, V]) Visit(fn func(bounds r2.Rect, depth, entries int)) {
	for _, n := range t.Nodes {
		fn(n.Bounds, n.Depth, len(n.Entries))
	}
}

// Encode serializes the arena with gob.
func (t *QuadTree[K, V]) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(t); err != nil {
		return nil, fmt.Errorf("encoding quadtree: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode restores a tree written by Encode.
func Decode[K comparable, V any](b []byte) (*QuadTree[K, V], error) {
	t := &QuadTree[K, V]{}
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(t); err != nil {
		return nil, fmt.Errorf("decoding quadtree: %w", err)
	}
	if len(t.Nodes) == 0 {
		return nil, ErrCorrupt
	}
	// Children are always appended after their parent.
	for i, n := range t.Nodes {
		for _, c := range n.Children {
			if c != NoChild && (int(c) <= i || int(c) >= len(t.Nodes)) {
				return nil, fmt.Errorf("%w: child index %d", ErrCorrupt, c)
			}
		}
		t.count += len(n.Entries)
	}
	return t, nil
}
