// Package geom holds the planar geometry used by the world baker: quantized
// vertices and edges, polygon rings, contour dissolve and label anchors.
//
// Coordinates are longitude (X) and latitude (Y) in degrees.
package geom

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/golang/geo/r2"
)

// Quantum is the grid vertices snap to before comparison. Datasets that share a
// border rarely agree beyond the third decimal.
const Quantum = 1e-3

// Vertex is a point in lon/lat space.
type Vertex struct {
	X float64
	Y float64
}

// VertexKey is the quantized form of a Vertex.
type VertexKey struct {
	X int64
	Y int64
}

// V is shorthand for Vertex{x, y}.
func V(x, y float64) Vertex { return Vertex{X: x, Y: y} }

// Point converts to an r2 point.
func (v Vertex) Point() r2.Point { return r2.Point{X: v.X, Y: v.Y} }

// Key snaps v to the quantization grid.
func (v Vertex) Key() VertexKey {
	return VertexKey{X: int64(math.Round(v.X / Quantum)), Y: int64(math.Round(v.Y / Quantum))}
}

// Equal compares quantized positions.
func (v Vertex) Equal(o Vertex) bool { return v.Key() == o.Key() }

// Hash returns an FNV-1a hash of the quantized position.
func (v Vertex) Hash() uint64 {
	h := fnv.New64a()
	writeKey(h, v.Key())
	return h.Sum64()
}

func writeKey(h interface{ Write([]byte) (int, error) }, k VertexKey) {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(k.X))
	binary.LittleEndian.PutUint64(buf[8:], uint64(k.Y))
	_, _ = h.Write(buf[:]) // fnv.Write never returns an error
}

func (k VertexKey) less(o VertexKey) bool {
	if k.X != o.X {
		return k.X < o.X
	}
	return k.Y < o.Y
}

// Edge is an undirected segment between two vertices.
type Edge struct {
	A Vertex
	B Vertex
}

// EdgeKey is the orientation-independent identity of an Edge.
type EdgeKey struct {
	Lo VertexKey
	Hi VertexKey
}

// Key orders the endpoint keys so that (a,b) and (b,a) collide.
func (e Edge) Key() EdgeKey {
	a, b := e.A.Key(), e.B.Key()
	if b.less(a) {
		a, b = b, a
	}
	return EdgeKey{Lo: a, Hi: b}
}

// Equal reports whether e and o join the same quantized endpoints in either direction.
func (e Edge) Equal(o Edge) bool { return e.Key() == o.Key() }

// Hash is computed from the canonical key and ignores direction.
func (e Edge) Hash() uint64 {
	k := e.Key()
	h := fnv.New64a()
	writeKey(h, k.Lo)
	writeKey(h, k.Hi)
	return h.Sum64()
}

// Degenerate reports whether both endpoints snap to the same grid cell.
func (e Edge) Degenerate() bool { return e.A.Key() == e.B.Key() }
