package world

import (
	"image/color"

	"github.com/golang/geo/r2"

	"github.com/andreiashu/geoworld/geom"
)

// GeoTessellation is the render form of one region at one LOD.
type GeoTessellation struct {
	Vertices []float32 // x, y interleaved
	Indices  []uint32  // three per triangle
	Contours []geom.Ring
	Bounds   r2.Rect
	Center   r2.Point
	Color    color.RGBA
	LOD      int
}

// Empty reports whether there is nothing to draw.
func (t *GeoTessellation) Empty() bool { return t == nil || len(t.Indices) == 0 }

// TriangleCount returns the number of triangles.
func (t *GeoTessellation) TriangleCount() int { return len(t.Indices) / 3 }

// VertexCount returns the number of vertices.
func (t *GeoTessellation) VertexCount() int { return len(t.Vertices) / 2 }

// Vertex returns vertex i as a point.
func (t *GeoTessellation) Vertex(i int) r2.Point {
	return r2.Point{X: float64(t.Vertices[2*i]), Y: float64(t.Vertices[2*i+1])}
}

// VertexBounds is the bounding box of every vertex referenced by an index.
func (t *GeoTessellation) VertexBounds() r2.Rect {
	rect := r2.EmptyRect()
	for _, idx := range t.Indices {
		rect = rect.AddPoint(t.Vertex(int(idx)))
	}
	return rect
}
