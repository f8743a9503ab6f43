package geom

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
)

// Ring is a closed boundary. The closing edge from the last vertex back to the
// first is implicit.
type Ring struct {
	Vertices []Vertex
}

// NewRing copies vs, dropping consecutive duplicates and a trailing vertex
// equal to the first.
func NewRing(vs []Vertex) Ring {
	out := make([]Vertex, 0, len(vs))
	for _, v := range vs {
		if len(out) > 0 && out[len(out)-1].Equal(v) {
			continue
		}
		out = append(out, v)
	}
	if len(out) > 1 && out[0].Equal(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return Ring{Vertices: out}
}

// Len returns the vertex count.
func (r Ring) Len() int { return len(r.Vertices) }

// Valid reports whether the ring can enclose area.
func (r Ring) Valid() bool { return len(r.Vertices) >= 3 }

// Edges returns the n edges of an n-vertex ring, closing edge included.
func (r Ring) Edges() []Edge {
	n := len(r.Vertices)
	if n < 2 {
		return nil
	}
	edges := make([]Edge, n)
	for i := range r.Vertices {
		edges[i] = Edge{A: r.Vertices[i], B: r.Vertices[(i+1)%n]}
	}
	return edges
}

// SignedArea is the shoelace area, positive for counter-clockwise rings.
func (r Ring) SignedArea() float64 {
	n := len(r.Vertices)
	var sum float64
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := r.Vertices[j], r.Vertices[i]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// Bounds returns the axis-aligned bounding box.
func (r Ring) Bounds() r2.Rect {
	rect := r2.EmptyRect()
	for _, v := range r.Vertices {
		rect = rect.AddPoint(v.Point())
	}
	return rect
}

// Centroid is the area-weighted vertex centroid. Zero-area rings fall back to
// the first vertex.
func (r Ring) Centroid() r2.Point {
	n := len(r.Vertices)
	if n == 0 {
		return r2.Point{}
	}
	var x, y, area float64
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := r.Vertices[j], r.Vertices[i]
		f := a.X*b.Y - b.X*a.Y
		x += (a.X + b.X) * f
		y += (a.Y + b.Y) * f
		area += f * 3
	}
	if area == 0 {
		return r.Vertices[0].Point()
	}
	return r2.Point{X: x / area, Y: y / area}
}

// Reversed returns the ring with opposite orientation.
func (r Ring) Reversed() Ring {
	out := make([]Vertex, len(r.Vertices))
	for i, v := range r.Vertices {
		out[len(out)-1-i] = v
	}
	return Ring{Vertices: out}
}

// Polygon is an exterior ring with optional holes.
type Polygon struct {
	Exterior Ring
	Holes    []Ring
	Area     float64 // signed shoelace area of Exterior, cached by NewPolygon
}

// NewPolygon builds a polygon and caches its signed area.
func NewPolygon(exterior Ring, holes ...Ring) Polygon {
	return Polygon{Exterior: exterior, Holes: holes, Area: exterior.SignedArea()}
}

// Rings returns the exterior followed by the holes.
func (p Polygon) Rings() []Ring {
	rings := make([]Ring, 0, 1+len(p.Holes))
	rings = append(rings, p.Exterior)
	return append(rings, p.Holes...)
}

// Bounds returns the exterior bounding box.
func (p Polygon) Bounds() r2.Rect { return p.Exterior.Bounds() }

// SortByArea orders polygons by absolute area, largest first. Ties keep input order.
func SortByArea(polys []Polygon) {
	sort.SliceStable(polys, func(i, j int) bool {
		return math.Abs(polys[i].Area) > math.Abs(polys[j].Area)
	})
}

// BoundsOf returns the union of the polygons' bounding boxes.
func BoundsOf(polys []Polygon) r2.Rect {
	rect := r2.EmptyRect()
	for _, p := range polys {
		rect = rect.Union(p.Bounds())
	}
	return rect
}

// Contains reports whether pt lies inside p using the even-odd rule over all rings.
func (p Polygon) Contains(pt r2.Point) bool {
	if !p.Bounds().ContainsPoint(pt) {
		return false
	}
	inside := false
	for _, r := range p.Rings() {
		if ringCrossings(pt, r) {
			inside = !inside
		}
	}
	return inside
}

// ringCrossings casts a ray towards +X and reports an odd crossing count.
func ringCrossings(pt r2.Point, r Ring) bool {
	n := len(r.Vertices)
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := r.Vertices[i], r.Vertices[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) &&
			pt.X < (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// SignedDistance is the distance from pt to the nearest edge of p, positive
// inside and negative outside.
func SignedDistance(pt r2.Point, p Polygon) float64 {
	inside := false
	best := math.Inf(1)
	for _, r := range p.Rings() {
		if ringCrossings(pt, r) {
			inside = !inside
		}
		for _, e := range r.Edges() {
			if d := segmentDistSq(pt, e.A.Point(), e.B.Point()); d < best {
				best = d
			}
		}
	}
	d := math.Sqrt(best)
	if !inside {
		return -d
	}
	return d
}

func segmentDistSq(p, a, b r2.Point) float64 {
	ab := b.Sub(a)
	l := ab.Dot(ab)
	if l > 0 {
		t := p.Sub(a).Dot(ab) / l
		switch {
		case t > 1:
			a = b
		case t > 0:
			a = a.Add(ab.Mul(t))
		}
	}
	d := p.Sub(a)
	return d.Dot(d)
}
