// Package tess turns closed contours into triangle lists.
//
// EarClipper is the triangulator the baker uses unless another one is plugged
// in. It handles outer rings with holes: contours are classified by nesting
// depth, each hole is bridged into its enclosing ring, and the resulting simple
// polygon is ear-clipped.
package tess

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"github.com/andreiashu/geoworld/geom"
)

// WindingRule decides which contour regions are filled.
type WindingRule int

const (
	// WindingEvenOdd fills regions enclosed by an odd number of contours.
	WindingEvenOdd WindingRule = iota
	// WindingNonZero fills regions with a non-zero winding number. Contours
	// are treated as properly nested, which makes it equivalent to even-odd
	// for non-overlapping input.
	WindingNonZero
)

// ErrNoEar is returned when clipping stalls, usually on self-intersecting input.
var ErrNoEar = errors.New("tess: no ear found")

// EarClipper is a triangulator. The zero value is ready to use and has no
// state, so one value can serve concurrent callers.
type EarClipper struct{}

// Triangulate returns x,y interleaved vertices and three indices per triangle.
func (EarClipper) Triangulate(contours []geom.Ring, rule WindingRule) ([]float32, []uint32, error) {
	var pts []r2.Point
	var rings []contour
	for _, c := range contours {
		if !c.Valid() {
			continue
		}
		r := contour{start: len(pts), n: c.Len(), area: c.SignedArea()}
		if r.area == 0 {
			continue
		}
		for _, v := range c.Vertices {
			pts = append(pts, v.Point())
		}
		rings = append(rings, r)
	}
	if len(rings) == 0 {
		return nil, nil, nil
	}
	classify(pts, rings)

	vertices := make([]float32, 0, 2*len(pts))
	for _, p := range pts {
		vertices = append(vertices, float32(p.X), float32(p.Y))
	}

	var indices []uint32
	for oi := range rings {
		if rings[oi].hole() {
			continue
		}
		poly := rings[oi].indices(pts, true)
		var holes [][]int
		for hi := range rings {
			if rings[hi].hole() && rings[hi].parent == oi {
				holes = append(holes, rings[hi].indices(pts, false))
			}
		}
		merged, err := bridgeHoles(pts, poly, holes)
		if err != nil {
			return nil, nil, err
		}
		tris, err := clip(pts, merged)
		if err != nil {
			return nil, nil, fmt.Errorf("contour %d: %w", oi, err)
		}
		indices = append(indices, tris...)
	}
	return vertices, indices, nil
}

type contour struct {
	start, n int
	area     float64
	depth    int
	parent   int
}

func (c contour) hole() bool { return c.depth%2 == 1 }

// indices returns the ring's point indexes, counter-clockwise when ccw is set
// and clockwise otherwise.
func (c contour) indices(pts []r2.Point, ccw bool) []int {
	out := make([]int, c.n)
	for i := range out {
		out[i] = c.start + i
	}
	if (c.area > 0) != ccw {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// classify sets depth to the number of rings containing each ring and parent
// to the smallest of them.
func classify(pts []r2.Point, rings []contour) {
	for i := range rings {
		rings[i].parent = -1
		probe := pts[rings[i].start]
		best := math.Inf(1)
		for j := range rings {
			if i == j || !inRing(probe, pts[rings[j].start:rings[j].start+rings[j].n]) {
				continue
			}
			rings[i].depth++
			if a := math.Abs(rings[j].area); a < best {
				best, rings[i].parent = a, j
			}
		}
	}
}

func inRing(p r2.Point, ring []r2.Point) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// bridgeHoles splices each hole into poly through a zero-width bridge from the
// hole's rightmost vertex to the nearest visible vertex of poly. Holes are
// processed right to left so earlier bridges never block later ones.
func bridgeHoles(pts []r2.Point, poly []int, holes [][]int) ([]int, error) {
	rightmost := func(h []int) int {
		best := 0
		for i, idx := range h {
			if pts[idx].X > pts[h[best]].X {
				best = i
			}
		}
		return best
	}
	sort.SliceStable(holes, func(i, j int) bool {
		return pts[holes[i][rightmost(holes[i])]].X > pts[holes[j][rightmost(holes[j])]].X
	})

	for hi, h := range holes {
		mi := rightmost(h)
		m := pts[h[mi]]
		bi := -1
		bestDist := math.Inf(1)
		for i, idx := range poly {
			d := pts[idx].Sub(m).Norm()
			if d >= bestDist || !visible(pts, m, pts[idx], poly, holes[hi:]) {
				continue
			}
			bi, bestDist = i, d
		}
		if bi < 0 {
			return nil, fmt.Errorf("%w: hole %d has no visible bridge", ErrNoEar, hi)
		}
		merged := make([]int, 0, len(poly)+len(h)+2)
		merged = append(merged, poly[:bi+1]...)
		for k := 0; k <= len(h); k++ {
			merged = append(merged, h[(mi+k)%len(h)])
		}
		merged = append(merged, poly[bi:]...)
		poly = merged
	}
	return poly, nil
}

// visible reports whether segment a-b crosses no edge of poly or the holes.
func visible(pts []r2.Point, a, b r2.Point, poly []int, holes [][]int) bool {
	check := func(ring []int) bool {
		for i := range ring {
			p, q := pts[ring[i]], pts[ring[(i+1)%len(ring)]]
			if segmentsCross(a, b, p, q) {
				return false
			}
		}
		return true
	}
	if !check(poly) {
		return false
	}
	for _, h := range holes {
		if !check(h) {
			return false
		}
	}
	return true
}

// segmentsCross reports whether p-q blocks a-b: a proper crossing, or p or q
// lying inside a-b. Shared endpoints do not count.
func segmentsCross(a, b, p, q r2.Point) bool {
	if onSegment(p, a, b) || onSegment(q, a, b) {
		return true
	}
	if a == p || a == q || b == p || b == q {
		return false
	}
	d1, d2 := cross(p, q, a), cross(p, q, b)
	d3, d4 := cross(a, b, p), cross(a, b, q)
	return ((d1 > 0) != (d2 > 0)) && ((d3 > 0) != (d4 > 0)) && d1 != 0 && d2 != 0 && d3 != 0 && d4 != 0
}

func onSegment(p, a, b r2.Point) bool {
	if p == a || p == b || cross(a, b, p) != 0 {
		return false
	}
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}

func cross(o, a, b r2.Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// clip ear-clips a counter-clockwise simple polygon given as point indexes.
func clip(pts []r2.Point, poly []int) ([]uint32, error) {
	idx := append([]int(nil), poly...)
	tris := make([]uint32, 0, 3*(len(idx)-2))
	for len(idx) > 3 {
		n := len(idx)
		clipped := false
		for i := 0; i < n; i++ {
			ia, ib, ic := idx[(i+n-1)%n], idx[i], idx[(i+1)%n]
			a, b, c := pts[ia], pts[ib], pts[ic]
			area := cross(a, b, c)
			if area < 0 {
				continue
			}
			if area > 0 {
				if containsAny(pts, idx, a, b, c) {
					continue
				}
				tris = append(tris, uint32(ia), uint32(ib), uint32(ic))
			}
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			return nil, fmt.Errorf("%w: %d vertices left", ErrNoEar, len(idx))
		}
	}
	if len(idx) == 3 {
		a, b, c := pts[idx[0]], pts[idx[1]], pts[idx[2]]
		if cross(a, b, c) > 0 {
			tris = append(tris, uint32(idx[0]), uint32(idx[1]), uint32(idx[2]))
		}
	}
	return tris, nil
}

// containsAny reports whether any polygon vertex other than the triangle's
// corners lies inside or on the triangle abc.
func containsAny(pts []r2.Point, idx []int, a, b, c r2.Point) bool {
	for _, i := range idx {
		p := pts[i]
		if p == a || p == b || p == c {
			continue
		}
		if cross(a, b, p) >= 0 && cross(b, c, p) >= 0 && cross(c, a, p) >= 0 {
			return true
		}
	}
	return false
}
