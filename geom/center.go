package geom

import (
	"container/heap"
	"math"

	"github.com/golang/geo/r2"
)

const (
	// CenterPrecision stops subdivision once a cell cannot beat the best
	// candidate by more than this distance.
	CenterPrecision = 1.0

	// minCenterArea is the bounding-box area under which the search is skipped.
	minCenterArea = 0.01
)

// centerCell is one square of the branch-and-bound search.
type centerCell struct {
	c   r2.Point // cell center
	h   float64  // half the cell size
	d   float64  // signed distance from c to the polygon
	max float64  // best distance achievable inside the cell
}

func newCenterCell(c r2.Point, h float64, p Polygon) *centerCell {
	d := SignedDistance(c, p)
	return &centerCell{c: c, h: h, d: d, max: d + h*math.Sqrt2}
}

// cellQueue is a max-heap on centerCell.max.
type cellQueue []*centerCell

func (q cellQueue) Len() int           { return len(q) }
func (q cellQueue) Less(i, j int) bool { return q[i].max > q[j].max }
func (q cellQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *cellQueue) Push(x any)        { *q = append(*q, x.(*centerCell)) }
func (q *cellQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	*q = old[:n-1]
	return c
}

// LargestByBounds returns the index of the polygon with the largest
// bounding-box area, or -1 for an empty slice.
func LargestByBounds(polys []Polygon) int {
	best, bestArea := -1, -1.0
	for i, p := range polys {
		s := p.Bounds().Size()
		if a := s.X * s.Y; a > bestArea {
			best, bestArea = i, a
		}
	}
	return best
}

// VisualCenter finds a label anchor for a feature: the pole of inaccessibility
// of its largest polygon (by bounding box), searched with a quad-tree
// branch-and-bound.
func VisualCenter(polys []Polygon) r2.Point {
	i := LargestByBounds(polys)
	if i < 0 {
		return r2.Point{}
	}
	return PoleOfInaccessibility(polys[i], CenterPrecision)
}

// PoleOfInaccessibility returns the point inside p farthest from its boundary,
// within precision.
func PoleOfInaccessibility(p Polygon, precision float64) r2.Point {
	bounds := p.Bounds()
	if bounds.IsEmpty() {
		return r2.Point{}
	}
	size := bounds.Size()
	if size.X*size.Y <= minCenterArea {
		return bounds.Center()
	}

	h := math.Max(size.X, size.Y) / 2
	q := &cellQueue{}
	heap.Push(q, newCenterCell(bounds.Center(), h, p))

	best := newCenterCell(p.Exterior.Centroid(), 0, p)

	for q.Len() > 0 {
		cell := heap.Pop(q).(*centerCell)
		if cell.d > best.d {
			best = cell
		}
		if cell.max-best.d <= precision {
			continue
		}
		h := cell.h / 2
		heap.Push(q, newCenterCell(r2.Point{X: cell.c.X - h, Y: cell.c.Y - h}, h, p))
		heap.Push(q, newCenterCell(r2.Point{X: cell.c.X + h, Y: cell.c.Y - h}, h, p))
		heap.Push(q, newCenterCell(r2.Point{X: cell.c.X - h, Y: cell.c.Y + h}, h, p))
		heap.Push(q, newCenterCell(r2.Point{X: cell.c.X + h, Y: cell.c.Y + h}, h, p))
	}
	return best.c
}
