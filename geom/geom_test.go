package geom

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	. "gopkg.in/check.v1"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { TestingT(t) }

type GeomSuite struct{}

var _ = Suite(&GeomSuite{})

func square(x0, y0, x1, y1 float64) Polygon {
	return NewPolygon(NewRing([]Vertex{V(x0, y0), V(x1, y0), V(x1, y1), V(x0, y1)}))
}

func (s *GeomSuite) TestEdgeIsUndirected(c *C) {
	a, b := V(1, 2), V(3, 4)
	c.Assert(Edge{A: a, B: b}.Equal(Edge{A: b, B: a}), Equals, true)
	c.Assert(Edge{A: a, B: b}.Hash(), Equals, Edge{A: b, B: a}.Hash())
	c.Assert(Edge{A: a, B: b}.Key(), Equals, Edge{A: b, B: a}.Key())
	c.Assert(Edge{A: a, B: b}.Equal(Edge{A: a, B: V(3, 5)}), Equals, false)
}

func (s *GeomSuite) TestQuantizedEquality(c *C) {
	a := V(117.75388716, -300.0003)
	b := V(117.75388714, -300.0003)
	c.Assert(a.Equal(b), Equals, true)
	c.Assert(a.Hash(), Equals, b.Hash())
	c.Assert(a.Key(), Equals, b.Key())

	far := V(117.7549, -300.0003)
	c.Assert(a.Equal(far), Equals, false)
}

func (s *GeomSuite) TestNewRingDropsClosingVertex(c *C) {
	r := NewRing([]Vertex{V(0, 0), V(1, 0), V(1, 0), V(1, 1), V(0, 0)})
	c.Assert(r.Len(), Equals, 3)
	c.Assert(r.Edges(), HasLen, 3)
}

func (s *GeomSuite) TestSignedAreaAndCentroid(c *C) {
	p := square(0, 0, 4, 2)
	c.Assert(p.Area, Equals, 8.0)
	c.Assert(p.Exterior.Reversed().SignedArea(), Equals, -8.0)
	c.Assert(p.Exterior.Centroid(), Equals, r2.Point{X: 2, Y: 1})
}

func (s *GeomSuite) TestContainsHonoursHoles(c *C) {
	hole := NewRing([]Vertex{V(4, 4), V(6, 4), V(6, 6), V(4, 6)})
	p := NewPolygon(square(0, 0, 10, 10).Exterior, hole)
	c.Assert(p.Contains(r2.Point{X: 1, Y: 1}), Equals, true)
	c.Assert(p.Contains(r2.Point{X: 5, Y: 5}), Equals, false)
	c.Assert(p.Contains(r2.Point{X: 11, Y: 5}), Equals, false)
}

func (s *GeomSuite) TestSortByArea(c *C) {
	polys := []Polygon{square(0, 0, 1, 1), square(0, 0, 3, 3), square(0, 0, 2, 2)}
	SortByArea(polys)
	c.Assert(polys[0].Area, Equals, 9.0)
	c.Assert(polys[1].Area, Equals, 4.0)
	c.Assert(polys[2].Area, Equals, 1.0)
}

// Three pie slices around a shared centre: the two shared spokes cancel and
// the five perimeter edges form one ring.
func (s *GeomSuite) TestAssembleContoursPieSlices(c *C) {
	center := V(0, 0)
	a, b, d, e := V(10, 0), V(7, 7), V(0, 10), V(-7, 7)
	polys := []Polygon{
		NewPolygon(NewRing([]Vertex{center, a, b})),
		NewPolygon(NewRing([]Vertex{center, b, d})),
		NewPolygon(NewRing([]Vertex{center, d, e})),
	}
	rings, diag := AssembleContours(polys)
	c.Assert(rings, HasLen, 1)
	c.Assert(diag.InputEdges, Equals, 9)
	c.Assert(diag.CanceledEdges, Equals, 2)
	c.Assert(diag.SurvivingEdges, Equals, 5)
	c.Assert(diag.Clean(), Equals, true)
	c.Assert(rings[0].Len(), Equals, 5)

	want := map[EdgeKey]bool{}
	for _, e := range []Edge{{center, a}, {a, b}, {b, d}, {d, e}, {e, center}} {
		want[e.Key()] = true
	}
	for _, e := range rings[0].Edges() {
		c.Assert(want[e.Key()], Equals, true, Commentf("unexpected edge %v", e))
	}
}

func (s *GeomSuite) TestAssembleContoursIslands(c *C) {
	rings, diag := AssembleContours([]Polygon{square(0, 0, 1, 1), square(5, 5, 6, 6)})
	c.Assert(rings, HasLen, 2)
	c.Assert(diag.Clean(), Equals, true)
}

func (s *GeomSuite) TestAssembleContoursAdjacentSquares(c *C) {
	left := NewPolygon(NewRing([]Vertex{V(0, 0), V(1, 0), V(1, 1), V(0, 1)}))
	right := NewPolygon(NewRing([]Vertex{V(1, 0), V(2, 0), V(2, 1), V(1, 1)}))
	merged, diag := Dissolve([]Polygon{left, right})
	c.Assert(merged, HasLen, 1)
	c.Assert(diag.CanceledEdges, Equals, 1)
	c.Assert(math.Abs(merged[0].Area), Equals, 2.0)
	c.Assert(merged[0].Holes, HasLen, 0)
}

func (s *GeomSuite) TestAssembleContoursDeadEndTerminates(c *C) {
	// An open chain cannot close; the walk stops and reports it.
	open := Polygon{Exterior: Ring{Vertices: []Vertex{V(0, 0), V(1, 0), V(2, 0), V(3, 1)}}}
	dup := Polygon{Exterior: Ring{Vertices: []Vertex{V(3, 1), V(0, 0)}}}
	_, diag := AssembleContours([]Polygon{open, dup})
	c.Assert(diag.DeadEnds+diag.Degenerate > 0, Equals, true)
}

func (s *GeomSuite) TestAssembleContoursAllInternal(c *C) {
	p := square(0, 0, 1, 1)
	rings, diag := AssembleContours([]Polygon{p, p})
	c.Assert(rings, HasLen, 0)
	c.Assert(diag.SurvivingEdges, Equals, 0)
}

// Rebuilding a ring from its own edge set yields the same cyclic adjacency.
func (s *GeomSuite) TestRingRoundTrip(c *C) {
	in := NewRing([]Vertex{V(0, 0), V(4, 0), V(5, 3), V(2, 5), V(-1, 3)})
	rings, _ := AssembleContours([]Polygon{NewPolygon(in)})
	c.Assert(rings, HasLen, 1)
	out := rings[0]
	c.Assert(out.Len(), Equals, in.Len())

	neighbours := func(r Ring) map[VertexKey][2]VertexKey {
		m := map[VertexKey][2]VertexKey{}
		n := r.Len()
		for i, v := range r.Vertices {
			p, q := r.Vertices[(i+n-1)%n].Key(), r.Vertices[(i+1)%n].Key()
			if q.less(p) {
				p, q = q, p
			}
			m[v.Key()] = [2]VertexKey{p, q}
		}
		return m
	}
	c.Assert(neighbours(out), DeepEquals, neighbours(in))
}

func (s *GeomSuite) TestVisualCenterSquare(c *C) {
	p := VisualCenter([]Polygon{square(0, 0, 10, 10)})
	c.Assert(p, Equals, r2.Point{X: 5, Y: 5})
}

func (s *GeomSuite) TestVisualCenterConvexWithinPrecision(c *C) {
	tri := NewPolygon(NewRing([]Vertex{V(0, 0), V(20, 0), V(10, 20)}))
	side := math.Hypot(10, 20)
	inradius := 200 / ((2*side + 20) / 2)

	p := VisualCenter([]Polygon{tri})
	d := SignedDistance(p, tri)
	c.Assert(d > 0, Equals, true)
	c.Assert(inradius-d <= CenterPrecision, Equals, true, Commentf("d=%v inradius=%v", d, inradius))
}

func (s *GeomSuite) TestVisualCenterPicksLargestBounds(c *C) {
	small := square(100, 100, 101, 101)
	big := square(0, 0, 30, 10)
	p := VisualCenter([]Polygon{small, big})
	c.Assert(big.Contains(p), Equals, true)
}

func (s *GeomSuite) TestVisualCenterDegenerateSliver(c *C) {
	sliver := square(0, 0, 0.05, 0.1)
	c.Assert(VisualCenter([]Polygon{sliver}), Equals, r2.Point{X: 0.025, Y: 0.05})
	c.Assert(VisualCenter(nil), Equals, r2.Point{})
}

func (s *GeomSuite) TestSignedDistance(c *C) {
	p := square(0, 0, 10, 10)
	c.Assert(SignedDistance(r2.Point{X: 5, Y: 2}, p), Equals, 2.0)
	c.Assert(SignedDistance(r2.Point{X: 13, Y: 5}, p), Equals, -3.0)
}
