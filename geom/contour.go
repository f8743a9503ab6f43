package geom

// Diagnostics describes what AssembleContours saw. Callers report these
// upstream; the assembler itself never fails.
type Diagnostics struct {
	InputEdges     int // edges contributed by all input rings
	SurvivingEdges int // edges with cardinality one
	CanceledEdges  int // distinct edges shared by two or more rings
	DeadEnds       int // walks that stopped before returning to their start
	Degenerate     int // closed walks with fewer than three vertices, discarded
}

// Clean reports whether every walk closed on its own start vertex.
func (d Diagnostics) Clean() bool { return d.DeadEnds == 0 && d.Degenerate == 0 }

type contourEdge struct {
	edge Edge
	key  EdgeKey
	used bool
}

// AssembleContours dissolves sibling polygons into the outline of their union.
//
// Every ring of every polygon contributes its edges to one multiset. Edges seen
// exactly once lie on the outer perimeter; edges shared by two neighbours
// cancel. The surviving edges are then chained into rings by a greedy walk:
// from the current end vertex take the first unused surviving edge that
// touches it. A walk that cannot continue is closed where it stands and the
// next ring starts from the next unused edge, so the function always
// terminates. Output order follows the first occurrence of each edge in the
// input, which makes the result deterministic.
func AssembleContours(polys []Polygon) ([]Ring, Diagnostics) {
	var diag Diagnostics

	counts := make(map[EdgeKey]int)
	var order []contourEdge
	for _, p := range polys {
		for _, r := range p.Rings() {
			for _, e := range r.Edges() {
				if e.Degenerate() {
					continue
				}
				diag.InputEdges++
				k := e.Key()
				if counts[k] == 0 {
					order = append(order, contourEdge{edge: e, key: k})
				}
				counts[k]++
			}
		}
	}

	var surviving []*contourEdge
	adjacency := make(map[VertexKey][]*contourEdge)
	for i := range order {
		ce := &order[i]
		if counts[ce.key] != 1 {
			diag.CanceledEdges++
			continue
		}
		surviving = append(surviving, ce)
		adjacency[ce.key.Lo] = append(adjacency[ce.key.Lo], ce)
		adjacency[ce.key.Hi] = append(adjacency[ce.key.Hi], ce)
	}
	diag.SurvivingEdges = len(surviving)

	next := func(at VertexKey) *contourEdge {
		for _, ce := range adjacency[at] {
			if !ce.used {
				return ce
			}
		}
		return nil
	}

	var rings []Ring
	for _, start := range surviving {
		if start.used {
			continue
		}
		start.used = true
		path := []Vertex{start.edge.A, start.edge.B}
		origin := start.edge.A.Key()
		closed := false
		for {
			end := path[len(path)-1]
			if end.Key() == origin {
				closed = true
				break
			}
			ce := next(end.Key())
			if ce == nil {
				break
			}
			ce.used = true
			if ce.edge.A.Key() == end.Key() {
				path = append(path, ce.edge.B)
			} else {
				path = append(path, ce.edge.A)
			}
		}
		if !closed {
			diag.DeadEnds++
		}
		ring := NewRing(path)
		if !ring.Valid() {
			diag.Degenerate++
			continue
		}
		rings = append(rings, ring)
	}
	return rings, diag
}

// Dissolve assembles contours and wraps each ring as an exterior-only polygon,
// largest first.
func Dissolve(polys []Polygon) ([]Polygon, Diagnostics) {
	rings, diag := AssembleContours(polys)
	out := make([]Polygon, 0, len(rings))
	for _, r := range rings {
		out = append(out, NewPolygon(r))
	}
	SortByArea(out)
	return out, diag
}
