// Package labels places region names on screen without overlap.
package labels

import (
	"sort"

	"github.com/golang/geo/r2"

	"github.com/andreiashu/geoworld/quadtree"
	"github.com/andreiashu/geoworld/region"
	"github.com/andreiashu/geoworld/world"
)

// layoutDepth bounds the per-frame collision tree.
const layoutDepth = 6

// Label is one candidate name in screen space.
type Label struct {
	Text     string
	Region   region.Hash
	Box      r2.Rect
	Priority float64 // higher wins
}

// Layout returns the labels that fit, highest priority first. A label is kept
// when its box lies entirely on screen and overlaps no label kept before it.
// Boxes that only touch do not overlap.
func Layout(cands []Label, screen r2.Rect) []Label {
	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cands[order[a]].Priority > cands[order[b]].Priority
	})

	placed := quadtree.New[int, string](screen, layoutDepth)
	var out []Label
	for _, i := range order {
		l := cands[i]
		if l.Box.IsEmpty() || !screen.Contains(l.Box) {
			continue
		}
		if collides(placed, l.Box) {
			continue
		}
		placed.Insert(i, l.Text, l.Box)
		out = append(out, l)
	}
	return out
}

// collides runs the tree's rough filter, then the exact test on what it
// returns.
func collides(placed *quadtree.QuadTree[int, string], box r2.Rect) bool {
	for _, e := range placed.Query(box) {
		if e.Box.InteriorIntersects(box) {
			return true
		}
	}
	return false
}

// Candidates makes one label per region at level, centered on the projected
// visual center. Larger regions get higher priority. project maps lon/lat to
// screen coordinates and size returns a label's screen extent.
func Candidates(w world.World, level world.Level, project func(r2.Point) r2.Point, size func(text string) r2.Point) []Label {
	var out []Label
	w.Walk(func(f world.Feature) bool {
		m := f.Meta()
		if m.Level != level {
			return m.Level < level
		}
		if m.Bounds.IsEmpty() {
			return false
		}
		ext := size(m.Name)
		out = append(out, Label{
			Text:     m.Name,
			Region:   m.ID.Hash,
			Box:      r2.RectFromCenterSize(project(m.Center), ext),
			Priority: m.Bounds.Size().X * m.Bounds.Size().Y,
		})
		return false
	})
	return out
}
