package world

import (
	"github.com/andreiashu/geoworld/quadtree"
	"github.com/andreiashu/geoworld/region"
)

// Ref is what the spatial index stores per region.
type Ref struct {
	ID    region.ID
	Level Level
}

// Index is the world's spatial index, keyed by region hash.
type Index = quadtree.QuadTree[region.Hash, Ref]

// BuildIndex inserts the bounds of every region with non-empty bounds.
func BuildIndex(w World, maxDepth int) *Index {
	idx := quadtree.New[region.Hash, Ref](quadtree.WorldBounds(), maxDepth)
	w.Walk(func(f Feature) bool {
		m := f.Meta()
		if !m.Bounds.IsEmpty() {
			idx.Insert(m.ID.Hash, Ref{ID: m.ID, Level: m.Level}, m.Bounds)
		}
		return true
	})
	return idx
}

// DecodeIndex restores an index written with Index.Encode.
func DecodeIndex(b []byte) (*Index, error) {
	return quadtree.Decode[region.Hash, Ref](b)
}
