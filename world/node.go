// Package world holds the baked region hierarchy: continents containing
// countries containing provinces. All three levels share one generic Node
// type, so dissolve, assignment and tint logic is written once.
//
// Values are immutable after construction. Passes such as Tint, AssignPlaces
// and Filter return a new World.
package world

import (
	"image/color"

	"github.com/golang/geo/r2"

	"github.com/andreiashu/geoworld/region"
)

// Level is the depth of a node in the hierarchy.
type Level uint8

const (
	LevelContinent Level = iota
	LevelCountry
	LevelProvince
)

func (l Level) String() string {
	switch l {
	case LevelContinent:
		return region.LevelContinent
	case LevelCountry:
		return region.LevelCountry
	case LevelProvince:
		return region.LevelProvince
	}
	return "unknown"
}

// Info is the per-node payload shared by every level.
type Info struct {
	Name   string
	ID     region.ID
	Level  Level
	Bounds r2.Rect
	Center r2.Point
	Color  color.RGBA
	Places []Place
}

// Leaf terminates the hierarchy.
type Leaf struct{}

// Node is one region with children of type C.
type Node[C any] struct {
	Info
	Children []C
}

type (
	Province  = Node[Leaf]
	Country   = Node[Province]
	Continent = Node[Country]
)

// Feature is implemented by every Node instantiation.
type Feature interface {
	Meta() Info
	Subfeatures() []Feature
}

// Meta returns the node payload.
func (n Node[C]) Meta() Info { return n.Info }

// Subfeatures returns the children as Features. Provinces have none.
func (n Node[C]) Subfeatures() []Feature {
	var out []Feature
	for _, c := range n.Children {
		if f, ok := any(c).(Feature); ok {
			out = append(out, f)
		}
	}
	return out
}

// World is the root of the hierarchy.
type World struct {
	Continents []Continent
}

// Walk visits every node depth first, parents before children. Returning
// false from fn skips the node's subtree.
func (w World) Walk(fn func(f Feature) bool) {
	var walk func(f Feature)
	walk = func(f Feature) {
		if !fn(f) {
			return
		}
		for _, c := range f.Subfeatures() {
			walk(c)
		}
	}
	for _, c := range w.Continents {
		walk(c)
	}
}

// Find returns the node with the given hash.
func (w World) Find(h region.Hash) (Info, bool) {
	var (
		found Info
		ok    bool
	)
	w.Walk(func(f Feature) bool {
		if ok {
			return false
		}
		if m := f.Meta(); m.ID.Hash == h {
			found, ok = m, true
			return false
		}
		return true
	})
	return found, ok
}

// Count returns the number of nodes at each level.
func (w World) Count() map[Level]int {
	out := make(map[Level]int, 3)
	w.Walk(func(f Feature) bool {
		out[f.Meta().Level]++
		return true
	})
	return out
}

// Map rebuilds the world with fn applied to every node payload, parents first.
func (w World) Map(fn func(Info) Info) World {
	return w.rebuild(func(i Info) (Info, bool) { return fn(i), true })
}

// Filter returns the world without nodes for which keep is false. Dropping a
// node drops its subtree.
func (w World) Filter(keep func(Info) bool) World {
	return w.rebuild(func(i Info) (Info, bool) { return i, keep(i) })
}

func (w World) rebuild(fn func(Info) (Info, bool)) World {
	provinces := func(p Province) (Province, bool) { return rebuildNode[Leaf](p, fn, nil) }
	countries := func(c Country) (Country, bool) { return rebuildNode(c, fn, provinces) }
	var out World
	for _, c := range w.Continents {
		if n, ok := rebuildNode(c, fn, countries); ok {
			out.Continents = append(out.Continents, n)
		}
	}
	return out
}

func rebuildNode[C any](n Node[C], fn func(Info) (Info, bool), child func(C) (C, bool)) (Node[C], bool) {
	info, ok := fn(n.Info)
	if !ok {
		return Node[C]{}, false
	}
	out := Node[C]{Info: info}
	if child == nil {
		out.Children = append([]C(nil), n.Children...)
		return out, true
	}
	for _, c := range n.Children {
		if nc, ok := child(c); ok {
			out.Children = append(out.Children, nc)
		}
	}
	return out, true
}

// WithBounds returns a copy of the node payload with new bounds and center.
func (i Info) WithBounds(bounds r2.Rect, center r2.Point) Info {
	i.Bounds = bounds
	i.Center = center
	return i
}
