package world

import (
	"sort"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/r2"

	"github.com/andreiashu/geoworld/geom"
	"github.com/andreiashu/geoworld/region"
)

// Place is a point of interest attached to the smallest region containing it.
type Place struct {
	Name       string
	kind       uint16
	Location   r2.Point // X is longitude, Y is latitude
	Population int64
}

// NewPlace creates a place. kind is interned.
func NewPlace(name, kind string, lon, lat float64, population int64) Place {
	return Place{
		Name:       name,
		kind:       kindInterner().intern(kind),
		Location:   r2.Point{X: lon, Y: lat},
		Population: population,
	}
}

// Kind returns the place category.
func (p Place) Kind() string { return kindInterner().get(p.kind) }

// Key is the geohash of the location. Two places with the same name and key
// are the same place.
func (p Place) Key() string { return geohash.Encode(p.Location.Y, p.Location.X) }

// DedupPlaces drops repeated (name, geohash) pairs, keeping the first, and
// orders the rest by population, largest first.
func DedupPlaces(places []Place) []Place {
	seen := make(map[string]bool, len(places))
	out := make([]Place, 0, len(places))
	for _, p := range places {
		k := region.Normalize(p.Name) + "@" + p.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Population > out[j].Population })
	return out
}

// AssignPlaces attaches every place to the deepest region whose shape contains
// it. shapes holds the most detailed polygons per region; bounds are checked
// first so the point-in-polygon test runs on few candidates. Places no region
// contains are returned separately.
func AssignPlaces(w World, places []Place, shapes map[region.Hash][]geom.Polygon) (World, []Place) {
	owner := make(map[region.Hash][]Place)
	var orphans []Place
	for _, p := range DedupPlaces(places) {
		var best region.Hash
		found := false
		w.Walk(func(f Feature) bool {
			m := f.Meta()
			if !m.Bounds.ContainsPoint(p.Location) || !containsPoint(shapes[m.ID.Hash], p.Location) {
				return false
			}
			best, found = m.ID.Hash, true
			return true
		})
		if !found {
			orphans = append(orphans, p)
			continue
		}
		owner[best] = append(owner[best], p)
	}
	out := w.Map(func(i Info) Info {
		i.Places = append(append([]Place(nil), i.Places...), owner[i.ID.Hash]...)
		return i
	})
	return out, orphans
}

func containsPoint(polys []geom.Polygon, pt r2.Point) bool {
	for _, poly := range polys {
		if poly.Contains(pt) {
			return true
		}
	}
	return false
}
