package bake

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/andreiashu/geoworld/geom"
	"github.com/andreiashu/geoworld/region"
	"github.com/andreiashu/geoworld/world"
)

var (
	// ErrNoLODs is returned for input without any level of detail.
	ErrNoLODs = errors.New("bake: no LODs")
	// ErrUnknownCountry is returned when a feature names a country missing from Countries.
	ErrUnknownCountry = errors.New("bake: unknown country")
	// ErrBadCountry is returned for country records without a name or continent.
	ErrBadCountry = errors.New("bake: incomplete country record")
)

// CountryRecord places a country on a continent.
type CountryRecord struct {
	Continent string
	Name      string
}

// Feature is one region's geometry at one LOD. An empty Province means the
// polygons outline the whole country.
type Feature struct {
	Country  string
	Province string
	Polygons []geom.Polygon
}

// Name is the display name used in error reports.
func (f Feature) Name() string {
	if f.Province == "" {
		return f.Country
	}
	return f.Country + "/" + f.Province
}

// Input is everything a bake run consumes. LODs[0] is the most detailed level.
type Input struct {
	Countries []CountryRecord
	LODs      [][]Feature
	Places    []world.Place
}

// maxSuggestDistance caps how far a suggested country name may be from the
// unknown one.
const maxSuggestDistance = 3

// countryIndex resolves feature country names to their records.
type countryIndex struct {
	byKey map[string]CountryRecord
	keys  []string
}

func newCountryIndex(records []CountryRecord) (*countryIndex, error) {
	idx := &countryIndex{byKey: make(map[string]CountryRecord, len(records))}
	for _, r := range records {
		if r.Name == "" || r.Continent == "" {
			return nil, fmt.Errorf("%w: %+v", ErrBadCountry, r)
		}
		k := region.Normalize(r.Name)
		if _, ok := idx.byKey[k]; !ok {
			idx.keys = append(idx.keys, k)
		}
		idx.byKey[k] = r
	}
	sort.Strings(idx.keys)
	return idx, nil
}

func (idx *countryIndex) lookup(name string) (CountryRecord, bool) {
	r, ok := idx.byKey[region.Normalize(name)]
	return r, ok
}

// suggest returns the closest known country key, or "" when nothing is near.
func (idx *countryIndex) suggest(name string) string {
	n := region.Normalize(name)
	best, bestDist := "", maxSuggestDistance+1
	for _, k := range idx.keys {
		if d := levenshtein.ComputeDistance(n, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

func (idx *countryIndex) unknown(name string) error {
	if s := idx.suggest(name); s != "" {
		return fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownCountry, name, idx.byKey[s].Name)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCountry, name)
}

// validate checks the structural requirements a bake cannot recover from.
func validate(in Input) (*countryIndex, error) {
	if len(in.LODs) == 0 {
		return nil, ErrNoLODs
	}
	idx, err := newCountryIndex(in.Countries)
	if err != nil {
		return nil, err
	}
	for lod, features := range in.LODs {
		for _, f := range features {
			if _, ok := idx.lookup(f.Country); !ok {
				return nil, fmt.Errorf("LOD %d feature %q: %w", lod, f.Name(), idx.unknown(f.Country))
			}
		}
	}
	return idx, nil
}
