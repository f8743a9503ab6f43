package geoworld

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andreiashu/geoworld/bake"
	"github.com/andreiashu/geoworld/geom"
)

// ErrNoFeatures is returned for GeoJSON input without usable polygons.
var ErrNoFeatures = errors.New("geoworld: no polygon features")

// Property names read from GeoJSON features, first present wins. The sets
// cover Natural Earth and GADM exports.
var (
	countryProps  = []string{"country", "admin", "ADMIN", "NAME_0", "name_0", "geonunit"}
	isoProps      = []string{"iso_a2", "ISO_A2", "iso_3166_1", "country_code"}
	provinceProps = []string{"province", "NAME_1", "name_1"}
	admin1Props   = []string{"admin1", "admin1_code", "gn_a1_code"}
)

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type geoJSONFeature struct {
	Type       string           `json:"type"`
	Properties map[string]any   `json:"properties"`
	Geometry   *geoJSONGeometry `json:"geometry"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// resolver names features using country info and admin divisions.
type resolver struct {
	byISO map[string]string
	admin AdminDivisions
}

func newResolver(countries []CountryInfo, admin AdminDivisions) *resolver {
	r := &resolver{byISO: make(map[string]string, 2*len(countries)), admin: admin}
	for _, ci := range countries {
		r.byISO[strings.ToUpper(ci.ISO)] = ci.Name
		if ci.ISO3 != "" {
			r.byISO[strings.ToUpper(ci.ISO3)] = ci.Name
		}
	}
	return r
}

func stringProp(props map[string]any, names []string) string {
	for _, n := range names {
		if s, ok := props[n].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// names returns the country and province a feature belongs to. The ISO code
// wins over the country name so names agree with country info.
func (r *resolver) names(props map[string]any) (country, province string) {
	iso := strings.ToUpper(stringProp(props, isoProps))
	if name, ok := r.byISO[iso]; ok {
		country = name
	} else {
		country = stringProp(props, countryProps)
	}
	province = stringProp(props, provinceProps)
	if province == "" {
		if code := stringProp(props, admin1Props); code != "" {
			if div, ok := r.admin.Lookup(iso, code); ok {
				province = div.Name
			}
		}
	}
	return country, province
}

func (r *resolver) loadFeatures(path string) ([]bake.Feature, error) {
	rd, closeFn, err := openOptionallyBzippedFile(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return r.readFeatures(rd)
}

// ReadFeatures parses a GeoJSON FeatureCollection into baker features.
// Polygon and MultiPolygon geometries are kept; features sharing a country
// and province are merged.
func ReadFeatures(rd io.Reader, countries []CountryInfo, admin AdminDivisions) ([]bake.Feature, error) {
	return newResolver(countries, admin).readFeatures(rd)
}

func (r *resolver) readFeatures(rd io.Reader) ([]bake.Feature, error) {
	var fc geoJSONCollection
	if err := json.NewDecoder(rd).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding GeoJSON: %w", err)
	}
	if fc.Type == "Feature" {
		return nil, fmt.Errorf("%w: a single Feature, want a FeatureCollection", ErrNoFeatures)
	}

	var out []bake.Feature
	index := make(map[[2]string]int)
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		polys, err := decodePolygons(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		if len(polys) == 0 {
			continue
		}
		country, province := r.names(f.Properties)
		if country == "" {
			return nil, fmt.Errorf("feature %d: no country property", i)
		}
		k := [2]string{country, province}
		if j, ok := index[k]; ok {
			out[j].Polygons = append(out[j].Polygons, polys...)
			continue
		}
		index[k] = len(out)
		out = append(out, bake.Feature{Country: country, Province: province, Polygons: polys})
	}
	if len(out) == 0 {
		return nil, ErrNoFeatures
	}
	return out, nil
}

func decodePolygons(g *geoJSONGeometry) ([]geom.Polygon, error) {
	switch g.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("polygon coordinates: %w", err)
		}
		if p, ok := toPolygon(rings); ok {
			return []geom.Polygon{p}, nil
		}
		return nil, nil
	case "MultiPolygon":
		var parts [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &parts); err != nil {
			return nil, fmt.Errorf("multipolygon coordinates: %w", err)
		}
		var out []geom.Polygon
		for _, rings := range parts {
			if p, ok := toPolygon(rings); ok {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return nil, nil
}

// toPolygon treats the first ring as the exterior and the rest as holes.
// Invalid holes are dropped; an invalid exterior drops the polygon.
func toPolygon(rings [][][]float64) (geom.Polygon, bool) {
	var out []geom.Ring
	for i, coords := range rings {
		vs := make([]geom.Vertex, 0, len(coords))
		for _, c := range coords {
			if len(c) >= 2 {
				vs = append(vs, geom.V(c[0], c[1]))
			}
		}
		ring := geom.NewRing(vs)
		if !ring.Valid() {
			if i == 0 {
				return geom.Polygon{}, false
			}
			continue
		}
		out = append(out, ring)
	}
	if len(out) == 0 {
		return geom.Polygon{}, false
	}
	return geom.NewPolygon(out[0], out[1:]...), true
}
