package world

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"image/color"

	"github.com/golang/geo/r2"

	"github.com/andreiashu/geoworld/region"
)

// ErrCorrupt is returned by Decode for records that do not form a hierarchy.
var ErrCorrupt = errors.New("world: corrupt hierarchy")

// nodeGob is the flat serialized form of one node. Parent indexes an earlier
// record, -1 for continents. Gob cannot encode the empty Leaf type, and the
// interned place kind is unexported, hence the conversion.
type nodeGob struct {
	Parent int
	Name   string
	Key    string
	Level  Level
	Bounds r2.Rect
	Center r2.Point
	Color  color.RGBA
	Places []placeGob
}

type placeGob struct {
	Name       string
	Kind       string
	Lon, Lat   float64
	Population int64
}

func toGob(parent int, i Info) nodeGob {
	places := make([]placeGob, len(i.Places))
	for j, p := range i.Places {
		places[j] = placeGob{Name: p.Name, Kind: p.Kind(), Lon: p.Location.X, Lat: p.Location.Y, Population: p.Population}
	}
	return nodeGob{
		Parent: parent,
		Name:   i.Name,
		Key:    i.ID.Key,
		Level:  i.Level,
		Bounds: i.Bounds,
		Center: i.Center,
		Color:  i.Color,
		Places: places,
	}
}

func (g nodeGob) info() Info {
	var places []Place
	if len(g.Places) > 0 {
		places = make([]Place, len(g.Places))
		for j, p := range g.Places {
			places[j] = NewPlace(p.Name, p.Kind, p.Lon, p.Lat, p.Population)
		}
	}
	return Info{
		Name:   g.Name,
		ID:     region.FromKey(g.Key),
		Level:  g.Level,
		Bounds: g.Bounds,
		Center: g.Center,
		Color:  g.Color,
		Places: places,
	}
}

// Encode serializes the hierarchy with gob.
func Encode(w World) ([]byte, error) {
	var records []nodeGob
	for _, cont := range w.Continents {
		ci := len(records)
		records = append(records, toGob(-1, cont.Info))
		for _, co := range cont.Children {
			coi := len(records)
			records = append(records, toGob(ci, co.Info))
			for _, p := range co.Children {
				records = append(records, toGob(coi, p.Info))
			}
		}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(records); err != nil {
		return nil, fmt.Errorf("encoding hierarchy: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode restores a hierarchy written by Encode. Region hashes are recomputed
// from the stored keys.
func Decode(b []byte) (World, error) {
	var records []nodeGob
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&records); err != nil {
		return World{}, fmt.Errorf("decoding hierarchy: %w", err)
	}

	type slot struct{ continent, country int }
	slots := make([]slot, len(records))
	var w World
	for i, r := range records {
		if r.Parent >= i {
			return World{}, fmt.Errorf("%w: record %d has forward parent %d", ErrCorrupt, i, r.Parent)
		}
		switch r.Level {
		case LevelContinent:
			if r.Parent != -1 {
				return World{}, fmt.Errorf("%w: continent %q has a parent", ErrCorrupt, r.Name)
			}
			w.Continents = append(w.Continents, Continent{Info: r.info()})
			slots[i] = slot{continent: len(w.Continents) - 1}
		case LevelCountry:
			if r.Parent < 0 || records[r.Parent].Level != LevelContinent {
				return World{}, fmt.Errorf("%w: country %q has no continent", ErrCorrupt, r.Name)
			}
			ci := slots[r.Parent].continent
			cont := &w.Continents[ci]
			cont.Children = append(cont.Children, Country{Info: r.info()})
			slots[i] = slot{continent: ci, country: len(cont.Children) - 1}
		case LevelProvince:
			if r.Parent < 0 || records[r.Parent].Level != LevelCountry {
				return World{}, fmt.Errorf("%w: province %q has no country", ErrCorrupt, r.Name)
			}
			s := slots[r.Parent]
			co := &w.Continents[s.continent].Children[s.country]
			co.Children = append(co.Children, Province{Info: r.info()})
		default:
			return World{}, fmt.Errorf("%w: unknown level %d", ErrCorrupt, r.Level)
		}
	}
	return w, nil
}
