package bake

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andreiashu/geoworld/chunk"
	"github.com/andreiashu/geoworld/geom"
	"github.com/andreiashu/geoworld/tess"
	"github.com/andreiashu/geoworld/world"
)

func poly(xy ...float64) geom.Polygon {
	vs := make([]geom.Vertex, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		vs = append(vs, geom.V(xy[i], xy[i+1]))
	}
	return geom.NewPolygon(geom.NewRing(vs))
}

// testInput is Europe with France split into two provinces and Germany as a
// single country outline. LOD 1 carries country outlines only.
func testInput() Input {
	return Input{
		Countries: []CountryRecord{
			{Continent: "Europe", Name: "France"},
			{Continent: "Europe", Name: "Germany"},
			{Continent: "Asia", Name: "Japan"},
		},
		LODs: [][]Feature{
			{
				{Country: "France", Province: "North", Polygons: []geom.Polygon{poly(0, 5, 10, 5, 10, 10, 0, 10)}},
				{Country: "France", Province: "South", Polygons: []geom.Polygon{poly(0, 0, 10, 0, 10, 5, 0, 5)}},
				{Country: "Germany", Polygons: []geom.Polygon{poly(10, 0, 20, 0, 20, 10, 10, 10, 10, 5)}},
			},
			{
				{Country: "France", Polygons: []geom.Polygon{poly(0, 0, 10, 0, 10, 10, 0, 10)}},
				{Country: "Germany", Polygons: []geom.Polygon{poly(10, 0, 20, 0, 20, 10, 10, 10)}},
			},
		},
		Places: []world.Place{
			world.NewPlace("Lille", "city", 5, 8, 230000),
			world.NewPlace("Nowhere", "city", 50, 50, 0),
		},
	}
}

func readDirectory(t *testing.T, path string) *chunk.Directory {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	h, err := chunk.ParseHeader(b)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	tb, _ := h.Table.Slice(b)
	d, err := chunk.DecodeDirectory(tb, h.Data.Size)
	if err != nil {
		t.Fatalf("DecodeDirectory() error = %v", err)
	}
	return d
}

func TestRunWritesChunksInStableOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.bin")
	rec := &Recorder{}
	res, err := Run(context.Background(), testInput(), path, WithReporter(rec), WithWorkers(2))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		"continent-europe-1",
		"continent-europe-country-france-1",
		"continent-europe-country-germany-1",
		"continent-europe-0",
		"continent-europe-country-france-0",
		"continent-europe-country-germany-0",
		"continent-europe-country-france-province-north-0",
		"continent-europe-country-france-province-south-0",
	}
	d := readDirectory(t, path)
	if d.LodCount != 2 {
		t.Errorf("LodCount = %d, want 2", d.LodCount)
	}
	if d.Len() != len(want) {
		var got []string
		for _, e := range d.Entries {
			got = append(got, e.Key)
		}
		t.Fatalf("chunks = %v, want %v", got, want)
	}
	for i, e := range d.Entries {
		if e.Key != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, e.Key, want[i])
		}
	}
	if res.Chunks != len(want) || res.DeadEnds != 0 {
		t.Errorf("Result = %+v", res)
	}
	if len(rec.Errors) != 0 {
		t.Errorf("unexpected feature errors: %v", rec.Errors)
	}
	if !rec.Done || rec.Fractions[len(rec.Fractions)-1] != 1 {
		t.Errorf("final report = %v, done=%v", rec.Fractions, rec.Done)
	}
	for i := 1; i < len(rec.Fractions); i++ {
		if rec.Fractions[i] < rec.Fractions[i-1] {
			t.Errorf("progress went backwards: %v", rec.Fractions)
		}
	}
}

func TestRunHierarchyBoundsAndPlaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.bin")
	res, err := Run(context.Background(), testInput(), path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	w := res.World
	if len(w.Continents) != 1 {
		t.Fatalf("continents = %d, want 1 (Japan has no geometry)", len(w.Continents))
	}
	eu := w.Continents[0]
	if eu.Bounds.X.Lo != 0 || eu.Bounds.X.Hi != 20 || eu.Bounds.Y.Hi != 10 {
		t.Errorf("Europe bounds = %v", eu.Bounds)
	}
	fr := eu.Children[0]
	if fr.Name != "France" || len(fr.Children) != 2 {
		t.Fatalf("France = %q with %d provinces", fr.Name, len(fr.Children))
	}
	north := fr.Children[0]
	if north.Bounds.Y.Lo != 5 || !north.Bounds.ContainsPoint(north.Center) {
		t.Errorf("north bounds %v center %v", north.Bounds, north.Center)
	}
	if len(north.Places) != 1 || north.Places[0].Name != "Lille" {
		t.Errorf("north places = %v", north.Places)
	}
	if len(res.Orphans) != 1 {
		t.Errorf("orphans = %v", res.Orphans)
	}
	if fr.Color.A == 0 || north.Color.A == 0 {
		t.Error("regions were not tinted")
	}
}

func TestRunIsReproducible(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.bin"), filepath.Join(dir, "b.bin")
	if _, err := Run(context.Background(), testInput(), a, WithWorkers(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := Run(context.Background(), testInput(), b, WithWorkers(4)); err != nil {
		t.Fatal(err)
	}
	ab, _ := os.ReadFile(a)
	bb, _ := os.ReadFile(b)
	if !bytes.Equal(ab, bb) {
		t.Error("two bakes of the same input differ")
	}
}

// failingTriangulator rejects any contour set starting at (10, 0).
type failingTriangulator struct{ tess.EarClipper }

func (f failingTriangulator) Triangulate(contours []geom.Ring, rule tess.WindingRule) ([]float32, []uint32, error) {
	if len(contours) > 0 && contours[0].Vertices[0].Equal(geom.V(10, 0)) {
		return nil, nil, errors.New("self-intersection")
	}
	return f.EarClipper.Triangulate(contours, rule)
}

func TestRunDropsFeaturesThatFailToTriangulate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.bin")
	rec := &Recorder{}
	res, err := Run(context.Background(), testInput(), path,
		WithReporter(rec), WithTriangulator(failingTriangulator{}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := res.World.Count()[world.LevelCountry]; got != 1 {
		t.Errorf("countries = %d, want 1", got)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "continent-europe-country-germany" {
		t.Errorf("Dropped = %v", res.Dropped)
	}
	germany := 0
	for _, e := range rec.Errors {
		if e.Feature == "Germany" {
			germany++
		}
	}
	// One per LOD plus the final drop.
	if germany != 3 {
		t.Errorf("Germany reported %d times: %v", germany, rec.Errors)
	}
}

func TestRunReportsDeadEnds(t *testing.T) {
	in := testInput()
	// A province with a dangling spike leaves an open walk when France is dissolved.
	in.LODs[0][0].Polygons = append(in.LODs[0][0].Polygons,
		geom.Polygon{Exterior: geom.Ring{Vertices: []geom.Vertex{geom.V(3, 7), geom.V(4, 7), geom.V(5, 8)}}},
		geom.Polygon{Exterior: geom.Ring{Vertices: []geom.Vertex{geom.V(5, 8), geom.V(3, 7)}}},
	)
	rec := &Recorder{}
	res, err := Run(context.Background(), in, filepath.Join(t.TempDir(), "w.bin"), WithReporter(rec))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.DeadEnds == 0 {
		t.Fatal("expected dead ends to be counted")
	}
	found := false
	for _, e := range rec.Errors {
		if strings.Contains(e.Reason, "open contour walks") {
			found = true
		}
	}
	if !found {
		t.Errorf("dead end not reported: %v", rec.Errors)
	}
}

func TestRunReportsMissingBaseRegionOnce(t *testing.T) {
	in := testInput()
	japan := Feature{Country: "Japan", Polygons: []geom.Polygon{poly(30, 0, 40, 0, 40, 10, 30, 10)}}
	coarse := append([]Feature{japan}, in.LODs[1]...)
	in.LODs = [][]Feature{in.LODs[0], coarse, coarse}

	rec := &Recorder{}
	res, err := Run(context.Background(), in, filepath.Join(t.TempDir(), "w.bin"), WithReporter(rec))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	var reports []string
	for _, e := range rec.Errors {
		if e.Feature == "Japan" {
			reports = append(reports, e.Reason)
		}
	}
	if len(reports) != 1 || !strings.Contains(reports[0], "not present at LOD 0") {
		t.Errorf("Japan reports = %v, want one", reports)
	}
	if res.LodCount != 3 {
		t.Errorf("LodCount = %d, want 3", res.LodCount)
	}
}

func TestRunUnrecoverable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	misspelt := testInput()
	misspelt.LODs[0][2].Country = "Germny"

	noContinent := testInput()
	noContinent.Countries[0].Continent = ""

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		in      Input
		path    string
		wantErr error
		wantMsg string
	}{
		{"no path", ctx, testInput(), "", ErrNoPath, ""},
		{"no LODs", ctx, Input{Countries: testInput().Countries}, filepath.Join(dir, "a"), ErrNoLODs, ""},
		{"unknown country", ctx, misspelt, filepath.Join(dir, "b"), ErrUnknownCountry, `did you mean "Germany"`},
		{"incomplete record", ctx, noContinent, filepath.Join(dir, "c"), ErrBadCountry, ""},
		{"cancelled", cancelled, testInput(), filepath.Join(dir, "d"), context.Canceled, ""},
		{"unwritable", ctx, testInput(), filepath.Join(dir, "a-file", "x"), nil, "writing world file"},
	}
	if err := os.WriteFile(filepath.Join(dir, "a-file"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.ctx, tt.in, tt.path)
			if err == nil {
				t.Fatal("Run() should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Run() error = %q, want it to mention %q", err, tt.wantMsg)
			}
			if tt.path != "" {
				if _, statErr := os.Stat(tt.path); statErr == nil {
					t.Errorf("failed run left %s behind", tt.path)
				}
			}
		})
	}
}

func TestCountrySuggest(t *testing.T) {
	idx, err := newCountryIndex(testInput().Countries)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		want string
	}{
		{"Frnace", "france"},
		{"japan", "japan"},
		{"Atlantis", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := idx.suggest(tt.name); got != tt.want {
				t.Errorf("suggest(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
	if _, ok := idx.lookup("FRANCE"); !ok {
		t.Error("lookup should be case-insensitive")
	}
}
