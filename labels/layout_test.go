package labels

import (
	"testing"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"

	"github.com/andreiashu/geoworld/region"
	"github.com/andreiashu/geoworld/world"
)

func box(x0, y0, x1, y1 float64) r2.Rect {
	return r2.Rect{X: r1.Interval{Lo: x0, Hi: x1}, Y: r1.Interval{Lo: y0, Hi: y1}}
}

var screen = box(0, 0, 800, 600)

func texts(ls []Label) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Text)
	}
	return out
}

func TestLayout(t *testing.T) {
	tests := []struct {
		name  string
		cands []Label
		want  []string
	}{
		{
			name: "higher priority wins overlap",
			cands: []Label{
				{Text: "Lyon", Box: box(100, 100, 160, 120), Priority: 1},
				{Text: "France", Box: box(120, 110, 200, 130), Priority: 10},
			},
			want: []string{"France"},
		},
		{
			name: "touching boxes both fit",
			cands: []Label{
				{Text: "a", Box: box(0, 0, 10, 10), Priority: 2},
				{Text: "b", Box: box(10, 0, 20, 10), Priority: 1},
			},
			want: []string{"a", "b"},
		},
		{
			name: "off screen and partially off screen skipped",
			cands: []Label{
				{Text: "far", Box: box(900, 10, 950, 20), Priority: 5},
				{Text: "edge", Box: box(790, 10, 820, 20), Priority: 4},
				{Text: "in", Box: box(700, 10, 750, 20), Priority: 3},
			},
			want: []string{"in"},
		},
		{
			name: "skipped label does not block",
			cands: []Label{
				{Text: "edge", Box: box(-20, 0, 30, 10), Priority: 9},
				{Text: "inside", Box: box(0, 0, 30, 10), Priority: 1},
			},
			want: []string{"inside"},
		},
		{
			name: "equal priority keeps input order",
			cands: []Label{
				{Text: "first", Box: box(0, 0, 50, 10)},
				{Text: "second", Box: box(20, 5, 70, 15)},
				{Text: "third", Box: box(400, 300, 450, 310)},
			},
			want: []string{"first", "third"},
		},
		{
			name: "straddling the center collides with small boxes",
			cands: []Label{
				{Text: "wide", Box: box(300, 290, 500, 310), Priority: 3},
				{Text: "small", Box: box(390, 295, 395, 305), Priority: 1},
				{Text: "corner", Box: box(5, 5, 15, 15), Priority: 1},
			},
			want: []string{"wide", "corner"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := texts(Layout(tt.cands, screen))
			if len(got) != len(tt.want) {
				t.Fatalf("Layout() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Layout() = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestLayoutNeverOverlaps(t *testing.T) {
	var cands []Label
	for i := 0; i < 40; i++ {
		for j := 0; j < 30; j++ {
			x, y := float64(i*19), float64(j*19)
			cands = append(cands, Label{Box: box(x, y, x+35, y+12), Priority: float64((i*7 + j*3) % 11)})
		}
	}
	got := Layout(cands, screen)
	if len(got) == 0 {
		t.Fatal("nothing placed")
	}
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			if got[i].Box.InteriorIntersects(got[j].Box) {
				t.Fatalf("%v overlaps %v", got[i].Box, got[j].Box)
			}
		}
	}
}

func TestCandidates(t *testing.T) {
	province := func(name string, b r2.Rect) world.Province {
		return world.Province{Info: world.Info{
			Name:   name,
			ID:     region.MakeID("continent-europe-country-france", region.LevelProvince, name),
			Level:  world.LevelProvince,
			Bounds: b,
			Center: b.Center(),
		}}
	}
	w := world.World{Continents: []world.Continent{{
		Info: world.Info{Name: "Europe", Level: world.LevelContinent, Bounds: box(0, 0, 20, 10)},
		Children: []world.Country{{
			Info: world.Info{Name: "France", Level: world.LevelCountry, Bounds: box(0, 0, 10, 10)},
			Children: []world.Province{
				province("North", box(0, 5, 10, 10)),
				province("Tiny", box(0, 0, 1, 1)),
				province("Empty", r2.EmptyRect()),
			},
		}},
	}}}

	project := func(p r2.Point) r2.Point { return r2.Point{X: p.X * 10, Y: p.Y * 10} }
	size := func(text string) r2.Point { return r2.Point{X: float64(len(text)) * 4, Y: 8} }
	got := Candidates(w, world.LevelProvince, project, size)
	if len(got) != 2 {
		t.Fatalf("Candidates() = %v, want North and Tiny", texts(got))
	}
	north := got[0]
	if north.Text != "North" || north.Box.Center() != (r2.Point{X: 50, Y: 75}) || north.Box.Size().X != 20 {
		t.Errorf("north label = %+v", north)
	}
	if got[1].Priority >= north.Priority {
		t.Errorf("Tiny priority %v should be below North %v", got[1].Priority, north.Priority)
	}
	if north.Region != region.MakeID("continent-europe-country-france", region.LevelProvince, "North").Hash {
		t.Error("label region hash mismatch")
	}
}
