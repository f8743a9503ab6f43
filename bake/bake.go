// Package bake turns grouped region geometry into a world file.
//
// A run validates its input, builds the continent/country/province skeleton
// from the most detailed LOD, tints it, then for every LOD (coarsest first)
// dissolves provinces into countries and countries into continents,
// triangulates each region and appends the result to the chunk table. Bounds
// and label anchors come from the most detailed tessellation available. Places
// are attached, the spatial index built, and the file written atomically.
//
// Per-feature problems are reported and the feature dropped. Only structural
// problems abort a run.
package bake

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golang/geo/r2"

	"github.com/andreiashu/geoworld/chunk"
	"github.com/andreiashu/geoworld/geom"
	"github.com/andreiashu/geoworld/internal/logger"
	"github.com/andreiashu/geoworld/internal/metrics"
	"github.com/andreiashu/geoworld/internal/parallel"
	"github.com/andreiashu/geoworld/quadtree"
	"github.com/andreiashu/geoworld/region"
	"github.com/andreiashu/geoworld/tess"
	"github.com/andreiashu/geoworld/world"
)

// ErrNoPath is returned when no output path is given.
var ErrNoPath = errors.New("bake: no output path")

// errEmptyTessellation marks a triangulation that produced no triangles.
var errEmptyTessellation = errors.New("triangulation produced no triangles")

// Triangulator turns closed contours into x,y interleaved vertices and three
// indices per triangle.
type Triangulator interface {
	Triangulate(contours []geom.Ring, rule tess.WindingRule) ([]float32, []uint32, error)
}

// Config controls a bake run.
type Config struct {
	Triangulator Triangulator
	Reporter     Reporter
	MaxDepth     int // spatial index depth
	Workers      int // tessellation goroutines, 0 for GOMAXPROCS
}

// Option is a functional option for configuring a bake run.
type Option func(*Config)

// WithTriangulator replaces the default ear clipper.
func WithTriangulator(t Triangulator) Option {
	return func(c *Config) {
		c.Triangulator = t
	}
}

// WithReporter sets the progress and error sink.
func WithReporter(r Reporter) Option {
	return func(c *Config) {
		c.Reporter = r
	}
}

// WithMaxDepth sets the spatial index depth.
func WithMaxDepth(depth int) Option {
	return func(c *Config) {
		c.MaxDepth = depth
	}
}

// WithWorkers sets the number of tessellation goroutines.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func defaultConfig() *Config {
	return &Config{
		Triangulator: tess.EarClipper{},
		Reporter:     NopReporter{},
		MaxDepth:     quadtree.DefaultMaxDepth,
	}
}

// Result summarizes a successful run.
type Result struct {
	Header   chunk.Header
	World    world.World
	Chunks   int
	LodCount int
	Dropped  []string      // regions removed for lack of geometry
	Orphans  []world.Place // places no region contains
	DeadEnds int           // open contour walks across all dissolves
}

// node is one region flattened for per-LOD work.
type node struct {
	info     world.Info
	parent   region.Hash
	children []region.Hash
}

type baker struct {
	cfg   *Config
	in    Input
	idx   *countryIndex
	pool  *parallel.WorkerPool
	order []region.Hash // continents, then countries, then provinces, each by key
	nodes map[region.Hash]*node

	finest map[region.Hash]*world.GeoTessellation
	shapes map[region.Hash][]geom.Polygon
	absent map[region.Hash]bool // reported as missing from LOD 0
	res    *Result
}

// Run bakes in into path.
func Run(ctx context.Context, in Input, path string, opts ...Option) (*Result, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	start := time.Now()
	rep := cfg.Reporter

	if path == "" {
		return nil, ErrNoPath
	}
	idx, err := validate(in)
	if err != nil {
		return nil, err
	}
	rep.Report(0.05, "validated input", false)

	b := &baker{
		cfg:    cfg,
		in:     in,
		idx:    idx,
		pool:   parallel.NewWorkerPool(cfg.Workers, 0),
		nodes:  make(map[region.Hash]*node),
		finest: make(map[region.Hash]*world.GeoTessellation),
		shapes: make(map[region.Hash][]geom.Polygon),
		absent: make(map[region.Hash]bool),
		res:    &Result{LodCount: len(in.LODs)},
	}
	defer b.pool.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := world.Tint(b.skeleton())
	b.index(w)
	rep.Report(0.1, fmt.Sprintf("built hierarchy of %d regions", len(b.order)), false)

	table := chunk.NewTable(len(in.LODs))
	for lod := len(in.LODs) - 1; lod >= 0; lod-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.bakeLOD(table, lod); err != nil {
			return nil, err
		}
		done := float64(len(in.LODs)-lod) / float64(len(in.LODs))
		rep.Report(0.1+0.7*done, fmt.Sprintf("tessellated LOD %d", lod), false)
	}
	b.res.Chunks = table.Len()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w = b.applyBounds(w)
	rep.Report(0.85, "derived region bounds", false)

	w, b.res.Orphans = world.AssignPlaces(w, in.Places, b.shapes)
	if len(b.res.Orphans) > 0 {
		logger.L().Debug("bake_orphan_places", "count", len(b.res.Orphans))
	}
	rep.Report(0.9, "assigned places", false)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tree, err := world.BuildIndex(w, cfg.MaxDepth).Encode()
	if err != nil {
		return nil, err
	}
	rep.Report(0.95, "built spatial index", false)

	wb, err := world.Encode(w)
	if err != nil {
		return nil, err
	}
	tb, err := table.Directory.Encode()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := chunk.WriteWorld(path, tree, wb, tb, table.Data())
	if err != nil {
		return nil, fmt.Errorf("writing world file: %w", err)
	}

	b.res.Header = h
	b.res.World = w
	metrics.BakeDurationSeconds.Observe(time.Since(start).Seconds())
	logger.L().Info("bake_complete",
		"path", path,
		"bytes", h.FileSize(),
		"chunks", b.res.Chunks,
		"lods", b.res.LodCount,
		"dropped", len(b.res.Dropped),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	rep.Report(1, "wrote "+path, true)
	return b.res, nil
}

// ids resolves a feature to its country and, if set, province IDs.
func (b *baker) ids(f Feature) (continent, country, province region.ID) {
	rec, _ := b.idx.lookup(f.Country)
	continent = region.MakeID("", region.LevelContinent, rec.Continent)
	country = region.MakeID(continent.Key, region.LevelCountry, rec.Name)
	if f.Province != "" {
		province = region.MakeID(country.Key, region.LevelProvince, f.Province)
	}
	return continent, country, province
}

// skeleton builds the hierarchy from the regions present in LOD 0.
func (b *baker) skeleton() world.World {
	type provinceSet map[string]world.Province
	type countrySet struct {
		country   world.Country
		provinces provinceSet
	}
	continents := map[string]world.Continent{}
	countries := map[string]map[string]*countrySet{}

	for _, f := range b.in.LODs[0] {
		rec, _ := b.idx.lookup(f.Country)
		cont, co, prov := b.ids(f)
		if _, ok := continents[cont.Key]; !ok {
			continents[cont.Key] = world.Continent{Info: world.Info{Name: rec.Continent, ID: cont, Level: world.LevelContinent}}
			countries[cont.Key] = map[string]*countrySet{}
		}
		cs, ok := countries[cont.Key][co.Key]
		if !ok {
			cs = &countrySet{
				country:   world.Country{Info: world.Info{Name: rec.Name, ID: co, Level: world.LevelCountry}},
				provinces: provinceSet{},
			}
			countries[cont.Key][co.Key] = cs
		}
		if !prov.IsZero() {
			cs.provinces[prov.Key] = world.Province{Info: world.Info{Name: f.Province, ID: prov, Level: world.LevelProvince}}
		}
	}

	var w world.World
	for _, ck := range sortedKeys(continents) {
		cont := continents[ck]
		for _, cok := range sortedKeys(countries[ck]) {
			cs := countries[ck][cok]
			for _, pk := range sortedKeys(cs.provinces) {
				cs.country.Children = append(cs.country.Children, cs.provinces[pk])
			}
			cont.Children = append(cont.Children, cs.country)
		}
		w.Continents = append(w.Continents, cont)
	}
	return w
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// index flattens w into b.nodes and b.order.
func (b *baker) index(w world.World) {
	var levels [3][]region.Hash
	var visit func(f world.Feature, parent region.Hash)
	visit = func(f world.Feature, parent region.Hash) {
		m := f.Meta()
		n := &node{info: m, parent: parent}
		b.nodes[m.ID.Hash] = n
		levels[m.Level] = append(levels[m.Level], m.ID.Hash)
		if p, ok := b.nodes[parent]; ok && parent != 0 {
			p.children = append(p.children, m.ID.Hash)
		}
		for _, c := range f.Subfeatures() {
			visit(c, m.ID.Hash)
		}
	}
	for _, c := range w.Continents {
		visit(c, 0)
	}
	for _, l := range levels {
		b.order = append(b.order, l...)
	}
}

// gather collects the polygons of every region at lod, dissolving children
// into parents where the parent has no geometry of its own.
func (b *baker) gather(lod int) map[region.Hash][]geom.Polygon {
	polys := make(map[region.Hash][]geom.Polygon)
	for _, f := range b.in.LODs[lod] {
		_, co, prov := b.ids(f)
		target := co.Hash
		if !prov.IsZero() {
			target = prov.Hash
		}
		if _, ok := b.nodes[target]; !ok {
			if !b.absent[target] {
				b.absent[target] = true
				b.drop(f.Name(), fmt.Sprintf("not present at LOD 0, skipped from LOD %d down", lod), "not_in_base_lod")
			}
			continue
		}
		polys[target] = append(polys[target], f.Polygons...)
	}

	// Countries first, then continents, so continents see dissolved countries.
	for _, level := range []world.Level{world.LevelCountry, world.LevelContinent} {
		for _, h := range b.order {
			n := b.nodes[h]
			if n.info.Level != level || len(polys[h]) > 0 {
				continue
			}
			var parts []geom.Polygon
			for _, c := range n.children {
				parts = append(parts, polys[c]...)
			}
			if len(parts) == 0 {
				continue
			}
			merged, diag := geom.Dissolve(parts)
			if !diag.Clean() {
				b.res.DeadEnds += diag.DeadEnds
				metrics.ContourDeadEndsTotal.Add(float64(diag.DeadEnds))
				logger.L().Warn("contour_dead_end",
					"region", n.info.ID.Key,
					"lod", lod,
					"dead_ends", diag.DeadEnds,
					"degenerate", diag.Degenerate,
				)
				b.cfg.Reporter.ReportError(n.info.Name, fmt.Sprintf(
					"LOD %d: dissolve left %d open contour walks and %d degenerate rings; outline may be incomplete",
					lod, diag.DeadEnds, diag.Degenerate))
			}
			polys[h] = merged
		}
	}
	return polys
}

// bakeLOD tessellates every region with geometry at lod and appends the
// chunks in b.order.
func (b *baker) bakeLOD(table *chunk.Table, lod int) error {
	polys := b.gather(lod)

	results := make([]*world.GeoTessellation, len(b.order))
	errs := make([]error, len(b.order))
	var work []func()
	for i, h := range b.order {
		if len(polys[h]) == 0 {
			continue
		}
		info := b.nodes[h].info
		work = append(work, func() {
			results[i], errs[i] = b.tessellate(info, polys[h], lod)
		})
	}
	b.pool.ExecuteAll(work)

	for i, h := range b.order {
		info := b.nodes[h].info
		if errs[i] != nil {
			b.drop(info.Name, fmt.Sprintf("LOD %d: %v", lod, errs[i]), "triangulation")
			continue
		}
		t := results[i]
		if t == nil {
			continue
		}
		if err := table.AddChunk(chunk.Key(info.ID.Key, lod), t); err != nil {
			return err
		}
		b.finest[h] = t
		b.shapes[h] = polys[h]
	}
	return nil
}

func (b *baker) tessellate(info world.Info, polys []geom.Polygon, lod int) (*world.GeoTessellation, error) {
	var contours []geom.Ring
	for _, p := range polys {
		contours = append(contours, p.Rings()...)
	}
	vertices, indices, err := b.cfg.Triangulator.Triangulate(contours, tess.WindingEvenOdd)
	if err != nil {
		return nil, err
	}
	if len(indices) == 0 {
		return nil, errEmptyTessellation
	}
	return &world.GeoTessellation{
		Vertices: vertices,
		Indices:  indices,
		Contours: contours,
		Bounds:   geom.BoundsOf(polys),
		Center:   geom.VisualCenter(polys),
		Color:    info.Color,
		LOD:      lod,
	}, nil
}

// applyBounds copies bounds and centers from the finest tessellation of each
// region and drops regions that have none.
func (b *baker) applyBounds(w world.World) world.World {
	w = w.Filter(func(i world.Info) bool {
		if _, ok := b.finest[i.ID.Hash]; ok {
			return true
		}
		b.drop(i.Name, "no tessellation at any LOD", "no_tessellation")
		b.res.Dropped = append(b.res.Dropped, i.ID.Key)
		return false
	})
	return w.Map(func(i world.Info) world.Info {
		t := b.finest[i.ID.Hash]
		return i.WithBounds(t.Bounds, centerOr(t))
	})
}

func centerOr(t *world.GeoTessellation) r2.Point {
	if t.Bounds.ContainsPoint(t.Center) {
		return t.Center
	}
	return t.Bounds.Center()
}

func (b *baker) drop(feature, reason, metric string) {
	metrics.BakeFeaturesDroppedTotal.WithLabelValues(metric).Inc()
	logger.L().Warn("bake_feature_dropped", "feature", feature, "reason", reason)
	b.cfg.Reporter.ReportError(feature, reason)
}
