// Package stream reads baked world files at runtime.
//
// A Streamer maps the file, parses the header and chunk directory up front and
// decodes per-region geometry on worker goroutines as the renderer asks for it.
// Every method except Close is meant to be called from one frame goroutine;
// workers only ever touch the delivered hand-off list.
package stream

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/andreiashu/geoworld/chunk"
	"github.com/andreiashu/geoworld/internal/logger"
	"github.com/andreiashu/geoworld/internal/metrics"
	"github.com/andreiashu/geoworld/internal/parallel"
	"github.com/andreiashu/geoworld/region"
	"github.com/andreiashu/geoworld/world"
)

var (
	// ErrCorrupt is returned by Attach when the header or directory is unreadable.
	ErrCorrupt = errors.New("stream: corrupt world file")
	// ErrClosed is returned by World and SpatialIndex after Close.
	ErrClosed = errors.New("stream: streamer closed")
)

type cacheKey struct {
	hash region.Hash
	lod  int
}

type delivery struct {
	key     cacheKey
	tess    *world.GeoTessellation
	err     error
	elapsed time.Duration
}

// Stats counts streamer activity since Attach.
type Stats struct {
	Scheduled int // decodes handed to workers
	Decoded   int // decodes published to the cache
	Failed    int
	Discarded int // decodes dropped because the region was evicted
	Hits      int
	Misses    int

	Pending       int // requested, not yet drained
	Queued        int // pending but waiting for a free worker slot
	Tessellations int
	Primitives    int
}

// Streamer serves tessellations and primitives out of a baked world file.
type Streamer struct {
	path    string
	file    []byte
	unmap   func() error
	header  chunk.Header
	dir     *chunk.Directory
	data    []byte
	ids     map[region.Hash]region.ID
	ranges  map[cacheKey]chunk.Range
	builder PrimitiveBuilder
	pool    *parallel.WorkerPool
	steps   []float64

	// Frame goroutine only.
	tessellations map[cacheKey]*world.GeoTessellation
	primitives    map[cacheKey]Primitive
	pending       map[cacheKey]bool
	failed        map[cacheKey]bool
	evicted       map[region.Hash]bool
	queue         []cacheKey
	actualLOD     int
	wantedLOD     int
	wantedMissed  bool
	stats         Stats
	closed        bool

	mu        sync.Mutex
	delivered []delivery

	worldOnce sync.Once
	world     world.World
	index     *world.Index
	worldErr  error
}

// Attach maps the world file at path and parses its header and chunk
// directory. A nil builder means MeshBuilder. Both LODs start at the coarsest
// level.
func Attach(path string, builder PrimitiveBuilder, opts ...Option) (*Streamer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if builder == nil {
		builder = MeshBuilder{}
	}

	file, unmap, err := openMapped(path)
	if err != nil {
		return nil, fmt.Errorf("attaching %s: %w", path, err)
	}
	s := &Streamer{
		path:          path,
		file:          file,
		unmap:         unmap,
		builder:       builder,
		steps:         cfg.ZoomSteps,
		tessellations: make(map[cacheKey]*world.GeoTessellation),
		primitives:    make(map[cacheKey]Primitive),
		pending:       make(map[cacheKey]bool),
		failed:        make(map[cacheKey]bool),
		evicted:       make(map[region.Hash]bool),
	}
	if err := s.parse(); err != nil {
		_ = unmap()
		return nil, fmt.Errorf("attaching %s: %w", path, err)
	}
	s.actualLOD = s.coarsest()
	s.wantedLOD = s.actualLOD
	s.pool = parallel.NewWorkerPool(cfg.Workers, cfg.QueueSize)

	logger.L().Info("world_attached",
		"path", path,
		"chunks", s.dir.Len(),
		"regions", len(s.ids),
		"lods", s.dir.LodCount,
		"workers", s.pool.Workers(),
	)
	return s, nil
}

func openMapped(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	return mapFile(f, int(info.Size()))
}

func (s *Streamer) parse() error {
	h, err := chunk.ParseHeader(s.file)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	table, _ := h.Table.Slice(s.file)
	dir, err := chunk.DecodeDirectory(table, h.Data.Size)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if dir.LodCount <= 0 {
		return fmt.Errorf("%w: lod count %d", ErrCorrupt, dir.LodCount)
	}
	s.header = h
	s.dir = dir
	s.data, _ = h.Data.Slice(s.file)

	s.ids = make(map[region.Hash]region.ID)
	s.ranges = make(map[cacheKey]chunk.Range, dir.Len())
	for _, e := range dir.Entries {
		key, lod, err := chunk.ParseKey(e.Key)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if lod >= dir.LodCount {
			return fmt.Errorf("%w: chunk %q beyond lod count %d", ErrCorrupt, e.Key, dir.LodCount)
		}
		id := region.FromKey(key)
		s.ids[id.Hash] = id
		s.ranges[cacheKey{id.Hash, lod}] = e.Range
	}
	return nil
}

func (s *Streamer) coarsest() int { return s.dir.LodCount - 1 }

// Path returns the attached file path.
func (s *Streamer) Path() string { return s.path }

// LodCount returns the number of LODs in the file.
func (s *Streamer) LodCount() int { return s.dir.LodCount }

// ActualLOD returns the LOD currently rendered.
func (s *Streamer) ActualLOD() int { return s.actualLOD }

// WantedLOD returns the LOD the current zoom asks for.
func (s *Streamer) WantedLOD() int { return s.wantedLOD }

// Stats returns a snapshot of the counters.
func (s *Streamer) Stats() Stats {
	st := s.stats
	st.Pending = len(s.pending)
	st.Queued = len(s.queue)
	st.Tessellations = len(s.tessellations)
	st.Primitives = len(s.primitives)
	return st
}

// Regions returns every region with at least one chunk, ordered by key.
func (s *Streamer) Regions() []region.ID {
	out := make([]region.ID, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// HasChunk reports whether the file holds geometry for hash at lod.
func (s *Streamer) HasChunk(hash region.Hash, lod int) bool {
	_, ok := s.ranges[cacheKey{hash, lod}]
	return ok
}

// Tessellation returns the decoded chunk for hash at lod, or nil when it is not
// cached yet. With stream set a missing chunk is queued for decoding; repeated
// calls before it arrives share one decode.
func (s *Streamer) Tessellation(hash region.Hash, lod int, stream bool) *world.GeoTessellation {
	k := cacheKey{hash, lod}
	if t, ok := s.tessellations[k]; ok {
		s.stats.Hits++
		metrics.CacheHitsTotal.WithLabelValues("tessellation").Inc()
		return t
	}
	s.stats.Misses++
	metrics.CacheMissesTotal.WithLabelValues("tessellation").Inc()
	if stream {
		s.request(k)
	}
	return nil
}

// RenderPrimitive returns the primitive for hash at the actual LOD, building it
// on first use. A wanted LOD that is not cached counts as a miss for this frame
// and, with stream set, is queued for decoding. The result is nil while the
// region has no geometry at the actual LOD.
func (s *Streamer) RenderPrimitive(hash region.Hash, stream bool) Primitive {
	want := cacheKey{hash, s.wantedLOD}
	if _, ok := s.tessellations[want]; !ok {
		if _, exists := s.ranges[want]; exists && !s.failed[want] {
			s.wantedMissed = true
			if stream {
				s.request(want)
			}
		}
	}

	act := cacheKey{hash, s.actualLOD}
	if p, ok := s.primitives[act]; ok {
		metrics.CacheHitsTotal.WithLabelValues("primitive").Inc()
		return p
	}
	metrics.CacheMissesTotal.WithLabelValues("primitive").Inc()
	t, ok := s.tessellations[act]
	if !ok {
		return nil
	}
	p, err := s.builder.BuildPrimitive(t)
	if err != nil {
		logger.L().Warn("primitive_build_failed",
			"region", s.ids[hash].Key,
			"lod", act.lod,
			"err", err,
		)
		return nil
	}
	s.primitives[act] = p
	return p
}

// ZoomedTo sets the wanted LOD from zoom. Each zoom step reached makes the
// wanted LOD one level finer.
func (s *Streamer) ZoomedTo(zoom float64) {
	lod := s.lodForZoom(zoom)
	if lod != s.wantedLOD {
		s.wantedLOD = lod
		s.wantedMissed = true
	}
}

func (s *Streamer) lodForZoom(zoom float64) int {
	lod := s.coarsest()
	for _, step := range s.steps {
		if zoom >= step {
			lod--
		}
	}
	return max(lod, 0)
}

// UpdateLodLevel promotes the actual LOD to the wanted one when the frame just
// rendered had no miss at the wanted LOD. Call once per frame after the
// frame's render requests and before UpdateStreaming.
func (s *Streamer) UpdateLodLevel() {
	if !s.wantedMissed && s.actualLOD != s.wantedLOD {
		logger.L().Debug("lod_promoted", "from", s.actualLOD, "to", s.wantedLOD)
		s.actualLOD = s.wantedLOD
	}
	s.wantedMissed = false
}

// UpdateStreaming publishes finished decodes into the caches and hands queued
// requests to free workers. Call once per frame.
func (s *Streamer) UpdateStreaming() {
	if s.closed {
		return
	}
	s.mu.Lock()
	batch := s.delivered
	s.delivered = nil
	s.mu.Unlock()

	for _, d := range batch {
		delete(s.pending, d.key)
		metrics.ChunkDecodeDurationMs.Observe(float64(d.elapsed.Microseconds()) / 1000)
		switch {
		case d.err != nil:
			s.failed[d.key] = true
			s.stats.Failed++
			metrics.ChunksFailedTotal.Inc()
			logger.L().Warn("chunk_decode_failed",
				"region", s.ids[d.key.hash].Key,
				"lod", d.key.lod,
				"err", d.err,
			)
		case s.evicted[d.key.hash]:
			s.stats.Discarded++
			metrics.ChunksDiscardedTotal.Inc()
		default:
			s.tessellations[d.key] = d.tess
			s.stats.Decoded++
			metrics.ChunksDecodedTotal.Inc()
		}
	}
	s.dispatch()
}

// EvictPrimitive drops every LOD of hash from both caches and releases its
// primitives. Decodes still in flight for it are discarded on arrival unless
// the region is requested again first.
func (s *Streamer) EvictPrimitive(hash region.Hash) {
	for lod := 0; lod < s.dir.LodCount; lod++ {
		k := cacheKey{hash, lod}
		if p, ok := s.primitives[k]; ok {
			p.Release()
			delete(s.primitives, k)
		}
		delete(s.tessellations, k)
	}
	kept := s.queue[:0]
	for _, k := range s.queue {
		if k.hash == hash {
			delete(s.pending, k)
			continue
		}
		kept = append(kept, k)
	}
	s.queue = kept
	s.evicted[hash] = true
}

func (s *Streamer) request(k cacheKey) {
	if s.closed {
		return
	}
	if _, ok := s.ranges[k]; !ok {
		return
	}
	// A decode still in flight for an evicted region is wanted again.
	delete(s.evicted, k.hash)
	if s.pending[k] || s.failed[k] {
		return
	}
	s.pending[k] = true
	s.queue = append(s.queue, k)
	s.dispatch()
}

// dispatch submits queued requests until the pool stops accepting work.
func (s *Streamer) dispatch() {
	for len(s.queue) > 0 {
		k := s.queue[0]
		if !s.pool.TrySubmit(s.decodeJob(k, s.ranges[k])) {
			return
		}
		s.queue = s.queue[1:]
		s.stats.Scheduled++
		metrics.ChunksScheduledTotal.Inc()
	}
}

func (s *Streamer) decodeJob(k cacheKey, r chunk.Range) func() {
	data := s.data
	return func() {
		start := time.Now()
		t, err := chunk.Pull[world.GeoTessellation](data, r)
		d := delivery{key: k, err: err, elapsed: time.Since(start)}
		if err == nil {
			d.tess = &t
		}
		s.mu.Lock()
		s.delivered = append(s.delivered, d)
		s.mu.Unlock()
	}
}

func (s *Streamer) loadWorld() {
	s.worldOnce.Do(func() {
		if s.file == nil {
			s.worldErr = ErrClosed
			return
		}
		tree, _ := s.header.Tree.Slice(s.file)
		if s.index, s.worldErr = world.DecodeIndex(tree); s.worldErr != nil {
			s.worldErr = fmt.Errorf("decoding spatial index: %w", s.worldErr)
			return
		}
		hier, _ := s.header.World.Slice(s.file)
		if s.world, s.worldErr = world.Decode(hier); s.worldErr != nil {
			s.worldErr = fmt.Errorf("decoding hierarchy: %w", s.worldErr)
		}
	})
}

// World decodes the hierarchy segment on first call. A hierarchy decoded
// before Close stays available; otherwise it fails with ErrClosed.
func (s *Streamer) World() (world.World, error) {
	s.loadWorld()
	return s.world, s.worldErr
}

// SpatialIndex decodes the spatial index segment on first call.
func (s *Streamer) SpatialIndex() (*world.Index, error) {
	s.loadWorld()
	return s.index, s.worldErr
}

// Close waits for in-flight decodes, releases every primitive and unmaps the
// file.
func (s *Streamer) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.pool.Close()
	s.file, s.data = nil, nil
	for k, p := range s.primitives {
		p.Release()
		delete(s.primitives, k)
	}
	clear(s.tessellations)
	s.queue = nil
	return s.unmap()
}
