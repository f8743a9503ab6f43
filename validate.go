package geoworld

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andreiashu/geoworld/internal/logger"
	"github.com/andreiashu/geoworld/stream"
	"github.com/andreiashu/geoworld/world"
)

// ErrInvalid is wrapped by every integrity failure Validate reports.
var ErrInvalid = errors.New("geoworld: world file failed validation")

// ValidationReport summarizes a world file that passed Validate.
type ValidationReport struct {
	LodCount int
	Chunks   int
	Regions  map[world.Level]int
	Places   int
}

// Validate attaches to the world file at path and checks it end to end: the
// hierarchy and spatial index decode, every region is findable through the
// index, every region has geometry at some LOD and every chunk decodes.
// minRegions guards against truncated input producing a nearly empty world.
func Validate(ctx context.Context, path string, minRegions int) (*ValidationReport, error) {
	s, err := stream.Attach(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to attach: %w", err)
	}
	defer s.Close()

	w, err := s.World()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	idx, err := s.SpatialIndex()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	rep := &ValidationReport{LodCount: s.LodCount(), Regions: w.Count()}
	total := 0
	for _, n := range rep.Regions {
		total += n
	}
	if total < minRegions {
		return nil, fmt.Errorf("%w: %d regions, want >= %d", ErrInvalid, total, minRegions)
	}

	var check error
	w.Walk(func(f world.Feature) bool {
		m := f.Meta()
		rep.Places += len(m.Places)
		if check != nil {
			return false
		}
		found := false
		for _, e := range idx.QueryExact(m.Bounds) {
			if e.Key == m.ID.Hash {
				found = true
				break
			}
		}
		if !found {
			check = fmt.Errorf("%w: %s missing from spatial index", ErrInvalid, m.ID)
			return false
		}
		hasChunk := false
		for lod := 0; lod < s.LodCount(); lod++ {
			hasChunk = hasChunk || s.HasChunk(m.ID.Hash, lod)
		}
		if !hasChunk {
			check = fmt.Errorf("%w: %s has no geometry", ErrInvalid, m.ID)
		}
		return true
	})
	if check != nil {
		return nil, check
	}

	for _, id := range s.Regions() {
		for lod := 0; lod < s.LodCount(); lod++ {
			if s.HasChunk(id.Hash, lod) {
				s.Tessellation(id.Hash, lod, true)
				rep.Chunks++
			}
		}
	}
	if err := drain(ctx, s); err != nil {
		return nil, err
	}
	if st := s.Stats(); st.Failed > 0 {
		return nil, fmt.Errorf("%w: %d of %d chunks failed to decode", ErrInvalid, st.Failed, rep.Chunks)
	}
	for _, id := range s.Regions() {
		for lod := 0; lod < s.LodCount(); lod++ {
			if s.HasChunk(id.Hash, lod) && s.Tessellation(id.Hash, lod, false).Empty() {
				return nil, fmt.Errorf("%w: %s LOD %d has no triangles", ErrInvalid, id, lod)
			}
		}
	}

	logger.L().Info("world_validated",
		"path", path,
		"lods", rep.LodCount,
		"chunks", rep.Chunks,
		"regions", total,
		"places", rep.Places,
	)
	return rep, nil
}

// drain pumps the streamer until nothing is pending.
func drain(ctx context.Context, s *stream.Streamer) error {
	for {
		s.UpdateStreaming()
		if s.Stats().Pending == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}
