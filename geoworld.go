// Package geoworld bakes country and province outlines into a single
// memory-mappable world file and streams them back for rendering.
//
// Baking reads Geonames metadata from a data directory and one GeoJSON file
// per level of detail:
//
//	res, err := geoworld.Bake(ctx, []string{"admin1-10m.json", "admin0-50m.json"}, "world.bin",
//	    geoworld.WithDataDir("./geoworld-data"))
//
// The renderer then owns a streamer for the file:
//
//	s, err := geoworld.Open("world.bin", nil)
//	defer s.Close()
package geoworld

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/andreiashu/geoworld/bake"
	"github.com/andreiashu/geoworld/internal/logger"
	"github.com/andreiashu/geoworld/stream"
)

// Config contains configuration options for loading and baking.
type Config struct {
	DataDir       string // Geonames countryInfo.txt, admin1CodesASCII.txt, cities1000.zip
	MinPopulation int64  // places below this population are skipped
	BakeOptions   []bake.Option
}

// Option is a functional option for configuring Bake and LoadInput.
type Option func(*Config)

// WithDataDir sets the directory holding the Geonames files.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.DataDir = dir
	}
}

// WithMinPopulation skips places with fewer inhabitants.
func WithMinPopulation(n int64) Option {
	return func(c *Config) {
		c.MinPopulation = n
	}
}

// WithBakeOptions passes options through to bake.Run.
func WithBakeOptions(opts ...bake.Option) Option {
	return func(c *Config) {
		c.BakeOptions = append(c.BakeOptions, opts...)
	}
}

func defaultConfig() *Config {
	return &Config{
		DataDir: "./geoworld-data",
	}
}

// SetLogger routes every package's logging to l. nil silences it again.
func SetLogger(l *slog.Logger) { logger.Set(l) }

// LogReporter returns a bake reporter that writes progress to the logger.
func LogReporter() bake.Reporter { return bake.LogReporter{} }

// LoadInput reads the Geonames metadata under the data directory and the
// GeoJSON outlines in lodPaths, most detailed first. Country info is
// required; admin divisions and cities are optional.
func LoadInput(lodPaths []string, opts ...Option) (bake.Input, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.loadInput(lodPaths)
}

func (cfg *Config) loadInput(lodPaths []string) (bake.Input, error) {
	var in bake.Input
	if len(lodPaths) == 0 {
		return in, bake.ErrNoLODs
	}

	countries, err := LoadCountryInfo(filepath.Join(cfg.DataDir, countryInfoFile))
	if err != nil {
		return in, fmt.Errorf("loading country info: %w", err)
	}
	in.Countries = CountryRecords(countries)

	admin, err := LoadAdminDivisions(filepath.Join(cfg.DataDir, admin1File))
	if err != nil {
		logger.L().Info("admin_divisions_skipped", "err", err)
	}

	places, err := LoadCities(filepath.Join(cfg.DataDir, citiesFile), cfg.MinPopulation)
	if err != nil {
		logger.L().Info("cities_skipped", "err", err)
	}
	in.Places = places

	res := newResolver(countries, admin)
	for lod, path := range lodPaths {
		features, err := res.loadFeatures(path)
		if err != nil {
			return in, fmt.Errorf("loading LOD %d from %s: %w", lod, path, err)
		}
		in.LODs = append(in.LODs, features)
	}
	logger.L().Info("input_loaded",
		"countries", len(in.Countries),
		"places", len(in.Places),
		"lods", len(in.LODs),
	)
	return in, nil
}

// Bake loads input with LoadInput and writes the world file to out.
func Bake(ctx context.Context, lodPaths []string, out string, opts ...Option) (*bake.Result, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	in, err := cfg.loadInput(lodPaths)
	if err != nil {
		return nil, fmt.Errorf("failed to load input: %w", err)
	}
	res, err := bake.Run(ctx, in, out, cfg.BakeOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to bake %s: %w", out, err)
	}
	return res, nil
}

// Open attaches a streamer to a baked world file. A nil builder yields
// stream.Mesh primitives.
func Open(path string, builder stream.PrimitiveBuilder, opts ...stream.Option) (*stream.Streamer, error) {
	return stream.Attach(path, builder, opts...)
}
