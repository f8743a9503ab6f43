// Command worldbake bakes GeoJSON outlines into a world file.
//
// Usage:
//
//	go run ./cmd/worldbake -input admin1-10m.json,admin0-50m.json -output world.bin -validate
//
// Inputs are listed most detailed first, one file per LOD, each optionally
// bzip2-compressed. Geonames countryInfo.txt (required), admin1CodesASCII.txt
// and cities1000.zip are read from the data directory. Every flag has an
// environment fallback, and a .env file in the working directory is loaded
// first:
//
//	WORLD_DATA_DIR, WORLD_INPUT, WORLD_OUTPUT, WORLD_MAX_DEPTH, WORLD_WORKERS,
//	WORLD_MIN_POPULATION, WORLD_VALIDATE, WORLD_MIN_REGIONS, METRICS_ADDR
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/andreiashu/geoworld"
	"github.com/andreiashu/geoworld/bake"
	"github.com/andreiashu/geoworld/internal/logger"
	"github.com/andreiashu/geoworld/internal/metrics"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

type options struct {
	dataDir       string
	inputs        string
	output        string
	maxDepth      int
	workers       int
	minPopulation int
	validate      bool
	minRegions    int
	metricsAddr   string
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("worldbake", flag.ContinueOnError)
	fs.StringVar(&o.dataDir, "data", envOr("WORLD_DATA_DIR", "./geoworld-data"), "directory holding Geonames files")
	fs.StringVar(&o.inputs, "input", os.Getenv("WORLD_INPUT"), "comma-separated GeoJSON files, most detailed first")
	fs.StringVar(&o.output, "output", envOr("WORLD_OUTPUT", "world.bin"), "world file to write")
	fs.IntVar(&o.maxDepth, "max-depth", envInt("WORLD_MAX_DEPTH", 0), "spatial index depth (0 for default)")
	fs.IntVar(&o.workers, "workers", envInt("WORLD_WORKERS", 0), "tessellation goroutines (0 for GOMAXPROCS)")
	fs.IntVar(&o.minPopulation, "min-population", envInt("WORLD_MIN_POPULATION", 0), "skip smaller places")
	fs.BoolVar(&o.validate, "validate", envBool("WORLD_VALIDATE"), "validate the file after baking")
	fs.IntVar(&o.minRegions, "min-regions", envInt("WORLD_MIN_REGIONS", 1), "fail validation below this many regions")
	fs.StringVar(&o.metricsAddr, "metrics", os.Getenv("METRICS_ADDR"), "serve prometheus metrics on this address while running")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.inputs == "" {
		return nil, errors.New("no input: set -input or WORLD_INPUT")
	}
	return o, nil
}

func (o *options) lodPaths() []string {
	var out []string
	for _, p := range strings.Split(o.inputs, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Error("metrics_server_error", "err", err)
		}
	}()
	return srv
}

func run(ctx context.Context, o *options) error {
	l := logger.L()
	if o.metricsAddr != "" {
		srv := serveMetrics(o.metricsAddr)
		defer srv.Close()
		l.Info("metrics_listening", "addr", o.metricsAddr)
	}

	res, err := geoworld.Bake(ctx, o.lodPaths(), o.output,
		geoworld.WithDataDir(o.dataDir),
		geoworld.WithMinPopulation(int64(o.minPopulation)),
		geoworld.WithBakeOptions(
			bake.WithReporter(geoworld.LogReporter()),
			bake.WithMaxDepth(o.maxDepth),
			bake.WithWorkers(o.workers),
		),
	)
	if err != nil {
		return err
	}
	l.Info("bake_ok",
		"output", o.output,
		"bytes", res.Header.FileSize(),
		"chunks", res.Chunks,
		"dropped", len(res.Dropped),
		"orphan_places", len(res.Orphans),
		"dead_ends", res.DeadEnds,
	)

	if !o.validate {
		return nil
	}
	rep, err := geoworld.Validate(ctx, o.output, o.minRegions)
	if err != nil {
		return fmt.Errorf("validation: %w", err)
	}
	l.Info("validate_ok", "chunks", rep.Chunks, "places", rep.Places)
	return nil
}

func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()

	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		l.Error("config_error", "err", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, o); err != nil {
		l.Error("worldbake_failed", "err", err)
		stop()
		os.Exit(1)
	}
}
