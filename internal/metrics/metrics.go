// Package metrics exposes prometheus instruments for baking and streaming.
// Instruments register with the default registry at init; embedders expose
// them through Handler or their own promhttp setup.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChunksScheduledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoworld_chunks_scheduled_total",
		Help: "Total chunk decodes handed to stream workers",
	})
	ChunksDecodedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoworld_chunks_decoded_total",
		Help: "Total chunks decoded successfully",
	})
	ChunksFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoworld_chunks_failed_total",
		Help: "Total chunks that failed to decode",
	})
	ChunksDiscardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoworld_chunks_discarded_total",
		Help: "Total decoded chunks dropped because their region was evicted",
	})
	ChunkDecodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geoworld_chunk_decode_duration_ms",
		Help:    "Chunk decode duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 50, 100},
	})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoworld_cache_hits_total",
		Help: "Stream cache hits by cache",
	}, []string{"cache"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoworld_cache_misses_total",
		Help: "Stream cache misses by cache",
	}, []string{"cache"})
	BakeFeaturesDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoworld_bake_features_dropped_total",
		Help: "Features dropped during bake by reason",
	}, []string{"reason"})
	ContourDeadEndsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoworld_contour_dead_ends_total",
		Help: "Contour walks that stopped before closing during dissolve",
	})
	BakeDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geoworld_bake_duration_seconds",
		Help:    "Bake run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(ChunksScheduledTotal)
	prometheus.MustRegister(ChunksDecodedTotal)
	prometheus.MustRegister(ChunksFailedTotal)
	prometheus.MustRegister(ChunksDiscardedTotal)
	prometheus.MustRegister(ChunkDecodeDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(BakeFeaturesDroppedTotal)
	prometheus.MustRegister(ContourDeadEndsTotal)
	prometheus.MustRegister(BakeDurationSeconds)
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
