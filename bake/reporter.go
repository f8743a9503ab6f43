package bake

import (
	"sync"

	"github.com/andreiashu/geoworld/internal/logger"
)

// Reporter receives progress and per-feature errors. Calls are fire and forget
// and may come from any goroutine.
type Reporter interface {
	Report(fraction float64, message string, done bool)
	ReportError(feature, reason string)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Report(float64, string, bool) {}
func (NopReporter) ReportError(string, string)   {}

// LogReporter writes progress and errors to the package logger.
type LogReporter struct{}

func (LogReporter) Report(fraction float64, message string, done bool) {
	logger.L().Info("bake_progress", "fraction", fraction, "message", message, "done", done)
}

func (LogReporter) ReportError(feature, reason string) {
	logger.L().Warn("bake_feature_error", "feature", feature, "reason", reason)
}

// FeatureError is one ReportError call.
type FeatureError struct {
	Feature string
	Reason  string
}

// Recorder keeps every call in memory. Safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	Fractions []float64
	Messages  []string
	Done      bool
	Errors    []FeatureError
}

func (r *Recorder) Report(fraction float64, message string, done bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Fractions = append(r.Fractions, fraction)
	r.Messages = append(r.Messages, message)
	r.Done = r.Done || done
}

func (r *Recorder) ReportError(feature, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, FeatureError{Feature: feature, Reason: reason})
}
