package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestDefaultIsSilent(t *testing.T) {
	Set(nil)
	if L().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger should be disabled")
	}
}

func TestSetInstallsLogger(t *testing.T) {
	var buf bytes.Buffer
	Set(slog.New(slog.NewTextHandler(&buf, nil)))
	defer Set(nil)

	L().Info("chunk_decoded", "key", "continent-europe-0")
	if !strings.Contains(buf.String(), "chunk_decoded") {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestSetupReadsEnv(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	defer Set(nil)
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.level)
			t.Setenv("LOG_FORMAT", "json")
			l := Setup()
			ctx := context.Background()
			if !l.Enabled(ctx, tt.want) || (tt.want > slog.LevelDebug && l.Enabled(ctx, tt.want-1)) {
				t.Errorf("Setup() with LOG_LEVEL=%q has wrong threshold", tt.level)
			}
			if L() != l {
				t.Error("Setup() did not install the logger")
			}
		})
	}
}
