package main

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/dhcgn/flight-price-tracker/config"
)

func TestSetupLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, cleanup, err := setupLogger(config.Config{LogLevel: tt.level})
			if err != nil {
				t.Fatal(err)
			}
			defer cleanup()
			if !logger.Enabled(context.Background(), tt.want) {
				t.Errorf("level %s not enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && logger.Enabled(context.Background(), tt.want-4) {
				t.Errorf("level below %s should be disabled", tt.want)
			}
		})
	}
}

func TestSetupLoggerLogDir(t *testing.T) {
	dir := t.TempDir()
	logger, cleanup, err := setupLogger(config.Config{LogLevel: "info", LogDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello")
	if err := cleanup(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("want one log file, got %d", len(entries))
	}
}
