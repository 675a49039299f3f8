package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhcgn/flight-price-tracker/cmd"
	"github.com/dhcgn/flight-price-tracker/config"
	"github.com/dhcgn/flight-price-tracker/runner"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flight-price-tracker",
		Short: "Extract flight prices from Skyscanner alert emails into a CSV and a chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd)
			if err != nil {
				return err
			}

			logger, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			logger.Info("starting flight-price-tracker", "mbox", cfg.MboxPath, "csv", cfg.CSVPath, "plot", cfg.PlotPath)

			return run(cmd.Context(), cfg, logger)
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}
	rootCmd.AddCommand(cmd.NewScanCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	r, err := runner.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("runner.New: %w", err)
	}
	return r.Run(ctx)
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("flight-price-tracker-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}
