// Package main runs YAML paint scripts headlessly and writes the results.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Faultbox/paintcore/internal/config"
	"github.com/Faultbox/paintcore/internal/journal"
	"github.com/Faultbox/paintcore/internal/logger"
	"github.com/Faultbox/paintcore/internal/metrics"
	"github.com/Faultbox/paintcore/internal/paint"
	"github.com/Faultbox/paintcore/internal/readback"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := config.Args()
	if len(args) != 1 {
		printUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, args[0]); err != nil {
		logger.Error("script failed", zap.String("script", args[0]), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `paintcore - headless paint script runner

Usage:
  paintcore [flags] <script.yaml>

Flags:
  -config <file>       Config file (.yaml or .toml)
  -debug               Enable debug logging
  -budget <n>          Texels read back per frame
  -state-limit <n>     Undo states kept per target
  -state-mode <mode>   full or local
  -sync                Disable asynchronous readback
  -journal <file>      Record commands to a sqlite journal
  -metrics <addr>      Serve prometheus metrics, e.g. :9100`)
}

func run(ctx context.Context, cfg *config.Config, scriptPath string) error {
	script, err := LoadScript(scriptPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	if cfg.Metrics.Listen != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.Metrics.Listen))
	}

	log := logger.Named("paint")
	pc := paint.NewContext(
		paint.WithLogger(log),
		paint.WithMetrics(m),
		paint.WithReaders(readback.NewRegistry(
			readback.WithLogger(log.Named("readback")),
			readback.WithMetrics(m),
			readback.WithDevice(readback.SoftwareDevice{DisableAsync: !cfg.Paint.AsyncReadback}),
		)),
	)

	var j *journal.Journal
	if cfg.Journal.Path != "" {
		if j, err = journal.Open(cfg.Journal.Path, journal.WithLogger(logger.Named("journal"))); err != nil {
			return err
		}
		defer func() { _ = j.Close() }()
		j.Attach(pc)
		logger.Info("journaling commands",
			zap.String("path", j.Path()),
			zap.String("session", j.Session().String()))
	}

	r := NewRunner(cfg, pc, j, filepath.Dir(scriptPath))
	defer r.Close()

	start := time.Now()
	if err := r.Run(ctx, script); err != nil {
		return err
	}
	if j != nil {
		if err := j.Err(); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}
	logger.Info("script finished",
		zap.String("script", scriptPath),
		zap.Int("steps", len(script.Steps)),
		zap.Uint64("frames", r.Manager().Frame()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}
