package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quantfolio/market-data/internal/config"
	"github.com/quantfolio/market-data/internal/database"
	"github.com/quantfolio/market-data/internal/fanout"
	"github.com/quantfolio/market-data/internal/feed"
	"github.com/quantfolio/market-data/internal/httpapi"
	"github.com/quantfolio/market-data/internal/metrics"
	"github.com/quantfolio/market-data/internal/pipeline"
	"github.com/quantfolio/market-data/internal/store"
	"github.com/quantfolio/market-data/internal/stream"
	"github.com/quantfolio/market-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/ingestord.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ingestor",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"feed_mode", cfg.Feed.Mode,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipelineMetrics := metrics.NewPipeline(registry)

	// Assemble the pipeline
	tickStore := store.NewTimescaleStore(pool, logger)
	publisher := fanout.NewPublisher(cfg.Fanout.BufferSize, logger)
	coordinator := pipeline.NewCoordinator(pipeline.Config{
		BatchSize:        cfg.Pipeline.BatchSize,
		BatchInterval:    cfg.Pipeline.BatchInterval,
		MaxDrainAttempts: cfg.Pipeline.MaxDrainAttempts,
		WriteTimeout:     cfg.Pipeline.WriteTimeout,
	}, tickStore, publisher, pipelineMetrics, logger)

	if err := coordinator.Start(ctx); err != nil {
		logger.Error("failed to start pipeline", "error", err)
		os.Exit(1)
	}

	// HTTP server: lookup API, live stream, health, metrics
	mux := http.NewServeMux()
	mux.Handle("/", httpapi.NewHandler(coordinator, tickStore, logger))
	mux.Handle("/stream", stream.NewHandler(coordinator, logger))
	mux.Handle(cfg.Server.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}
	go func() {
		logger.Info("http server listening", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	// Tick source
	var source feed.Source
	switch cfg.Feed.Mode {
	case "ws":
		source = feed.NewWSFeed(feed.WSConfig{
			URL:                cfg.Feed.URL,
			ReconnectBaseDelay: cfg.Feed.ReconnectBaseDelay,
			ReconnectMaxDelay:  cfg.Feed.ReconnectMaxDelay,
			ReadTimeout:        cfg.Feed.ReadTimeout,
		}, logger)
	default:
		source = feed.NewSimulator(cfg.Feed.Instruments, cfg.Feed.TickInterval, time.Now().UnixNano(), logger)
	}

	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		if err := source.Run(ctx, coordinator); err != nil && err != context.Canceled {
			logger.Error("feed stopped", "error", err)
			cancel()
		}
	}()

	logger.Info("ingestor running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
	)

	// Wait for shutdown
	<-ctx.Done()
	<-feedDone

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Drain the pipeline before closing anything it writes to.
	if err := coordinator.Stop(shutdownCtx); err != nil {
		logger.Error("pipeline shutdown incomplete", "error", err)
	}

	httpServer.Shutdown(shutdownCtx)

	logger.Info("ingestor stopped")
}
