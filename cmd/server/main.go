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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rotationlab/rotation-data/internal/api"
	"github.com/rotationlab/rotation-data/internal/cache"
	"github.com/rotationlab/rotation-data/internal/config"
	"github.com/rotationlab/rotation-data/internal/metrics"
	"github.com/rotationlab/rotation-data/internal/ratelimit"
	"github.com/rotationlab/rotation-data/internal/refresher"
	"github.com/rotationlab/rotation-data/internal/rotation"
	"github.com/rotationlab/rotation-data/internal/server"
	"github.com/rotationlab/rotation-data/internal/store"
	"github.com/rotationlab/rotation-data/internal/tokens"
	"github.com/rotationlab/rotation-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/server.local.yaml", "path to config file")
	flag.Parse()

	// Environment variables from .env feed the ${VAR} substitutions in the
	// config file. A missing .env is fine.
	_ = godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting rotation-data server",
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
		"addr", cfg.Server.Addr,
		"provider_url", cfg.Provider.BaseURL,
		"rate_limit", cfg.RateLimit.MaxCalls,
		"rate_window", cfg.RateLimit.Window,
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

	// Connect to the document store
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	docs, err := store.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer docs.Close()

	logger.Info("database connected")

	m := metrics.New()

	// Provider client and the shared call budget
	client := api.NewClient(
		cfg.Provider.BaseURL,
		cfg.Provider.APIKey,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Provider.Timeout),
	)

	limiter := ratelimit.New(cfg.RateLimit.MaxCalls, cfg.RateLimit.Window,
		ratelimit.WithWaitObserver(func(wait time.Duration) {
			m.RateLimitWaitSeconds.Observe(wait.Seconds())
		}),
	)

	tokenCache := cache.New[int64, api.TokenInfo](cfg.Caches.TokenInfo.Capacity, cfg.Caches.TokenInfo.TTL)
	fetcher := tokens.NewFetcher(client, limiter, tokenCache, logger)

	pipeline := rotation.NewService(rotation.Config{
		Freshness:             cfg.Snapshot.Freshness,
		SeriesCacheCapacity:   cfg.Caches.Series.Capacity,
		SeriesCacheTTL:        cfg.Caches.Series.TTL,
		CategoryCacheCapacity: cfg.Caches.Categories.Capacity,
		CategoryCacheTTL:      cfg.Caches.Categories.TTL,
		Metrics:               m,
	}, client, limiter, docs, fetcher, logger)

	// Background snapshot refresher
	refr := refresher.New(refresher.Config{Interval: cfg.Snapshot.RefreshInterval}, pipeline, logger)
	if err := refr.Start(ctx); err != nil {
		logger.Error("failed to start refresher", "error", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		refr.Stop(stopCtx)
	}()

	// Metrics server on its own port
	metricsMux := http.NewServeMux()
	metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: metricsMux,
	}
	go func() {
		logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
		if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsSrv.Shutdown(shutdownCtx)
	}()

	// API server blocks until shutdown
	srv := server.New(server.Config{
		Addr:       cfg.Server.Addr,
		CORSOrigin: cfg.Server.CORSOrigin,
	}, pipeline, docs, m, logger)

	logger.Info("server running", "addr", cfg.Server.Addr)
	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
