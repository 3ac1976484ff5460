// Package main is the entry point for the Quotedeck aggregation proxy.
// Quotedeck authenticates against an upstream quote API, fetches several
// independent resource types per ticker symbol, shields the upstream from
// rate-limit violations, caches responses locally, and tolerates partial
// upstream failure while still returning a usable response.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quotedeck/quotedeck/internal/aggregate"
	"github.com/quotedeck/quotedeck/internal/cachestore"
	"github.com/quotedeck/quotedeck/internal/config"
	"github.com/quotedeck/quotedeck/internal/database"
	"github.com/quotedeck/quotedeck/internal/fetch"
	"github.com/quotedeck/quotedeck/internal/server"
	"github.com/quotedeck/quotedeck/internal/upstream"
	"github.com/quotedeck/quotedeck/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Int("port", cfg.Port).
		Str("data_dir", cfg.DataDir).
		Dur("rate_min_interval", cfg.RateMinInterval).
		Int("retry_max_attempts", cfg.RetryMaxAttempts).
		Msg("Starting Quotedeck")

	// Open the cache database and ensure the schema exists
	cacheDB, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "cache.db"),
		Name: "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := cachestore.Migrate(cacheDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache schema")
	}
	repo := cachestore.NewRepository(cacheDB.Conn())

	// Upstream plumbing: one shared rate gate serializes every outbound
	// dispatch, handshake calls included.
	gate := upstream.NewRateGate(cfg.RateMinInterval)
	auth := upstream.NewAuthManager(repo, gate, cfg.AuthBootstrapURL, cfg.AuthCrumbURL, cfg.UserAgent, log)
	client := upstream.NewClient(cfg.QueryBaseURL, cfg.UserAgent, gate, log)
	retrier := upstream.NewRetrier(upstream.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	}, log)

	fetcher := fetch.NewService(repo, client, auth, retrier, log)
	orchestrator := aggregate.NewOrchestrator(fetcher, auth, log)

	// Periodic purge of expired cache rows. Reads already enforce expiry;
	// this just keeps the file from growing unbounded.
	cleanup := cachestore.NewCleanupJob(repo, log)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("*/15 * * * *", func() {
		if err := cleanup.Run(); err != nil {
			log.Error().Err(err).Msg("Cache cleanup failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache cleanup")
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(server.Config{
		Log:          log,
		Config:       cfg,
		CacheDB:      cacheDB,
		Fetcher:      fetcher,
		Orchestrator: orchestrator,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Quotedeck stopped")
}
