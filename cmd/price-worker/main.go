package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cartwatch/internal/amqp"
	"cartwatch/internal/config"
	"cartwatch/internal/scrape"
	"cartwatch/internal/storage"
	"cartwatch/internal/tracker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting price-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var alerts tracker.AlertPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		alerts = amqpClient
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	fetcher := scrape.NewFetcher(cfg.ScraperHost, cfg.ScraperAPIKey, cfg.ScraperCountryCode)
	checker := tracker.NewChecker(fetcher, repo, alerts)
	sweeper := tracker.NewSweeper(repo, checker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sweep once on startup, then on the configured interval.
	runSweep(ctx, sweeper)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	logger.Info("Sweep schedule started", "interval", cfg.SweepInterval)

	for {
		select {
		case <-ticker.C:
			runSweep(ctx, sweeper)
		case <-ctx.Done():
			logger.Info("Price worker stopped gracefully")
			return
		}
	}
}

func runSweep(ctx context.Context, sweeper *tracker.Sweeper) {
	if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "Sweep failed", "error", err)
	}
}
