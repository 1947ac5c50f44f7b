package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"outlay/internal/amqp"
	"outlay/internal/config"
	"outlay/internal/log"
	"outlay/internal/storage"
	"outlay/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Level: log.DefaultConfig().Level, Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting outlay-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	// The worker is pointless without a broker to consume from.
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the rollup worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, log.FieldPath, cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rollup := worker.NewRollupWorker(repo, cfg.RollupWindowDays, logger)

	logger.Info("Rollup worker running",
		log.FieldOperation, log.OpStartup,
		"window_days", cfg.RollupWindowDays,
		"interval", cfg.RollupInterval.String())

	if err := rollup.Run(ctx, amqpClient, cfg.RollupInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Rollup worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
