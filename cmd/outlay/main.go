package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"outlay/internal/amqp"
	"outlay/internal/auth"
	"outlay/internal/cache"
	"outlay/internal/config"
	outlayhttp "outlay/internal/http"
	"outlay/internal/log"
	"outlay/internal/services"
	"outlay/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, log.FieldPath, cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it expenses still persist, only the
	// change stream for the rollup worker is skipped.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, change messages disabled", log.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	svc := services.NewExpenseService(repo, amqpClient, cfg.SummaryCacheSize, cfg.SummaryCacheTTL, logger)

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(svc.SummaryCache())
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	verifier := auth.NewGoogleVerifier(cfg.GoogleClientID)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	srv := outlayhttp.NewServer(":"+cfg.Port, svc, repo, verifier, issuer, cfg.AllowedOrigins, logger)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", log.FieldSignal, sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting outlay server", log.FieldPort, cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, log.FieldPort, cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
