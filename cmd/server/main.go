// Package main implements the entry point for the cardforge API server,
// which turns uploaded PDF documents into flashcards through background
// jobs backed by an LLM.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardforge/cardforge-api/internal/config"
	"github.com/cardforge/cardforge-api/internal/events"
	"github.com/cardforge/cardforge-api/internal/extraction"
	"github.com/cardforge/cardforge-api/internal/platform/gemini"
	"github.com/cardforge/cardforge-api/internal/platform/logger"
	"github.com/cardforge/cardforge-api/internal/platform/postgres"
	"github.com/cardforge/cardforge-api/internal/quota"
	"github.com/cardforge/cardforge-api/internal/service"
	"github.com/cardforge/cardforge-api/internal/service/auth"
	"github.com/cardforge/cardforge-api/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Int("worker_count", cfg.Worker.Count),
		slog.Int("daily_quota", cfg.Quota.DailyLimit))

	db, err := openDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	if err := runMigrations(db, appLogger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores
	jobStore := postgres.NewPostgresJobStore(db, appLogger)
	deckStore := postgres.NewPostgresDeckStore(db, appLogger)

	// Shared quota ledger for all LLM calls in this process
	ledger := quota.NewLedger(cfg.Quota, appLogger)

	// LLM generation and PDF extraction
	generator, err := gemini.NewGeminiGenerator(ctx, appLogger, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}
	extractor := extraction.NewPDFExtractor(appLogger)

	// Background worker runtime; woken by submit events, falls back to polling
	runner, err := worker.NewRunner(
		jobStore, extractor, generator, ledger, cfg.Worker, cfg.Processing, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create worker runner: %w", err)
	}

	emitter := events.NewInMemoryEventEmitter(appLogger)
	emitter.RegisterHandler(runner)

	jobService, err := service.NewJobService(jobStore, deckStore, emitter, cfg.Processing, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create job service: %w", err)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create JWT service: %w", err)
	}

	runner.Start()
	defer runner.Stop()

	router := newRouter(jobService, ledger, jwtService, appLogger)
	return serveHTTP(ctx, cfg.Server, router, appLogger)
}

// serveHTTP runs the HTTP server until the context is cancelled, then
// shuts it down gracefully.
func serveHTTP(
	ctx context.Context,
	cfg config.ServerConfig,
	handler http.Handler,
	log *slog.Logger,
) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", slog.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		log.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("server shutdown completed")
	return nil
}
