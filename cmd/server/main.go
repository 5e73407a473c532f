package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prepgrid/testprep-backend/internal/config"
	"github.com/prepgrid/testprep-backend/internal/database"
	"github.com/prepgrid/testprep-backend/internal/handler"
	"github.com/prepgrid/testprep-backend/internal/logger"
	"github.com/prepgrid/testprep-backend/internal/paperstore"
	"github.com/prepgrid/testprep-backend/internal/repository"
	"github.com/prepgrid/testprep-backend/internal/router"
	"github.com/prepgrid/testprep-backend/internal/service"
	"github.com/prepgrid/testprep-backend/internal/session"
	"github.com/prepgrid/testprep-backend/internal/validator"
	"github.com/prepgrid/testprep-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting TestPrep Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Load Paper Catalog ────────────────────────────────────────────
	// Papers live as JSON files on disk and must all parse BEFORE the
	// server accepts traffic; the Redis payload cache is warmed here too.
	papers := paperstore.New(cfg.PaperDir, rdb, log)
	if err := papers.Load(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load paper catalog")
	}
	if err := papers.Prewarm(ctx); err != nil {
		log.Warn().Err(err).Msg("Paper payload prewarm failed")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	registry := session.NewRegistry()
	authService := service.NewAuthService(cfg, rdb)
	attemptService := service.NewAttemptService(attemptRepo, papers, registry, rdb, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, userRepo),
		Paper:     handler.NewPaperHandler(papers),
		Attempt:   handler.NewAttemptHandler(attemptService),
		Session:   handler.NewSessionHandler(attemptService),
		SessionWS: handler.NewSessionWSHandler(attemptService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	checkpointWorker := worker.NewCheckpointWorker(pool, rdb, log)
	scoringWorker := worker.NewScoringWorker(pool, rdb, log)
	proctorWorker := worker.NewProctorWorker(pool, rdb, log)

	go checkpointWorker.Start(workerCtx)
	go scoringWorker.Start(workerCtx)
	go proctorWorker.Start(workerCtx)

	// Periodic checkpoint sweep over all live sessions.
	go attemptService.RunCheckpointLoop(workerCtx, cfg.CheckpointInterval)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Push a final checkpoint for every live session so nothing is
	//    lost, then stop workers and let them drain their queues.
	registry.Range(func(id uuid.UUID, sess *session.AttemptSession) {
		attemptService.Checkpoint(context.Background(), id, sess)
	})
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
