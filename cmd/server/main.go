package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/skilldesk/skilldesk-backend/internal/catalog"
	"github.com/skilldesk/skilldesk-backend/internal/config"
	"github.com/skilldesk/skilldesk-backend/internal/database"
	"github.com/skilldesk/skilldesk-backend/internal/handler"
	"github.com/skilldesk/skilldesk-backend/internal/logger"
	"github.com/skilldesk/skilldesk-backend/internal/report"
	"github.com/skilldesk/skilldesk-backend/internal/repository"
	"github.com/skilldesk/skilldesk-backend/internal/router"
	"github.com/skilldesk/skilldesk-backend/internal/service"
	"github.com/skilldesk/skilldesk-backend/internal/validator"
	"github.com/skilldesk/skilldesk-backend/internal/worker"
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
		Msg("Starting SkillDesk Backend")

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

	// ─── Initialize Repositories ───────────────────────────────────────
	sessionRepo := repository.NewQuizSessionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	completionRepo := repository.NewCompletionRepository(pool)
	integrityRepo := repository.NewIntegrityEventRepository(pool)

	// ─── Load Question Catalog ─────────────────────────────────────────
	// The catalog is fixed for the lifetime of the process. An empty
	// catalog means the instance cannot serve a single attempt, so it
	// refuses to start rather than fail on the first request.
	cat, err := catalog.Load(ctx, questionRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load question catalog")
	}
	log.Info().Int("questions", cat.Len()).Msg("Question catalog loaded")

	// ─── Initialize Services ──────────────────────────────────────────
	tokenService := service.NewTokenService(cfg)
	deadlineCache := service.NewRedisDeadlineCache(rdb)
	reportQueue := service.NewRedisReportQueue(rdb)

	engine := service.NewQuizSessionService(
		sessionRepo, attemptRepo, completionRepo, cat, deadlineCache, reportQueue, cfg, log,
	)

	publisher := service.NewRedisIntegrityPublisher(rdb)
	integrityService := service.NewIntegrityService(
		sessionRepo, integrityRepo, engine, publisher, cfg, log,
	)

	reportService := service.NewReportService(
		sessionRepo, attemptRepo, integrityRepo, cat, buildSinks(cfg, log), cfg, log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Quiz:    handler.NewQuizHandler(engine, integrityService, tokenService, log),
		Proctor: handler.NewProctorHandler(rdb, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Worker ──────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	reportWorker := worker.NewReportWorker(rdb, reportService, log)
	go reportWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(tokenService, handlers, cfg)

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

	// 2. Stop the report worker and let in-flight dispatches finish.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// buildSinks assembles the delivery channels that are actually configured.
// Running with zero sinks is valid: reports are still built and logged as
// dispatched, which is what local development wants.
func buildSinks(cfg *config.Config, log zerolog.Logger) []report.Sink {
	var sinks []report.Sink

	if cfg.SMTPHost != "" && cfg.ReviewerEmail != "" {
		sinks = append(sinks, report.NewEmailSink(
			cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass,
			cfg.EmailFrom, cfg.ReviewerEmail,
		))
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, report.NewWebhookSink(cfg.WebhookURL))
	}
	if cfg.DocStoreURL != "" {
		sinks = append(sinks, report.NewDocStoreSink(cfg.DocStoreURL, cfg.DocStoreKey))
	}

	if len(sinks) == 0 {
		log.Warn().Msg("No report sinks configured, reports will not leave the database")
	}
	return sinks
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
