package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/skillup/examflow-backend/internal/clock"
	"github.com/skillup/examflow-backend/internal/config"
	"github.com/skillup/examflow-backend/internal/database"
	"github.com/skillup/examflow-backend/internal/grading"
	"github.com/skillup/examflow-backend/internal/handler"
	"github.com/skillup/examflow-backend/internal/logger"
	"github.com/skillup/examflow-backend/internal/repository"
	"github.com/skillup/examflow-backend/internal/router"
	"github.com/skillup/examflow-backend/internal/service"
	"github.com/skillup/examflow-backend/internal/validator"
	"github.com/skillup/examflow-backend/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExamFlow Backend")

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Repositories.
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	certRepo := repository.NewCertificateRepository(pool)
	violationRepo := repository.NewViolationRepository(pool)
	registrationRepo := repository.NewRegistrationRepository(pool)

	// Services.
	clk := clock.System()
	authService := service.NewAuthService(cfg)
	eligibilityService := service.NewEligibilityService(examRepo, attemptRepo, registrationRepo, clk)
	attemptCache := service.NewRedisAttemptCache(rdb, log)
	notifier := service.NewRedisNotifier(rdb, log)
	certService := service.NewCertificateService(certRepo, notifier, clk, log)
	attemptService := service.NewAttemptService(
		attemptRepo, examRepo, questionRepo,
		eligibilityService, certService,
		grading.NewEngine(), attemptCache, clk, log,
	)
	violationSink := service.NewRedisViolationSink(rdb)
	violationService := service.NewViolationService(attemptRepo, violationRepo, attemptCache, violationSink, clk, log)

	// Handlers.
	handlers := &router.Handlers{
		Exam:      handler.NewExamHandler(attemptService, eligibilityService),
		Attempt:   handler.NewAttemptHandler(attemptService),
		Violation: handler.NewViolationHandler(violationService),
		Admin:     handler.NewAdminHandler(attemptService, violationService, eligibilityService),
		Monitor:   handler.NewMonitorHandler(rdb, log, cfg.AllowedOrigins),
	}

	// Background workers.
	workerCtx, workerCancel := context.WithCancel(context.Background())

	violationWorker := worker.NewViolationWorker(violationRepo, rdb, log)
	expiryWorker := worker.NewExpiryWorker(
		attemptService, attemptRepo,
		cfg.ExpirySweepInterval, cfg.ExpirySweepBatch,
		clk, log,
	)

	go violationWorker.Start(workerCtx)
	go expiryWorker.Start(workerCtx)

	r := router.SetupRouter(authService, handlers, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

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

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
