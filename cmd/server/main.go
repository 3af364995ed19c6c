package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/config"
	"github.com/stemsi/eduassess-backend/internal/database"
	"github.com/stemsi/eduassess-backend/internal/handler"
	"github.com/stemsi/eduassess-backend/internal/logger"
	"github.com/stemsi/eduassess-backend/internal/metrics"
	"github.com/stemsi/eduassess-backend/internal/middleware"
	"github.com/stemsi/eduassess-backend/internal/repository"
	"github.com/stemsi/eduassess-backend/internal/router"
	"github.com/stemsi/eduassess-backend/internal/service"
	"github.com/stemsi/eduassess-backend/internal/validator"
	"github.com/stemsi/eduassess-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", string(cfg.StoreDriver)).
		Bool("redis", cfg.RedisEnabled()).
		Msg("Starting EduAssess Backend")

	if cfg.TeacherAccessHash == "" && cfg.TeacherAccessPhrase == "" {
		log.Warn().Msg("No TEACHER_ACCESS_HASH or TEACHER_ACCESS_PHRASE set; educator login is disabled")
	}

	// ─── Initialize Validator & Metrics ────────────────────────────────
	validator.Setup()
	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Record Store ─────────────────────────────────────────────
	archive, err := database.NewRecordStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open record store")
	}
	defer archive.Close()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	var (
		store repository.RecordStore = archive
		rdb   *redis.Client
	)
	if cfg.RedisEnabled() {
		rdb, err = database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		store = repository.NewRedisStore(archive, rdb, log)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	teacherService := service.NewTeacherService(store, log)
	examService := service.NewExamService(store, log)
	feedService := service.NewFeedService(rdb, log)
	deliveryService := service.NewDeliveryService(store, examService, feedService, log)
	resultService := service.NewResultService(store, examService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, teacherService, log),
		Teacher:       handler.NewTeacherHandler(teacherService, log),
		Exam:          handler.NewExamHandler(examService, log),
		StudentPortal: handler.NewStudentPortalHandler(deliveryService, log),
		WS:            handler.NewWSHandler(deliveryService, log, cfg.AllowedOrigins),
		Result:        handler.NewResultHandler(resultService, log),
		Feed:          handler.NewFeedHandler(feedService, examService, resultService, log),
		System:        handler.NewSystemHandler(rdb, deliveryService, log),
	}

	limiters := router.Limiters{
		Auth:    middleware.NewRateLimiter(30, time.Minute),
		Student: middleware.NewRateLimiter(cfg.StudentRateLimit, time.Minute),
	}
	defer limiters.Auth.Close()
	defer limiters.Student.Close()

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	startWorker := func(run func(context.Context)) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			run(workerCtx)
		}()
	}

	startWorker(worker.NewReaperWorker(deliveryService, cfg.AttemptRetention, log).Start)
	if rdb != nil {
		startWorker(worker.NewSubmissionWorker(archive, rdb, log).Start)
	}

	// ─── Prewarm Exam Cache ───────────────────────────────────────────
	if _, _, err := examService.List(ctx, 1, 1); err != nil {
		log.Warn().Err(err).Msg("Exam cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, limiters, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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

	// 2. Submit every attempt still counting down so no answers are lost.
	finalizeCtx, finalizeCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer finalizeCancel()
	deliveryService.FinalizeAll(finalizeCtx)

	// 3. Stop background workers; the submission worker flushes its batch.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
