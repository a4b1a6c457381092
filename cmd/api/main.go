package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/api"
	"github.com/saturnino-fabrica-de-software/chamada/internal/archive"
	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
	"github.com/saturnino-fabrica-de-software/chamada/internal/face"
	"github.com/saturnino-fabrica-de-software/chamada/internal/matcher"
	"github.com/saturnino-fabrica-de-software/chamada/internal/metrics"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
	"github.com/saturnino-fabrica-de-software/chamada/internal/session"
	"github.com/saturnino-fabrica-de-software/chamada/internal/storage"
	"github.com/saturnino-fabrica-de-software/chamada/internal/webhook"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Chamada API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("storage", cfg.StorageBackend),
		slog.String("face_provider", cfg.FaceProvider),
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	m, err := metrics.NewWithRuntime()
	if err != nil {
		return err
	}

	extractor, err := face.NewExtractorFromConfig(ctx, cfg, face.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("failed to create face extractor: %w", err)
	}

	match := matcher.New(matcher.WithThreshold(cfg.MatchThreshold))
	logger.Info("matcher ready", slog.Float64("match_threshold", match.Threshold()))
	sessions := session.NewRegistry(cfg.SessionTTL)

	// Live feed and outbound notifications run until ctx is cancelled
	hub := ws.NewHub()
	go hub.Run(ctx)

	obs := service.Observers{
		Logger:  logger,
		Audit:   audit.NewSlogLogger(logger),
		Metrics: m,
		Events:  hub,
	}
	if cfg.WebhookURL != "" {
		worker := webhook.NewWorker(
			webhook.NewService(webhook.Endpoint{URL: cfg.WebhookURL, Secret: cfg.WebhookSecret}),
			logger,
		)
		go worker.Run(ctx)
		obs.Webhooks = worker
		logger.Info("webhook delivery enabled", slog.String("url", cfg.WebhookURL))
	}

	enrollment := service.NewEnrollmentService(backend.Students, backend.Embeddings, extractor, match, obs).
		WithMaxImages(cfg.MaxEnrollImages).
		WithArchive(archive.New(cfg.ArchiveDir))
	attendance := service.NewAttendanceService(backend.Embeddings, backend.Attendance, extractor, match, sessions, obs)
	reports := service.NewReportService(backend.Students, backend.Attendance, sessions)

	restored, err := attendance.RebuildSessions(ctx)
	if err != nil {
		return err
	}
	enrolled, err := backend.Embeddings.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count enrolled students: %w", err)
	}
	m.SetEnrolledStudents(enrolled)
	logger.Info("state restored",
		slog.Int("enrolled_students", enrolled),
		slog.Int("active_sessions", restored),
	)

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Enrollment:      enrollment,
		Attendance:      attendance,
		Reports:         reports,
		Store:           backend,
		Hub:             hub,
		Metrics:         m,
		MaxEnrollImages: cfg.MaxEnrollImages,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}
