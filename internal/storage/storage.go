// Package storage opens the persistence backend selected by STORAGE_BACKEND.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
	"github.com/saturnino-fabrica-de-software/chamada/internal/database"
	"github.com/saturnino-fabrica-de-software/chamada/internal/flatfile"
	"github.com/saturnino-fabrica-de-software/chamada/internal/repository"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
)

// Backend groups the three tables behind the service interfaces.
type Backend struct {
	Name       string
	Students   service.StudentRepository
	Embeddings service.EmbeddingStore
	Attendance service.AttendanceLog

	ping  func(ctx context.Context) error
	close func()
}

// Ping reports whether the backend is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// Close releases connections. Safe to call more than once.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
		b.close = nil
	}
}

// Open returns the csv store under cfg.DataDir or a migrated Postgres pool.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.StorageBackend {
	case config.StorageCSV, "":
		return OpenCSV(cfg.DataDir)
	case config.StoragePostgres:
		return openPostgres(ctx, cfg.DatabaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

// OpenCSV opens the flat-file tables in dir.
func OpenCSV(dir string) (*Backend, error) {
	db, err := flatfile.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open csv store: %w", err)
	}
	return &Backend{
		Name:       config.StorageCSV,
		Students:   db.Students,
		Embeddings: db.Embeddings,
		Attendance: db.Attendance,
		ping:       db.Ping,
	}, nil
}

func openPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Backend, error) {
	migrator, err := database.OpenMigrator(dsn)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if version, _, err := migrator.Version(); err == nil {
		logger.Info("database migrated", slog.Uint64("version", uint64(version)))
	}
	_ = migrator.Close()

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(dsn))
	if err != nil {
		return nil, err
	}

	return &Backend{
		Name:       config.StoragePostgres,
		Students:   repository.NewStudentRepository(pool),
		Embeddings: repository.NewEmbeddingRepository(pool),
		Attendance: repository.NewAttendanceRepository(pool),
		ping: func(ctx context.Context) error {
			return database.HealthCheck(ctx, pool)
		},
		close: pool.Close,
	}, nil
}
