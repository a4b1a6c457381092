package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
	"github.com/saturnino-fabrica-de-software/chamada/internal/storage"
)

// env is what every subcommand opens before doing its work.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend *storage.Backend
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// CLI output goes to stdout; keep the log quiet unless something fails
	logger := config.NewLogger("production")

	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, backend: backend}, nil
}

func (e *env) Close() {
	e.backend.Close()
}
