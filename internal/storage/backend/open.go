// Package backend opens the Store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/digigm/internal/config"
	"github.com/cory-johannsen/digigm/internal/storage"
	"github.com/cory-johannsen/digigm/internal/storage/memory"
	"github.com/cory-johannsen/digigm/internal/storage/postgres"
	"github.com/cory-johannsen/digigm/internal/storage/redis"
	"github.com/cory-johannsen/digigm/internal/storage/sqlite"
	"github.com/cory-johannsen/digigm/migrations"
)

// Open connects the configured backend. Postgres applies the embedded
// migrations before returning.
//
// Precondition: cfg has passed Validate.
// Postcondition: returns a ready Store or a non-nil error.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, error) {
	backend := cfg.Storage.Backend
	if backend == "" {
		backend = config.BackendMemory
	}
	logger = logger.With(zap.String("backend", backend))

	// Concrete stores are checked before boxing; a nil *Store in a
	// storage.Store is not nil.
	switch backend {
	case config.BackendMemory:
		logger.Debug("opening store")
		return memory.New(), nil
	case config.BackendPostgres:
		logger.Info("opening store", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))
		if err := migrations.Up(cfg.Database.DSN()); err != nil {
			return nil, err
		}
		s, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		logger.Info("opening store", zap.String("addr", cfg.Redis.Addr))
		s, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendSQLite:
		logger.Info("opening store", zap.String("path", cfg.SQLite.Path))
		s, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
