package persistence

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gabrielgalarza/orgmapper/internal/config"
)

// Open builds the KVStore selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (KVStore, error) {
	logger = logger.With(zap.String("backend", cfg.Storage.Backend))

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; organizations are lost on restart")
		return NewMemoryStore(), nil
	case config.StorageFile:
		store, err := NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return nil, err
		}
		logger.Info("using file storage", zap.String("dir", cfg.Storage.Dir))
		return store, nil
	case config.StorageRedis:
		return NewRedis(cfg.Redis, logger), nil
	case config.StoragePostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if pg.PoolHandle() == nil {
			return nil, errors.New("postgres storage requires POSTGRES_DSN")
		}
		if cfg.Postgres.RunMigrations {
			if err := MigrateKVStore(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
