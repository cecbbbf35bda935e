package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// kvStoreSchema is applied when no migrations directory ships with the
// binary, so the postgres backend still finds its table.
const kvStoreSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// MigrateKVStore prepares the kv_store table that backs organization
// documents, the catalog and the current pointer. Scripts in dir run in
// file name order, each in its own transaction.
func MigrateKVStore(ctx context.Context, pool *pgxpool.Pool, dir string, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("postgres pool unavailable, kv_store schema not checked")
		return nil
	}

	scripts, err := migrationScripts(dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("migrations directory missing, applying built-in kv_store schema", zap.String("dir", dir))
		if _, err := pool.Exec(ctx, kvStoreSchema); err != nil {
			return fmt.Errorf("create kv_store: %w", err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	for _, name := range scripts {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, string(content))
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		logger.Debug("kv_store migration applied", zap.String("file", name))
	}

	logger.Info("kv_store schema ready", zap.Int("scripts", len(scripts)))
	return nil
}

func migrationScripts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
