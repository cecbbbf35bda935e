package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gabrielgalarza/orgmapper/internal/config"
)

var errPostgresNotConfigured = errors.New("postgres pool not configured")

// Postgres wraps access to a pgx connection pool and stores key/value
// pairs in the kv_store table.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres establishes a connection pool when DSN is provided.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; skipping database connection")
		return &Postgres{Pool: nil}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres")
	return &Postgres{Pool: pool}, nil
}

// Close releases pool resources.
func (p *Postgres) Close() error {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
	return nil
}

// PoolHandle returns the underlying pgx pool.
func (p *Postgres) PoolHandle() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	return p.Pool
}

// Ping verifies database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	if p.PoolHandle() == nil {
		return errPostgresNotConfigured
	}
	return p.Pool.Ping(ctx)
}

// Get implements KVStore.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	if p.PoolHandle() == nil {
		return nil, errPostgresNotConfigured
	}
	const query = `SELECT value FROM kv_store WHERE key=$1`
	var value []byte
	if err := p.Pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return value, nil
}

// Set implements KVStore as an upsert.
func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	if p.PoolHandle() == nil {
		return errPostgresNotConfigured
	}
	const query = `
        INSERT INTO kv_store (key, value, updated_at)
        VALUES ($1,$2,NOW())
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`
	_, err := p.Pool.Exec(ctx, query, key, value)
	return err
}

// Delete implements KVStore.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if p.PoolHandle() == nil {
		return errPostgresNotConfigured
	}
	const query = `DELETE FROM kv_store WHERE key=$1`
	_, err := p.Pool.Exec(ctx, query, key)
	return err
}
