// Package database opens and monitors the PostgreSQL connection pools.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaeljc/recommender/internal/config"
	"github.com/rafaeljc/recommender/internal/logger"
)

// NewPostgresPool builds a connection pool from the configuration and
// waits until the database answers a ping, retrying with exponential backoff.
// The caller owns the pool and must Close it.
func NewPostgresPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config cannot be nil")
	}

	// 1. Parse the connection string
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// 2. Pool tuning
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	poolCfg.ConnConfig.ConnectTimeout = connectTimeout

	// 3. The pool connects lazily; it never fails here on network errors
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// 4. Ping until the database is reachable
	if err := pingWithRetry(ctx, pool, cfg.PingMaxRetries, cfg.PingBackoff, connectTimeout); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func pingWithRetry(ctx context.Context, pool *pgxpool.Pool, maxRetries int, backoff, timeout time.Duration) error {
	log := logger.FromContext(ctx)
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = pool.Ping(pingCtx)
		cancel()

		if lastErr == nil {
			log.Info("postgres connected", slog.Int("attempt", attempt))
			return nil
		}

		log.Warn("postgres ping failed",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", maxRetries),
			slog.Any("error", lastErr),
		)
		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres connection aborted: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return fmt.Errorf("failed to connect to postgres after %d attempts: %w", maxRetries, lastErr)
}

// PostgresChecker reports database reachability to the readiness probe.
type PostgresChecker struct {
	name string
	pool *pgxpool.Pool
}

// NewPostgresChecker creates a checker reported under the given name.
func NewPostgresChecker(name string, pool *pgxpool.Pool) *PostgresChecker {
	return &PostgresChecker{name: name, pool: pool}
}

func (h *PostgresChecker) Name() string { return h.name }

func (h *PostgresChecker) Check(ctx context.Context) error {
	if h.pool == nil {
		return fmt.Errorf("%s pool is nil", h.name)
	}
	return h.pool.Ping(ctx)
}
