package database

import (
	"context"
	"fmt"
	"time"

	"shopfront/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Pinger is the part of a pool used for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPool creates a PostgreSQL connection pool, retrying the initial ping
// while the database is still starting up.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_connections", cfg.MaxConnections).
		Int("min_connections", cfg.MinConnections).
		Msg("creating database connection pool")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := waitForDatabase(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().Msg("database connection pool created successfully")

	return pool, nil
}

func waitForDatabase(ctx context.Context, db Pinger, logger zerolog.Logger) error {
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = db.Ping(ctx); err == nil {
			return nil
		}

		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", connectAttempts).
			Msg("database not ready")

		if attempt == connectAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to ping database: %w", ctx.Err())
		case <-time.After(connectBackoff):
		}
	}

	return fmt.Errorf("failed to ping database after %d attempts: %w", connectAttempts, err)
}

// Check pings db with a short timeout. It backs the /health endpoint.
func Check(ctx context.Context, db Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}
