package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	poolMaxConns        = 10
	poolMaxConnIdleTime = 5 * time.Minute
)

// NewPostgresPool configures and returns a PostgreSQL connection pool tagged
// with the application name so connections are identifiable in pg_stat_activity.
func NewPostgresPool(ctx context.Context, url, appName string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConns == 0 || cfg.MaxConns > poolMaxConns {
		cfg.MaxConns = poolMaxConns
	}
	cfg.MaxConnIdleTime = poolMaxConnIdleTime
	if appName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = appName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}
