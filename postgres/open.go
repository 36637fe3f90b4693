// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/canonical/sqlquery"
)

// PoolConfig returns the pgx pool configuration for cfg.
func PoolConfig(cfg *Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("cannot parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.StatementTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	return poolCfg, nil
}

// Open connects a pool to the database described by cfg and checks that the
// database answers.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("connecting to postgres",
		slog.String("host", poolCfg.ConnConfig.Host),
		slog.String("database", poolCfg.ConnConfig.Database),
	)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("cannot open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping postgres: %w", err)
	}
	return pool, nil
}

// NewDB returns a DB running its statements on pool.
func NewDB(pool *pgxpool.Pool, opts ...sqlquery.Option) *sqlquery.DB {
	return sqlquery.NewDB(NewExecutor(pool), opts...)
}

// OpenSQL returns a database/sql handle sharing the connections of pool, for
// use with [sqlquery.NewSQLExecutor] or code written against database/sql.
func OpenSQL(pool *pgxpool.Pool) *sql.DB {
	return stdlib.OpenDBFromPool(pool)
}
