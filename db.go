// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"log/slog"
)

// DB builds statements that run on its executor. A DB holds no connection
// state of its own and can be used from several goroutines.
type DB struct {
	executor Executor
	logger   *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger statements are logged to at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// NewDB returns a DB running statements on executor.
func NewDB(executor Executor, opts ...Option) *DB {
	db := &DB{
		executor: executor,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Executor returns the executor statements are run on.
func (db *DB) Executor() Executor {
	return db.executor
}
