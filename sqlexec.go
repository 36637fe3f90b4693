// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLExecutor runs statements on a [sql.DB]. Each distinct SQL text is
// prepared once and the prepared statement is reused afterwards, up to the
// cache size set with [WithCacheSize].
//
// The driver must accept $1, $2, ... placeholders.
type SQLExecutor struct {
	sqldb *sql.DB
	cache *statementCache
}

// SQLExecutorOption configures an SQLExecutor.
type SQLExecutorOption func(*SQLExecutor)

// WithCacheSize sets the number of prepared statements kept by the executor.
// Sizes below one are ignored.
func WithCacheSize(n int) SQLExecutorOption {
	return func(e *SQLExecutor) {
		if n > 0 {
			e.cache.size = n
		}
	}
}

// NewSQLExecutor returns an executor running statements on sqldb.
func NewSQLExecutor(sqldb *sql.DB, opts ...SQLExecutorOption) *SQLExecutor {
	e := &SQLExecutor{sqldb: sqldb, cache: newStatementCache(defaultCacheSize)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PlainDB returns the underlying database object.
func (e *SQLExecutor) PlainDB() *sql.DB {
	return e.sqldb
}

// Execute runs sqlText. Statements run in ResultRows mode are queried and
// their rows collected; other statements are executed and the number of
// affected rows reported.
func (e *SQLExecutor) Execute(ctx context.Context, sqlText string, params []any) (*Result, error) {
	stmt, release, err := e.cache.prepare(ctx, e.sqldb, sqlText)
	if err != nil {
		return nil, err
	}
	defer release()
	mode, _ := ResultModeFromContext(ctx)
	if mode != ResultRows {
		res, err := stmt.ExecContext(ctx, params...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("cannot get affected rows: %w", err)
		}
		return &Result{AffectedRowsCount: n}, nil
	}
	rows, err := stmt.QueryContext(ctx, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	collected, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	return &Result{Rows: collected}, nil
}

// collectRows reads every row into a map keyed by column name.
func collectRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes every prepared statement. The underlying database is left
// open.
func (e *SQLExecutor) Close() error {
	return e.cache.close()
}
