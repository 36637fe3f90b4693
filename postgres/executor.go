// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/canonical/sqlquery"
)

// Querier is the part of a pgx connection, pool or transaction used to run
// statements.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Executor runs statements with pgx. Rows are decoded by pgx into their
// natural Go types.
type Executor struct {
	q Querier
}

// NewExecutor returns an executor running statements on q.
func NewExecutor(q Querier) *Executor {
	return &Executor{q: q}
}

// Execute runs sql with params. Statements run in ResultRows mode are
// queried; other statements report the affected row count of their command
// tag.
func (e *Executor) Execute(ctx context.Context, sql string, params []any) (*sqlquery.Result, error) {
	mode, _ := sqlquery.ResultModeFromContext(ctx)
	if mode != sqlquery.ResultRows {
		tag, err := e.q.Exec(ctx, sql, params...)
		if err != nil {
			return nil, err
		}
		return &sqlquery.Result{AffectedRowsCount: tag.RowsAffected()}, nil
	}
	rows, err := e.q.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	result := &sqlquery.Result{Rows: make([]sqlquery.Row, len(maps))}
	for i, m := range maps {
		result.Rows[i] = m
	}
	return result, nil
}
