// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"context"
)

// ResultMode tells an executor what a statement is expected to produce.
type ResultMode int

const (
	// ResultAffectedCount statements only report how many rows they affected.
	ResultAffectedCount ResultMode = iota
	// ResultRows statements return rows.
	ResultRows
)

func (m ResultMode) String() string {
	if m == ResultRows {
		return "rows"
	}
	return "affected-count"
}

// Row is a single result row keyed by output column name.
type Row = map[string]any

// Result is what an executor returns for a statement.
type Result struct {
	// Rows holds the returned rows for statements run in ResultRows mode.
	Rows []Row
	// AffectedRowsCount holds the number of rows affected by statements run
	// in ResultAffectedCount mode.
	AffectedRowsCount int64
}

// Executor runs rendered SQL against a database. The mode a statement is run
// in can be read from the context with [ResultModeFromContext].
//
// Execute may be called concurrently.
type Executor interface {
	Execute(ctx context.Context, sql string, params []any) (*Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, sql string, params []any) (*Result, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, sql string, params []any) (*Result, error) {
	return f(ctx, sql, params)
}

type resultModeKey struct{}

// withResultMode returns a context carrying mode.
func withResultMode(ctx context.Context, mode ResultMode) context.Context {
	return context.WithValue(ctx, resultModeKey{}, mode)
}

// ResultModeFromContext returns the result mode of the statement being
// executed with ctx.
func ResultModeFromContext(ctx context.Context) (ResultMode, bool) {
	mode, ok := ctx.Value(resultModeKey{}).(ResultMode)
	return mode, ok
}
