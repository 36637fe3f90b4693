// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/canonical/sqlquery/internal/rowshape"
	"github.com/canonical/sqlquery/internal/token"
	"github.com/canonical/sqlquery/internal/typeinfo"
)

// ErrNoRows is returned by Get when the statement returned no rows.
var ErrNoRows = sql.ErrNoRows

// Statement is implemented by every statement builder. Nothing is sent to
// the database until Run is called.
type Statement interface {
	// ToSQL renders the statement to SQL text and its parameters.
	ToSQL() (string, []any, error)
	// Run executes the statement on the executor of the DB it was built
	// from.
	Run(ctx context.Context) (*Outcome, error)

	tokens() []token.Token
	resultMode() ResultMode
	rowShape() rowshape.Shape
	buildErr() error
}

// clause identifies a clause by its position in the grammar of a statement.
// Clauses must be added in increasing rank; only repeatable clauses may
// follow a clause of the same rank.
type clause struct {
	rank       int
	name       string
	repeatable bool
}

// named returns c under another name, for clauses sharing a slot.
func (c clause) named(name string) clause {
	c.name = name
	return c
}

// follow returns an error if next may not be added after c in a statement
// of kind stmt.
func (c clause) follow(stmt string, next clause) error {
	switch {
	case next.rank > c.rank, next.rank == c.rank && next.repeatable:
		return nil
	case next.rank == c.rank:
		return fmt.Errorf("cannot build %s: more than one %s clause", stmt, next.name)
	}
	return fmt.Errorf("cannot build %s: %s after %s", stmt, next.name, c.name)
}

// tokenSource adapts a token producing function to token.Source.
type tokenSource func() []token.Token

func (f tokenSource) Tokens() []token.Token {
	return f()
}

// subquery embeds s in another statement.
func subquery(s Statement) token.Subquery {
	return token.Subquery{Source: tokenSource(s.tokens)}
}

func toSQL(s Statement) (string, []any, error) {
	if err := s.buildErr(); err != nil {
		return "", nil, err
	}
	r := token.Render(s.tokens())
	return r.Text, r.Params, nil
}

// run renders s, executes it on the executor of db and checks the result
// against the expected row shape.
func run(ctx context.Context, db *DB, s Statement) (*Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.buildErr(); err != nil {
		return nil, err
	}
	if db == nil || db.executor == nil {
		return nil, fmt.Errorf("cannot run statement: no executor")
	}
	r := token.Render(s.tokens())
	mode := s.resultMode()
	db.logger.DebugContext(ctx, "running statement",
		slog.String("sql", r.Text),
		slog.Int("params", len(r.Params)),
		slog.String("mode", mode.String()),
	)
	result, err := db.executor.Execute(withResultMode(ctx, mode), r.Text, r.Params)
	if err != nil {
		db.logger.DebugContext(ctx, "statement failed", slog.String("sql", r.Text), slog.Any("error", err))
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("cannot run statement: executor returned no result")
	}
	if mode == ResultAffectedCount {
		return &Outcome{mode: mode, affectedRows: result.AffectedRowsCount}, nil
	}
	if err := s.rowShape().Validate(result.Rows); err != nil {
		return nil, fmt.Errorf("cannot run statement: %w", err)
	}
	return &Outcome{mode: mode, rows: result.Rows}, nil
}

// Outcome holds the result of running a statement.
type Outcome struct {
	mode         ResultMode
	affectedRows int64
	rows         []Row
}

// Mode returns the mode the statement was run in.
func (o *Outcome) Mode() ResultMode {
	return o.mode
}

// AffectedRows returns the number of rows affected by a statement run in
// ResultAffectedCount mode.
func (o *Outcome) AffectedRows() int64 {
	return o.affectedRows
}

// Rows returns the rows of a statement run in ResultRows mode.
func (o *Outcome) Rows() []Row {
	return o.rows
}

// Decode stores the rows into the slice pointed to by slicePtr. The slice
// elements can be structs or pointers to structs with db tags naming the
// columns, or maps with string keys.
func (o *Outcome) Decode(slicePtr any) error {
	if o.mode != ResultRows {
		return fmt.Errorf("cannot decode rows: statement does not return rows")
	}
	return typeinfo.DecodeRows(o.rows, slicePtr)
}

// DecodeOne stores the first row into the struct pointed to by structPtr. It
// returns [ErrNoRows] if there are no rows.
func (o *Outcome) DecodeOne(structPtr any) error {
	if o.mode != ResultRows {
		return fmt.Errorf("cannot decode row: statement does not return rows")
	}
	if len(o.rows) == 0 {
		return ErrNoRows
	}
	return typeinfo.DecodeRow(o.rows[0], structPtr)
}
