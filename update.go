// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"context"
	"fmt"

	"github.com/canonical/sqlquery/internal/rowshape"
	"github.com/canonical/sqlquery/internal/token"
)

// UpdateStart is an UPDATE statement waiting for its assignments.
type UpdateStart struct {
	m mutation
}

// Update starts an UPDATE statement on t.
func (db *DB) Update(t *Table) *UpdateStart {
	return &UpdateStart{m: mutation{
		db:     db,
		kind:   "UPDATE",
		table:  t,
		tokens: token.NewList(token.Literal("UPDATE"), token.Literal(t.reference())),
	}}
}

// Set assigns values to columns. Columns are set in the order they were
// declared in the table.
func (s *UpdateStart) Set(values Values) *UpdateQuery {
	set, err := assignments(s.m.table, values)
	if err != nil {
		err = fmt.Errorf("cannot build UPDATE: %w", err)
	}
	return &UpdateQuery{m: s.m.with(err, token.Literal("SET"), set)}
}

// UpdateQuery is an UPDATE statement with its assignments.
type UpdateQuery struct {
	m mutation
}

// From adds a table the assignments and condition can refer to.
func (q *UpdateQuery) From(t *Table) *UpdateQuery {
	return &UpdateQuery{m: q.m.add(clauseSource, nil, token.Literal("FROM"), token.Literal(t.reference()))}
}

// Where restricts the rows updated.
func (q *UpdateQuery) Where(cond Expr) *UpdateQuery {
	return &UpdateQuery{m: q.m.where(cond)}
}

// WhereCurrentOf updates the row the cursor is positioned on.
func (q *UpdateQuery) WhereCurrentOf(cursor string) *UpdateQuery {
	return &UpdateQuery{m: q.m.whereCurrentOf(cursor)}
}

// Returning makes the statement return the named columns of the updated
// rows.
func (q *UpdateQuery) Returning(columns ...string) *UpdateQuery {
	return &UpdateQuery{m: q.m.returning(columns)}
}

func (q *UpdateQuery) tokens() []token.Token    { return q.m.tokens.Tokens() }
func (q *UpdateQuery) resultMode() ResultMode   { return q.m.resultMode() }
func (q *UpdateQuery) rowShape() rowshape.Shape { return q.m.shape }
func (q *UpdateQuery) buildErr() error          { return q.m.err }

// ToSQL renders the statement.
func (q *UpdateQuery) ToSQL() (string, []any, error) {
	return toSQL(q)
}

// Run executes the statement.
func (q *UpdateQuery) Run(ctx context.Context) (*Outcome, error) {
	return run(ctx, q.m.db, q)
}
