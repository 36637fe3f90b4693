// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"context"

	"github.com/canonical/sqlquery/internal/rowshape"
	"github.com/canonical/sqlquery/internal/token"
)

// DeleteQuery is a DELETE statement.
type DeleteQuery struct {
	m mutation
}

// DeleteFrom starts a DELETE statement on t. Without a condition every row
// is deleted.
func (db *DB) DeleteFrom(t *Table) *DeleteQuery {
	return &DeleteQuery{m: mutation{
		db:     db,
		kind:   "DELETE",
		table:  t,
		tokens: token.NewList(token.Literal("DELETE FROM"), token.Literal(t.reference())),
	}}
}

// Using adds a table the condition can refer to.
func (q *DeleteQuery) Using(t *Table) *DeleteQuery {
	return &DeleteQuery{m: q.m.add(clauseSource.named("USING"), nil, token.Literal("USING"), token.Literal(t.reference()))}
}

// Where restricts the rows deleted.
func (q *DeleteQuery) Where(cond Expr) *DeleteQuery {
	return &DeleteQuery{m: q.m.where(cond)}
}

// WhereCurrentOf deletes the row the cursor is positioned on.
func (q *DeleteQuery) WhereCurrentOf(cursor string) *DeleteQuery {
	return &DeleteQuery{m: q.m.whereCurrentOf(cursor)}
}

// Returning makes the statement return the named columns of the deleted
// rows.
func (q *DeleteQuery) Returning(columns ...string) *DeleteQuery {
	return &DeleteQuery{m: q.m.returning(columns)}
}

func (q *DeleteQuery) tokens() []token.Token    { return q.m.tokens.Tokens() }
func (q *DeleteQuery) resultMode() ResultMode   { return q.m.resultMode() }
func (q *DeleteQuery) rowShape() rowshape.Shape { return q.m.shape }
func (q *DeleteQuery) buildErr() error          { return q.m.err }

// ToSQL renders the statement.
func (q *DeleteQuery) ToSQL() (string, []any, error) {
	return toSQL(q)
}

// Run executes the statement.
func (q *DeleteQuery) Run(ctx context.Context) (*Outcome, error) {
	return run(ctx, q.m.db, q)
}
