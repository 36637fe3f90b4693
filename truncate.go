// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"context"
	"fmt"

	"github.com/canonical/sqlquery/internal/naming"
	"github.com/canonical/sqlquery/internal/rowshape"
	"github.com/canonical/sqlquery/internal/token"
)

// TruncateQuery is a TRUNCATE statement.
type TruncateQuery struct {
	m mutation
}

// Truncate starts a TRUNCATE statement emptying the given tables.
func (db *DB) Truncate(tables ...*Table) *TruncateQuery {
	names := make([]token.Token, len(tables))
	for i, t := range tables {
		names[i] = token.Literal(naming.Quote(t.name))
	}
	m := mutation{db: db, kind: "TRUNCATE", tokens: token.NewList(token.Literal("TRUNCATE"), token.Join(names...))}
	if len(tables) == 0 {
		m.err = fmt.Errorf("cannot build TRUNCATE: no tables")
	}
	return &TruncateQuery{m: m}
}

// RestartIdentity resets the sequences owned by the truncated tables.
func (q *TruncateQuery) RestartIdentity() *TruncateQuery {
	return &TruncateQuery{m: q.m.add(clauseIdentity, nil, token.Literal("RESTART IDENTITY"))}
}

// ContinueIdentity leaves the sequences unchanged.
func (q *TruncateQuery) ContinueIdentity() *TruncateQuery {
	return &TruncateQuery{m: q.m.add(clauseIdentity, nil, token.Literal("CONTINUE IDENTITY"))}
}

// Cascade also truncates tables referencing the truncated ones.
func (q *TruncateQuery) Cascade() *TruncateQuery {
	return &TruncateQuery{m: q.m.add(clauseCascade, nil, token.Literal("CASCADE"))}
}

// Restrict refuses to truncate tables referenced by other tables.
func (q *TruncateQuery) Restrict() *TruncateQuery {
	return &TruncateQuery{m: q.m.add(clauseCascade.named("RESTRICT"), nil, token.Literal("RESTRICT"))}
}

func (q *TruncateQuery) tokens() []token.Token    { return q.m.tokens.Tokens() }
func (q *TruncateQuery) resultMode() ResultMode   { return ResultAffectedCount }
func (q *TruncateQuery) rowShape() rowshape.Shape { return nil }
func (q *TruncateQuery) buildErr() error          { return q.m.err }

// ToSQL renders the statement.
func (q *TruncateQuery) ToSQL() (string, []any, error) {
	return toSQL(q)
}

// Run executes the statement.
func (q *TruncateQuery) Run(ctx context.Context) (*Outcome, error) {
	return run(ctx, q.m.db, q)
}
