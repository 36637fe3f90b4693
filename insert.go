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

// InsertStart is an INSERT statement waiting for its rows.
type InsertStart struct {
	m       mutation
	columns []string
}

// InsertInto starts an INSERT statement. The columns, if given, fix the
// column list; otherwise it is made of every column given a value in any row.
func (db *DB) InsertInto(t *Table, columns ...string) *InsertStart {
	target := naming.Quote(t.name)
	if t.alias != "" && t.alias != t.name {
		target += " AS " + naming.Quote(t.alias)
	}
	m := mutation{db: db, kind: "INSERT", table: t, tokens: token.NewList(token.Literal("INSERT INTO"), token.Literal(target))}
	for _, name := range columns {
		if _, err := t.lookup(name); err != nil {
			m.err = firstErr(m.err, fmt.Errorf("cannot build INSERT: %w", err))
		}
	}
	return &InsertStart{m: m, columns: columns}
}

// columnList renders the given declared names as a parenthesized column list.
func columnList(names []string) token.Token {
	items := make([]token.Token, len(names))
	for i, name := range names {
		items[i] = token.Literal(naming.Quote(naming.SnakeCase(name)))
	}
	return token.Group{Items: []token.Token{token.Join(items...)}}
}

// Values inserts the given rows. Columns missing from a row are set to their
// default.
func (s *InsertStart) Values(rows ...Values) *InsertQuery {
	if len(rows) == 0 {
		return &InsertQuery{m: s.m.with(fmt.Errorf("cannot build INSERT: no rows"))}
	}
	names := s.columns
	var err error
	if len(names) == 0 {
		all := Values{}
		for _, row := range rows {
			for k := range row {
				all[k] = nil
			}
		}
		defs, keyErr := s.m.table.orderedKeys(all)
		err = keyErr
		for _, def := range defs {
			names = append(names, def.name)
		}
	}
	if err == nil && len(names) == 0 {
		err = fmt.Errorf("no values")
	}
	tuples := make([]token.Token, len(rows))
	for i, row := range rows {
		items := make([]token.Token, len(names))
		for j, name := range names {
			value, ok := row[name]
			if !ok {
				items[j] = token.Literal("DEFAULT")
				continue
			}
			tokens, valueErr := operand(value)
			err = firstErr(err, valueErr)
			items[j] = token.Collection(tokens)
		}
		for k := range row {
			if _, lookupErr := s.m.table.lookup(k); lookupErr != nil {
				err = firstErr(err, lookupErr)
			} else if !contains(names, k) {
				err = firstErr(err, fmt.Errorf("column %q not in column list", k))
			}
		}
		tuples[i] = token.Group{Items: []token.Token{token.Join(items...)}}
	}
	if err != nil {
		err = fmt.Errorf("cannot build INSERT: %w", err)
	}
	return &InsertQuery{m: s.m.with(err, columnList(names), token.Literal("VALUES"), token.Join(tuples...))}
}

// DefaultValues inserts a single row made of column defaults.
func (s *InsertStart) DefaultValues() *InsertQuery {
	return &InsertQuery{m: s.m.with(nil, token.Literal("DEFAULT VALUES"))}
}

// Query inserts the rows returned by q. The column list given to InsertInto
// is required.
func (s *InsertStart) Query(q *SelectQuery) *InsertQuery {
	var err error
	if len(s.columns) == 0 {
		err = fmt.Errorf("cannot build INSERT: column list required with a query")
	}
	err = firstErr(err, q.buildErr())
	return &InsertQuery{m: s.m.with(err, append([]token.Token{columnList(s.columns)}, q.tokens()...)...)}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// InsertQuery is an INSERT statement with its rows.
type InsertQuery struct {
	m mutation
}

// ConflictStep is an INSERT statement waiting for the action to take on
// conflict.
type ConflictStep struct {
	m mutation
}

// OnConflict handles rows conflicting on the given columns. Without columns
// any conflict is handled.
func (q *InsertQuery) OnConflict(columns ...string) *ConflictStep {
	if len(columns) == 0 {
		return &ConflictStep{m: q.m.add(clauseOnConflict, nil, token.Literal("ON CONFLICT"))}
	}
	var err error
	for _, name := range columns {
		if _, lookupErr := q.m.table.lookup(name); lookupErr != nil {
			err = firstErr(err, fmt.Errorf("cannot build ON CONFLICT: %w", lookupErr))
		}
	}
	return &ConflictStep{m: q.m.add(clauseOnConflict, err, token.Literal("ON CONFLICT"), columnList(columns))}
}

// OnConstraint handles rows conflicting on the named constraint.
func (q *InsertQuery) OnConstraint(name string) *ConflictStep {
	return &ConflictStep{m: q.m.add(clauseOnConflict, nil, token.Literal("ON CONFLICT ON CONSTRAINT"), token.Literal(naming.Quote(name)))}
}

// DoNothing skips conflicting rows.
func (c *ConflictStep) DoNothing() *InsertQuery {
	return &InsertQuery{m: c.m.add(clauseDoNothing, nil, token.Literal("DO NOTHING"))}
}

// DoUpdateSet updates the existing row instead. Use [Excluded] to refer to
// the row proposed for insertion.
func (c *ConflictStep) DoUpdateSet(values Values) *InsertQuery {
	set, err := assignments(c.m.table, values)
	if err != nil {
		err = fmt.Errorf("cannot build DO UPDATE SET: %w", err)
	}
	return &InsertQuery{m: c.m.add(clauseDoUpdate, err, token.Literal("DO UPDATE SET"), set)}
}

// Excluded refers to a column of the row proposed for insertion in
// DoUpdateSet.
func Excluded(t *Table, name string) Expression {
	def, err := t.lookup(name)
	e := newExpression(name, def.dataType, token.Literal("EXCLUDED."+naming.Quote(naming.SnakeCase(name))))
	e.err = err
	return e
}

// Where restricts the rows updated by DoUpdateSet. It must directly follow
// DoUpdateSet.
func (q *InsertQuery) Where(cond Expr) *InsertQuery {
	m := q.m.where(cond)
	if q.m.last != clauseDoUpdate {
		m.err = firstErr(q.m.err, fmt.Errorf("cannot build INSERT: WHERE requires DO UPDATE SET"))
	}
	return &InsertQuery{m: m}
}

// Returning makes the statement return the named columns of the inserted
// rows.
func (q *InsertQuery) Returning(columns ...string) *InsertQuery {
	return &InsertQuery{m: q.m.returning(columns)}
}

func (q *InsertQuery) tokens() []token.Token    { return q.m.tokens.Tokens() }
func (q *InsertQuery) resultMode() ResultMode   { return q.m.resultMode() }
func (q *InsertQuery) rowShape() rowshape.Shape { return q.m.shape }
func (q *InsertQuery) buildErr() error          { return q.m.err }

// ToSQL renders the statement.
func (q *InsertQuery) ToSQL() (string, []any, error) {
	return toSQL(q)
}

// Run executes the statement.
func (q *InsertQuery) Run(ctx context.Context) (*Outcome, error) {
	return run(ctx, q.m.db, q)
}
