// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"fmt"

	"github.com/canonical/sqlquery/internal/naming"
	"github.com/canonical/sqlquery/internal/rowshape"
	"github.com/canonical/sqlquery/internal/token"
)

// Values maps declared column names to the values to store in them. Values
// can be plain Go values, bound as parameters, or expressions.
type Values map[string]any

// mutation is the state shared by INSERT, UPDATE, DELETE and TRUNCATE.
type mutation struct {
	db *DB
	// kind names the statement in build errors.
	kind   string
	table  *Table
	tokens *token.List
	last   clause
	shape  rowshape.Shape
	err    error
}

// Each kind of statement only offers the clauses it supports, so one
// ordering serves them all.
var (
	clauseSource      = clause{rank: 1, name: "FROM"}
	clauseOnConflict  = clause{rank: 2, name: "ON CONFLICT"}
	clauseDoNothing   = clause{rank: 3, name: "DO NOTHING"}
	clauseDoUpdate    = clause{rank: 3, name: "DO UPDATE SET"}
	clauseMutateWhere = clause{rank: 4, name: "WHERE"}
	clauseReturning   = clause{rank: 5, name: "RETURNING"}
	clauseIdentity    = clause{rank: 6, name: "IDENTITY"}
	clauseCascade     = clause{rank: 7, name: "CASCADE"}
)

func (m mutation) with(err error, tokens ...token.Token) mutation {
	m.tokens = m.tokens.Append(tokens...)
	m.err = firstErr(m.err, err)
	return m
}

// add appends clause c. Clauses added out of grammar order are a build
// error.
func (m mutation) add(c clause, err error, tokens ...token.Token) mutation {
	m = m.with(firstErr(err, m.last.follow(m.kind, c)), tokens...)
	m.last = c
	return m
}

func (m mutation) resultMode() ResultMode {
	if m.shape != nil {
		return ResultRows
	}
	return ResultAffectedCount
}

// returning adds a RETURNING clause for the named columns of the table. The
// rows are keyed by declared column name.
func (m mutation) returning(names []string) mutation {
	if len(names) == 0 {
		return m.add(clauseReturning, fmt.Errorf("cannot build RETURNING: no columns"))
	}
	items := make([]token.Token, len(names))
	shape := make(rowshape.Shape, len(names))
	var err error
	for i, name := range names {
		def, lookupErr := m.table.lookup(name)
		if lookupErr != nil {
			err = firstErr(err, fmt.Errorf("cannot build RETURNING: %w", lookupErr))
			continue
		}
		wire := naming.SnakeCase(def.name)
		text := naming.Quote(wire)
		if wire != def.name {
			text += " " + naming.QuoteAlias(def.name)
		}
		items[i] = token.Literal(text)
		shape[i] = rowshape.Column{Name: def.name, Type: def.dataType, Nullable: !def.notNull}
	}
	m = m.add(clauseReturning, err, token.Literal("RETURNING"), token.Join(items...))
	m.shape = shape
	return m
}

// where adds a WHERE clause.
func (m mutation) where(cond Expr) mutation {
	ex := cond.expression()
	return m.add(clauseMutateWhere, ex.err, concat(nil, token.Literal("WHERE"), ex.tokens)...)
}

// whereCurrentOf restricts the statement to the current row of cursor.
func (m mutation) whereCurrentOf(cursor string) mutation {
	return m.add(clauseMutateWhere, nil, token.Literal("WHERE CURRENT OF"), token.Literal(naming.Quote(cursor)))
}

// assignments renders values as "column" = value pairs in declaration order.
// Targets are always quoted.
func assignments(t *Table, values Values) (token.Token, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no values")
	}
	defs, err := t.orderedKeys(values)
	if err != nil {
		return nil, err
	}
	items := make([]token.Token, len(defs))
	for i, def := range defs {
		value, valueErr := operand(values[def.name])
		err = firstErr(err, valueErr)
		target := token.Literal(`"` + naming.SnakeCase(def.name) + `"`)
		items[i] = token.Collection(concat([]token.Token{target}, token.Literal("="), value))
	}
	return token.Join(items...), err
}
