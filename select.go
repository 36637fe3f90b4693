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

// Selectable is an item of a SELECT projection: an expression, a column,
// a star or a subquery.
type Selectable interface {
	projection(from []sourceTable) []token.Token
	outputShape(from []sourceTable) rowshape.Shape
}

// sourceTable is a table of the FROM clause or of a join.
type sourceTable struct {
	table *Table
	join  JoinType
}

// Star selects every column of the given tables. Without tables it selects
// every column of the tables in the FROM clause and the joins.
func Star(tables ...*Table) Selectable {
	return star{tables: tables}
}

type star struct {
	tables []*Table
}

func (s star) columns(from []sourceTable) []Column {
	tables := s.tables
	if len(tables) == 0 {
		for _, src := range from {
			tables = append(tables, src.table)
		}
	}
	var cols []Column
	for _, t := range tables {
		cols = append(cols, t.Columns()...)
	}
	return cols
}

func (s star) projection(from []sourceTable) []token.Token {
	var items []token.Token
	for _, c := range s.columns(from) {
		items = append(items, token.Collection(c.projection(from)))
	}
	return []token.Token{token.Join(items...)}
}

func (s star) outputShape(from []sourceTable) rowshape.Shape {
	var shape rowshape.Shape
	for _, c := range s.columns(from) {
		shape = append(shape, c.outputShape(from)...)
	}
	return shape
}

// SelectQuery is a SELECT statement. Every method returns a new statement;
// the receiver is never changed, so a partially built statement can be used
// as the base of several others.
type SelectQuery struct {
	db *DB
	// compound holds the statements and set operators preceding this one.
	compound []token.Token
	// first is the leftmost statement of a set operation. It decides the
	// shape of the rows.
	first *SelectQuery
	items []Selectable
	from  []sourceTable
	// tail holds everything after the projection.
	tail *token.List
	// last is the clause most recently added to tail.
	last  clause
	limit bool
	err   error
}

var (
	clauseFrom    = clause{rank: 1, name: "FROM"}
	clauseJoin    = clause{rank: 2, name: "JOIN", repeatable: true}
	clauseWhere   = clause{rank: 3, name: "WHERE"}
	clauseGroupBy = clause{rank: 4, name: "GROUP BY"}
	clauseHaving  = clause{rank: 5, name: "HAVING"}
	clauseOrderBy = clause{rank: 6, name: "ORDER BY"}
	clauseLimit   = clause{rank: 7, name: "LIMIT"}
	clauseOffset  = clause{rank: 8, name: "OFFSET"}
	clauseFetch   = clause{rank: 9, name: "FETCH"}
	clauseLock    = clause{rank: 10, name: "FOR"}
)

// Select starts a SELECT statement with the given projection.
func (db *DB) Select(items ...Selectable) *SelectQuery {
	q := &SelectQuery{db: db, items: items}
	if len(items) == 0 {
		q.err = fmt.Errorf("cannot build SELECT: empty projection")
	}
	for _, item := range items {
		if x, ok := item.(interface{ buildErr() error }); ok {
			q.err = firstErr(q.err, x.buildErr())
		}
	}
	return q
}

func (q *SelectQuery) with(err error, tokens ...token.Token) *SelectQuery {
	n := *q
	n.tail = q.tail.Append(tokens...)
	n.err = firstErr(q.err, err)
	return &n
}

// add appends clause c. Clauses added out of grammar order are a build
// error.
func (q *SelectQuery) add(c clause, err error, tokens ...token.Token) *SelectQuery {
	n := q.with(firstErr(err, q.last.follow("SELECT", c)), tokens...)
	n.last = c
	return n
}

func (q *SelectQuery) withTable(c clause, t *Table, join JoinType, tokens ...token.Token) *SelectQuery {
	var err error
	if c == clauseJoin && q.last.rank < clauseFrom.rank {
		err = fmt.Errorf("cannot build SELECT: JOIN without FROM")
	}
	n := q.add(c, err, tokens...)
	from := make([]sourceTable, 0, len(q.from)+1)
	for _, src := range q.from {
		switch {
		case join == JoinFull:
			src.join = JoinFull
		case join == JoinLeftSideOfRight && src.join != JoinFull:
			src.join = JoinLeftSideOfRight
		}
		from = append(from, src)
	}
	if join == JoinLeftSideOfRight {
		join = JoinInner
	}
	n.from = append(from, sourceTable{table: t, join: join})
	return n
}

// From sets the table to select from.
func (q *SelectQuery) From(t *Table) *SelectQuery {
	return q.withTable(clauseFrom, t, JoinNone, token.Literal("FROM"), token.Literal(t.reference()))
}

// JoinQuery is a SELECT statement waiting for the condition of its last
// join.
type JoinQuery struct {
	q *SelectQuery
}

// On sets the join condition.
func (j *JoinQuery) On(cond Expr) *SelectQuery {
	ex := cond.expression()
	return j.q.with(ex.err, token.Literal("ON"), token.Group{Items: ex.tokens})
}

// Using joins on columns with the same name in both tables.
func (j *JoinQuery) Using(columns ...Column) *SelectQuery {
	names := make([]token.Token, len(columns))
	for i, c := range columns {
		names[i] = token.Literal(naming.Quote(c.wire))
	}
	var err error
	if len(columns) == 0 {
		err = fmt.Errorf("cannot build USING: no columns")
	}
	return j.q.with(err, token.Literal("USING"), token.Group{Items: []token.Token{token.Join(names...)}})
}

func (q *SelectQuery) join(keyword string, t *Table, join JoinType) *JoinQuery {
	return &JoinQuery{q: q.withTable(clauseJoin, t, join, token.Literal(keyword), token.Literal(t.reference()))}
}

// InnerJoin joins t. Rows without a match are dropped.
func (q *SelectQuery) InnerJoin(t *Table) *JoinQuery {
	return q.join("INNER JOIN", t, JoinInner)
}

// Join is the same as InnerJoin.
func (q *SelectQuery) Join(t *Table) *JoinQuery {
	return q.join("JOIN", t, JoinInner)
}

// LeftJoin joins t. Columns of t are NULL for rows without a match.
func (q *SelectQuery) LeftJoin(t *Table) *JoinQuery {
	return q.join("LEFT JOIN", t, JoinLeft)
}

// LeftOuterJoin is the same as LeftJoin.
func (q *SelectQuery) LeftOuterJoin(t *Table) *JoinQuery {
	return q.join("LEFT OUTER JOIN", t, JoinLeft)
}

// RightJoin joins t. Columns of the tables already in the statement are NULL
// for rows of t without a match.
func (q *SelectQuery) RightJoin(t *Table) *JoinQuery {
	return q.join("RIGHT JOIN", t, JoinLeftSideOfRight)
}

// RightOuterJoin is the same as RightJoin.
func (q *SelectQuery) RightOuterJoin(t *Table) *JoinQuery {
	return q.join("RIGHT OUTER JOIN", t, JoinLeftSideOfRight)
}

// FullJoin joins t. Columns of every table can be NULL.
func (q *SelectQuery) FullJoin(t *Table) *JoinQuery {
	return q.join("FULL JOIN", t, JoinFull)
}

// FullOuterJoin is the same as FullJoin.
func (q *SelectQuery) FullOuterJoin(t *Table) *JoinQuery {
	return q.join("FULL OUTER JOIN", t, JoinFull)
}

// CrossJoin joins every row of t to every row of the statement.
func (q *SelectQuery) CrossJoin(t *Table) *SelectQuery {
	return q.withTable(clauseJoin, t, JoinInner, token.Literal("CROSS JOIN"), token.Literal(t.reference()))
}

// Where filters the rows.
func (q *SelectQuery) Where(cond Expr) *SelectQuery {
	ex := cond.expression()
	return q.add(clauseWhere, ex.err, concat(nil, token.Literal("WHERE"), ex.tokens)...)
}

// GroupBy groups the rows.
func (q *SelectQuery) GroupBy(items ...Expr) *SelectQuery {
	var err error
	parts := make([]token.Token, len(items))
	for i, item := range items {
		ex := item.expression()
		err = firstErr(err, ex.err)
		parts[i] = token.Collection(ex.tokens)
	}
	if len(items) == 0 {
		err = firstErr(err, fmt.Errorf("cannot build GROUP BY: no expressions"))
	}
	return q.add(clauseGroupBy, err, token.Literal("GROUP BY"), token.Join(parts...))
}

// Having filters the groups.
func (q *SelectQuery) Having(cond Expr) *SelectQuery {
	ex := cond.expression()
	return q.add(clauseHaving, ex.err, concat(nil, token.Literal("HAVING"), ex.tokens)...)
}

// OrderBy orders the rows. Aliased expressions are referred to by their
// alias.
func (q *SelectQuery) OrderBy(items ...Expr) *SelectQuery {
	order, err := orderTokens(items)
	return q.add(clauseOrderBy, err, concat(nil, token.Literal("ORDER BY"), order)...)
}

// Limit bounds the number of rows returned.
func (q *SelectQuery) Limit(n int) *SelectQuery {
	l := q.add(clauseLimit, nil, token.Literal("LIMIT"), token.Parameter{Value: n})
	l.limit = true
	return l
}

// Offset skips the first n rows.
func (q *SelectQuery) Offset(n int) *SelectQuery {
	return q.add(clauseOffset, nil, token.Literal("OFFSET"), token.Parameter{Value: n})
}

// Fetch bounds the number of rows returned using FETCH FIRST. It cannot be
// combined with Limit.
func (q *SelectQuery) Fetch(n int) *SelectQuery {
	var err error
	if q.limit {
		err = fmt.Errorf("cannot build SELECT: FETCH with LIMIT")
	}
	return q.add(clauseFetch, err, token.Literal("FETCH FIRST"), token.Parameter{Value: n}, token.Literal("ROWS ONLY"))
}

// LockQuery is a SELECT statement with a locking clause.
type LockQuery struct {
	*SelectQuery
}

func (q *SelectQuery) lock(strength string) *LockQuery {
	return &LockQuery{SelectQuery: q.add(clauseLock, nil, token.Literal(strength))}
}

// ForUpdate locks the selected rows for update.
func (q *SelectQuery) ForUpdate() *LockQuery { return q.lock("FOR UPDATE") }

// ForNoKeyUpdate locks the selected rows with FOR NO KEY UPDATE.
func (q *SelectQuery) ForNoKeyUpdate() *LockQuery { return q.lock("FOR NO KEY UPDATE") }

// ForShare locks the selected rows with a shared lock.
func (q *SelectQuery) ForShare() *LockQuery { return q.lock("FOR SHARE") }

// ForKeyShare locks the selected rows with FOR KEY SHARE.
func (q *SelectQuery) ForKeyShare() *LockQuery { return q.lock("FOR KEY SHARE") }

// Of restricts the lock to the rows of the given tables.
func (l *LockQuery) Of(tables ...*Table) *LockQuery {
	names := make([]token.Token, len(tables))
	for i, t := range tables {
		names[i] = token.Literal(naming.Quote(t.Name()))
	}
	var err error
	if len(tables) == 0 {
		err = fmt.Errorf("cannot build FOR ... OF: no tables")
	}
	return &LockQuery{SelectQuery: l.with(err, token.Literal("OF"), token.Join(names...))}
}

// NoWait fails instead of waiting for locked rows.
func (l *LockQuery) NoWait() *SelectQuery {
	return l.with(nil, token.Literal("NOWAIT"))
}

// SkipLocked skips locked rows.
func (l *LockQuery) SkipLocked() *SelectQuery {
	return l.with(nil, token.Literal("SKIP LOCKED"))
}

func (q *SelectQuery) combine(op string, other *SelectQuery) *SelectQuery {
	n := *other
	n.compound = append(append(q.tokens(), token.Literal(op)), other.compound...)
	n.first = q.leftmost()
	n.err = firstErr(q.err, other.err)
	return &n
}

func (q *SelectQuery) leftmost() *SelectQuery {
	if q.first != nil {
		return q.first
	}
	return q
}

// Union appends the rows of other, dropping duplicates.
func (q *SelectQuery) Union(other *SelectQuery) *SelectQuery { return q.combine("UNION", other) }

// UnionAll appends the rows of other.
func (q *SelectQuery) UnionAll(other *SelectQuery) *SelectQuery { return q.combine("UNION ALL", other) }

// Intersect keeps the rows also returned by other.
func (q *SelectQuery) Intersect(other *SelectQuery) *SelectQuery {
	return q.combine("INTERSECT", other)
}

// IntersectAll keeps the rows also returned by other, with duplicates.
func (q *SelectQuery) IntersectAll(other *SelectQuery) *SelectQuery {
	return q.combine("INTERSECT ALL", other)
}

// Except removes the rows returned by other.
func (q *SelectQuery) Except(other *SelectQuery) *SelectQuery { return q.combine("EXCEPT", other) }

// ExceptAll removes the rows returned by other, keeping duplicates.
func (q *SelectQuery) ExceptAll(other *SelectQuery) *SelectQuery {
	return q.combine("EXCEPT ALL", other)
}

func (q *SelectQuery) tokens() []token.Token {
	items := make([]token.Token, len(q.items))
	for i, item := range q.items {
		items[i] = token.Collection(item.projection(q.from))
	}
	out := make([]token.Token, 0, len(q.compound)+2+q.tail.Len())
	out = append(out, q.compound...)
	out = append(out, token.Literal("SELECT"), token.Join(items...))
	return append(out, q.tail.Tokens()...)
}

func (q *SelectQuery) resultMode() ResultMode {
	return ResultRows
}

func (q *SelectQuery) rowShape() rowshape.Shape {
	first := q.leftmost()
	var shape rowshape.Shape
	for _, item := range first.items {
		shape = append(shape, item.outputShape(first.from)...)
	}
	return shape
}

func (q *SelectQuery) buildErr() error {
	return q.err
}

// expression makes the statement usable as a parenthesized operand.
func (q *SelectQuery) expression() Expression {
	e := newExpression(unnamed, Any, token.Group{Items: []token.Token{subquery(q)}})
	if shape := q.rowShape(); len(shape) > 0 {
		e.name = shape[0].Name
		e.dataType = shape[0].Type
	}
	e.err = q.err
	return e
}

func (q *SelectQuery) projection(from []sourceTable) []token.Token {
	return q.expression().tokens
}

func (q *SelectQuery) outputShape(from []sourceTable) rowshape.Shape {
	e := q.expression()
	return rowshape.Shape{{Name: e.name, Type: e.dataType, Nullable: true, Unchecked: true}}
}

// ToSQL renders the statement.
func (q *SelectQuery) ToSQL() (string, []any, error) {
	return toSQL(q)
}

// Run executes the statement.
func (q *SelectQuery) Run(ctx context.Context) (*Outcome, error) {
	return run(ctx, q.db, q)
}

// GetAll runs the statement and decodes every row into the slice pointed to
// by slicePtr.
func (q *SelectQuery) GetAll(ctx context.Context, slicePtr any) error {
	outcome, err := q.Run(ctx)
	if err != nil {
		return err
	}
	return outcome.Decode(slicePtr)
}

// Get runs the statement and decodes the first row into the struct pointed
// to by structPtr. It returns [ErrNoRows] if no row is returned.
func (q *SelectQuery) Get(ctx context.Context, structPtr any) error {
	outcome, err := q.Run(ctx)
	if err != nil {
		return err
	}
	return outcome.DecodeOne(structPtr)
}
