// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package postgres_test

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	. "gopkg.in/check.v1"

	"github.com/canonical/sqlquery"
	"github.com/canonical/sqlquery/postgres"
)

type ExecutorSuite struct{}

var _ = Suite(&ExecutorSuite{})

// fakeRows serves fixed rows through the pgx.Rows interface.
type fakeRows struct {
	fields []pgconn.FieldDescription
	values [][]any
	pos    int
	closed bool
}

func newFakeRows(columns []string, values ...[]any) *fakeRows {
	fields := make([]pgconn.FieldDescription, len(columns))
	for i, name := range columns {
		fields[i] = pgconn.FieldDescription{Name: name}
	}
	return &fakeRows{fields: fields, values: values}
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		r.Close()
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	if len(dest) == 1 {
		if rs, ok := dest[0].(pgx.RowScanner); ok {
			return rs.ScanRow(r)
		}
	}
	return errors.New("fakeRows only supports row scanners")
}

// fakeQuerier records the statements it is given.
type fakeQuerier struct {
	sql  string
	args []any
	rows *fakeRows
	tag  pgconn.CommandTag
	err  error
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql, q.args = sql, args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func (q *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql, q.args = sql, args
	return q.tag, q.err
}

var person = sqlquery.DefineTable("person",
	sqlquery.Def("id", sqlquery.Integer).NotNull(),
	sqlquery.Def("fullName", sqlquery.Text).NotNull(),
)

func (s *ExecutorSuite) TestRows(c *C) {
	q := &fakeQuerier{rows: newFakeRows([]string{"id", "fullName"},
		[]any{int32(1), "Fred"},
		[]any{int32(2), "Mary"},
	)}
	db := sqlquery.NewDB(postgres.NewExecutor(q))

	outcome, err := db.Select(person.C("id"), person.C("fullName")).
		From(person).
		Where(person.C("id").Lt(10)).
		Run(context.Background())
	c.Assert(err, IsNil)
	c.Assert(q.sql, Equals, `SELECT person.id, person.full_name "fullName" FROM person WHERE person.id < $1`)
	c.Assert(q.args, DeepEquals, []any{10})
	c.Assert(q.rows.closed, Equals, true)
	c.Assert(outcome.Rows(), DeepEquals, []sqlquery.Row{
		{"id": int32(1), "fullName": "Fred"},
		{"id": int32(2), "fullName": "Mary"},
	})

	var people []struct {
		ID   int    `db:"id"`
		Name string `db:"fullName"`
	}
	c.Assert(outcome.Decode(&people), IsNil)
	c.Assert(people, HasLen, 2)
	c.Assert(people[1].Name, Equals, "Mary")
}

func (s *ExecutorSuite) TestAffectedCount(c *C) {
	q := &fakeQuerier{tag: pgconn.NewCommandTag("UPDATE 3")}
	db := sqlquery.NewDB(postgres.NewExecutor(q))

	outcome, err := db.Update(person).
		Set(sqlquery.Values{"fullName": "Anonymous"}).
		Run(context.Background())
	c.Assert(err, IsNil)
	c.Assert(q.sql, Equals, `UPDATE person SET "full_name" = $1`)
	c.Assert(outcome.Mode(), Equals, sqlquery.ResultAffectedCount)
	c.Assert(outcome.AffectedRows(), Equals, int64(3))
}

func (s *ExecutorSuite) TestErrorsAreReturnedUnchanged(c *C) {
	failure := errors.New("connection reset")
	q := &fakeQuerier{err: failure}
	db := sqlquery.NewDB(postgres.NewExecutor(q))

	_, err := db.DeleteFrom(person).Run(context.Background())
	c.Assert(err, Equals, failure)

	_, err = db.Select(sqlquery.Count()).From(person).Run(context.Background())
	c.Assert(err, Equals, failure)
}
