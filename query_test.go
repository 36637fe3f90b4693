// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	. "gopkg.in/check.v1"

	"github.com/canonical/sqlquery"
)

// recorder is an executor returning canned results and remembering what it
// was asked to run.
type recorder struct {
	result *sqlquery.Result
	err    error

	sql     string
	params  []any
	mode    sqlquery.ResultMode
	hasMode bool
	calls   int
}

func (r *recorder) Execute(ctx context.Context, sql string, params []any) (*sqlquery.Result, error) {
	r.calls++
	r.sql = sql
	r.params = params
	r.mode, r.hasMode = sqlquery.ResultModeFromContext(ctx)
	return r.result, r.err
}

type QuerySuite struct{}

var _ = Suite(&QuerySuite{})

type fooRow struct {
	ID         string    `db:"id"`
	CreateDate time.Time `db:"createDate"`
	Name       string    `db:"name"`
	Value      *int      `db:"value"`
}

func (s *QuerySuite) TestRunSelect(c *C) {
	created := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	rec := &recorder{result: &sqlquery.Result{Rows: []sqlquery.Row{
		{"id": "a", "createDate": created, "name": "first", "value": int64(1)},
		{"id": "b", "createDate": created, "name": "second", "value": nil},
	}}}
	db := sqlquery.NewDB(rec)

	outcome, err := db.Select(sqlquery.Star()).From(foo).Where(foo.C("name").Ne("x")).Run(context.Background())
	c.Assert(err, IsNil)
	c.Check(rec.calls, Equals, 1)
	c.Check(rec.sql, Equals, `SELECT foo.id, foo.create_date "createDate", foo.name, foo.value FROM foo WHERE foo.name <> $1`)
	c.Check(rec.params, DeepEquals, []any{"x"})
	c.Check(rec.hasMode, Equals, true)
	c.Check(rec.mode, Equals, sqlquery.ResultRows)
	c.Check(outcome.Mode(), Equals, sqlquery.ResultRows)
	c.Check(outcome.Rows(), HasLen, 2)

	var rows []fooRow
	c.Assert(outcome.Decode(&rows), IsNil)
	one := 1
	c.Check(rows, DeepEquals, []fooRow{
		{ID: "a", CreateDate: created, Name: "first", Value: &one},
		{ID: "b", CreateDate: created, Name: "second"},
	})

	var first fooRow
	c.Assert(outcome.DecodeOne(&first), IsNil)
	c.Check(first.Name, Equals, "first")
}

func (s *QuerySuite) TestGetAndGetAll(c *C) {
	rec := &recorder{result: &sqlquery.Result{Rows: []sqlquery.Row{
		{"name": "a"},
		{"name": nil},
	}}}
	db := sqlquery.NewDB(rec)
	q := db.Select(bar.C("name")).From(bar)

	var names []map[string]any
	c.Assert(q.GetAll(context.Background(), &names), IsNil)
	c.Check(names, DeepEquals, []map[string]any{{"name": "a"}, {"name": nil}})

	var row struct {
		Name string `db:"name"`
	}
	c.Assert(q.Get(context.Background(), &row), IsNil)
	c.Check(row.Name, Equals, "a")

	rec.result = &sqlquery.Result{}
	err := q.Get(context.Background(), &row)
	c.Check(err, Equals, sqlquery.ErrNoRows)
}

func (s *QuerySuite) TestRunAffectedCount(c *C) {
	rec := &recorder{result: &sqlquery.Result{AffectedRowsCount: 3}}
	db := sqlquery.NewDB(rec)

	outcome, err := db.Update(foo).Set(sqlquery.Values{"value": 1}).Where(foo.C("value").IsNull()).Run(context.Background())
	c.Assert(err, IsNil)
	c.Check(rec.mode, Equals, sqlquery.ResultAffectedCount)
	c.Check(rec.sql, Equals, `UPDATE foo SET "value" = $1 WHERE foo.value IS NULL`)
	c.Check(outcome.Mode(), Equals, sqlquery.ResultAffectedCount)
	c.Check(outcome.AffectedRows(), Equals, int64(3))
	c.Check(outcome.Rows(), HasLen, 0)

	var rows []fooRow
	c.Check(outcome.Decode(&rows), ErrorMatches, "cannot decode rows: statement does not return rows")
	c.Check(outcome.DecodeOne(&fooRow{}), ErrorMatches, "cannot decode row: statement does not return rows")

	outcome, err = db.Truncate(foo).Run(context.Background())
	c.Assert(err, IsNil)
	c.Check(rec.sql, Equals, "TRUNCATE foo")
	c.Check(outcome.AffectedRows(), Equals, int64(3))
}

func (s *QuerySuite) TestRunReturning(c *C) {
	rec := &recorder{result: &sqlquery.Result{Rows: []sqlquery.Row{{"id": "a"}}}}
	db := sqlquery.NewDB(rec)

	outcome, err := db.DeleteFrom(foo).Where(foo.C("name").Eq("a")).Returning("id").Run(context.Background())
	c.Assert(err, IsNil)
	c.Check(rec.mode, Equals, sqlquery.ResultRows)
	c.Check(outcome.Rows(), DeepEquals, []sqlquery.Row{{"id": "a"}})
}

func (s *QuerySuite) TestValidation(c *C) {
	tests := []struct {
		rows []sqlquery.Row
		err  string
	}{{
		rows: []sqlquery.Row{{"id": "a"}},
		err:  `cannot run statement: cannot validate row 0: column "name" missing from result`,
	}, {
		rows: []sqlquery.Row{{"id": "a", "name": "b"}, {"id": nil, "name": "c"}},
		err:  `cannot run statement: cannot validate row 1: column "id" is not nullable but got NULL`,
	}, {
		rows: []sqlquery.Row{{"id": "a", "name": 12}},
		err:  `cannot run statement: cannot validate row 0: column "name" has type text but got int`,
	}}
	for i, test := range tests {
		c.Logf("test %d: %s", i, test.err)
		db := sqlquery.NewDB(&recorder{result: &sqlquery.Result{Rows: test.rows}})
		_, err := db.Select(foo.C("id"), foo.C("name")).From(foo).Run(context.Background())
		c.Check(err, ErrorMatches, test.err)
	}
}

func (s *QuerySuite) TestUnaliasedColumnsNotValidated(c *C) {
	rows := []sqlquery.Row{{"id": "a", "something": int64(1), "not_exists": true}}
	db := sqlquery.NewDB(&recorder{result: &sqlquery.Result{Rows: rows}})
	sub := db.Select(bar.C("id")).From(bar)

	outcome, err := db.Select(foo.C("id"), sqlquery.Raw("1"), sqlquery.NotExists(sub)).From(foo).Run(context.Background())
	c.Assert(err, IsNil)
	c.Check(outcome.Rows(), DeepEquals, rows)

	// An alias makes the name known, so the column is checked again.
	_, err = db.Select(foo.C("id"), sqlquery.Count().As("total")).From(foo).Run(context.Background())
	c.Check(err, ErrorMatches, `cannot run statement: cannot validate row 0: column "total" missing from result`)
}

func (s *QuerySuite) TestRunTwice(c *C) {
	rec := &recorder{result: &sqlquery.Result{Rows: []sqlquery.Row{{"id": "a", "name": "first"}}}}
	db := sqlquery.NewDB(rec)
	q := db.Select(foo.C("id"), foo.C("name")).From(foo).Where(foo.C("name").Ne("x")).Limit(2)

	first, err := q.Run(context.Background())
	c.Assert(err, IsNil)
	firstSQL, firstParams := rec.sql, rec.params

	second, err := q.Run(context.Background())
	c.Assert(err, IsNil)
	c.Check(rec.calls, Equals, 2)
	c.Check(rec.sql, Equals, firstSQL)
	c.Check(rec.sql, Equals, `SELECT foo.id, foo.name FROM foo WHERE foo.name <> $1 LIMIT $2`)
	c.Check(rec.params, DeepEquals, firstParams)
	c.Check(rec.params, DeepEquals, []any{"x", 2})
	c.Check(second.Rows(), DeepEquals, first.Rows())
}

func (s *QuerySuite) TestJoinNullability(c *C) {
	rows := []sqlquery.Row{{"id": nil, "fooId": nil}}
	db := sqlquery.NewDB(&recorder{result: &sqlquery.Result{Rows: rows}})

	_, err := db.Select(foo.C("id"), bar.C("fooId")).From(foo).
		InnerJoin(bar).On(bar.C("fooId").Eq(foo.C("id"))).
		Run(context.Background())
	c.Check(err, ErrorMatches, `cannot run statement: cannot validate row 0: column "id" is not nullable but got NULL`)

	_, err = db.Select(foo.C("id"), bar.C("fooId")).From(foo).
		LeftJoin(bar).On(bar.C("fooId").Eq(foo.C("id"))).
		Run(context.Background())
	c.Check(err, ErrorMatches, `cannot run statement: cannot validate row 0: column "id" is not nullable but got NULL`)

	rows[0]["id"] = "a"
	_, err = db.Select(foo.C("id"), bar.C("fooId")).From(foo).
		LeftJoin(bar).On(bar.C("fooId").Eq(foo.C("id"))).
		Run(context.Background())
	c.Check(err, IsNil)

	rows[0]["id"] = nil
	rows[0]["fooId"] = "b"
	_, err = db.Select(foo.C("id"), bar.C("fooId")).From(foo).
		RightJoin(bar).On(bar.C("fooId").Eq(foo.C("id"))).
		Run(context.Background())
	c.Check(err, IsNil)

	rows[0]["fooId"] = nil
	_, err = db.Select(foo.C("id"), bar.C("fooId")).From(foo).
		FullJoin(bar).On(bar.C("fooId").Eq(foo.C("id"))).
		Run(context.Background())
	c.Check(err, IsNil)
}

func (s *QuerySuite) TestRunErrors(c *C) {
	failure := errors.New("connection refused")
	rec := &recorder{err: failure}
	db := sqlquery.NewDB(rec)

	_, err := db.Select(foo.C("id")).From(foo).Run(context.Background())
	c.Check(err, Equals, failure)

	rec.err = nil
	_, err = db.Select(foo.C("id")).From(foo).Run(context.Background())
	c.Check(err, ErrorMatches, "cannot run statement: executor returned no result")

	rec.calls = 0
	_, err = db.Select().Run(context.Background())
	c.Check(err, ErrorMatches, "cannot build SELECT: empty projection")
	c.Check(rec.calls, Equals, 0)

	_, err = sqlquery.NewDB(nil).DeleteFrom(foo).Run(context.Background())
	c.Check(err, ErrorMatches, "cannot run statement: no executor")
}

func (s *QuerySuite) TestExecutorFunc(c *C) {
	var got sqlquery.ResultMode
	exec := sqlquery.ExecutorFunc(func(ctx context.Context, sql string, params []any) (*sqlquery.Result, error) {
		got, _ = sqlquery.ResultModeFromContext(ctx)
		return &sqlquery.Result{AffectedRowsCount: 1}, nil
	})
	db := sqlquery.NewDB(exec)
	c.Check(db.Executor(), NotNil)

	outcome, err := db.InsertInto(foo).Values(sqlquery.Values{"name": "a"}).Run(context.Background())
	c.Assert(err, IsNil)
	c.Check(got, Equals, sqlquery.ResultAffectedCount)
	c.Check(outcome.AffectedRows(), Equals, int64(1))

	_, ok := sqlquery.ResultModeFromContext(context.Background())
	c.Check(ok, Equals, false)
	c.Check(sqlquery.ResultRows.String(), Equals, "rows")
	c.Check(sqlquery.ResultAffectedCount.String(), Equals, "affected-count")
}

func (s *QuerySuite) TestLogging(c *C) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rec := &recorder{result: &sqlquery.Result{AffectedRowsCount: 1}}
	db := sqlquery.NewDB(rec, sqlquery.WithLogger(logger))

	_, err := db.DeleteFrom(foo).Where(foo.C("id").Eq("a")).Run(context.Background())
	c.Assert(err, IsNil)
	c.Check(buf.String(), Matches, `(?s).*msg="running statement" sql="DELETE FROM foo WHERE foo.id = \$1" params=1 mode=affected-count.*`)

	buf.Reset()
	rec.err = errors.New("boom")
	_, err = db.DeleteFrom(foo).Run(context.Background())
	c.Check(err, ErrorMatches, "boom")
	c.Check(buf.String(), Matches, `(?s).*msg="statement failed".*error=boom.*`)
}
