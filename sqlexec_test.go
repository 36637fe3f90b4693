// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery_test

import (
	"context"
	"errors"

	"github.com/DATA-DOG/go-sqlmock"
	. "gopkg.in/check.v1"

	"github.com/canonical/sqlquery"
)

type SQLExecutorSuite struct {
	mock sqlmock.Sqlmock
	exec *sqlquery.SQLExecutor
	db   *sqlquery.DB
}

var _ = Suite(&SQLExecutorSuite{})

func (s *SQLExecutorSuite) SetUpTest(c *C) {
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	c.Assert(err, IsNil)
	s.mock = mock
	s.exec = sqlquery.NewSQLExecutor(sqldb)
	s.db = sqlquery.NewDB(s.exec)
}

func (s *SQLExecutorSuite) TearDownTest(c *C) {
	// Close is not an expectation of any test.
	s.exec.PlainDB().Close()
}

const selectPerson = `SELECT person.id, person.full_name "fullName" FROM person WHERE person.id = $1`

func (s *SQLExecutorSuite) selectPerson(id int64) *sqlquery.SelectQuery {
	return s.db.Select(person.C("id"), person.C("fullName")).From(person).Where(person.C("id").Eq(id))
}

func (s *SQLExecutorSuite) TestQueryReusesPreparedStatement(c *C) {
	prep := s.mock.ExpectPrepare(selectPerson).WillBeClosed()
	prep.ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fullName"}).AddRow(int64(1), "Fred"))
	prep.ExpectQuery().WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fullName"}))

	var p Person
	c.Assert(s.selectPerson(1).Get(context.Background(), &p), IsNil)
	c.Check(p, DeepEquals, Person{ID: 1, FullName: "Fred"})

	err := s.selectPerson(2).Get(context.Background(), &p)
	c.Check(err, Equals, sqlquery.ErrNoRows)
	c.Check(s.exec.CachedStatements(), Equals, 1)

	c.Assert(s.exec.Close(), IsNil)
	c.Check(s.exec.CachedStatements(), Equals, 0)
	c.Check(s.mock.ExpectationsWereMet(), IsNil)
}

func (s *SQLExecutorSuite) TestExecReportsAffectedRows(c *C) {
	const update = `UPDATE person SET "full_name" = $1 WHERE person.address_id IS NULL`
	s.mock.ExpectPrepare(update).
		ExpectExec().WithArgs("Nobody").
		WillReturnResult(sqlmock.NewResult(0, 4))

	outcome, err := s.db.Update(person).
		Set(sqlquery.Values{"fullName": "Nobody"}).
		Where(person.C("addressId").IsNull()).
		Run(context.Background())
	c.Assert(err, IsNil)
	c.Check(outcome.AffectedRows(), Equals, int64(4))
	c.Check(s.mock.ExpectationsWereMet(), IsNil)
}

func (s *SQLExecutorSuite) TestReturningIsQueried(c *C) {
	const del = `DELETE FROM person WHERE person.id = $1 RETURNING id`
	s.mock.ExpectPrepare(del).
		ExpectQuery().WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	outcome, err := s.db.DeleteFrom(person).Where(person.C("id").Eq(int64(7))).Returning("id").Run(context.Background())
	c.Assert(err, IsNil)
	c.Check(outcome.Rows(), DeepEquals, []sqlquery.Row{{"id": int64(7)}})
	c.Check(s.mock.ExpectationsWereMet(), IsNil)
}

func (s *SQLExecutorSuite) TestErrors(c *C) {
	s.mock.ExpectPrepare(selectPerson).WillReturnError(errors.New("prepare failed"))
	_, err := s.selectPerson(1).Run(context.Background())
	c.Check(err, ErrorMatches, "prepare failed")
	c.Check(s.exec.CachedStatements(), Equals, 0)

	s.mock.ExpectPrepare(selectPerson).
		ExpectQuery().WithArgs(int64(1)).
		WillReturnError(errors.New("query failed"))
	_, err = s.selectPerson(1).Run(context.Background())
	c.Check(err, ErrorMatches, "query failed")

	s.mock.ExpectQuery(selectPerson).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fullName"}).AddRow(int64(1), nil))
	_, err = s.selectPerson(1).Run(context.Background())
	c.Check(err, ErrorMatches, `cannot run statement: cannot validate row 0: column "fullName" is not nullable but got NULL`)
	c.Check(s.mock.ExpectationsWereMet(), IsNil)
}
