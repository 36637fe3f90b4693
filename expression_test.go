// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery_test

import (
	. "gopkg.in/check.v1"

	"github.com/canonical/sqlquery"
)

type ExpressionSuite struct {
	db *sqlquery.DB
}

var _ = Suite(&ExpressionSuite{})

func (s *ExpressionSuite) SetUpTest(c *C) {
	s.db = sqlquery.NewDB(nil)
}

// where renders a SELECT filtered by cond.
func (s *ExpressionSuite) where(cond sqlquery.Expr) *sqlquery.SelectQuery {
	return s.db.Select(foo.C("id")).From(foo).Where(cond)
}

func (s *ExpressionSuite) TestComparisons(c *C) {
	tests := []struct {
		cond sqlquery.Expression
		want string
	}{
		{foo.C("value").Eq(1), "foo.value = $1"},
		{foo.C("value").Ne(1), "foo.value <> $1"},
		{foo.C("value").Gt(1), "foo.value > $1"},
		{foo.C("value").Gte(1), "foo.value >= $1"},
		{foo.C("value").Lt(1), "foo.value < $1"},
		{foo.C("value").Lte(1), "foo.value <= $1"},
		{foo.C("name").Like(1), "foo.name LIKE $1"},
		{foo.C("name").NotLike(1), "foo.name NOT LIKE $1"},
		{foo.C("name").ILike(1), "foo.name ILIKE $1"},
		{foo.C("name").NotILike(1), "foo.name NOT ILIKE $1"},
		{foo.C("value").IsDistinctFrom(1), "foo.value IS DISTINCT FROM $1"},
		{foo.C("value").IsNotDistinctFrom(1), "foo.value IS NOT DISTINCT FROM $1"},
		{foo.C("value").NotBetween(1, 1), "foo.value NOT BETWEEN $1 AND $2"},
		{foo.C("name").Concat(1).Eq(1), "foo.name || $1 = $2"},
		{foo.C("value").Plus(1).Gt(1), "foo.value + $1 > $2"},
		{foo.C("value").Minus(1).Multiply(1).Divide(1).Modulo(1).Eq(1), "foo.value - $1 * $2 / $3 % $4 = $5"},
	}
	for i, test := range tests {
		c.Logf("test %d: %s", i, test.want)
		sql, params, err := s.where(test.cond).ToSQL()
		c.Assert(err, IsNil)
		c.Check(sql, Equals, "SELECT foo.id FROM foo WHERE "+test.want)
		for _, p := range params {
			c.Check(p, Equals, 1)
		}
	}
}

func (s *ExpressionSuite) TestPredicates(c *C) {
	tests := []struct {
		cond sqlquery.Expression
		want string
	}{
		{foo.C("value").IsNull(), "foo.value IS NULL"},
		{foo.C("value").IsNotNull(), "foo.value IS NOT NULL"},
		{listItem.C("isGreat").IsTrue(), "list_item.is_great IS TRUE"},
		{listItem.C("isGreat").IsNotTrue(), "list_item.is_great IS NOT TRUE"},
		{listItem.C("isGreat").IsFalse(), "list_item.is_great IS FALSE"},
		{listItem.C("isGreat").IsNotFalse(), "list_item.is_great IS NOT FALSE"},
		{listItem.C("isGreat").IsUnknown(), "list_item.is_great IS UNKNOWN"},
		{listItem.C("isGreat").IsNotUnknown(), "list_item.is_great IS NOT UNKNOWN"},
		{sqlquery.Not(foo.C("value").IsNull()), "NOT (foo.value IS NULL)"},
	}
	for i, test := range tests {
		c.Logf("test %d: %s", i, test.want)
		checkSQL(c, s.where(test.cond), "SELECT foo.id FROM foo WHERE "+test.want)
	}
}

func (s *ExpressionSuite) TestOperandGrouping(c *C) {
	checkSQL(c, s.where(listItem.C("isGreat").Eq(foo.C("value").IsNull().Or(foo.C("name").Eq("x")))),
		`SELECT foo.id FROM foo WHERE list_item.is_great = (foo.value IS NULL OR foo.name = $1)`, "x")

	checkSQL(c, s.where(sqlquery.Group(foo.C("value").Plus(1)).Multiply(2).Gt(10)),
		`SELECT foo.id FROM foo WHERE (foo.value + $1) * $2 > $3`, 1, 2, 10)

	checkSQL(c, s.where(foo.C("value").Eq(bar.C("id"))),
		`SELECT foo.id FROM foo WHERE foo.value = bar.id`)
}

func (s *ExpressionSuite) TestProjectionAlias(c *C) {
	checkSQL(c, s.db.Select(foo.C("value").Plus(1).As("test")).From(foo),
		`SELECT (foo.value + $1) test FROM foo`, 1)

	checkSQL(c, s.db.Select(foo.C("id").As("id"), foo.C("createDate").As("created")).From(foo),
		`SELECT foo.id, foo.create_date created FROM foo`)

	checkSQL(c, s.db.Select(foo.C("name").As("name"), foo.C("id").As("timestamp")).From(foo),
		`SELECT foo.name, foo.id "timestamp" FROM foo`)
}

func (s *ExpressionSuite) TestFunctions(c *C) {
	tests := []struct {
		item sqlquery.Selectable
		want string
	}{
		{sqlquery.Count(), "COUNT(*)"},
		{sqlquery.Count(foo.C("createDate")), "COUNT (foo.create_date)"},
		{sqlquery.Sum(foo.C("value")), "SUM (foo.value)"},
		{sqlquery.Min(foo.C("value")), "MIN (foo.value)"},
		{sqlquery.Max(foo.C("value")), "MAX (foo.value)"},
		{sqlquery.Avg(foo.C("value")), "AVG (foo.value)"},
		{sqlquery.BitAnd(foo.C("value")), `bit_and (foo.value) "bitAnd"`},
		{sqlquery.BitOr(foo.C("value")), `bit_or (foo.value) "bitOr"`},
		{sqlquery.BoolAnd(listItem.C("isGreat")), `bool_and (list_item.is_great) "boolAnd"`},
		{sqlquery.BoolOr(listItem.C("isGreat")), `bool_or (list_item.is_great) "boolOr"`},
		{sqlquery.Every(listItem.C("isGreat")), "every (list_item.is_great)"},
		{sqlquery.XMLAgg(foo.C("name")), "xmlagg (foo.name)"},
		{sqlquery.StddevPop(foo.C("value")), `stddev_pop (foo.value) "stddevPop"`},
		{sqlquery.VarPop(foo.C("value")), `var_pop (foo.value) "varPop"`},
		{sqlquery.ArrayAgg(foo.C("name").OrderBy(foo.C("name").Desc())), `array_agg (foo.name ORDER BY foo.name DESC) "arrayAgg"`},
		{sqlquery.Sum(foo.C("value")).As("total"), "SUM (foo.value) total"},
		{sqlquery.Now(), "now()"},
	}
	for i, test := range tests {
		c.Logf("test %d: %s", i, test.want)
		checkSQL(c, s.db.Select(test.item).From(foo), "SELECT "+test.want+" FROM foo")
	}
}

func (s *ExpressionSuite) TestFunctionsWithParameters(c *C) {
	checkSQL(c, s.db.Select(sqlquery.StringAgg(foo.C("name"), ", ", foo.C("name").Desc())).From(foo),
		`SELECT string_agg (foo.name, $1 ORDER BY foo.name DESC) "stringAgg" FROM foo`, ", ")

	checkSQL(c, s.db.Select(sqlquery.Coalesce(foo.C("value"), 0).As("value")).From(foo),
		`SELECT coalesce (foo.value, $1) value FROM foo`, 0)

	checkSQL(c, s.db.Select(sqlquery.Greatest(foo.C("value"), 10), sqlquery.NullIf(foo.C("name"), "")).From(foo),
		`SELECT greatest (foo.value, $1), nullif (foo.name, $2) FROM foo`, 10, "")

	ids := []string{"a", "b"}
	checkSQL(c, s.where(foo.C("id").Eq(sqlquery.AnyOf(ids))),
		`SELECT foo.id FROM foo WHERE foo.id = ANY ($1)`, ids)
}

func (s *ExpressionSuite) TestCase(c *C) {
	greatness := sqlquery.Case().
		When(foo.C("value").Gt(100)).Then("A").
		When(foo.C("value").Gt(10)).Then("B").
		Else("C").
		As("greatness")
	checkSQL(c, s.db.Select(greatness).From(foo),
		`SELECT (CASE WHEN foo.value > $1 THEN $2 WHEN foo.value > $3 THEN $4 ELSE $5 END) greatness FROM foo`,
		100, "A", 10, "B", "C")

	checkSQL(c, s.where(sqlquery.Case().When(listItem.C("isGreat")).Then(foo.C("value")).End().Gt(1)),
		`SELECT foo.id FROM foo WHERE CASE WHEN list_item.is_great THEN foo.value END > $1`, 1)
}

func (s *ExpressionSuite) TestRaw(c *C) {
	checkSQL(c, s.where(sqlquery.Raw("(?, ?) = (foo.name, foo.value)", "Test", 123)),
		`SELECT foo.id FROM foo WHERE ( $1 , $2 ) = (foo.name, foo.value)`, "Test", 123)

	checkSQL(c, s.where(foo.C("value").Gt(1).And(sqlquery.Raw("foo.value % 2 = ?", 0))),
		`SELECT foo.id FROM foo WHERE foo.value > $1 AND foo.value % 2 = $2`, 1, 0)

	checkSQL(c, s.db.Select(sqlquery.Raw("1").As("one")), `SELECT 1 one`)
	checkSQL(c, s.where(sqlquery.Raw("foo.name::jsonb ?? ?", "k")),
		`SELECT foo.id FROM foo WHERE foo.name::jsonb ? $1`, "k")
	checkSQL(c, s.where(sqlquery.Raw("foo.name::jsonb ??| array['a', 'b']")),
		`SELECT foo.id FROM foo WHERE foo.name::jsonb ?| array['a', 'b']`)
}

func (s *ExpressionSuite) TestImmutable(c *C) {
	cond := foo.C("value").Gt(1)
	_ = cond.And(foo.C("name").Eq("a"))
	_ = cond.As("x")
	checkSQL(c, s.where(cond), `SELECT foo.id FROM foo WHERE foo.value > $1`, 1)
}

func (s *ExpressionSuite) TestBuildErrors(c *C) {
	tests := []struct {
		cond sqlquery.Expr
		err  string
	}{
		{sqlquery.Case().End(), "cannot build CASE: no WHEN clause"},
		{sqlquery.Raw("? = ?", 1), "cannot build raw expression: 2 placeholders but 1 arguments"},
		{sqlquery.Raw("a ?? b", 1), "cannot build raw expression: 0 placeholders but 1 arguments"},
		{foo.C("id").Eq(sqlquery.AnyOf(5)), "cannot build ANY: need slice or array, got int"},
		{sqlquery.Coalesce(), "cannot build coalesce: no arguments"},
		{foo.C("id").In([]int{}).Or(foo.C("id").IsNull()), "cannot build IN: empty list of values"},
		{foo.C("id").IsNull().Or(foo.C("id").In([]int{})), "cannot build IN: empty list of values"},
		{sqlquery.Not(foo.C("id").In(nil)), "cannot build IN: .*"},
		{foo.C("id").Eq(sqlquery.Excluded(foo, "nope")), `column "nope" not found in table "foo"`},
	}
	for i, test := range tests {
		c.Logf("test %d: %s", i, test.err)
		c.Check(test.cond.(interface{ Err() error }).Err(), ErrorMatches, test.err)
		_, _, err := s.where(test.cond).ToSQL()
		c.Check(err, ErrorMatches, test.err)
	}
}

func (s *ExpressionSuite) TestColumns(c *C) {
	col := foo.C("createDate")
	c.Assert(col.DeclaredName(), Equals, "createDate")
	c.Assert(col.WireName(), Equals, "create_date")
	c.Assert(col.TableName(), Equals, "foo")
	c.Assert(col.Name(), Equals, "createDate")
	c.Assert(col.DataType(), Equals, sqlquery.Timestamp)
	c.Assert(col.NotNull(), Equals, true)
	c.Assert(col.JoinType(), Equals, sqlquery.JoinNone)
	c.Assert(col.As("created").Name(), Equals, "created")

	aliased := user.As("u").C("name")
	c.Assert(aliased.TableName(), Equals, "u")
	c.Assert(user.As("u").OriginalName(), Equals, "user")

	_, err := foo.Column("missing")
	c.Assert(err, ErrorMatches, `column "missing" not found in table "foo"`)
	c.Assert(func() { foo.C("missing") }, PanicMatches, `column "missing" not found in table "foo"`)

	c.Assert(listItem.Name(), Equals, "list_item")
	c.Assert(listItem.Columns(), HasLen, 3)

	c.Assert(func() {
		sqlquery.DefineTable("dup", sqlquery.Def("id", sqlquery.Integer), sqlquery.Def("id", sqlquery.Text))
	}, PanicMatches, `column "id" declared twice in table "dup"`)
}
