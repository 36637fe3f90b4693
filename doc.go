/*
Package sqlquery builds PostgreSQL statements from Go values and runs them through an injected executor.

Tables are declared once with their columns and types.
Statements are then built by chaining methods from a DB, each call returning a new statement and leaving the receiver untouched.
Nothing is sent to the database until Run is called.

# Declaring tables

Column names are written in Go style and converted to snake_case when sent to the database:

	var person = sqlquery.DefineTable("person",
		sqlquery.Def("id", sqlquery.Integer).NotNull(),
		sqlquery.Def("fullName", sqlquery.Text).NotNull(),
		sqlquery.Def("addressId", sqlquery.Integer),
	)

Rows come back keyed by the declared names, so person.C("fullName") is selected as

	person.full_name "fullName"

Identifiers are double quoted only when PostgreSQL requires it, for reserved keywords and names that are not plain lower case.

# Building statements

	db := sqlquery.NewDB(executor)
	q := db.Select(person.C("id"), person.C("fullName")).
		From(person).
		Where(person.C("addressId").IsNull().Or(person.C("id").In([]int{1, 2}))).
		OrderBy(person.C("fullName").Desc()).
		Limit(10)

renders

	SELECT person.id, person.full_name "fullName" FROM person
	WHERE person.address_id IS NULL OR person.id IN ($1, $2)
	ORDER BY person.full_name DESC LIMIT $3

Every value is bound as a $n parameter in order of appearance.
Errors found while building, such as an empty IN list or an unknown column, are kept in the statement and returned by ToSQL and Run.

INSERT, UPDATE, DELETE and TRUNCATE are built the same way from InsertInto, Update, DeleteFrom and Truncate.
Statements that return rows, SELECT and mutations with a RETURNING clause, are run in ResultRows mode.
Every other statement is run in ResultAffectedCount mode.

# Executors

An Executor receives the rendered SQL and its parameters.
The mode is carried by the context and read with ResultModeFromContext.
SQLExecutor runs statements on a database/sql DB, preparing each distinct statement once.
The postgres subpackage provides an executor on a pgx connection pool.

Returned rows are checked against the declared columns before they are handed back.
A column of a table on the optional side of an outer join may be NULL even when declared NOT NULL.
*/
package sqlquery
