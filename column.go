// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"github.com/canonical/sqlquery/internal/naming"
	"github.com/canonical/sqlquery/internal/rowshape"
	"github.com/canonical/sqlquery/internal/token"
)

// JoinType records how the table of a column takes part in a statement. It
// decides whether the column can be NULL in the result regardless of its
// declaration.
type JoinType int

const (
	JoinNone JoinType = iota
	JoinInner
	JoinLeft
	// JoinLeftSideOfRight marks the tables on the left of a RIGHT JOIN.
	JoinLeftSideOfRight
	JoinFull
)

// nullable reports whether columns of a table joined this way can be NULL.
func (j JoinType) nullable() bool {
	switch j {
	case JoinLeft, JoinLeftSideOfRight, JoinFull:
		return true
	}
	return false
}

// Column is a column of a declared table. It is an [Expression] qualified by
// the name of its table.
type Column struct {
	Expression

	table    string
	declared string
	wire     string
	join     JoinType
}

func newColumn(t *Table, def ColumnDef) Column {
	wire := naming.SnakeCase(def.name)
	ref := naming.ColumnReference(t.Name(), wire)
	e := newExpression(def.name, def.dataType, token.Literal(ref))
	e.notNull = def.notNull
	return Column{
		Expression: e,
		table:      t.Name(),
		declared:   def.name,
		wire:       wire,
	}
}

// As names the column in a projection.
func (c Column) As(alias string) Column {
	c.Expression = c.Expression.As(alias)
	return c
}

// DeclaredName returns the name the column was declared with.
func (c Column) DeclaredName() string {
	return c.declared
}

// WireName returns the name of the column in the database.
func (c Column) WireName() string {
	return c.wire
}

// TableName returns the name the column is qualified with.
func (c Column) TableName() string {
	return c.table
}

// DataType returns the declared type of the column.
func (c Column) DataType() DataType {
	return c.dataType
}

// NotNull reports whether the column was declared NOT NULL.
func (c Column) NotNull() bool {
	return c.notNull
}

// JoinType returns how the table of the column takes part in the statement
// the column was resolved against.
func (c Column) JoinType() JoinType {
	return c.join
}

func (c Column) projection(from []sourceTable) []token.Token {
	if c.name == c.wire {
		return c.tokens
	}
	return append(clone(c.tokens), token.Literal(naming.QuoteAlias(c.name)))
}

func (c Column) outputShape(from []sourceTable) rowshape.Shape {
	c = c.resolve(from)
	return rowshape.Shape{{
		Name:     c.name,
		Type:     c.dataType,
		Nullable: !c.notNull || c.join.nullable(),
	}}
}

// resolve records the join type of the column's table in from.
func (c Column) resolve(from []sourceTable) Column {
	for _, src := range from {
		if src.table.Name() == c.table {
			c.join = src.join
			break
		}
	}
	return c
}
