// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"fmt"

	"github.com/canonical/sqlquery/internal/naming"
	"github.com/canonical/sqlquery/internal/rowshape"
)

// DataType is the declared type of a column.
type DataType = rowshape.DataType

// The data types a column can be declared with.
const (
	Any       = rowshape.Any
	Text      = rowshape.Text
	Integer   = rowshape.Integer
	Float     = rowshape.Float
	Numeric   = rowshape.Numeric
	Boolean   = rowshape.Boolean
	UUID      = rowshape.UUID
	Timestamp = rowshape.Timestamp
	Date      = rowshape.Date
	JSON      = rowshape.JSON
	Bytes     = rowshape.Bytes
)

// ColumnDef declares a column of a table.
type ColumnDef struct {
	name     string
	dataType DataType
	notNull  bool
}

// Def declares a column with its Go-side name. The name sent to the database
// is the snake_case form of name.
func Def(name string, dataType DataType) ColumnDef {
	return ColumnDef{name: name, dataType: dataType}
}

// NotNull marks the column as never holding NULL.
func (d ColumnDef) NotNull() ColumnDef {
	d.notNull = true
	return d
}

// Table is a declared table. Tables are read-only once declared and can be
// shared between goroutines.
type Table struct {
	// name is the snake_case name of the table in the database.
	name string
	// alias is the name the table is referred to by in a statement, if
	// different from name.
	alias   string
	columns []ColumnDef
	index   map[string]int
}

// DefineTable declares a table. The table name and column names are
// converted to snake_case when sent to the database.
func DefineTable(name string, columns ...ColumnDef) *Table {
	t := &Table{
		name:    naming.SnakeCase(name),
		columns: make([]ColumnDef, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	copy(t.columns, columns)
	for i, col := range columns {
		if _, ok := t.index[col.name]; ok {
			panic(fmt.Sprintf("column %q declared twice in table %q", col.name, name))
		}
		t.index[col.name] = i
	}
	return t
}

// As returns the table under a different name. Columns of the returned table
// are qualified by the alias.
func (t *Table) As(alias string) *Table {
	aliased := *t
	aliased.alias = alias
	return &aliased
}

// Name returns the name columns of the table are qualified with: the alias
// if set, otherwise the table name.
func (t *Table) Name() string {
	if t.alias != "" {
		return t.alias
	}
	return t.name
}

// OriginalName returns the name of the table in the database.
func (t *Table) OriginalName() string {
	return t.name
}

// reference renders the table for a FROM-like position.
func (t *Table) reference() string {
	return naming.TableReference(t.name, t.alias)
}

// Column returns the column with the given declared name.
func (t *Table) Column(name string) (Column, error) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, fmt.Errorf("column %q not found in table %q", name, t.name)
	}
	return newColumn(t, t.columns[i]), nil
}

// C is the same as [Table.Column] except that it panics if the column does
// not exist.
func (t *Table) C(name string) Column {
	c, err := t.Column(name)
	if err != nil {
		panic(err)
	}
	return c
}

// Columns returns every column of the table in declaration order.
func (t *Table) Columns() []Column {
	cols := make([]Column, len(t.columns))
	for i, def := range t.columns {
		cols[i] = newColumn(t, def)
	}
	return cols
}

// orderedKeys returns the keys of values ordered as their columns were
// declared. An error is returned for keys that are not columns of the table.
func (t *Table) orderedKeys(values map[string]any) ([]ColumnDef, error) {
	present := make([]bool, len(t.columns))
	for key := range values {
		i, ok := t.index[key]
		if !ok {
			return nil, fmt.Errorf("column %q not found in table %q", key, t.name)
		}
		present[i] = true
	}
	var defs []ColumnDef
	for i, def := range t.columns {
		if present[i] {
			defs = append(defs, def)
		}
	}
	return defs, nil
}

// lookup returns the column declaration for name.
func (t *Table) lookup(name string) (ColumnDef, error) {
	i, ok := t.index[name]
	if !ok {
		return ColumnDef{}, fmt.Errorf("column %q not found in table %q", name, t.name)
	}
	return t.columns[i], nil
}
