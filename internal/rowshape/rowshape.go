// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package rowshape describes the rows a statement is expected to produce and
// checks the rows returned by an executor against that description.
package rowshape

import (
	"reflect"
	"time"

	"github.com/pkg/errors"
)

// DataType is the declared type of a column.
type DataType int

const (
	// Any matches every value. It is used for raw SQL and for columns whose
	// type is not declared.
	Any DataType = iota
	Text
	Integer
	Float
	Numeric
	Boolean
	UUID
	Timestamp
	Date
	JSON
	Bytes
)

var dataTypeNames = map[DataType]string{
	Any:       "any",
	Text:      "text",
	Integer:   "integer",
	Float:     "float",
	Numeric:   "numeric",
	Boolean:   "boolean",
	UUID:      "uuid",
	Timestamp: "timestamp",
	Date:      "date",
	JSON:      "json",
	Bytes:     "bytea",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Column is the expected description of one column of a result row.
type Column struct {
	Name     string
	Type     DataType
	Nullable bool
	// Unchecked marks a column whose output name is chosen by the database,
	// such as an unaliased function call. It is not validated.
	Unchecked bool
}

// Shape is the ordered list of columns a row is expected to have.
type Shape []Column

// Names returns the column names of the shape in order.
func (s Shape) Names() []string {
	names := make([]string, len(s))
	for i, col := range s {
		names[i] = col.Name
	}
	return names
}

// Lookup returns the column with the given name.
func (s Shape) Lookup(name string) (Column, bool) {
	for _, col := range s {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Validate checks every row against the shape. Unchecked columns and columns
// not mentioned in the shape are ignored.
func (s Shape) Validate(rows []map[string]any) error {
	for i, row := range rows {
		if err := s.validateRow(row); err != nil {
			return errors.Wrapf(err, "cannot validate row %d", i)
		}
	}
	return nil
}

func (s Shape) validateRow(row map[string]any) error {
	for _, col := range s {
		if col.Unchecked {
			continue
		}
		v, ok := row[col.Name]
		if !ok {
			return errors.Errorf("column %q missing from result", col.Name)
		}
		if v == nil {
			if !col.Nullable {
				return errors.Errorf("column %q is not nullable but got NULL", col.Name)
			}
			continue
		}
		if !col.Type.accepts(v) {
			return errors.Errorf("column %q has type %s but got %T", col.Name, col.Type, v)
		}
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// accepts reports whether a value returned by a driver can hold a value of
// the data type. Only the types with an unambiguous Go representation are
// checked.
func (t DataType) accepts(v any) bool {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return true
	}
	switch t {
	case Text:
		return rv.Kind() == reflect.String || isByteSlice(rv)
	case Integer:
		return isInt(rv.Kind())
	case Float:
		return isFloat(rv.Kind()) || isInt(rv.Kind())
	case Boolean:
		return rv.Kind() == reflect.Bool
	case Timestamp, Date:
		return rv.Type() == timeType || rv.Kind() == reflect.String || isByteSlice(rv)
	case Bytes:
		return isByteSlice(rv) || rv.Kind() == reflect.String
	}
	return true
}

func isByteSlice(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
