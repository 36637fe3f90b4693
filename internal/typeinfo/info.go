// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"reflect"
)

// Field represents a single field from a struct type.
type Field struct {
	Type reflect.Type

	// Name is the name of the struct field.
	Name string

	// Index of this field in the structure.
	Index int
}

// Info represents reflected information about a struct type.
type Info struct {
	Type reflect.Type

	// TagToField relates column names, taken from "db" tags, to fields.
	TagToField map[string]Field
}
