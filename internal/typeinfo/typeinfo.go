// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"reflect"
	"regexp"
	"sync"

	"github.com/pkg/errors"
)

var cacheMutex sync.RWMutex
var cache = make(map[reflect.Type]*Info)

// GetTypeInfo returns the Info of the type of value, generating and caching
// it as required.
func GetTypeInfo(value any) (*Info, error) {
	if value == (any)(nil) {
		return &Info{}, errors.New("cannot reflect nil value")
	}
	return typeInfo(reflect.TypeOf(value))
}

func typeInfo(t reflect.Type) (*Info, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	cacheMutex.RLock()
	info, found := cache[t]
	cacheMutex.RUnlock()
	if found {
		return info, nil
	}

	info, err := generate(t)
	if err != nil {
		return &Info{}, err
	}

	cacheMutex.Lock()
	cache[t] = info
	cacheMutex.Unlock()

	return info, nil
}

// generate produces the reflection information sqlquery needs about a struct
// type.
func generate(typ reflect.Type) (*Info, error) {
	if typ.Kind() != reflect.Struct {
		return &Info{}, errors.New("can only reflect struct type")
	}

	info := Info{
		TagToField: make(map[string]Field),
		Type:       typ,
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		// Fields without a "db" tag are outside of sqlquery's remit.
		tag := field.Tag.Get("db")
		if tag == "" || !field.IsExported() {
			continue
		}
		if !validColNameRx.MatchString(tag) {
			return &Info{}, errors.Errorf("invalid column name %q in 'db' tag of field %s", tag, field.Name)
		}
		if _, ok := info.TagToField[tag]; ok {
			return &Info{}, errors.Errorf("column %q tagged on more than one field", tag)
		}
		info.TagToField[tag] = Field{
			Name:  field.Name,
			Index: i,
			Type:  field.Type,
		}
	}

	return &info, nil
}

// validColNameRx matches the declared names of columns, which are
// camelCase or snake_case Go-like identifiers.
var validColNameRx = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z_0-9]*$`)
