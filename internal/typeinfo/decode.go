// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"database/sql"
	"reflect"

	"github.com/pkg/errors"
)

var scannerInterface = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// DecodeRows decodes rows into the slice pointed to by slicePtr. The slice
// elements can be structs, pointers to structs or maps with string keys.
// Struct fields are matched to columns by their "db" tag. Columns without a
// matching field are ignored.
func DecodeRows(rows []map[string]any, slicePtr any) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "cannot decode rows")
		}
	}()

	ptrVal := reflect.ValueOf(slicePtr)
	if ptrVal.Kind() != reflect.Pointer {
		return errors.Errorf("need pointer to slice, got %s", ptrVal.Kind())
	}
	if ptrVal.IsNil() {
		return errors.New("need pointer to slice, got nil")
	}
	sliceVal := ptrVal.Elem()
	if sliceVal.Kind() != reflect.Slice {
		return errors.Errorf("need pointer to slice, got pointer to %s", sliceVal.Kind())
	}

	elemType := sliceVal.Type().Elem()
	out := reflect.MakeSlice(sliceVal.Type(), 0, len(rows))
	for i, row := range rows {
		var elem reflect.Value
		switch elemType.Kind() {
		case reflect.Pointer:
			if elemType.Elem().Kind() != reflect.Struct {
				return errors.Errorf("need slice of structs/maps, got slice of pointer to %s", elemType.Elem().Kind())
			}
			elem = reflect.New(elemType.Elem())
			if err := decodeStruct(row, elem.Elem()); err != nil {
				return errors.Wrapf(err, "row %d", i)
			}
		case reflect.Struct:
			elem = reflect.New(elemType).Elem()
			if err := decodeStruct(row, elem); err != nil {
				return errors.Wrapf(err, "row %d", i)
			}
		case reflect.Map:
			if elemType.Key().Kind() != reflect.String {
				return errors.Errorf("map type %s must have key type string, found type %s", elemType, elemType.Key().Kind())
			}
			elem = reflect.MakeMapWithSize(elemType, len(row))
			for k, v := range row {
				val, err := convert(v, elemType.Elem())
				if err != nil {
					return errors.Wrapf(err, "row %d: column %q", i, k)
				}
				elem.SetMapIndex(reflect.ValueOf(k).Convert(elemType.Key()), val)
			}
		default:
			return errors.Errorf("need slice of structs/maps, got slice of %s", elemType.Kind())
		}
		out = reflect.Append(out, elem)
	}
	sliceVal.Set(out)
	return nil
}

// DecodeRow decodes a single row into the struct pointed to by structPtr.
func DecodeRow(row map[string]any, structPtr any) error {
	v := reflect.ValueOf(structPtr)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return errors.Errorf("cannot decode row: need pointer to struct, got %T", structPtr)
	}
	return errors.Wrap(decodeStruct(row, v.Elem()), "cannot decode row")
}

func decodeStruct(row map[string]any, structVal reflect.Value) error {
	info, err := typeInfo(structVal.Type())
	if err != nil {
		return err
	}
	for column, v := range row {
		field, ok := info.TagToField[column]
		if !ok {
			continue
		}
		fieldVal := structVal.Field(field.Index)
		if pt := reflect.PointerTo(field.Type); pt.Implements(scannerInterface) {
			if err := fieldVal.Addr().Interface().(sql.Scanner).Scan(v); err != nil {
				return errors.Wrapf(err, "column %q", column)
			}
			continue
		}
		val, err := convert(v, field.Type)
		if err != nil {
			return errors.Wrapf(err, "column %q", column)
		}
		fieldVal.Set(val)
	}
	return nil
}

// convert returns v as a value of type t. NULL becomes the zero value of t.
func convert(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if t.Kind() == reflect.Pointer {
		inner, err := convert(v, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(inner)
		return ptr, nil
	}
	// Drivers return text as []byte; only a string target may take it.
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 && t.Kind() == reflect.String {
		return reflect.ValueOf(string(rv.Bytes())).Convert(t), nil
	}
	if (rv.Kind() == reflect.String) != (t.Kind() == reflect.String) {
		return reflect.Value{}, errors.Errorf("cannot convert %T to %s", v, t)
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, errors.Errorf("cannot convert %T to %s", v, t)
}
