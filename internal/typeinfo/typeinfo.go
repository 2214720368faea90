// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
)

var cacheMutex sync.RWMutex
var cache = make(map[reflect.Type]*Info)

// GetTypeInfo returns the Info of the struct type of value, generating and
// caching it as required. Pointers are followed.
func GetTypeInfo(value any) (*Info, error) {
	if value == (any)(nil) {
		return &Info{}, fmt.Errorf("cannot reflect nil value")
	}

	v := reflect.Indirect(reflect.ValueOf(value))
	if !v.IsValid() {
		return &Info{}, fmt.Errorf("cannot reflect nil pointer")
	}

	cacheMutex.RLock()
	info, found := cache[v.Type()]
	cacheMutex.RUnlock()
	if found {
		return info, nil
	}

	info, err := generate(v.Type())
	if err != nil {
		return &Info{}, err
	}

	cacheMutex.Lock()
	cache[v.Type()] = info
	cacheMutex.Unlock()

	return info, nil
}

// generate produces the reflection information of a struct type.
func generate(typ reflect.Type) (*Info, error) {
	if typ.Kind() != reflect.Struct {
		return &Info{}, fmt.Errorf("can only reflect struct type")
	}

	info := Info{
		TagToField: make(map[string]Field),
		Type:       typ,
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		// Fields without a "db" tag are not columns.
		tag := field.Tag.Get("db")
		if tag == "" {
			continue
		}
		if !field.IsExported() {
			return &Info{}, fmt.Errorf("field %q with db tag is not exported", field.Name)
		}
		tag, omitEmpty, err := parseTag(tag)
		if err != nil {
			return &Info{}, fmt.Errorf("field %q: %w", field.Name, err)
		}
		if _, ok := info.TagToField[tag]; ok {
			return &Info{}, fmt.Errorf("db tag %q appears more than once", tag)
		}
		f := Field{
			Tag:       tag,
			Index:     i,
			OmitEmpty: omitEmpty,
		}
		info.Fields = append(info.Fields, f)
		info.TagToField[tag] = f
	}

	return &info, nil
}

var validColNameRx = regexp.MustCompile(`^([a-zA-Z_])+([a-zA-Z_0-9])*$`)

// parseTag parses the input tag string and returns its
// name and whether it contains the "omitempty" option.
func parseTag(tag string) (string, bool, error) {
	options := strings.Split(tag, ",")

	var omitEmpty bool
	// Refuse to parse if there are more than 2 items.
	if len(options) > 2 {
		return "", false, fmt.Errorf("too many options in 'db' tag")
	}
	if len(options) == 2 {
		if strings.ToLower(options[1]) != "omitempty" {
			return "", false, fmt.Errorf("unexpected tag value %q", options[1])
		}
		omitEmpty = true
	}

	name := options[0]
	if len(name) == 0 {
		return "", false, fmt.Errorf("empty db tag")
	}

	if !validColNameRx.MatchString(name) {
		return "", false, fmt.Errorf("invalid column name in 'db' tag")
	}

	return name, omitEmpty, nil
}

// Row returns the column names and values of the struct value in field
// declaration order. Fields tagged omitempty are skipped when they hold
// their zero value.
func Row(value any) (columns []string, values []any, err error) {
	info, err := GetTypeInfo(value)
	if err != nil {
		return nil, nil, err
	}
	v := reflect.Indirect(reflect.ValueOf(value))
	for _, f := range info.Fields {
		fv := v.Field(f.Index)
		if f.OmitEmpty && fv.IsZero() {
			continue
		}
		columns = append(columns, f.Tag)
		values = append(values, fv.Interface())
	}
	return columns, values, nil
}

// Columns returns every column of the struct value in field declaration
// order, including omitempty fields holding their zero value.
func Columns(value any) ([]string, error) {
	info, err := GetTypeInfo(value)
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(info.Fields))
	for i, f := range info.Fields {
		columns[i] = f.Tag
	}
	return columns, nil
}

// Values returns the values of the named columns of the struct value.
// omitempty is ignored.
func Values(value any, columns []string) ([]any, error) {
	info, err := GetTypeInfo(value)
	if err != nil {
		return nil, err
	}
	v := reflect.Indirect(reflect.ValueOf(value))
	values := make([]any, len(columns))
	for i, col := range columns {
		f, ok := info.TagToField[col]
		if !ok {
			return nil, fmt.Errorf("type %s has no db tag %q", info.Type.Name(), col)
		}
		values[i] = v.Field(f.Index).Interface()
	}
	return values, nil
}
