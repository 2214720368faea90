// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlcraft

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Date is a calendar date. It renders as an ISO-8601 date without a time
// component.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// valueKind enumerates the kinds of value that have a literal rendering.
type valueKind int

const (
	rawKind valueKind = iota
	stringKind
	integerKind
	booleanKind
	dateTimeKind
	nullKind
)

// literal is a value classified into one of the renderable kinds. Only the
// field matching kind is set.
type literal struct {
	kind     valueKind
	raw      Expr
	str      string
	digits   string
	boolean  bool
	time     time.Time
	dateOnly bool
}

var timeType = reflect.TypeOf(time.Time{})

// classify sorts v into a literal kind. Named types are classified by their
// underlying kind and non-nil pointers are followed.
func classify(v any) (literal, error) {
	switch v := v.(type) {
	case nil:
		return literal{kind: nullKind}, nil
	case Expr:
		return literal{kind: rawKind, raw: v}, nil
	case Col:
		return literal{}, fmt.Errorf("%w: column %q used as a value", ErrUnsupportedValueKind, string(v))
	case string:
		return literal{kind: stringKind, str: v}, nil
	case bool:
		return literal{kind: booleanKind, boolean: v}, nil
	case int:
		return literal{kind: integerKind, digits: strconv.Itoa(v)}, nil
	case int64:
		return literal{kind: integerKind, digits: strconv.FormatInt(v, 10)}, nil
	case time.Time:
		return literal{kind: dateTimeKind, time: v}, nil
	case Date:
		return literal{kind: dateTimeKind, time: v.Time, dateOnly: true}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return literal{kind: nullKind}, nil
		}
		return classify(rv.Elem().Interface())
	case reflect.String:
		return literal{kind: stringKind, str: rv.String()}, nil
	case reflect.Bool:
		return literal{kind: booleanKind, boolean: rv.Bool()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return literal{kind: integerKind, digits: strconv.FormatInt(rv.Int(), 10)}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return literal{kind: integerKind, digits: strconv.FormatUint(rv.Uint(), 10)}, nil
	case reflect.Struct:
		if rv.Type().ConvertibleTo(timeType) {
			return literal{kind: dateTimeKind, time: rv.Convert(timeType).Interface().(time.Time)}, nil
		}
	}
	return literal{}, fmt.Errorf("%w: %T", ErrUnsupportedValueKind, v)
}

// render returns the literal text of l.
func (d *Dialect) render(l literal) string {
	switch l.kind {
	case rawKind:
		return l.raw.text
	case stringKind:
		return d.QuoteString(l.str)
	case integerKind:
		return l.digits
	case booleanKind:
		return d.BoolLiteral(l.boolean)
	case dateTimeKind:
		if l.dateOnly {
			return d.QuoteString(l.time.Format(time.DateOnly))
		}
		return d.QuoteString(l.time.Format(time.RFC3339))
	case nullKind:
		return "NULL"
	}
	panic(fmt.Sprintf("internal error: unknown value kind %d", l.kind))
}

// isNull reports whether v renders as NULL.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// sequence returns the elements of v if v is a sequence of values. []byte is
// not a sequence.
func sequence(v any) ([]any, bool) {
	switch v := v.(type) {
	case S:
		return v, true
	case []any:
		return v, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	elems := make([]any, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems, true
}
