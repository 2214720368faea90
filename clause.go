// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlcraft

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/canonical/sqlcraft/internal/typeinfo"
)

// AndClause composes terms into a conjunction. A term is one of:
//   - a mapping (M, map[string]any or Pairs), giving one equality per entry,
//     or a membership test if the entry's value is a sequence;
//   - a single Pair, treated the same way;
//   - a []any, composed recursively as a nested group of terms;
//   - an Expr, parenthesized if it wants parens;
//   - a string, used verbatim as a trusted fragment.
//
// Any other term fails with ErrUnsupportedClauseTerm.
func (b *Builder) AndClause(terms ...any) Expr {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		s, err := b.clauseTerm(term)
		if err != nil {
			return b.fail(err)
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return b.Raw(strings.Join(parts, " AND "))
}

// Where renders WHERE followed by the conjunction of terms. Without terms,
// or when every term is empty, it returns the zero Expr.
func (b *Builder) Where(terms ...any) Expr {
	if len(terms) == 0 {
		return Expr{}
	}
	c := b.AndClause(terms...)
	if c.err != nil {
		return c
	}
	if c.text == "" {
		return Expr{}
	}
	return b.Raw("WHERE " + c.text)
}

func (b *Builder) clauseTerm(term any) (string, error) {
	switch term := term.(type) {
	case Expr:
		if term.err != nil {
			return "", term.err
		}
		return term.conjoinable(), nil
	case string:
		return term, nil
	case Pair:
		e := b.pairTerm(term)
		return e.text, e.err
	case []any:
		e := b.AndClause(term...)
		return e.text, e.err
	case M, map[string]any, Pairs:
		pairs, err := mappingPairs(term)
		if err != nil {
			return "", err
		}
		parts := make([]string, len(pairs))
		for i, p := range pairs {
			e := b.pairTerm(p)
			if e.err != nil {
				return "", e.err
			}
			parts[i] = e.text
		}
		return strings.Join(parts, " AND "), nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedClauseTerm, term)
}

// pairTerm renders the equality, or membership test, of a single pair.
func (b *Builder) pairTerm(p Pair) Expr {
	if values, ok := sequence(p.Value); ok {
		return b.Name(p.Key).In(values...)
	}
	return b.Name(p.Key).Eq(p.Value)
}

// assignments renders the comma separated "name = value" list of a SET.
func (b *Builder) assignments(set any) Expr {
	if set == nil {
		return b.fail(ErrMissingAssignment)
	}
	pairs, err := rowPairs(set)
	if err != nil {
		return b.fail(err)
	}
	if len(pairs) == 0 {
		return b.fail(ErrMissingAssignment)
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		v := b.NameOrValue(p.Value)
		if v.err != nil {
			return v
		}
		parts[i] = b.name(p.Key).text + " = " + v.text
	}
	return b.Raw(strings.Join(parts, ", "))
}

// mappingPairs returns the entries of an M, a map[string]any or a Pairs.
// Map entries are sorted by key.
func mappingPairs(m any) (Pairs, error) {
	switch m := m.(type) {
	case Pairs:
		return m, nil
	case M:
		return sortedPairs(m), nil
	case map[string]any:
		return sortedPairs(m), nil
	}
	return nil, fmt.Errorf("%w: %T is not a mapping", ErrUnsupportedClauseTerm, m)
}

func sortedPairs(m map[string]any) Pairs {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make(Pairs, len(keys))
	for i, k := range keys {
		pairs[i] = Pair{Key: k, Value: m[k]}
	}
	return pairs
}

// rowPairs returns the columns of a row, which is a mapping or a struct
// with "db" field tags.
func rowPairs(row any) (Pairs, error) {
	switch row.(type) {
	case Pairs, M, map[string]any:
		return mappingPairs(row)
	}
	if isStructRow(row) {
		columns, values, err := typeinfo.Row(row)
		if err != nil {
			return nil, err
		}
		return zipPairs(columns, values), nil
	}
	return nil, fmt.Errorf("%w: cannot use %T as a row", ErrUnsupportedValueKind, row)
}

// firstRowPairs returns the columns of the first row of an insert. With
// several rows, a struct row keeps its omitempty columns.
func firstRowPairs(row any, several bool) (Pairs, error) {
	if !several || !isStructRow(row) {
		return rowPairs(row)
	}
	columns, err := typeinfo.Columns(row)
	if err != nil {
		return nil, err
	}
	values, err := typeinfo.Values(row, columns)
	if err != nil {
		return nil, err
	}
	return zipPairs(columns, values), nil
}

// rowValues returns the values of a row after the first. Struct fields are
// looked up by the given columns; mapping entries are taken in order.
func rowValues(row any, columns []string) ([]any, error) {
	if isStructRow(row) {
		return typeinfo.Values(row, columns)
	}
	pairs, err := rowPairs(row)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(pairs))
	for i, p := range pairs {
		values[i] = p.Value
	}
	return values, nil
}

func isStructRow(row any) bool {
	return reflect.Indirect(reflect.ValueOf(row)).Kind() == reflect.Struct
}

func zipPairs(columns []string, values []any) Pairs {
	pairs := make(Pairs, len(columns))
	for i := range columns {
		pairs[i] = Pair{Key: columns[i], Value: values[i]}
	}
	return pairs
}
