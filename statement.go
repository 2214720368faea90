// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlcraft

import (
	"fmt"
	"strings"
)

// SelectOptions holds the optional clauses of a SELECT. Zero fields are
// omitted from the statement.
type SelectOptions struct {
	// Distinct replaces the field list and renders SELECT DISTINCT.
	Distinct []any
	From     any

	// Inner, Left and Right take join fragments built with Join or
	// OuterJoin. They are prefixed with INNER, LEFT and RIGHT.
	Inner Expr
	Left  Expr
	Right Expr

	Where []any

	// Group and Order take fragments built with By.
	Group Expr
	Order Expr

	// Offset is only rendered together with Limit.
	Limit  any
	Offset any
}

// UpdateOptions holds the clauses of an UPDATE. Set is required; it is a
// mapping or a struct with "db" field tags.
type UpdateOptions struct {
	Set   any
	Where []any
	Inner Expr
	Left  Expr
	Right Expr
}

// DeleteOptions holds the optional clauses of a DELETE.
type DeleteOptions struct {
	Where []any
	Inner Expr
	Left  Expr
	Right Expr
}

// statement collects the clauses of a statement in order. The first error
// is kept and later clauses are ignored.
type statement struct {
	b     *Builder
	parts []string
	err   error
}

func (b *Builder) statement(head string) *statement {
	return &statement{b: b, parts: []string{head}}
}

// add appends prefix and e unless e is the zero Expr.
func (s *statement) add(prefix string, e Expr) {
	if s.err != nil || e.IsZero() {
		return
	}
	if e.err != nil {
		s.err = e.err
		return
	}
	s.parts = append(s.parts, prefix+e.text)
}

func (s *statement) joins(inner, left, right Expr) {
	s.add("INNER ", inner)
	s.add("LEFT ", left)
	s.add("RIGHT ", right)
}

func (s *statement) expr() Expr {
	if s.err != nil {
		return s.b.fail(s.err)
	}
	return s.b.Raw(strings.Join(s.parts, " "))
}

// CreateTable renders CREATE TABLE. columns is an M or Pairs from column
// names to column types; the types are trusted text.
//
// Example:
//
//	b.CreateTable("foo", sqlcraft.Pairs{{"id", "INT"}, {"name", "TEXT"}})
//	// => CREATE TABLE "foo" ("id" INT, "name" TEXT)
func (b *Builder) CreateTable(table any, columns any) Expr {
	pairs, err := mappingPairs(columns)
	if err != nil {
		return b.fail(err)
	}
	defs := make([]string, len(pairs))
	for i, p := range pairs {
		var typ string
		switch t := p.Value.(type) {
		case string:
			typ = t
		case Expr:
			if t.err != nil {
				return t
			}
			typ = t.text
		default:
			return b.fail(fmt.Errorf("%w: column type %T", ErrUnsupportedValueKind, p.Value))
		}
		defs[i] = b.name(p.Key).text + " " + typ
	}
	s := b.statement("CREATE TABLE")
	s.add("", b.Name(table))
	s.add("", b.Raw("("+strings.Join(defs, ", ")+")"))
	return s.expr()
}

// DropTable renders DROP TABLE.
func (b *Builder) DropTable(table any) Expr {
	s := b.statement("DROP TABLE")
	s.add("", b.Name(table))
	return s.expr()
}

// Truncate renders TRUNCATE.
func (b *Builder) Truncate(table any) Expr {
	s := b.statement("TRUNCATE")
	s.add("", b.Name(table))
	return s.expr()
}

// Select renders a SELECT statement. Clauses are emitted in the order
// SELECT, FROM, INNER, LEFT, RIGHT, WHERE, GROUP, ORDER, LIMIT, OFFSET.
// Without fields or a Distinct list all columns are selected.
//
// Example:
//
//	b.Select([]any{"bar"}, &sqlcraft.SelectOptions{
//		From:  "foo",
//		Group: b.By("baz").Having(b.Count("qux").Gt(5)),
//	})
//	// => SELECT "bar" FROM "foo" GROUP BY "baz" HAVING COUNT("qux") > 5
func (b *Builder) Select(fields []any, opts *SelectOptions) Expr {
	if opts == nil {
		opts = &SelectOptions{}
	}
	var s *statement
	switch {
	case len(opts.Distinct) > 0:
		s = b.statement("SELECT DISTINCT")
		s.add("", b.Names(opts.Distinct...))
	case len(fields) > 0:
		s = b.statement("SELECT")
		s.add("", b.Names(fields...))
	default:
		s = b.statement("SELECT *")
	}
	if opts.From != nil {
		s.add("FROM ", b.Name(opts.From))
	}
	s.joins(opts.Inner, opts.Left, opts.Right)
	s.add("", b.Where(opts.Where...))
	s.add("GROUP ", opts.Group)
	s.add("ORDER ", opts.Order)
	if opts.Limit != nil {
		s.add("LIMIT ", b.Value(opts.Limit))
		if opts.Offset != nil {
			s.add("OFFSET ", b.Value(opts.Offset))
		}
	}
	return s.expr()
}

// InsertInto renders INSERT INTO with one VALUES tuple per row. A row is a
// mapping or a struct with "db" field tags. The column list is taken from
// the first row. Struct rows supply the values of those columns by tag, and
// when there are several rows omitempty is ignored so that every tuple has
// the same width. Mapping rows must supply the same columns in the same
// order.
func (b *Builder) InsertInto(table any, rows ...any) Expr {
	if len(rows) == 0 {
		return b.fail(ErrEmptyInsert)
	}
	first, err := firstRowPairs(rows[0], len(rows) > 1)
	if err != nil {
		return b.fail(err)
	}
	columns := make([]string, len(first))
	values := make([]any, len(first))
	for i, p := range first {
		columns[i] = p.Key
		values[i] = p.Value
	}

	tuples := make([]string, len(rows))
	for i, row := range rows {
		if i > 0 {
			if values, err = rowValues(row, columns); err != nil {
				return b.fail(err)
			}
		}
		v := b.Values(values...)
		if v.err != nil {
			return v
		}
		tuples[i] = "(" + v.text + ")"
	}
	names := make([]any, len(columns))
	for i, col := range columns {
		names[i] = col
	}
	cols := b.Names(names...)
	s := b.statement("INSERT INTO")
	s.add("", b.Name(table))
	s.add("", b.Raw("("+cols.text+")"))
	s.add("VALUES ", b.Raw(strings.Join(tuples, ", ")))
	return s.expr()
}

// Update renders an UPDATE statement. A nil or empty Set fails with
// ErrMissingAssignment.
func (b *Builder) Update(table any, opts *UpdateOptions) Expr {
	if opts == nil {
		return b.fail(ErrMissingAssignment)
	}
	s := b.statement("UPDATE")
	s.add("", b.Name(table))
	s.add("SET ", b.assignments(opts.Set))
	s.joins(opts.Inner, opts.Left, opts.Right)
	s.add("", b.Where(opts.Where...))
	return s.expr()
}

// DeleteFrom renders a DELETE statement.
func (b *Builder) DeleteFrom(table any, opts *DeleteOptions) Expr {
	if opts == nil {
		opts = &DeleteOptions{}
	}
	s := b.statement("DELETE FROM")
	s.add("", b.Name(table))
	s.joins(opts.Inner, opts.Left, opts.Right)
	s.add("", b.Where(opts.Where...))
	return s.expr()
}
