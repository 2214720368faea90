// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlcraft

import (
	"fmt"
	"strings"
)

// Raw returns text as a trusted fragment. It is never quoted or escaped.
func (b *Builder) Raw(text string) Expr {
	return Expr{b: b, text: text}
}

// fail returns an Expr carrying err.
func (b *Builder) fail(err error) Expr {
	return Expr{b: b, err: err}
}

// Name renders an identifier. A string or Col is split on "." and each
// segment is quoted; "*" is left bare and an Expr is returned unchanged.
func (b *Builder) Name(id any) Expr {
	switch id := id.(type) {
	case Expr:
		return id
	case Col:
		return b.name(string(id))
	case string:
		return b.name(id)
	}
	return b.fail(fmt.Errorf("%w: cannot use %T as a name", ErrUnsupportedValueKind, id))
}

func (b *Builder) name(id string) Expr {
	if id == "*" {
		return b.Raw(id)
	}
	segments := strings.Split(id, ".")
	for i, s := range segments {
		segments[i] = b.dialect.QuoteIdentifier(s)
	}
	return b.Raw(strings.Join(segments, "."))
}

// Names renders a comma separated list of identifiers.
func (b *Builder) Names(ids ...any) Expr {
	return b.list(ids, b.Name)
}

// Value renders v as a literal of the builder's dialect.
func (b *Builder) Value(v any) Expr {
	l, err := classify(v)
	if err != nil {
		return b.fail(err)
	}
	if l.kind == rawKind {
		return l.raw
	}
	return b.Raw(b.dialect.render(l))
}

// Values renders a comma separated list of literals.
func (b *Builder) Values(vs ...any) Expr {
	return b.list(vs, b.Value)
}

// NameOrValue renders v as an identifier if it is a Col and as a literal
// otherwise.
func (b *Builder) NameOrValue(v any) Expr {
	if c, ok := v.(Col); ok {
		return b.name(string(c))
	}
	return b.Value(v)
}

// NamesOrValues renders a comma separated list where each item goes through
// NameOrValue.
func (b *Builder) NamesOrValues(vs ...any) Expr {
	return b.list(vs, b.NameOrValue)
}

// Function renders a function call. Arguments go through NameOrValue.
//
// Example:
//
//	b.Function("COALESCE", sqlcraft.Col("foo"), 0) // => COALESCE("foo", 0)
func (b *Builder) Function(name string, args ...any) Expr {
	a := b.NamesOrValues(args...)
	if a.err != nil {
		return a
	}
	return b.Raw(name + "(" + a.text + ")")
}

// Fn is short for Function.
func (b *Builder) Fn(name string, args ...any) Expr {
	return b.Function(name, args...)
}

// Count renders COUNT over the given columns, or COUNT(*) when there are
// none.
func (b *Builder) Count(cols ...any) Expr {
	if len(cols) == 0 {
		return b.Raw("COUNT(*)")
	}
	c := b.Names(cols...)
	if c.err != nil {
		return c
	}
	return b.Raw("COUNT(" + c.text + ")")
}

// By renders a BY list for the Group and Order options of Select. Items are
// names or Expr values such as b.Name("x").Desc().
func (b *Builder) By(items ...any) Expr {
	n := b.Names(items...)
	if n.err != nil {
		return n
	}
	return b.Raw("BY " + n.text)
}

// list renders each item with render and joins them with commas. The first
// error wins.
func (b *Builder) list(items []any, render func(any) Expr) Expr {
	texts := make([]string, len(items))
	for i, item := range items {
		e := render(item)
		if e.err != nil {
			return b.fail(e.err)
		}
		texts[i] = e.text
	}
	return b.Raw(strings.Join(texts, ", "))
}
