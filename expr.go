// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlcraft

import "strings"

// Expr is a rendered SQL fragment. It records whether it must be
// parenthesized before being conjoined with AND; only Or sets that flag.
//
// Expr values are immutable and every combinator returns a new one. If
// rendering fails the error is kept inside the Expr and carried through any
// further combinators; it is reported by SQL and Err.
//
// The zero Expr means "absent" wherever a statement takes an optional
// clause.
type Expr struct {
	b      *Builder
	text   string
	parens bool
	err    error
}

// SQL returns the rendered text, or the first error met while rendering it.
func (e Expr) SQL() (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return e.text, nil
}

// String returns the rendered text. It is empty if rendering failed.
func (e Expr) String() string {
	return e.text
}

// Err returns the first error met while rendering e.
func (e Expr) Err() error {
	return e.err
}

// IsZero reports whether e is the zero Expr.
func (e Expr) IsZero() bool {
	return e.b == nil && e.text == "" && e.err == nil
}

// WantsParens reports whether e must be parenthesized when conjoined.
func (e Expr) WantsParens() bool {
	return e.parens
}

// Parens returns e wrapped in parentheses.
func (e Expr) Parens() Expr {
	return e.derive("("+e.text+")", false)
}

func (e Expr) builder() *Builder {
	if e.b == nil {
		return genericBuilder
	}
	return e.b
}

// derive returns a new Expr with the given text under the same builder,
// unless e or one of deps already failed.
func (e Expr) derive(text string, parens bool, deps ...Expr) Expr {
	if e.err != nil {
		return e
	}
	for _, d := range deps {
		if d.err != nil {
			return Expr{b: e.b, err: d.err}
		}
	}
	return Expr{b: e.b, text: text, parens: parens}
}

// conjoinable returns the text of e as it must appear inside an AND.
func (e Expr) conjoinable() string {
	if e.parens {
		return "(" + e.text + ")"
	}
	return e.text
}

func (e Expr) compare(op string, v any) Expr {
	rhs := e.builder().NameOrValue(v)
	return e.derive(e.text+" "+op+" "+rhs.text, false, rhs)
}

// Eq renders e = v. A nil v renders e IS NULL.
func (e Expr) Eq(v any) Expr {
	if isNull(v) {
		return e.derive(e.text+" IS NULL", false)
	}
	return e.compare("=", v)
}

// Ne renders e != v. A nil v renders e IS NOT NULL.
func (e Expr) Ne(v any) Expr {
	if isNull(v) {
		return e.derive(e.text+" IS NOT NULL", false)
	}
	return e.compare("!=", v)
}

// Lt renders e < v.
func (e Expr) Lt(v any) Expr {
	return e.compare("<", v)
}

// Gt renders e > v.
func (e Expr) Gt(v any) Expr {
	return e.compare(">", v)
}

// Le renders e <= v.
func (e Expr) Le(v any) Expr {
	return e.compare("<=", v)
}

// Ge renders e >= v.
func (e Expr) Ge(v any) Expr {
	return e.compare(">=", v)
}

// Is renders e IS v.
func (e Expr) Is(v any) Expr {
	return e.compare("IS", v)
}

// IsNot renders e IS NOT v.
func (e Expr) IsNot(v any) Expr {
	return e.compare("IS NOT", v)
}

// In renders e IN (values...). A single Expr argument, such as a nested
// SELECT, is placed inside the parentheses as is. Without values it renders
// the always false 1 = 0.
func (e Expr) In(values ...any) Expr {
	if len(values) == 0 {
		return e.derive("1 = 0", false)
	}
	vs := e.builder().Values(values...)
	return e.derive(e.text+" IN ("+vs.text+")", false, vs)
}

// NotIn renders e NOT IN (values...). Without values it renders 1 = 1.
func (e Expr) NotIn(values ...any) Expr {
	if len(values) == 0 {
		return e.derive("1 = 1", false)
	}
	vs := e.builder().Values(values...)
	return e.derive(e.text+" NOT IN ("+vs.text+")", false, vs)
}

// Like renders e LIKE pattern. The pattern is rendered as a value.
func (e Expr) Like(pattern any) Expr {
	p := e.builder().Value(pattern)
	return e.derive(e.text+" LIKE "+p.text, false, p)
}

// NotLike renders e NOT LIKE pattern.
func (e Expr) NotLike(pattern any) Expr {
	p := e.builder().Value(pattern)
	return e.derive(e.text+" NOT LIKE "+p.text, false, p)
}

// As renders e AS alias.
func (e Expr) As(alias any) Expr {
	a := e.builder().Name(alias)
	return e.derive(e.text+" AS "+a.text, false, a)
}

// On appends an ON clause composed from the given terms. Without terms, or
// when they compose to nothing, e is returned unchanged.
func (e Expr) On(clauses ...any) Expr {
	if len(clauses) == 0 {
		return e
	}
	c := e.builder().AndClause(clauses...)
	if c.err == nil && c.text == "" {
		return e
	}
	return e.derive(e.text+" ON "+c.text, false, c)
}

// Having appends a HAVING clause composed from the given terms. Without
// terms, or when they compose to nothing, e is returned unchanged.
func (e Expr) Having(clauses ...any) Expr {
	if len(clauses) == 0 {
		return e
	}
	c := e.builder().AndClause(clauses...)
	if c.err == nil && c.text == "" {
		return e
	}
	return e.derive(e.text+" HAVING "+c.text, false, c)
}

// Asc renders e ASC.
func (e Expr) Asc() Expr {
	return e.derive(e.text+" ASC", false)
}

// Desc renders e DESC.
func (e Expr) Desc() Expr {
	return e.derive(e.text+" DESC", false)
}

// And conjoins e with the clause composed from the given terms. e is
// parenthesized first if it wants parens. The result never wants parens.
// When the terms compose to nothing e is returned unchanged.
//
// Example:
//
//	foo.Eq(0).And(foo.Eq(1).Or(bar.Eq(2)))
//	// => "foo" = 0 AND ("foo" = 1 OR "bar" = 2)
func (e Expr) And(clauses ...any) Expr {
	if len(clauses) == 0 {
		return e
	}
	c := e.builder().AndClause(clauses...)
	if c.err == nil && c.text == "" {
		return e
	}
	return e.derive(e.conjoinable()+" AND "+c.text, false, c)
}

// Or disjoins e with each of the given terms. Terms that compose to nothing
// are dropped. The result wants parens, so it is parenthesized when later
// conjoined.
func (e Expr) Or(clauses ...any) Expr {
	if len(clauses) == 0 {
		return e
	}
	b := e.builder()
	terms := make([]string, 0, len(clauses)+1)
	terms = append(terms, e.text)
	for _, clause := range clauses {
		c := b.AndClause(clause)
		if c.err != nil {
			return e.derive("", false, c)
		}
		if c.text != "" {
			terms = append(terms, c.text)
		}
	}
	if len(terms) == 1 {
		return e
	}
	return e.derive(strings.Join(terms, " OR "), true)
}
