// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlcraft

// M is a mapping from column names to values. It can be used as a clause
// term, as the SET of an update, or as a row to insert. Go maps have no
// order, so the columns of an M are always rendered in sorted order; use
// [Pairs] when the order matters.
//
// Example:
//
//	b.Where(sqlcraft.M{"id": 10, "team": []string{"a", "b"}})
//	// => WHERE "id" = 10 AND "team" IN ('a', 'b')
type M map[string]any

// Pair is a single column name and value.
type Pair struct {
	Key   string
	Value any
}

// Pairs is an ordered mapping from column names to values. It is accepted
// wherever an [M] is.
type Pairs []Pair

// S is a sequence of values. As the value of a mapping entry it renders a
// membership test instead of an equality. Any other slice type, except
// []byte, is treated the same way.
type S []any

// Col marks a string as a column reference. Operands of comparisons are
// rendered as values unless they are a Col or an [Expr].
//
// Example:
//
//	b.Name("a.id").Eq(sqlcraft.Col("b.a_id")) // => "a"."id" = "b"."a_id"
type Col string

// Builder renders SQL text under a single [Dialect]. A Builder holds no
// other state; it is safe for concurrent use and every method returns
// independent text.
type Builder struct {
	dialect *Dialect
}

// New returns a Builder for the dialect described by cfg.
func New(cfg Config) *Builder {
	return NewBuilder(NewDialect(cfg))
}

// NewBuilder returns a Builder for d. A nil dialect means [Generic].
func NewBuilder(d *Dialect) *Builder {
	if d == nil {
		d = Generic
	}
	return &Builder{dialect: d}
}

// Dialect returns the dialect the builder renders under.
func (b *Builder) Dialect() *Dialect {
	return b.dialect
}

var genericBuilder = NewBuilder(Generic)
