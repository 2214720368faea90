// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlcraft

func (b *Builder) join(keyword string, table any, on []any) Expr {
	t := b.Name(table)
	if t.err != nil {
		return t
	}
	return b.Raw(keyword + " " + t.text).On(on...)
}

// Join renders JOIN table ON clauses. The result is meant for the Inner,
// Left and Right options of a statement, which add the join type.
//
// Example:
//
//	b.Select(nil, &sqlcraft.SelectOptions{
//		From:  "foo",
//		Inner: b.Join("bar", sqlcraft.M{"foo.bar_id": sqlcraft.Col("bar.id")}),
//	})
//	// => SELECT * FROM "foo" INNER JOIN "bar" ON "foo"."bar_id" = "bar"."id"
func (b *Builder) Join(table any, on ...any) Expr {
	return b.join("JOIN", table, on)
}

// OuterJoin renders OUTER JOIN table ON clauses.
func (b *Builder) OuterJoin(table any, on ...any) Expr {
	return b.join("OUTER JOIN", table, on)
}

// InnerJoin renders INNER JOIN table ON clauses.
func (b *Builder) InnerJoin(table any, on ...any) Expr {
	return b.join("INNER JOIN", table, on)
}

// LeftOuterJoin renders LEFT OUTER JOIN table ON clauses.
func (b *Builder) LeftOuterJoin(table any, on ...any) Expr {
	return b.join("LEFT OUTER JOIN", table, on)
}

// RightOuterJoin renders RIGHT OUTER JOIN table ON clauses.
func (b *Builder) RightOuterJoin(table any, on ...any) Expr {
	return b.join("RIGHT OUTER JOIN", table, on)
}
