/*
Package sqlcraft renders SQL text from composable Go values.

Statements are built from fragments instead of string concatenation. Every
identifier is quoted and every value is rendered as an escaped literal of
the target dialect, so the output is plain SQL text with no placeholders.
This package does not parse SQL; raw fragments handed to it are trusted.

# Basics

A [Builder] renders under one [Dialect]:

	b := sqlcraft.NewBuilder(sqlcraft.PostgreSQL)
	stmt := b.Select([]any{"name", "team"}, &sqlcraft.SelectOptions{
		From:  "person",
		Where: []any{sqlcraft.M{"id": 10, "team": []string{"a", "b"}}},
	})

renders:

	SELECT "name", "team" FROM "person" WHERE "id" = 10 AND "team" IN ('a', 'b')

Names are split on dots and each segment is quoted, so "person.name" becomes
"person"."name". Values are strings, integers, booleans, [time.Time], [Date],
nil (rendered as NULL) or pointers to any of these. A [Col] is a column
reference where a value would otherwise be expected.

# Expressions

Every fragment is an [Expr]. Comparisons, IN, LIKE, AS and the boolean
connectives are methods on Expr and return new values:

	foo := b.Name("foo")
	bar := b.Name("bar")
	foo.Eq(0).And(foo.Eq(1).Or(bar.Eq(2)))
	// => "foo" = 0 AND ("foo" = 1 OR "bar" = 2)

A disjunction is only parenthesized when it is later conjoined with AND, so
no redundant parentheses are emitted.

# Clause terms

WHERE, ON and HAVING take clause terms: mappings of column to value ([M],
[Pairs]), nested []any groups, Expr values, or raw strings. A mapping
renders one equality per entry, or a membership test when the entry's value
is a sequence, and the terms are conjoined with AND.

# Errors

Rendering errors are kept inside the returned Expr and carried through any
later combinators. They are reported by [Expr.SQL] and are never sent to a
database: [DB] checks them before calling its [Executor].
*/
package sqlcraft
