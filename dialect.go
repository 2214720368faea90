// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlcraft

import (
	"fmt"
	"sort"
	"strings"
)

// Config holds the lexical conventions of a dialect. Empty fields take the
// generic defaults: double quoted identifiers, single quoted strings escaped
// by doubling the quote, and TRUE/FALSE boolean literals.
type Config struct {
	Name               string `koanf:"name"`
	IdentifierQuote    string `koanf:"identifier_quote"`
	StringQuote        string `koanf:"string_quote"`
	EscapedStringQuote string `koanf:"escaped_string_quote"`
	TrueLiteral        string `koanf:"true_literal"`
	FalseLiteral       string `koanf:"false_literal"`
}

// Dialect is an immutable set of lexical conventions. A single Dialect can be
// shared by any number of builders and goroutines.
type Dialect struct {
	name               string
	identifierQuote    string
	stringQuote        string
	escapedStringQuote string
	trueLiteral        string
	falseLiteral       string
}

// NewDialect returns the Dialect described by cfg.
func NewDialect(cfg Config) *Dialect {
	d := &Dialect{
		name:               cfg.Name,
		identifierQuote:    cfg.IdentifierQuote,
		stringQuote:        cfg.StringQuote,
		escapedStringQuote: cfg.EscapedStringQuote,
		trueLiteral:        cfg.TrueLiteral,
		falseLiteral:       cfg.FalseLiteral,
	}
	if d.name == "" {
		d.name = "generic"
	}
	if d.identifierQuote == "" {
		d.identifierQuote = `"`
	}
	if d.stringQuote == "" {
		d.stringQuote = "'"
	}
	if d.escapedStringQuote == "" {
		d.escapedStringQuote = d.stringQuote + d.stringQuote
	}
	if d.trueLiteral == "" {
		d.trueLiteral = "TRUE"
	}
	if d.falseLiteral == "" {
		d.falseLiteral = "FALSE"
	}
	return d
}

// Preset dialects.
var (
	Generic    = NewDialect(Config{})
	PostgreSQL = NewDialect(Config{Name: "postgres"})
	MySQL      = NewDialect(Config{Name: "mysql", IdentifierQuote: "`", StringQuote: `"`, EscapedStringQuote: `""`})
	SQLite     = NewDialect(Config{Name: "sqlite", TrueLiteral: "1", FalseLiteral: "0"})
	DuckDB     = NewDialect(Config{Name: "duckdb"})
)

var presets = map[string]*Dialect{
	Generic.name:    Generic,
	PostgreSQL.name: PostgreSQL,
	MySQL.name:      MySQL,
	SQLite.name:     SQLite,
	DuckDB.name:     DuckDB,
}

// LookupDialect returns the preset dialect with the given name.
func LookupDialect(name string) (*Dialect, error) {
	d, ok := presets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q, have: %s", name, strings.Join(DialectNames(), ", "))
	}
	return d, nil
}

// DialectNames returns the names of the preset dialects in sorted order.
func DialectNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name returns the name of the dialect.
func (d *Dialect) Name() string {
	return d.name
}

// Config returns a copy of the configuration d was built from, with all
// defaults filled in. It can be modified and passed to NewDialect to derive a
// new dialect.
func (d *Dialect) Config() Config {
	return Config{
		Name:               d.name,
		IdentifierQuote:    d.identifierQuote,
		StringQuote:        d.stringQuote,
		EscapedStringQuote: d.escapedStringQuote,
		TrueLiteral:        d.trueLiteral,
		FalseLiteral:       d.falseLiteral,
	}
}

// QuoteIdentifier quotes a single identifier segment. Dots are not
// interpreted.
func (d *Dialect) QuoteIdentifier(segment string) string {
	return d.identifierQuote + segment + d.identifierQuote
}

// QuoteString returns s as a string literal. Every occurrence of the string
// quote inside s is replaced with the escaped string quote.
func (d *Dialect) QuoteString(s string) string {
	return d.stringQuote + strings.ReplaceAll(s, d.stringQuote, d.escapedStringQuote) + d.stringQuote
}

// UnquoteString reverses QuoteString. It reports false if lit is not a string
// literal of this dialect.
func (d *Dialect) UnquoteString(lit string) (string, bool) {
	q := d.stringQuote
	if len(lit) < 2*len(q) || !strings.HasPrefix(lit, q) || !strings.HasSuffix(lit, q) {
		return "", false
	}
	inner := lit[len(q) : len(lit)-len(q)]
	return strings.ReplaceAll(inner, d.escapedStringQuote, d.stringQuote), true
}

// BoolLiteral returns the literal spelling of b.
func (d *Dialect) BoolLiteral(b bool) string {
	if b {
		return d.trueLiteral
	}
	return d.falseLiteral
}
