// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package config loads the connection profile of the sqlcraft command from
// defaults, a YAML file, SQLCRAFT_ environment variables and command line
// flags, in increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/canonical/sqlcraft"
	"github.com/canonical/sqlcraft/internal/driver"
)

// EnvPrefix is the prefix of the environment variables read by Load.
// Nested keys are separated by a double underscore, as in
// SQLCRAFT_QUOTING__IDENTIFIER_QUOTE.
const EnvPrefix = "SQLCRAFT_"

// Defaults.
const (
	DefaultDriver   = "sqlite3"
	DefaultDSN      = ":memory:"
	DefaultLogLevel = "warn"
)

// quotingFlags maps the quoting override flags to their config keys.
var quotingFlags = map[string]string{
	"identifier-quote":     "quoting.identifier_quote",
	"string-quote":         "quoting.string_quote",
	"escaped-string-quote": "quoting.escaped_string_quote",
	"true-literal":         "quoting.true_literal",
	"false-literal":        "quoting.false_literal",
}

// Profile describes which database to talk to and how to render for it.
type Profile struct {
	// Dialect names a preset dialect. When empty, the driver's dialect is
	// used.
	Dialect  string `koanf:"dialect"`
	Driver   string `koanf:"driver"`
	DSN      string `koanf:"dsn"`
	LogLevel string `koanf:"log_level"`

	// Quoting overrides individual lexical conventions of the dialect.
	Quoting sqlcraft.Config `koanf:"quoting"`
}

// AddFlags registers the flags read by Load on flags.
func AddFlags(flags *pflag.FlagSet) {
	flags.String("dialect", "", "preset dialect ("+strings.Join(sqlcraft.DialectNames(), ", ")+")")
	flags.String("driver", DefaultDriver, "database/sql driver ("+strings.Join(driver.Names(), ", ")+")")
	flags.String("dsn", DefaultDSN, "data source name passed to the driver")
	flags.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("identifier-quote", "", "override the identifier quote")
	flags.String("string-quote", "", "override the string quote")
	flags.String("escaped-string-quote", "", "override the escaped string quote")
	flags.String("true-literal", "", "override the TRUE literal")
	flags.String("false-literal", "", "override the FALSE literal")
}

// Load loads a profile. cfgFile may be empty, in which case no file is read.
// flags may be nil; only flags that were set on the command line are used.
func Load(cfgFile string, flags *pflag.FlagSet) (*Profile, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"driver":    DefaultDriver,
		"dsn":       DefaultDSN,
		"log_level": DefaultLogLevel,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// SQLCRAFT_LOG_LEVEL -> log_level, SQLCRAFT_QUOTING__TRUE_LITERAL -> quoting.true_literal
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			if key, ok := quotingFlags[f.Name]; ok {
				return key, posflag.FlagVal(flags, f)
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var p Profile
	if err := k.Unmarshal("", &p); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return &p, nil
}

func (p *Profile) validate() error {
	if _, err := driver.Lookup(p.Driver); err != nil {
		return err
	}
	if p.Dialect != "" {
		if _, err := sqlcraft.LookupDialect(p.Dialect); err != nil {
			return err
		}
	}
	if _, err := p.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (p *Profile) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(p.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", p.LogLevel)
	}
	return level, nil
}

// BuildDialect returns the dialect of the profile: the named preset, or the
// driver's dialect, with the quoting overrides applied.
func (p *Profile) BuildDialect() (*sqlcraft.Dialect, error) {
	var base *sqlcraft.Dialect
	if p.Dialect != "" {
		d, err := sqlcraft.LookupDialect(p.Dialect)
		if err != nil {
			return nil, err
		}
		base = d
	} else {
		d, err := driver.Lookup(p.Driver)
		if err != nil {
			return nil, err
		}
		base = d.Dialect
	}

	q := p.Quoting
	if q == (sqlcraft.Config{Name: q.Name}) {
		return base, nil
	}

	cfg := base.Config()
	if q.IdentifierQuote != "" {
		cfg.IdentifierQuote = q.IdentifierQuote
	}
	if q.StringQuote != "" {
		cfg.StringQuote = q.StringQuote
		// The preset's escape belongs to the preset's quote.
		cfg.EscapedStringQuote = ""
	}
	if q.EscapedStringQuote != "" {
		cfg.EscapedStringQuote = q.EscapedStringQuote
	}
	if q.TrueLiteral != "" {
		cfg.TrueLiteral = q.TrueLiteral
	}
	if q.FalseLiteral != "" {
		cfg.FalseLiteral = q.FalseLiteral
	}
	return sqlcraft.NewDialect(cfg), nil
}
