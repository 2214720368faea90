// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package driver maps the database/sql drivers known to sqlcraft to the
// dialect their databases speak, and opens connections through them.
package driver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/mattn/go-sqlite3"

	"github.com/canonical/sqlcraft"
)

// Driver describes a database/sql driver.
type Driver struct {
	// Name is the name the driver is registered under with database/sql.
	Name string

	// Dialect is the dialect used when none is configured.
	Dialect *sqlcraft.Dialect
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Driver)
)

func init() {
	Register(Driver{Name: "sqlite3", Dialect: sqlcraft.SQLite})
	Register(Driver{Name: "pgx", Dialect: sqlcraft.PostgreSQL})
	Register(Driver{Name: "postgres", Dialect: sqlcraft.PostgreSQL})
	Register(Driver{Name: "mysql", Dialect: sqlcraft.MySQL})
	Register(Driver{Name: "duckdb", Dialect: sqlcraft.DuckDB})
}

// Register adds a driver to the registry, replacing any driver of the same
// name.
func Register(d Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name] = d
}

// Lookup returns the driver registered under name.
func Lookup(name string) (Driver, error) {
	if name == "" {
		return Driver{}, fmt.Errorf("driver not specified")
	}
	registryMu.RLock()
	d, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return Driver{}, &UnknownDriverError{Name: name, Available: Names()}
	}
	return d, nil
}

// Names returns the registered driver names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens a database with the named driver and checks that it can be
// reached.
func Open(ctx context.Context, name, dsn string, logger *slog.Logger) (*sql.DB, Driver, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d, err := Lookup(name)
	if err != nil {
		return nil, Driver{}, err
	}

	logger.Debug("opening database", slog.String("driver", d.Name), slog.String("dialect", d.Dialect.Name()))

	db, err := sql.Open(d.Name, dsn)
	if err != nil {
		return nil, Driver{}, fmt.Errorf("cannot open %s database: %w", d.Name, err)
	}
	if d.Name == "sqlite3" && strings.Contains(dsn, ":memory:") {
		// Each connection to an in-memory SQLite database is a separate
		// database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, Driver{}, fmt.Errorf("cannot reach %s database: %w", d.Name, err)
	}
	return db, d, nil
}

// UnknownDriverError is returned when an unregistered driver is requested.
type UnknownDriverError struct {
	Name      string
	Available []string
}

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("unknown driver %q, available drivers: %v", e.Name, e.Available)
}
