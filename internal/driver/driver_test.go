// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/sqlcraft"
)

func TestBuiltinDrivers(t *testing.T) {
	tests := []struct {
		name    string
		dialect *sqlcraft.Dialect
	}{
		{"sqlite3", sqlcraft.SQLite},
		{"pgx", sqlcraft.PostgreSQL},
		{"postgres", sqlcraft.PostgreSQL},
		{"mysql", sqlcraft.MySQL},
		{"duckdb", sqlcraft.DuckDB},
	}
	for _, test := range tests {
		d, err := Lookup(test.name)
		require.NoError(t, err, test.name)
		assert.Equal(t, test.name, d.Name)
		assert.Same(t, test.dialect, d.Dialect, test.name)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("oracle")
	require.Error(t, err)

	var unknown *UnknownDriverError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "oracle", unknown.Name)
	assert.Subset(t, unknown.Available, []string{"duckdb", "mysql", "pgx", "postgres", "sqlite3"})
	assert.Contains(t, err.Error(), `unknown driver "oracle"`)

	_, err = Lookup("")
	assert.EqualError(t, err, "driver not specified")
}

func TestRegister(t *testing.T) {
	Register(Driver{Name: "test_driver_internal", Dialect: sqlcraft.Generic})
	d, err := Lookup("test_driver_internal")
	require.NoError(t, err)
	assert.Same(t, sqlcraft.Generic, d.Dialect)
	assert.Contains(t, Names(), "test_driver_internal")
}

func TestOpenSQLite(t *testing.T) {
	db, d, err := Open(context.Background(), "sqlite3", ":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	assert.Same(t, sqlcraft.SQLite, d.Dialect)

	var one int
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestOpenUnknown(t *testing.T) {
	_, _, err := Open(context.Background(), "oracle", "", nil)
	assert.Error(t, err)
}
