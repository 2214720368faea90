// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/sqlcraft"
	"github.com/canonical/sqlcraft/internal/document"
	"github.com/canonical/sqlcraft/internal/driver"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRenderGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name string
		args []string
	}{
		{name: "render_sqlite", args: []string{"render", "testdata/people.yaml"}},
		{name: "render_mysql", args: []string{"render", "--dialect", "mysql", "testdata/people.yaml"}},
		{name: "render_overrides", args: []string{"render", "--true-literal", "yes", "--false-literal", "no", "testdata/people.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			g.Assert(t, tt.name, []byte(out))
		})
	}
}

func TestRenderErrors(t *testing.T) {
	_, err := run(t, "render", "testdata/bad.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, sqlcraft.ErrUnsupportedValueKind)
	assert.Contains(t, err.Error(), "line 4: cannot render select")

	_, err = run(t, "render", "testdata/missing.yaml")
	assert.ErrorContains(t, err, "cannot read document")

	_, err = run(t, "render", "--dialect", "oracle", "testdata/people.yaml")
	assert.ErrorContains(t, err, `unknown dialect "oracle"`)

	_, err = run(t, "render")
	assert.Error(t, err)
}

func TestExec(t *testing.T) {
	out, err := run(t, "exec", "testdata/people.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "create_table: 0 rows affected")
	assert.Contains(t, out, "insert_into: 3 rows affected")
	assert.Contains(t, out, "update: 1 rows affected")
	assert.Contains(t, out, "delete_from: 1 rows affected")
	assert.Contains(t, out, "Fred")
	assert.Contains(t, out, "Jim")
	assert.Contains(t, out, "(2 rows)")
	assert.Contains(t, out, "(1 rows)")
}

func TestExecTransactionRollsBack(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "tx.db")
	doc := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, os.WriteFile(doc, []byte(`statements:
  - create_table:
      table: t
      columns: {id: INTEGER}
`), 0o644))

	_, err := run(t, "exec", "--dsn", dsn, doc)
	require.NoError(t, err)

	failing := filepath.Join(t.TempDir(), "failing.yaml")
	require.NoError(t, os.WriteFile(failing, []byte(`statements:
  - insert_into:
      table: t
      rows: [{id: 1}]
  - insert_into:
      table: missing
      rows: [{id: 2}]
`), 0o644))

	_, err = run(t, "exec", "--transaction", "--dsn", dsn, failing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 5")

	check := filepath.Join(t.TempDir(), "check.yaml")
	require.NoError(t, os.WriteFile(check, []byte(`statements:
  - select:
      from: t
`), 0o644))

	out, err := run(t, "exec", "--dsn", dsn, check)
	require.NoError(t, err)
	assert.Equal(t, "(0 rows)\n", out)
}

func TestDialects(t *testing.T) {
	out, err := run(t, "dialects")
	require.NoError(t, err)

	for _, name := range sqlcraft.DialectNames() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "IDENTIFIER")
	assert.Contains(t, out, "`")
}

func TestInvalidProfile(t *testing.T) {
	_, err := run(t, "dialects", "--driver", "oracle")
	assert.ErrorContains(t, err, "invalid profile")

	_, err = run(t, "dialects", "--log-level", "loud")
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRunStatementsWriteErrors(t *testing.T) {
	ctx := context.Background()
	sqldb, d, err := driver.Open(ctx, "sqlite3", ":memory:", nil)
	require.NoError(t, err)
	defer sqldb.Close()

	b := sqlcraft.NewBuilder(d.Dialect)
	stmts, err := document.Parse([]byte(`statements:
  - create_table:
      table: t
      columns: {id: INTEGER}
  - select:
      from: t
`), b)
	require.NoError(t, err)
	db := sqlcraft.NewDB(sqldb, b)

	err = runStatements(ctx, failingWriter{}, db, stmts[:1])
	assert.EqualError(t, err, "disk full")

	err = runStatements(ctx, failingWriter{}, db, stmts[1:])
	assert.EqualError(t, err, "line 5: disk full")
}
