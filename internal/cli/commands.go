// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/canonical/sqlcraft"
	"github.com/canonical/sqlcraft/internal/document"
	"github.com/canonical/sqlcraft/internal/driver"
)

// loadDocument reads and renders the statement document at path under d.
func loadDocument(ctx context.Context, path string, d *sqlcraft.Dialect) ([]document.Statement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read document: %w", err)
	}
	stmts, err := document.Parse(data, sqlcraft.NewBuilder(d))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	getLogger(ctx).Debug("rendered document",
		slog.String("path", path),
		slog.String("dialect", d.Name()),
		slog.Int("statements", len(stmts)),
	)
	return stmts, nil
}

func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render FILE",
		Short: "Print the SQL of each statement in a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := getProfile(cmd.Context()).BuildDialect()
			if err != nil {
				return err
			}
			stmts, err := loadDocument(cmd.Context(), args[0], d)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range stmts {
				if _, err := fmt.Fprintf(out, "%s;\n", s.Expr); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newExecCmd() *cobra.Command {
	var inTransaction bool

	cmd := &cobra.Command{
		Use:   "exec FILE",
		Short: "Run each statement in a document against the configured database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			profile := getProfile(ctx)
			logger := getLogger(ctx)

			d, err := profile.BuildDialect()
			if err != nil {
				return err
			}
			stmts, err := loadDocument(ctx, args[0], d)
			if err != nil {
				return err
			}

			sqldb, _, err := driver.Open(ctx, profile.Driver, profile.DSN, logger)
			if err != nil {
				return err
			}
			defer sqldb.Close()

			db := sqlcraft.NewDB(sqldb, sqlcraft.NewBuilder(d), sqlcraft.WithLogger(logger))
			if !inTransaction {
				return runStatements(ctx, cmd.OutOrStdout(), db, stmts)
			}

			tx, err := db.Begin(ctx, nil)
			if err != nil {
				return err
			}
			if err := runStatements(ctx, cmd.OutOrStdout(), tx.DB, stmts); err != nil {
				if rbErr := tx.Rollback(); rbErr != nil {
					logger.Error("rollback failed", slog.String("error", rbErr.Error()))
				}
				return err
			}
			return tx.Commit()
		},
	}
	cmd.Flags().BoolVar(&inTransaction, "transaction", false, "run all statements in a single transaction")
	return cmd
}

func runStatements(ctx context.Context, w io.Writer, db *sqlcraft.DB, stmts []document.Statement) error {
	for _, s := range stmts {
		if s.Kind == "select" {
			rows, err := db.Query(ctx, s.Expr)
			if err != nil {
				return fmt.Errorf("line %d: %w", s.Line, err)
			}
			err = renderRows(w, rows)
			rows.Close()
			if err != nil {
				return fmt.Errorf("line %d: %w", s.Line, err)
			}
			continue
		}
		result, err := db.Exec(ctx, s.Expr)
		if err != nil {
			return fmt.Errorf("line %d: %w", s.Line, err)
		}
		line := fmt.Sprintf("%s: ok\n", s.Kind)
		if n, err := result.RowsAffected(); err == nil {
			line = fmt.Sprintf("%s: %d rows affected\n", s.Kind, n)
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

func newDialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the preset dialects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Identifier", "String", "Escaped", "True", "False"})
			for _, name := range sqlcraft.DialectNames() {
				d, err := sqlcraft.LookupDialect(name)
				if err != nil {
					return err
				}
				cfg := d.Config()
				t.AppendRow(table.Row{cfg.Name, cfg.IdentifierQuote, cfg.StringQuote, cfg.EscapedStringQuote, cfg.TrueLiteral, cfg.FalseLiteral})
			}
			t.Render()
			return nil
		},
	}
}
