// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package cli

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// renderRows prints rows as a table followed by the row count.
func renderRows(w io.Writer, rows *sql.Rows) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	var results []table.Row
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return err
		}
		row := make(table.Row, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)
	t.AppendRows(results)
	t.Render()
	_, err = fmt.Fprintf(w, "(%d rows)\n", len(results))
	return err
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	}
	return fmt.Sprint(v)
}
