// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package document decodes YAML statement documents into rendered
// statements.
//
// A document holds a list of statements, each a mapping with a single key
// naming its kind:
//
//	statements:
//	  - create_table:
//	      table: person
//	      columns: {id: INTEGER, name: TEXT}
//	  - insert_into:
//	      table: person
//	      rows:
//	        - {id: 1, name: Fred}
//	  - select:
//	      fields: [name]
//	      from: person
//	      where:
//	        - {id: [1, 2]}
//	        - "name IS NOT NULL"
//	      order: [{id: desc}]
//
// Mapping order is kept, so columns and rows render in the order written.
// Scalars are typed by YAML: strings, integers, booleans, timestamps and
// null. The !col tag marks a column reference, !raw a trusted fragment and
// !date a calendar date. A plain string inside a where list is a trusted
// fragment.
package document

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/canonical/sqlcraft"
)

// Statement is a rendered statement of a document.
type Statement struct {
	// Kind is the key naming the statement, such as "select".
	Kind string

	// Line is the line of the document the statement starts on.
	Line int

	Expr sqlcraft.Expr
}

// Parse decodes a statement document and renders each statement with b.
func Parse(data []byte, b *sqlcraft.Builder) ([]Statement, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("cannot parse document: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("cannot parse document: document is empty")
	}

	doc, err := fields(root.Content[0], "statements")
	if err != nil {
		return nil, err
	}
	list, ok := doc["statements"]
	if !ok {
		return nil, errorf(root.Content[0], "missing statements")
	}
	if list.Kind != yaml.SequenceNode {
		return nil, errorf(list, "statements must be a list")
	}

	p := parser{b: b}
	stmts := make([]Statement, 0, len(list.Content))
	for _, item := range list.Content {
		if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
			return nil, errorf(item, "statement must be a mapping with a single key naming its kind")
		}
		kind := item.Content[0].Value
		e, err := p.statement(kind, item.Content[1])
		if err != nil {
			return nil, err
		}
		if err := e.Err(); err != nil {
			return nil, errorf(item, "cannot render %s: %w", kind, err)
		}
		stmts = append(stmts, Statement{Kind: kind, Line: item.Line, Expr: e})
	}
	return stmts, nil
}

func errorf(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: "+format, append([]any{n.Line}, args...)...)
}

// fields returns the values of a mapping node by key. Keys outside allowed
// are rejected.
func fields(n *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errorf(n, "expected a mapping")
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if !contains(allowed, key.Value) {
			return nil, errorf(key, "unknown field %q", key.Value)
		}
		if _, ok := out[key.Value]; ok {
			return nil, errorf(key, "duplicate field %q", key.Value)
		}
		out[key.Value] = value
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

type parser struct {
	b *sqlcraft.Builder
}

func (p parser) statement(kind string, n *yaml.Node) (sqlcraft.Expr, error) {
	switch kind {
	case "create_table":
		return p.createTable(n)
	case "drop_table":
		table, err := p.table(n)
		if err != nil {
			return sqlcraft.Expr{}, err
		}
		return p.b.DropTable(table), nil
	case "truncate":
		table, err := p.table(n)
		if err != nil {
			return sqlcraft.Expr{}, err
		}
		return p.b.Truncate(table), nil
	case "select":
		return p.selectStatement(n)
	case "insert_into":
		return p.insertInto(n)
	case "update":
		return p.update(n)
	case "delete_from":
		return p.deleteFrom(n)
	}
	return sqlcraft.Expr{}, errorf(n, "unknown statement kind %q", kind)
}

// table decodes a mapping holding only a table name.
func (p parser) table(n *yaml.Node) (any, error) {
	f, err := fields(n, "table")
	if err != nil {
		return nil, err
	}
	return p.required(n, f, "table")
}

func (p parser) required(parent *yaml.Node, f map[string]*yaml.Node, key string) (any, error) {
	n, ok := f[key]
	if !ok {
		return nil, errorf(parent, "missing %s", key)
	}
	return p.name(n)
}

func (p parser) createTable(n *yaml.Node) (sqlcraft.Expr, error) {
	f, err := fields(n, "table", "columns")
	if err != nil {
		return sqlcraft.Expr{}, err
	}
	table, err := p.required(n, f, "table")
	if err != nil {
		return sqlcraft.Expr{}, err
	}
	cols, ok := f["columns"]
	if !ok {
		return sqlcraft.Expr{}, errorf(n, "missing columns")
	}
	if cols.Kind != yaml.MappingNode {
		return sqlcraft.Expr{}, errorf(cols, "columns must be a mapping of names to types")
	}
	defs := make(sqlcraft.Pairs, 0, len(cols.Content)/2)
	for i := 0; i < len(cols.Content); i += 2 {
		key, typ := cols.Content[i], cols.Content[i+1]
		if typ.Kind != yaml.ScalarNode {
			return sqlcraft.Expr{}, errorf(typ, "type of column %q must be a scalar", key.Value)
		}
		defs = append(defs, sqlcraft.Pair{Key: key.Value, Value: typ.Value})
	}
	return p.b.CreateTable(table, defs), nil
}

func (p parser) selectStatement(n *yaml.Node) (sqlcraft.Expr, error) {
	f, err := fields(n, "fields", "distinct", "from", "inner", "left", "right", "where", "group", "order", "limit", "offset")
	if err != nil {
		return sqlcraft.Expr{}, err
	}
	var cols []any
	opts := &sqlcraft.SelectOptions{}
	if v, ok := f["fields"]; ok {
		if cols, err = p.names(v); err != nil {
			return sqlcraft.Expr{}, err
		}
	}
	if v, ok := f["distinct"]; ok {
		if opts.Distinct, err = p.names(v); err != nil {
			return sqlcraft.Expr{}, err
		}
	}
	if v, ok := f["from"]; ok {
		if opts.From, err = p.name(v); err != nil {
			return sqlcraft.Expr{}, err
		}
	}
	if opts.Inner, opts.Left, opts.Right, err = p.joins(f); err != nil {
		return sqlcraft.Expr{}, err
	}
	if v, ok := f["where"]; ok {
		if opts.Where, err = p.terms(v); err != nil {
			return sqlcraft.Expr{}, err
		}
	}
	if v, ok := f["group"]; ok {
		if opts.Group, err = p.group(v); err != nil {
			return sqlcraft.Expr{}, err
		}
	}
	if v, ok := f["order"]; ok {
		if opts.Order, err = p.by(v); err != nil {
			return sqlcraft.Expr{}, err
		}
	}
	if v, ok := f["limit"]; ok {
		if opts.Limit, err = p.scalar(v); err != nil {
			return sqlcraft.Expr{}, err
		}
	}
	if v, ok := f["offset"]; ok {
		if opts.Offset, err = p.scalar(v); err != nil {
			return sqlcraft.Expr{}, err
		}
	}
	return p.b.Select(cols, opts), nil
}

func (p parser) insertInto(n *yaml.Node) (sqlcraft.Expr, error) {
	f, err := fields(n, "table", "rows")
	if err != nil {
		return sqlcraft.Expr{}, err
	}
	table, err := p.required(n, f, "table")
	if err != nil {
		return sqlcraft.Expr{}, err
	}
	list, ok := f["rows"]
	if !ok {
		return sqlcraft.Expr{}, errorf(n, "missing rows")
	}
	if list.Kind != yaml.SequenceNode {
		return sqlcraft.Expr{}, errorf(list, "rows must be a list of mappings")
	}
	rows := make([]any, len(list.Content))
	for i, item := range list.Content {
		if rows[i], err = p.pairs(item); err != nil {
			return sqlcraft.Expr{}, err
		}
	}
	return p.b.InsertInto(table, rows...), nil
}

func (p parser) update(n *yaml.Node) (sqlcraft.Expr, error) {
	f, err := fields(n, "table", "set", "where", "inner", "left", "right")
	if err != nil {
		return sqlcraft.Expr{}, err
	}
	table, err := p.required(n, f, "table")
	if err != nil {
		return sqlcraft.Expr{}, err
	}
	opts := &sqlcraft.UpdateOptions{}
	if v, ok := f["set"]; ok {
		set, err := p.pairs(v)
		if err != nil {
			return sqlcraft.Expr{}, err
		}
		opts.Set = set
	}
	if opts.Inner, opts.Left, opts.Right, err = p.joins(f); err != nil {
		return sqlcraft.Expr{}, err
	}
	if v, ok := f["where"]; ok {
		if opts.Where, err = p.terms(v); err != nil {
			return sqlcraft.Expr{}, err
		}
	}
	return p.b.Update(table, opts), nil
}

func (p parser) deleteFrom(n *yaml.Node) (sqlcraft.Expr, error) {
	f, err := fields(n, "table", "where", "inner", "left", "right")
	if err != nil {
		return sqlcraft.Expr{}, err
	}
	table, err := p.required(n, f, "table")
	if err != nil {
		return sqlcraft.Expr{}, err
	}
	opts := &sqlcraft.DeleteOptions{}
	if opts.Inner, opts.Left, opts.Right, err = p.joins(f); err != nil {
		return sqlcraft.Expr{}, err
	}
	if v, ok := f["where"]; ok {
		if opts.Where, err = p.terms(v); err != nil {
			return sqlcraft.Expr{}, err
		}
	}
	return p.b.DeleteFrom(table, opts), nil
}

// joins decodes the inner, left and right join fields.
func (p parser) joins(f map[string]*yaml.Node) (inner, left, right sqlcraft.Expr, err error) {
	decode := func(key string) (sqlcraft.Expr, error) {
		n, ok := f[key]
		if !ok {
			return sqlcraft.Expr{}, nil
		}
		jf, err := fields(n, "table", "on")
		if err != nil {
			return sqlcraft.Expr{}, err
		}
		table, err := p.required(n, jf, "table")
		if err != nil {
			return sqlcraft.Expr{}, err
		}
		var on []any
		if v, ok := jf["on"]; ok {
			if on, err = p.terms(v); err != nil {
				return sqlcraft.Expr{}, err
			}
		}
		return p.b.Join(table, on...), nil
	}
	if inner, err = decode("inner"); err != nil {
		return
	}
	if left, err = decode("left"); err != nil {
		return
	}
	right, err = decode("right")
	return
}

// name decodes an identifier: a plain string, a !col or a !raw fragment.
func (p parser) name(n *yaml.Node) (any, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, errorf(n, "expected a name")
	}
	switch n.ShortTag() {
	case "!raw":
		return p.b.Raw(n.Value), nil
	case "!col":
		return sqlcraft.Col(n.Value), nil
	}
	return n.Value, nil
}

func (p parser) names(n *yaml.Node) ([]any, error) {
	if n.Kind == yaml.ScalarNode {
		name, err := p.name(n)
		if err != nil {
			return nil, err
		}
		return []any{name}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errorf(n, "expected a name or a list of names")
	}
	out := make([]any, len(n.Content))
	for i, item := range n.Content {
		name, err := p.name(item)
		if err != nil {
			return nil, err
		}
		out[i] = name
	}
	return out, nil
}

// scalar decodes a scalar into the Go value its tag names.
func (p parser) scalar(n *yaml.Node) (any, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, errorf(n, "expected a scalar")
	}
	switch n.ShortTag() {
	case "!col":
		return sqlcraft.Col(n.Value), nil
	case "!raw":
		return p.b.Raw(n.Value), nil
	case "!date":
		t, err := time.Parse(time.DateOnly, n.Value)
		if err != nil {
			return nil, errorf(n, "invalid date %q", n.Value)
		}
		return sqlcraft.NewDate(t.Year(), t.Month(), t.Day()), nil
	case "!!null":
		return nil, nil
	case "!!str":
		return n.Value, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, errorf(n, "%v", err)
		}
		return i, nil
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			return nil, errorf(n, "%v", err)
		}
		return v, nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, errorf(n, "%v", err)
		}
		return t, nil
	}
	// Anything else, such as a float, is left for the builder to reject.
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, errorf(n, "%v", err)
	}
	return v, nil
}

// value decodes a scalar, or a list of scalars used as a membership test.
func (p parser) value(n *yaml.Node) (any, error) {
	if n.Kind != yaml.SequenceNode {
		return p.scalar(n)
	}
	seq := make(sqlcraft.S, len(n.Content))
	for i, item := range n.Content {
		v, err := p.scalar(item)
		if err != nil {
			return nil, err
		}
		seq[i] = v
	}
	return seq, nil
}

func (p parser) pairs(n *yaml.Node) (sqlcraft.Pairs, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errorf(n, "expected a mapping")
	}
	out := make(sqlcraft.Pairs, 0, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		v, err := p.value(n.Content[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, sqlcraft.Pair{Key: n.Content[i].Value, Value: v})
	}
	return out, nil
}

// terms decodes clause terms: a mapping, or a list of mappings, trusted
// fragments and nested lists.
func (p parser) terms(n *yaml.Node) ([]any, error) {
	if n.Kind != yaml.SequenceNode {
		t, err := p.term(n)
		if err != nil {
			return nil, err
		}
		return []any{t}, nil
	}
	out := make([]any, len(n.Content))
	for i, item := range n.Content {
		t, err := p.term(item)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (p parser) term(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		return p.pairs(n)
	case yaml.SequenceNode:
		return p.terms(n)
	case yaml.ScalarNode:
		if n.ShortTag() == "!!str" || n.ShortTag() == "!raw" {
			return n.Value, nil
		}
	}
	return nil, errorf(n, "clause term must be a mapping, a list or a string")
}

// group decodes a GROUP BY list, or a mapping with "by" and "having".
func (p parser) group(n *yaml.Node) (sqlcraft.Expr, error) {
	if n.Kind != yaml.MappingNode {
		return p.by(n)
	}
	f, err := fields(n, "by", "having")
	if err != nil {
		return sqlcraft.Expr{}, err
	}
	byNode, ok := f["by"]
	if !ok {
		return sqlcraft.Expr{}, errorf(n, "missing by")
	}
	by, err := p.by(byNode)
	if err != nil {
		return sqlcraft.Expr{}, err
	}
	if v, ok := f["having"]; ok {
		having, err := p.terms(v)
		if err != nil {
			return sqlcraft.Expr{}, err
		}
		by = by.Having(having...)
	}
	return by, nil
}

// by decodes a BY list. Items are names, or single key mappings from a name
// to asc or desc.
func (p parser) by(n *yaml.Node) (sqlcraft.Expr, error) {
	items := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		items = n.Content
	}
	out := make([]any, len(items))
	for i, item := range items {
		if item.Kind != yaml.MappingNode {
			name, err := p.name(item)
			if err != nil {
				return sqlcraft.Expr{}, err
			}
			out[i] = name
			continue
		}
		if len(item.Content) != 2 {
			return sqlcraft.Expr{}, errorf(item, "ordering must map a single name to asc or desc")
		}
		name, err := p.name(item.Content[0])
		if err != nil {
			return sqlcraft.Expr{}, err
		}
		switch dir := item.Content[1].Value; dir {
		case "asc", "ASC":
			out[i] = p.b.Name(name).Asc()
		case "desc", "DESC":
			out[i] = p.b.Name(name).Desc()
		default:
			return sqlcraft.Expr{}, errorf(item.Content[1], "unknown direction %q", dir)
		}
	}
	return p.b.By(out...), nil
}
