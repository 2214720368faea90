// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlcraft

import "errors"

// Errors returned while rendering. They are usage errors: the input handed
// to the builder has no rendering, and retrying will not help. Detail is
// attached with %w so the sentinels can be matched with errors.Is.
var (
	// ErrUnsupportedValueKind is returned when a Go value has no literal
	// rendering.
	ErrUnsupportedValueKind = errors.New("unsupported value kind")

	// ErrMissingAssignment is returned by Update when no SET assignments are
	// given.
	ErrMissingAssignment = errors.New("missing assignment")

	// ErrUnsupportedClauseTerm is returned when a clause term is not a
	// mapping, a pair, a nested group, an Expr or a raw string.
	ErrUnsupportedClauseTerm = errors.New("unsupported clause term")

	// ErrEmptyInsert is returned by InsertInto when called without rows.
	ErrEmptyInsert = errors.New("no rows to insert")
)
