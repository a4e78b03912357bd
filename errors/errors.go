// Package errors provides error handling for typegraph.
//
// This package re-exports github.com/cockroachdb/errors so that every layer
// wraps, marks and inspects errors the same way:
//
//	// Wrap with context
//	if err := tx.Commit(); err != nil {
//	    return errors.Wrap(err, "commit object")
//	}
//
//	// Add detail for the operator
//	err = errors.WithDetailf(err, "%d stored values", n)
//
//	// Check errors
//	if errors.Is(err, types.ErrConflict) {
//	    // handle conflict
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	WithDetail   = crdb.WithDetail
	WithDetailf  = crdb.WithDetailf
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllDetails  = crdb.GetAllDetails
	FlattenDetails = crdb.FlattenDetails
)

// Marking lets a specific error match a category sentinel through errors.Is
// without changing its message.
var (
	Mark               = crdb.Mark
	WithSecondaryError = crdb.WithSecondaryError
	CombineErrors      = crdb.CombineErrors
)

// AssertionFailedf reports a broken internal invariant.
var AssertionFailedf = crdb.AssertionFailedf
