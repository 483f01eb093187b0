// Package errors provides error handling for metamap.
//
// This package re-exports github.com/cockroachdb/errors, providing stack
// traces, wrapping, hints and safe details, and defines the sentinel errors
// that the annotation and classification engine reports.
//
// Usage:
//
//	if err := store.CreateConcept(ctx, c); err != nil {
//	    return errors.Wrap(err, "create concept")
//	}
//
//	if errors.IsSchemaNotFound(err) {
//	    // no such table or column
//	}
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
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// AssertionFailedf reports a broken internal invariant.
var AssertionFailedf = crdb.AssertionFailedf

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Generic sentinels. Wrap these to add context while preserving the kind.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrConflict indicates a resource conflict (e.g., duplicate key)
	ErrConflict = New("resource conflict")
)

// Engine error kinds.
var (
	// ErrSchemaNotFound indicates an unknown table or column in the data store.
	// It is a hard failure: there is nothing to classify.
	ErrSchemaNotFound = Wrap(ErrNotFound, "schema")

	// ErrAmbiguousInput indicates missing or malformed curator-provided input.
	ErrAmbiguousInput = Wrap(ErrInvalidRequest, "ambiguous input")

	// ErrStatisticalDegeneracy indicates a hypothesis test is undefined for
	// the given samples (empty sample, zero variance). Matchers treat it as
	// "no candidate".
	ErrStatisticalDegeneracy = New("statistical degeneracy")

	// ErrClassifierUntrained indicates the text classifier has no categories.
	ErrClassifierUntrained = New("classifier untrained")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsSchemaNotFound checks if an error is or wraps ErrSchemaNotFound.
func IsSchemaNotFound(err error) bool {
	return err != nil && Is(err, ErrSchemaNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsDegenerate reports whether err marks an undefined statistical test.
func IsDegenerate(err error) bool {
	return err != nil && Is(err, ErrStatisticalDegeneracy)
}

// NewSchemaNotFoundError reports an unknown table, or column when column is non-empty.
func NewSchemaNotFoundError(table, column string) error {
	if column == "" {
		return Wrapf(ErrSchemaNotFound, "table %q", table)
	}
	return Wrapf(ErrSchemaNotFound, "column %q.%q", table, column)
}

// NewAmbiguousInputError creates an ambiguous-input error with a formatted message
func NewAmbiguousInputError(format string, args ...interface{}) error {
	return Wrap(ErrAmbiguousInput, Newf(format, args...).Error())
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
