// Package errors provides error handling for capstat.
//
// This package re-exports github.com/cockroachdb/errors, providing
// stack traces, error wrapping, and user-facing hints, plus the
// sentinel errors used throughout the capability engine.
//
// Usage:
//
//	// Wrap with context
//	if err := fetchRecords(); err != nil {
//	    return errors.Wrap(err, "failed to fetch records")
//	}
//
//	// Check failure kind
//	if errors.Is(err, errors.ErrMissingTolerance) {
//	    // record per-element failure, continue the study
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
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the capability engine. Use these with errors.Is()
// for type-safe checks; wrap them with errors.Wrap() to add context while
// preserving the kind.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrSourceUnavailable indicates every configured measurement source
	// was unreachable; fatal to the aggregation call
	ErrSourceUnavailable = New("all measurement sources unavailable")

	// ErrPartialSourceFailure indicates a subset of sources was
	// unreachable; the aggregation proceeded with the reachable subset
	ErrPartialSourceFailure = New("partial source failure")

	// ErrMissingTolerance indicates an element has no nominal/tolerance
	// binding; fatal to that element only
	ErrMissingTolerance = New("missing nominal/tolerance binding")

	// ErrZeroVarianceOutOfSpec indicates a degenerate sample (all values
	// identical) whose mean is off the nominal target; the index
	// computation cannot proceed for that element
	ErrZeroVarianceOutOfSpec = New("zero variance with mean off nominal")

	// ErrZeroVariance indicates a sample whose spread is zero and which
	// therefore cannot seed synthetic value generation
	ErrZeroVariance = New("zero variance sample")

	// ErrExtrapolationNotConverged indicates the retry budget was
	// exhausted before reaching the target p-value; the best attempt is
	// still usable
	ErrExtrapolationNotConverged = New("extrapolation did not converge")

	// ErrInvalidFilter indicates an aggregation filter without the
	// mandatory client and reference fields
	ErrInvalidFilter = New("invalid element filter")
)

// IsSourceUnavailable checks if an error is or wraps ErrSourceUnavailable
func IsSourceUnavailable(err error) bool {
	return err != nil && Is(err, ErrSourceUnavailable)
}

// IsMissingTolerance checks if an error is or wraps ErrMissingTolerance
func IsMissingTolerance(err error) bool {
	return err != nil && Is(err, ErrMissingTolerance)
}

// IsZeroVarianceOutOfSpec checks if an error is or wraps ErrZeroVarianceOutOfSpec
func IsZeroVarianceOutOfSpec(err error) bool {
	return err != nil && Is(err, ErrZeroVarianceOutOfSpec)
}

// IsNotConverged checks if an error is or wraps ErrExtrapolationNotConverged
func IsNotConverged(err error) bool {
	return err != nil && Is(err, ErrExtrapolationNotConverged)
}

// Kind returns a short machine-readable name for the failure kind of err,
// suitable for structured failure records in a study summary.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case Is(err, ErrPartialSourceFailure):
		return "partial_source_failure"
	case Is(err, ErrMissingTolerance):
		return "missing_tolerance"
	case Is(err, ErrZeroVarianceOutOfSpec):
		return "zero_variance_out_of_spec"
	case Is(err, ErrZeroVariance):
		return "zero_variance"
	case Is(err, ErrExtrapolationNotConverged):
		return "extrapolation_not_converged"
	case Is(err, ErrInvalidFilter):
		return "invalid_filter"
	case Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
