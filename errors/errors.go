// Package errors provides error handling for framemark.
//
// This package re-exports github.com/cockroachdb/errors so that every package
// gets stack traces, wrapping, hints and details from one import:
//
//	if err := tool.Transform(ctx, req); err != nil {
//	    return errors.Wrap(err, "failed to resolve location")
//	}
//
//	return errors.WithHint(err, "check camera_tool.path in am.toml")
//
// Domain sentinels are declared at the bottom of this file. Wrap them to add
// context while keeping errors.Is working.
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
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Sentinels shared across framemark packages.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrNoImages indicates an image directory holds no N.jpg frames
	ErrNoImages = New("no images found")

	// ErrMismatch indicates an annotation file belongs to a different sequence or video
	ErrMismatch = New("annotation file does not match workspace")

	// ErrStaleSession indicates a result arrived for a store generation that was replaced
	ErrStaleSession = New("stale session")

	// ErrStaleTarget indicates the captured person no longer exists in its frame
	ErrStaleTarget = New("stale target")

	// ErrNotCalibrated indicates the workspace lacks calibration files, origin or room size
	ErrNotCalibrated = New("workspace not calibrated")

	// ErrTransformFailed indicates the camera tool exited non-zero or printed garbage
	ErrTransformFailed = New("coordinate transform failed")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsStale reports whether err means an async result was dropped on purpose.
func IsStale(err error) bool {
	return err != nil && IsAny(err, ErrStaleSession, ErrStaleTarget)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
