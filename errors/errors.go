// Package errors provides error handling for dqguard.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// It also defines the sentinel errors for the validation pipeline's
// failure classes. Wrap these with errors.Wrap() to add context while
// preserving the class, and test with the Is* helpers.
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := computeFingerprint(ds); err != nil {
//	    return errors.Wrap(err, "fingerprinting orders")
//	}
//
//	// Classify
//	if errors.IsExecutionError(err) {
//	    // dataset not validated this cycle
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	"context"

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
	UnwrapOnce     = crdb.UnwrapOnce
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
	CombineErrors  = crdb.CombineErrors
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors classifying pipeline failures.
// Use these with errors.Is() for type-safe error checking.
var (
	// ErrConfig indicates invalid, missing, or out-of-range configuration
	ErrConfig = New("invalid configuration")

	// ErrFingerprint indicates schema or row count could not be obtained
	// from a dataset handle
	ErrFingerprint = New("fingerprint unavailable")

	// ErrExecution indicates the validation executor failed; the dataset
	// is not validated this cycle
	ErrExecution = New("validation execution failed")

	// ErrTimeout indicates a validation run exceeded its deadline.
	// Timeouts are a subclass of execution errors.
	ErrTimeout = New("validation timed out")

	// ErrCache indicates a storage failure internal to the result cache
	ErrCache = New("cache failure")

	// ErrThresholdConfig indicates malformed threshold rules reached the
	// evaluator
	ErrThresholdConfig = New("invalid threshold rules")

	// ErrNotification indicates an alert notification could not be
	// delivered; never propagated into validation results
	ErrNotification = New("notification delivery failed")

	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = New("not found")
)

// IsConfigError checks if an error is or wraps ErrConfig
func IsConfigError(err error) bool {
	return err != nil && Is(err, ErrConfig)
}

// IsFingerprintError checks if an error is or wraps ErrFingerprint
func IsFingerprintError(err error) bool {
	return err != nil && Is(err, ErrFingerprint)
}

// IsExecutionError checks if an error is or wraps ErrExecution, including
// the timeout subclass.
func IsExecutionError(err error) bool {
	return err != nil && (Is(err, ErrExecution) || IsTimeoutError(err))
}

// IsTimeoutError checks if an error is or wraps ErrTimeout or a context
// deadline error surfaced by the executor.
func IsTimeoutError(err error) bool {
	return err != nil && (Is(err, ErrTimeout) || Is(err, context.DeadlineExceeded))
}

// IsCacheError checks if an error is or wraps ErrCache
func IsCacheError(err error) bool {
	return err != nil && Is(err, ErrCache)
}

// IsNotificationError checks if an error is or wraps ErrNotification
func IsNotificationError(err error) bool {
	return err != nil && Is(err, ErrNotification)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// WrapConfig wraps an error as a configuration error with context
func WrapConfig(err error, context string) error {
	return Wrap(Wrap(ErrConfig, err.Error()), context)
}

// WrapFingerprint wraps an error as a fingerprint error with context
func WrapFingerprint(err error, context string) error {
	return Wrap(Wrap(ErrFingerprint, err.Error()), context)
}

// WrapExecution wraps an error as an execution error with context
func WrapExecution(err error, context string) error {
	return Wrap(Wrap(ErrExecution, err.Error()), context)
}

// WrapCache wraps an error as a cache error with context
func WrapCache(err error, context string) error {
	return Wrap(Wrap(ErrCache, err.Error()), context)
}

// NewConfigError creates a configuration error with a formatted message
func NewConfigError(format string, args ...interface{}) error {
	return Wrap(ErrConfig, Newf(format, args...).Error())
}

// NewThresholdConfigError creates a threshold-rules error with a formatted message
func NewThresholdConfigError(format string, args ...interface{}) error {
	return Wrap(ErrThresholdConfig, Newf(format, args...).Error())
}
