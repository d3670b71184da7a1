// Package errors defines the error codes returned by metadata stores.
// It has no internal dependencies so both the store implementations and
// their callers can import it.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a StoreError.
type ErrorCode int

const (
	// ErrNotFound indicates the row does not exist.
	ErrNotFound ErrorCode = iota + 1

	// ErrAlreadyExists indicates the entry is already present.
	ErrAlreadyExists

	// ErrConstraintViolation indicates a uniqueness constraint rejected
	// a write, e.g. two live entries with the same (Path, Filename).
	ErrConstraintViolation

	// ErrNotEmpty indicates a directory still has children.
	ErrNotEmpty

	// ErrNotDirectory indicates the operation requires a directory.
	ErrNotDirectory

	// ErrInvalidArgument indicates a malformed argument.
	ErrInvalidArgument

	// ErrIOError indicates the backing engine failed.
	ErrIOError

	// ErrUnsupportedVersion indicates the schema version is unknown to
	// this build or has no upgrade path.
	ErrUnsupportedVersion
)

func (e ErrorCode) String() string {
	switch e {
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrConstraintViolation:
		return "ConstraintViolation"
	case ErrNotEmpty:
		return "NotEmpty"
	case ErrNotDirectory:
		return "NotDirectory"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrIOError:
		return "IOError"
	case ErrUnsupportedVersion:
		return "UnsupportedVersion"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// StoreError is the error type returned by metadata stores.
type StoreError struct {
	Code    ErrorCode
	Message string
	Path    string
	Err     error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path: %s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a NotFound error.
func NewNotFoundError(path, resourceType string) *StoreError {
	return &StoreError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resourceType),
		Path:    path,
	}
}

// NewConstraintError creates a ConstraintViolation error for path.
func NewConstraintError(path string, err error) *StoreError {
	return &StoreError{
		Code:    ErrConstraintViolation,
		Message: "unique constraint violated",
		Path:    path,
		Err:     err,
	}
}

// NewInvalidArgumentError creates an InvalidArgument error.
func NewInvalidArgumentError(message string) *StoreError {
	return &StoreError{
		Code:    ErrInvalidArgument,
		Message: message,
	}
}

// NewIOError wraps a backing engine failure.
func NewIOError(op string, err error) *StoreError {
	return &StoreError{
		Code:    ErrIOError,
		Message: op,
		Err:     err,
	}
}

// NewUnsupportedVersionError reports a schema version without an upgrade path.
func NewUnsupportedVersionError(version, current uint32) *StoreError {
	return &StoreError{
		Code:    ErrUnsupportedVersion,
		Message: fmt.Sprintf("unrecognized database version %d (current %d)", version, current),
	}
}

// CodeOf returns the ErrorCode of the first StoreError in err's chain, or 0.
func CodeOf(err error) ErrorCode {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// IsNotFoundError reports whether err is a NotFound StoreError.
func IsNotFoundError(err error) bool {
	return CodeOf(err) == ErrNotFound
}

// IsConstraintViolation reports whether err is a ConstraintViolation StoreError.
func IsConstraintViolation(err error) bool {
	return CodeOf(err) == ErrConstraintViolation
}

// IsUnsupportedVersion reports whether err is an UnsupportedVersion StoreError.
func IsUnsupportedVersion(err error) bool {
	return CodeOf(err) == ErrUnsupportedVersion
}
