package metadata

import "github.com/marmos91/dittoshare/pkg/metadata/errors"

// StoreError is re-exported from the errors package.
type StoreError = errors.StoreError

// ErrorCode is re-exported from the errors package.
type ErrorCode = errors.ErrorCode

const (
	ErrNotFound            = errors.ErrNotFound
	ErrAlreadyExists       = errors.ErrAlreadyExists
	ErrConstraintViolation = errors.ErrConstraintViolation
	ErrNotEmpty            = errors.ErrNotEmpty
	ErrNotDirectory        = errors.ErrNotDirectory
	ErrInvalidArgument     = errors.ErrInvalidArgument
	ErrIOError             = errors.ErrIOError
	ErrUnsupportedVersion  = errors.ErrUnsupportedVersion
)

// NewNotFoundError creates a NotFound StoreError.
func NewNotFoundError(path, resourceType string) *StoreError {
	return errors.NewNotFoundError(path, resourceType)
}

// NewConstraintError creates a ConstraintViolation StoreError.
func NewConstraintError(path string, err error) *StoreError {
	return errors.NewConstraintError(path, err)
}

// NewIOError wraps a backing engine failure.
func NewIOError(op string, err error) *StoreError {
	return errors.NewIOError(op, err)
}

// IsNotFoundError reports whether err is a NotFound StoreError.
func IsNotFoundError(err error) bool { return errors.IsNotFoundError(err) }

// IsConstraintViolation reports whether err is a ConstraintViolation StoreError.
func IsConstraintViolation(err error) bool { return errors.IsConstraintViolation(err) }

// IsUnsupportedVersion reports whether err is an UnsupportedVersion StoreError.
func IsUnsupportedVersion(err error) bool { return errors.IsUnsupportedVersion(err) }
