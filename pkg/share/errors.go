package share

import (
	"errors"
	"fmt"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

// UserError reports input that is invalid given the share's current state.
// The share is unchanged and the caller can retry with corrected input.
type UserError struct {
	Code    metadata.ErrorCode
	Message string
	Path    string
}

func (e *UserError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Path)
	}
	return e.Message
}

// SystemError reports an environment or I/O failure.
type SystemError struct {
	Message string
	Err     error
}

func (e *SystemError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SystemError) Unwrap() error { return e.Err }

func userErr(code metadata.ErrorCode, path, format string, args ...any) *UserError {
	return &UserError{Code: code, Message: fmt.Sprintf(format, args...), Path: path}
}

func systemErr(err error, format string, args ...any) *SystemError {
	return &SystemError{Message: fmt.Sprintf(format, args...), Err: err}
}

// IsUserError reports whether err is a *UserError.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

// IsSystemError reports whether err is a *SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// CodeOf returns the code of a *UserError, or 0.
func CodeOf(err error) metadata.ErrorCode {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Code
	}
	return 0
}

// IsAlreadyExists reports whether err is a name collision.
func IsAlreadyExists(err error) bool { return CodeOf(err) == metadata.ErrAlreadyExists }

// IsNotFound reports whether err names a missing entry.
func IsNotFound(err error) bool { return CodeOf(err) == metadata.ErrNotFound }
