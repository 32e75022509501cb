package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeInvalidCredentials indicates the backend rejected a login.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeNetwork indicates a transient transport failure on a backend call.
	ErrCodeNetwork ErrorCode = "network"
	// ErrCodePermissionResolution indicates the role lookup failed after a
	// successful login.
	ErrCodePermissionResolution ErrorCode = "permission_resolution"
	// ErrCodeNoRoleAssigned indicates the identity authenticated but holds no
	// recognized LMS role.
	ErrCodeNoRoleAssigned ErrorCode = "no_role_assigned"
	// ErrCodeSessionExpired indicates the gateway session is gone or stale.
	ErrCodeSessionExpired ErrorCode = "session_expired"
	// ErrCodeNotFound indicates a document was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeTimeout indicates a backend call exceeded its deadline.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and
// optional cause. It supports error wrapping and unwrapping for use with
// errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// InvalidCredentials creates a new InvalidCredentials error.
func InvalidCredentials(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidCredentials, Message: message}
}

// Network creates a new Network error.
func Network(message string) *AppError {
	return &AppError{Code: ErrCodeNetwork, Message: message}
}

// PermissionResolution creates a new PermissionResolution error.
func PermissionResolution(message string) *AppError {
	return &AppError{Code: ErrCodePermissionResolution, Message: message}
}

// NoRoleAssigned creates a new NoRoleAssigned error.
func NoRoleAssigned(message string) *AppError {
	return &AppError{Code: ErrCodeNoRoleAssigned, Message: message}
}

// SessionExpired creates a new SessionExpired error.
func SessionExpired(message string) *AppError {
	return &AppError{Code: ErrCodeSessionExpired, Message: message}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsInvalidCredentials checks if an error is an InvalidCredentials error.
func IsInvalidCredentials(err error) bool { return isCode(err, ErrCodeInvalidCredentials) }

// IsNetwork checks if an error is a Network error.
func IsNetwork(err error) bool { return isCode(err, ErrCodeNetwork) }

// IsPermissionResolution checks if an error is a PermissionResolution error.
func IsPermissionResolution(err error) bool { return isCode(err, ErrCodePermissionResolution) }

// IsNoRoleAssigned checks if an error is a NoRoleAssigned error.
func IsNoRoleAssigned(err error) bool { return isCode(err, ErrCodeNoRoleAssigned) }

// IsSessionExpired checks if an error is a SessionExpired error.
func IsSessionExpired(err error) bool { return isCode(err, ErrCodeSessionExpired) }

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool { return isCode(err, ErrCodeTimeout) }

// Code extracts the ErrorCode from an error, defaulting to internal for
// errors that are not AppErrors.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}
