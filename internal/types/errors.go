package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// Every stage of the retrieval pipeline reports failures with one of these.
const (
	// Caller input
	ErrCodeInputType     ErrorCode = "input_type_invalid"
	ErrCodeFutureRequest ErrorCode = "input_future_request"
	ErrCodeInvalidParam  ErrorCode = "input_invalid_parameter"

	// Upstream transport
	ErrCodeConnection        ErrorCode = "upstream_connection_failed"
	ErrCodeUnsupportedScheme ErrorCode = "upstream_unsupported_scheme"
	ErrCodeUpstreamRateLimit ErrorCode = "upstream_rate_limited"

	// Internal
	ErrCodeVerification    ErrorCode = "internal_artifact_verification"
	ErrCodeArtifactCorrupt ErrorCode = "internal_artifact_corrupt"
	ErrCodeCacheIO         ErrorCode = "internal_cache_io"
	ErrCodeUnexpected      ErrorCode = "internal_unexpected_error"
)

// Retryable reports whether a caller may reasonably re-invoke the request
// (possibly with force) after an error of this code.
func (c ErrorCode) Retryable() bool {
	s := string(c)
	switch {
	case c == ErrCodeUnsupportedScheme:
		return false
	case strings.HasPrefix(s, "upstream_"):
		return true
	default:
		return false
	}
}

// AppError is the standard application error type used throughout the module.
// Stages report failures as AppError so callers can branch on Code and read
// the offending URL or cache path from Details.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error with the provided details merged in.
// This is useful for adding context without mutating the original error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// Detail returns a single detail value as a string, or "" if absent.
func (e *AppError) Detail(key string) string {
	v, ok := e.Details[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// AsAppError extracts the first AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err's chain contains an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
