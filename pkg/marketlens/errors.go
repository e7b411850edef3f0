package marketlens

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorCode defines error classification codes for structured error handling.
type ErrorCode string

// Error codes for the analysis pipeline. Fetch-layer problems never surface
// as errors; they degrade to a synthetic market instead.
const (
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeProvider      ErrorCode = "PROVIDER_ERROR"
	ErrCodeEmptyResponse ErrorCode = "EMPTY_RESPONSE"
	ErrCodeInvalidOutput ErrorCode = "INVALID_OUTPUT"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
	ErrCodeCanceled      ErrorCode = "CANCELED"
	ErrCodeUnsupported   ErrorCode = "UNSUPPORTED"
	ErrCodeUnavailable   ErrorCode = "ANALYSIS_UNAVAILABLE"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with classification code.
type Error struct {
	Code    ErrorCode
	Message string
	// Fields lists the offending fields for validation failures.
	Fields []string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with classification code and additional context.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsErrorCode checks if an error matches a specific error code.
func IsErrorCode(err error, code ErrorCode) bool {
	return ErrorCodeOf(err) == code
}

// ErrorCodeOf returns the code of the first *Error in err's chain, or "" when
// there is none.
func ErrorCodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// classifyCallError maps a failed outbound call to TIMEOUT, CANCELED or the
// given fallback code.
func classifyCallError(fallback ErrorCode, message string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case isTimeoutError(err):
		return WrapError(ErrCodeTimeout, message+" timed out", err)
	case errors.Is(err, context.Canceled):
		return WrapError(ErrCodeCanceled, message+" canceled", err)
	default:
		return WrapError(fallback, message+" failed", err)
	}
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
