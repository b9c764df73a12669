package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error code surfaced to API clients.
type Code string

const (
	// CodeTelegramAuth indicates the Telegram initData payload failed
	// verification (signature, freshness, or shape).
	CodeTelegramAuth Code = "telegram_auth"
	// CodeInvalidRequest indicates a request body or query schema violation.
	CodeInvalidRequest Code = "invalid_request"
	// CodeRateLimited indicates the caller exceeded a fixed-window limit.
	CodeRateLimited Code = "rate_limited"
	// CodeNotFound indicates a resource was not found or is not owned by the caller.
	CodeNotFound Code = "not_found"
	// CodeMemoryNotFound indicates a memory document was not found or is not
	// owned by the caller.
	CodeMemoryNotFound Code = "memory_not_found"
	// CodeForbiddenPath indicates a storage path outside the caller's folder.
	CodeForbiddenPath Code = "forbidden_path"
	// CodeUpstream indicates a failure from an external platform (auth,
	// database, or LLM provider).
	CodeUpstream Code = "upstream_error"
	// CodeTimeout indicates an outbound call exceeded its deadline after retries.
	CodeTimeout Code = "upstream_timeout"
	// CodeInternal indicates an unclassified internal server error.
	CodeInternal Code = "internal_error"
)

// AppError is a structured application error carrying an HTTP status, a
// stable code, and an optional cause. The message is safe to show to callers;
// internal detail stays in Cause and only ever reaches logs.
// It supports wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Status is the HTTP status the boundary translates this error to.
	Status int
	// Code categorizes the error for clients.
	Code Code
	// Message is a human-readable, client-safe error message.
	Message string
	// Fields holds field-level validation details (field name → message).
	Fields map[string]string
	// Cause is the underlying error (optional).
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

// StatusCode returns the HTTP status. It also lets the retry envelope
// classify platform errors without importing this package's concrete type.
func (e *AppError) StatusCode() int {
	return e.Status
}

// Auth creates a 401 Telegram authentication error.
func Auth(message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Code: CodeTelegramAuth, Message: message}
}

// AuthWithStatus creates a Telegram authentication error with an explicit status.
func AuthWithStatus(status int, message string) *AppError {
	return &AppError{Status: status, Code: CodeTelegramAuth, Message: message}
}

// Validation creates a 400 request schema error.
func Validation(message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: CodeInvalidRequest, Message: message}
}

// ValidationField creates a 400 request schema error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Status:  http.StatusBadRequest,
		Code:    CodeInvalidRequest,
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

// RateLimited creates a 429 error.
func RateLimited(message string) *AppError {
	return &AppError{Status: http.StatusTooManyRequests, Code: CodeRateLimited, Message: message}
}

// NotFound creates a 404 error with the given code.
func NotFound(code Code, message string) *AppError {
	return &AppError{Status: http.StatusNotFound, Code: code, Message: message}
}

// Forbidden creates a 403 forbidden-path error.
func Forbidden(message string) *AppError {
	return &AppError{Status: http.StatusForbidden, Code: CodeForbiddenPath, Message: message}
}

// Route creates an explicit route error with a chosen status and code.
func Route(status int, code Code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

// Upstream wraps a platform failure as a 500 error.
func Upstream(message string, cause error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Code: CodeUpstream, Message: message, Cause: cause}
}

// UpstreamWithStatus wraps a platform failure with an explicit status, for
// routes whose contract distinguishes bad-gateway style failures.
func UpstreamWithStatus(status int, message string, cause error) *AppError {
	return &AppError{Status: status, Code: CodeUpstream, Message: message, Cause: cause}
}

// Timeout wraps an exhausted-deadline failure so it surfaces distinctly from
// generic upstream errors.
func Timeout(message string, cause error) *AppError {
	return &AppError{Status: http.StatusGatewayTimeout, Code: CodeTimeout, Message: message, Cause: cause}
}

// Internal creates a 500 internal error.
func Internal(message string) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: message}
}

// Internalf creates a 500 internal error with a formatted message.
func Internalf(format string, args ...any) *AppError {
	return Internal(fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, status int, code Code, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Status: status, Code: code, Message: message, Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code Code) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsAuth checks if an error is a Telegram authentication error.
func IsAuth(err error) bool { return isCode(err, CodeTelegramAuth) }

// IsValidation checks if an error is a request schema error.
func IsValidation(err error) bool { return isCode(err, CodeInvalidRequest) }

// IsRateLimited checks if an error is a rate limit error.
func IsRateLimited(err error) bool { return isCode(err, CodeRateLimited) }

// IsNotFound checks if an error carries a 404 status.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Status == http.StatusNotFound
}

// IsTimeout checks if an error is an exhausted-deadline error.
func IsTimeout(err error) bool { return isCode(err, CodeTimeout) }

// GetCode returns the Code from an error, or empty string if not an AppError.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Resolve maps any error to the AppError the HTTP boundary should render.
// Unrecognized errors collapse to a generic 500 so raw upstream text never
// leaks into responses.
func Resolve(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "internal server error",
		Cause:   err,
	}
}
