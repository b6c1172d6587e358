package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an API error.
type Code string

const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeConflict     Code = "CONFLICT"
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeInternal     Code = "INTERNAL_ERROR"
)

var statusCodes = map[Code]int{
	CodeNotFound:     http.StatusNotFound,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeForbidden:    http.StatusForbidden,
	CodeConflict:     http.StatusConflict,
	CodeValidation:   http.StatusUnprocessableEntity,
	CodeBadRequest:   http.StatusBadRequest,
	CodeInternal:     http.StatusInternalServerError,
}

// StatusCode returns the HTTP status for the code.
func (c Code) StatusCode() int {
	if status, ok := statusCodes[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is a typed API error carrying its client-facing code and message.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status returns the HTTP status for this error.
func (e *Error) Status() int {
	return e.Code.StatusCode()
}

// NotFound creates a NOT_FOUND error for the named resource.
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

// Unauthorized creates an UNAUTHORIZED error.
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// Forbidden creates a FORBIDDEN error.
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// Conflict creates a CONFLICT error.
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// Validation creates a VALIDATION_ERROR for a field.
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Field: field}
}

// BadRequest creates a BAD_REQUEST error.
func BadRequest(message string) *Error {
	return &Error{Code: CodeBadRequest, Message: message}
}

// Internal creates an INTERNAL_ERROR. The message is client-facing and must
// not leak store internals; wrap the cause for logs with %w at the call site.
func Internal(message string) *Error {
	return &Error{Code: CodeInternal, Message: message}
}

// As unwraps err to an *Error if one is in the chain.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
