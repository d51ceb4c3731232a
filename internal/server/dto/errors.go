// Package dto defines API request/response types and error handling.
//
// This package contains the types used for HTTP API communication:
//   - Request types with path/query/json struct tags for parameter binding
//   - Response types
//   - Structured error types with HTTP status codes and error codes
//
// Error handling follows a structured pattern:
//   - ErrorCode provides machine-readable error classification
//   - APIError wraps errors with HTTP status codes and details
//   - Constructor functions (NotFound, BadRequest, etc.) create common errors
package dto

import (
	"fmt"
	"maps"
	"net/http"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrorCodeValidationFailed is returned when input data fails validation.
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrorCodeMissingField is returned when a required field is missing.
	ErrorCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrorCodeInvalidFormat is returned when a field has an invalid format.
	ErrorCodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// ErrorCodeNotFound is returned when a resource is not found.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeReportNotFound is returned when no report has the requested slug or id.
	ErrorCodeReportNotFound ErrorCode = "REPORT_NOT_FOUND"

	// ErrorCodeStorageError is returned when a storage operation fails.
	ErrorCodeStorageError ErrorCode = "STORAGE_ERROR"
	// ErrorCodeExportFailed is returned when an export could not be produced.
	ErrorCodeExportFailed ErrorCode = "EXPORT_FAILED"
	// ErrorCodeRateLimited is returned when a client exceeds the rate limit.
	ErrorCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrorCodePayloadTooLarge is returned when the request body is too big.
	ErrorCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"

	// ErrorCodeInternal is returned when an unexpected server error occurs.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeConflict is returned when there is a resource conflict.
	ErrorCodeConflict ErrorCode = "CONFLICT"
)

// ErrorDetails defines the structured error information in a response.
type ErrorDetails struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error   ErrorDetails   `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetails adds details to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	maps.Copy(e.details, details)
	return e
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// Predefined error constructors for common cases

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrorCodeNotFound, resource+" not found")
}

// ReportNotFound creates a 404 error for a missing report.
func ReportNotFound(key string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrorCodeReportNotFound, "report not found").WithDetail("report", key)
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeMissingField, "Missing required field: "+fieldName)
}

// InvalidField creates a 400 error for a field with an invalid value.
func InvalidField(fieldName, reason string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeInvalidFormat, "Invalid "+fieldName+": "+reason).WithDetail("field", fieldName)
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, ErrorCodeConflict, message)
}

// StorageError creates a 500 error for a failed storage operation.
func StorageError(message string, err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeStorageError, message).Wrap(err)
}

// ExportFailed creates a 500 error for a failed export.
func ExportFailed(err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeExportFailed, "failed to export report").Wrap(err)
}

// RateLimitExceeded creates a 429 error. retryAfter is in seconds.
func RateLimitExceeded(retryAfter int) *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrorCodeRateLimited, "rate limit exceeded").WithDetail("retry_after", retryAfter)
}

// PayloadTooLarge creates a 413 error. limit is in bytes.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge, "request body too large").WithDetail("max_bytes", limit)
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}
