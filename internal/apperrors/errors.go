// Package apperrors provides structured errors that map onto the API's single error shape.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"example.com/gymplanner/internal/domain"
	"example.com/gymplanner/pkg/contract"
)

// Kind names a category of fault; it is reported verbatim in the "error" field.
type Kind string

const (
	KindValidation       Kind = "ValidationError"
	KindBadRequest       Kind = "BadRequest"
	KindPayloadTooLarge  Kind = "PayloadTooLarge"
	KindNotFound         Kind = "NotFound"
	KindMethodNotAllowed Kind = "MethodNotAllowed"
	KindStorage          Kind = "StorageFault"
	KindInternal         Kind = "InternalServerError"
)

// Error represents a structured error with kind, message and cause.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Cause   error
	Issues  []contract.IssueDetail
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status carried by the error, or 500 when it has none.
func (e *Error) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// ToResponse converts an Error to the wire shape.
func (e *Error) ToResponse() contract.APIError {
	return contract.APIError{
		StatusCode: e.HTTPStatus(),
		Error:      string(e.Kind),
		Message:    e.Message,
		Issues:     e.Issues,
	}
}

// Validation wraps rule violations reported by the contract.
func Validation(verr *contract.ValidationError) *Error {
	return &Error{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Message: "Invalid request body",
		Cause:   verr,
		Issues:  verr.Details(),
	}
}

// BadRequest reports input that could not be interpreted at all.
func BadRequest(message string, cause error) *Error {
	return &Error{Kind: KindBadRequest, Status: http.StatusBadRequest, Message: message, Cause: cause}
}

// PayloadTooLarge reports a request body above the accepted size.
func PayloadTooLarge(limit int64, cause error) *Error {
	return &Error{
		Kind:    KindPayloadTooLarge,
		Status:  http.StatusRequestEntityTooLarge,
		Message: fmt.Sprintf("Request body must not exceed %d bytes", limit),
		Cause:   cause,
	}
}

// NotFound reports an unknown route.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

// MethodNotAllowed reports a known route hit with the wrong method.
func MethodNotAllowed(message string) *Error {
	return &Error{Kind: KindMethodNotAllowed, Status: http.StatusMethodNotAllowed, Message: message}
}

// StorageFault hides a persistence failure behind a generic message.
func StorageFault(cause error) *Error {
	return &Error{
		Kind:    KindStorage,
		Status:  http.StatusInternalServerError,
		Message: "Workout storage is unavailable",
		Cause:   cause,
	}
}

// Unavailable reports a store that failed its readiness check.
func Unavailable(cause error) *Error {
	return &Error{
		Kind:    KindStorage,
		Status:  http.StatusServiceUnavailable,
		Message: "Workout storage is unavailable",
		Cause:   cause,
	}
}

// Internal reports any other server-side fault.
func Internal(cause error) *Error {
	return &Error{
		Kind:    KindInternal,
		Status:  http.StatusInternalServerError,
		Message: "Internal server error",
		Cause:   cause,
	}
}

// AsStructuredError converts any error into a structured Error.
// Structured errors pass through; contract and storage errors are mapped; anything else is internal.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structured *Error
	if errors.As(err, &structured) {
		return structured
	}

	var verr *contract.ValidationError
	if errors.As(err, &verr) {
		return Validation(verr)
	}

	var serr *contract.SyntaxError
	if errors.As(err, &serr) {
		return BadRequest("Request body must be valid JSON", serr)
	}

	if errors.Is(err, domain.ErrStorage) {
		return StorageFault(err)
	}

	return Internal(err)
}
