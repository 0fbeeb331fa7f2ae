// Package apperror provides structured error handling for the fulfillment API.
// Every business failure leaves the service layer as an *AppError so handlers
// can render a consistent {code, message, details} body.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"

	// Validation errors (400)
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeManagedByPickList = "MANAGED_BY_PICK_LIST"
	CodeNothingToDispatch = "NOTHING_TO_DISPATCH"
	CodeNothingToReceive  = "NOTHING_TO_RECEIVE"
	CodePostingFailure    = "POSTING_FAILURE"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeIdempotency            = "IDEMPOTENCY_CONFLICT"
)

// AppError is the standard error type of the service.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (current status, offending lines, ...)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidTransition reports that the current status of an entity forbids
// the requested action. The current status is always part of the message.
func NewInvalidTransition(entity, currentStatus, action string) *AppError {
	return &AppError{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("cannot %s %s in status %q", action, entity, currentStatus),
		HTTPStatus: http.StatusBadRequest,
		Details: map[string]any{
			"entity":        entity,
			"currentStatus": currentStatus,
			"action":        action,
		},
	}
}

// NewManagedByPickList redirects the caller to the pick-list API.
func NewManagedByPickList(noteID any) *AppError {
	return &AppError{
		Code:       CodeManagedByPickList,
		Message:    "picking for this delivery note is managed by its pick lists; use the pick-list API instead",
		HTTPStatus: http.StatusBadRequest,
		Details: map[string]any{
			"deliveryNoteId": noteID,
			"endpoint":       "/api/v1/pick-lists",
		},
	}
}

// NewNothingToDispatch is returned when every line resolves to zero.
func NewNothingToDispatch(noteID any) *AppError {
	return &AppError{
		Code:       CodeNothingToDispatch,
		Message:    "nothing left to dispatch on this delivery note",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"deliveryNoteId": noteID},
	}
}

// NewNothingToReceive is returned when every line resolves to zero.
func NewNothingToReceive(noteID any) *AppError {
	return &AppError{
		Code:       CodeNothingToReceive,
		Message:    "nothing outstanding to receive on this delivery note",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"deliveryNoteId": noteID},
	}
}

// NewPostingFailure creates an inventory posting rejection (400).
// Nothing of the posting has been applied when this error is returned.
func NewPostingFailure(message string) *AppError {
	return &AppError{
		Code:       CodePostingFailure,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused for
// a different request (different user/operation/body hash).
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsInvalidTransition checks if error is CodeInvalidTransition
func IsInvalidTransition(err error) bool {
	return HasCode(err, CodeInvalidTransition)
}
