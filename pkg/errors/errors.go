package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`

	// Details carries optional structured context (e.g. field violations).
	Details interface{} `json:"-"`
	// Suggestion points callers at an existing record when a duplicate is detected.
	Suggestion interface{} `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// Workflow business-rule failures. The public API reports these as 400,
	// not 409: clients treat them like any other rejected payload.
	ErrDuplicateSchool  = New("DUPLICATE_SCHOOL", http.StatusBadRequest, "a matching school already exists")
	ErrAlreadyPending   = New("SUBMISSION_ALREADY_PENDING", http.StatusBadRequest, "a submission for this school is already pending")
	ErrAlreadyProcessed = New("ALREADY_PROCESSED", http.StatusBadRequest, "submission has already been processed")
	ErrPendingRequest   = New("PENDING_REQUEST_EXISTS", http.StatusBadRequest, "user already has a pending request")
	ErrSchoolLimit      = New("SCHOOL_LIMIT_EXCEEDED", http.StatusBadRequest, "combined school count exceeds the limit")

	// ErrCacheMiss is internal plumbing between the cache repository and
	// service; it never reaches an HTTP response.
	ErrCacheMiss = New("CACHE_MISS", http.StatusInternalServerError, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithSuggestion clones the error and attaches a duplicate-candidate payload.
func WithSuggestion(err *Error, suggestion interface{}) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Suggestion = suggestion
	return &clone
}

// WithDetails clones the error and attaches structured details.
func WithDetails(err *Error, details interface{}) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Details = details
	return &clone
}
