// Package apierrors contains the errors that are exposed to API clients.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a domain error that must reach the client with a given HTTP status.
type APIError struct {
	Detail         string `json:"detail"`
	httpStatusCode int
}

// APIErrorOption determines the Functional Options used to create a new APIError.
type APIErrorOption func(apiError *APIError)

// WithDetail sets the message sent to the client.
func WithDetail(detail string) APIErrorOption {
	return func(apiError *APIError) {
		apiError.Detail = detail
	}
}

// WithHTTPStatusCode sets the HTTP status used to answer the request.
func WithHTTPStatusCode(statusCode int) APIErrorOption {
	return func(apiError *APIError) {
		apiError.httpStatusCode = statusCode
	}
}

// NewAPIError creates a new APIError. Without options, it is an internal server error.
func NewAPIError(opts ...APIErrorOption) *APIError {
	apiError := &APIError{httpStatusCode: http.StatusInternalServerError}
	for _, opt := range opts {
		opt(apiError)
	}
	return apiError
}

func (a *APIError) Error() string {
	return fmt.Sprintf("%d - %s", a.httpStatusCode, a.Detail)
}

// HTTPStatusCode returns the HTTP status associated to the error.
func (a *APIError) HTTPStatusCode() int {
	return a.httpStatusCode
}

// ValidationError represents an invalid field in a request payload.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewValidationError creates a new ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// HasStatus checks if the given error is an APIError with the given HTTP status.
func HasStatus(err error, statusCode int) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.httpStatusCode == statusCode
}
