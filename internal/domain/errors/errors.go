// Package errors provides domain-specific error types.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for domain errors.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeUnsupported   = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// DomainError represents a domain-specific error with an HTTP mapping.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewValidationError reports malformed caller input.
func NewValidationError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewUnsupportedMediaError reports a non-JSON request body.
func NewUnsupportedMediaError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeUnsupported,
		Message:    message,
		HTTPStatus: http.StatusUnsupportedMediaType,
	}
}

// NewUnauthorizedError reports a missing or invalid credential.
func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbiddenError reports a caller that is authenticated but not allowed.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewNotFoundError reports an absent resource, or one the caller does not own.
func NewNotFoundError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeNotFound,
		Message:    message,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewConfigurationError reports unusable process configuration, surfaced at
// startup or on first use.
func NewConfigurationError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeConfiguration,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewUpstreamError reports a failed model or document-store call.
func NewUpstreamError(message string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeUpstream,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInternalError reports an unexpected failure.
func NewInternalError(message string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// GetDomainError extracts the domain error from an error chain.
func GetDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == ErrCodeNotFound
}

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == ErrCodeValidation
}

// IsConfigurationError checks if the error is a configuration error.
func IsConfigurationError(err error) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == ErrCodeConfiguration
}
