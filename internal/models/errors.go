package models

import (
	"errors"
	"fmt"
)

var (
	// ErrVenueNotFound is returned when an operation references an unknown venue id.
	ErrVenueNotFound = errors.New("venue not found")
	// ErrLocationUnavailable is returned when every resolution step failed and no default is configured.
	ErrLocationUnavailable = errors.New("user location unavailable")
	// ErrRefreshInProgress is returned when a refresh is requested while one is running.
	ErrRefreshInProgress = errors.New("refresh already in progress")
	// ErrInvalidCredentials is returned by the mock login and register flows.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError rejects a single submission with a field-level message.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"error"`
}

// NewValidationError returns a *ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
