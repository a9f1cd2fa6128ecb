package services

import (
	"errors"
	"fmt"
)

// Errors returned by the services. Handlers map them to HTTP responses.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUnauthenticated    = errors.New("could not validate credentials")
	ErrForbidden          = errors.New("not enough permissions")
	ErrSweetNotFound      = errors.New("sweet not found")
	ErrInsufficientStock  = errors.New("insufficient quantity in stock")
)

// ValidationError reports a field that violates an input constraint.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
