package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationInvalid matches every ValidationError.
	ErrConfigurationInvalid = errors.New("provider: configuration invalid")
	// ErrDuplicateProvider indicates two factories share an id.
	ErrDuplicateProvider = errors.New("provider: duplicate provider id")
	// ErrUnknownProvider indicates no factory is registered for an id.
	ErrUnknownProvider = errors.New("provider: unknown provider id")
)

// ValidationError reports that a configuration could not be validated against its store.
// The message never contains the configured password.
type ValidationError struct {
	message string
	cause   error
}

func (e *ValidationError) Error() string {
	return e.message
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Is reports ValidationError as ErrConfigurationInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrConfigurationInvalid
}

func newValidationError(redact func(string) string, cause error) error {
	return &ValidationError{
		message: fmt.Sprintf("unable to validate database connection: %s", redact(cause.Error())),
		cause:   cause,
	}
}
