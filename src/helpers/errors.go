package helpers

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type WeatherError struct {
	Message string
	Cause   error
}

func (e *WeatherError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *WeatherError) Unwrap() error {
	return e.Cause
}

// Distinct error types for the storage contract.
type NotFoundError struct{ WeatherError }
type AmbiguousError struct{ WeatherError }
type ValidationError struct{ WeatherError }
type StorageError struct{ WeatherError }
type UnrecoverableStorageError struct{ WeatherError }
type TimeoutError struct{ WeatherError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewNotFoundError(format string, args ...interface{}) error {
	return &NotFoundError{WeatherError{Message: fmt.Sprintf(format, args...)}}
}

func NewAmbiguousError(format string, args ...interface{}) error {
	return &AmbiguousError{WeatherError{Message: fmt.Sprintf(format, args...)}}
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{WeatherError{Message: fmt.Sprintf(format, args...)}}
}

func NewStorageError(message string, cause error) error {
	return &StorageError{WeatherError{Message: message, Cause: cause}}
}

func NewUnrecoverableStorageError(message string, cause error) error {
	return &UnrecoverableStorageError{WeatherError{Message: message, Cause: cause}}
}

func NewTimeoutError(format string, args ...interface{}) error {
	return &TimeoutError{WeatherError{Message: fmt.Sprintf(format, args...)}}
}

// -----------------------------------------------------------------------------
// Classification helpers
// -----------------------------------------------------------------------------

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsAmbiguous(err error) bool {
	var e *AmbiguousError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsUnrecoverable(err error) bool {
	var e *UnrecoverableStorageError
	return errors.As(err, &e)
}

func IsTimeout(err error) bool {
	var e *TimeoutError
	return errors.As(err, &e)
}
