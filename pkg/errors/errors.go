package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Pipeline-specific errors

var (
	// ErrInvalidDocument indicates a document from the ingestion boundary
	// is missing required fields and cannot be processed
	ErrInvalidDocument = errors.New("invalid document")

	// ErrNormalization indicates a numeric span could not be parsed
	ErrNormalization = errors.New("numeric span not normalizable")

	// ErrScorerUnavailable indicates the sentiment model scorer is
	// unreachable or timed out
	ErrScorerUnavailable = errors.New("sentiment model scorer unavailable")

	// ErrNoSnapshot indicates no market snapshot exists within the
	// configured tolerance window
	ErrNoSnapshot = errors.New("no market snapshot within tolerance")

	// ErrCatalogInvalid indicates the anchor pattern catalog failed to load
	ErrCatalogInvalid = errors.New("invalid anchor pattern catalog")

	// ErrLexiconInvalid indicates the sentiment lexicon failed to load
	ErrLexiconInvalid = errors.New("invalid sentiment lexicon")
)

// Boundary-specific errors

var (
	// ErrEmitFailed indicates a fused record could not be published
	ErrEmitFailed = errors.New("fused record emit failed")

	// ErrSnapshotStoreUnavailable indicates the market snapshot store is unreachable
	ErrSnapshotStoreUnavailable = errors.New("snapshot store unavailable")
)

// MultiError aggregates multiple errors from independent operations
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
