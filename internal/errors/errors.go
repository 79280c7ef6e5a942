// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the import pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrNoDraft indicates a record has no pending draft.
	ErrNoDraft = errors.New("no draft exists for record")

	// ErrUnsupportedProfile indicates an unknown applicationprofile version.
	ErrUnsupportedProfile = errors.New("unsupported application profile")

	// ErrInvalidInput indicates the caller provided invalid input.
	ErrInvalidInput = errors.New("invalid input")
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNoDraft reports whether err is or wraps ErrNoDraft.
func IsNoDraft(err error) bool {
	return errors.Is(err, ErrNoDraft)
}

// ValidationError represents payload validation failures.
// Field names the offending payload location, Message describes the
// violation (including the offending values where applicable).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewVocabularyError creates a validation error for an out-of-vocabulary
// value, naming the offending value and the allowed set.
func NewVocabularyError(field, value string, allowed []string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value %q not in vocabulary [%s]", value, strings.Join(allowed, ", ")),
	}
}

// ConversionError signals schema drift: a payload attribute reached the
// converter without a registered handler. Fatal to the run.
type ConversionError struct {
	Kind      string // resource kind being converted: "file", "unit" or "course"
	Attribute string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("no handler found for %s attribute %q", e.Kind, e.Attribute)
}

// NewConversionError creates a new conversion error.
func NewConversionError(kind, attribute string) *ConversionError {
	return &ConversionError{Kind: kind, Attribute: attribute}
}

// DownloadError represents file download failures with context.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("download error (url=%s, status=%d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("download error (url=%s): %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// NewDownloadError creates a new download error.
func NewDownloadError(url string, statusCode int, err error) *DownloadError {
	return &DownloadError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ConsistencyError signals pre-existing data corruption in the repository,
// e.g. a file-type record with more than one attached file. Fatal.
type ConsistencyError struct {
	PID     string
	Message string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency error on record %s: %s", e.PID, e.Message)
}

// NewConsistencyError creates a new consistency error.
func NewConsistencyError(pid, message string) *ConsistencyError {
	return &ConsistencyError{PID: pid, Message: message}
}
