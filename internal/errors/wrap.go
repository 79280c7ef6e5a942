package errors

import (
	"fmt"
)

// ErrorWrapper provides context-aware error wrapping.
type ErrorWrapper struct {
	operation string
	module    string
}

// NewWrapper creates a new error wrapper with operation and module context.
func NewWrapper(module, operation string) *ErrorWrapper {
	return &ErrorWrapper{
		module:    module,
		operation: operation,
	}
}

// Wrap wraps an error with operation context.
// Returns nil if err is nil.
func (w *ErrorWrapper) Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Operation: w.operation,
		Module:    w.module,
		Cause:     err,
		Message:   message,
	}
}

// Wrapf wraps an error with a formatted message.
func (w *ErrorWrapper) Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Operation: w.operation,
		Module:    w.module,
		Cause:     err,
		Message:   fmt.Sprintf(format, args...),
	}
}

// WrappedError carries module and operation context alongside the cause.
type WrappedError struct {
	Operation string // Operation being performed (e.g., "download_file", "publish")
	Module    string // Module name (e.g., "filecache", "importer")
	Cause     error  // Underlying error
	Message   string // Human-readable message
}

func (e *WrappedError) Error() string {
	return fmt.Sprintf("[%s:%s] %s: %v", e.Module, e.Operation, e.Message, e.Cause)
}

func (e *WrappedError) Unwrap() error {
	return e.Cause
}
