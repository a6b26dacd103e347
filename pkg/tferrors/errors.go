// Package tferrors provides structured error handling for tabflow with rich
// context, stack traces, and error categorization. It enables consistent error
// handling patterns across the entire codebase.
//
// Errors are categorized by type, which drives handling strategy: schema and
// artifact errors are fatal for the current run, dimension errors are
// recoverable by adjustment, and per-row data issues are never surfaced as
// errors at all (they are resolved by documented fallback policies).
//
// Basic usage:
//
//	// Create a new error
//	err := tferrors.New(tferrors.ErrorTypeSchema, "sample contains no rows")
//
//	// Add context
//	err = err.WithDetail("path", cfg.Source.Path)
//
//	// Wrap existing errors
//	if err := store.Load(); err != nil {
//	    return tferrors.Wrap(err, tferrors.ErrorTypeArtifactCorrupt, "artifact payload undecodable")
//	}
package tferrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error, used for error handling
// strategies, monitoring, and exit-code mapping.
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeSchema represents schema inference errors (empty or
	// mixed-type samples)
	ErrorTypeSchema ErrorType = "schema"
	// ErrorTypeArtifactNotFound indicates no persisted artifact exists
	ErrorTypeArtifactNotFound ErrorType = "artifact_not_found"
	// ErrorTypeArtifactCorrupt indicates structurally invalid persisted data
	ErrorTypeArtifactCorrupt ErrorType = "artifact_corrupt"
	// ErrorTypeDimension indicates a width disagreement between a persisted
	// artifact and the model's expected input
	ErrorTypeDimension ErrorType = "dimension_mismatch"
	// ErrorTypeData represents data processing errors
	ErrorTypeData ErrorType = "data"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
)

// Error represents a structured error with context.
//
// Fields:
//   - Type: Categorizes the error for handling strategies
//   - Message: Human-readable error description
//   - Cause: The underlying error that caused this error
//   - Details: Key-value pairs providing additional context
//   - Stack: Call stack at the point of error creation
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack, capturing
// the function name, file path, and line number for debugging.
type StackFrame struct {
	Function string // Fully qualified function name
	File     string // Source file path
	Line     int    // Line number in source file
}

// Error implements the error interface, returning a formatted error message
// that includes the error type, message, and cause (if present).
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, enabling compatibility with errors.Is
// and errors.As for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error, providing additional
// context for debugging. This method can be chained.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message, automatically
// capturing the call stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context, preserving the
// original error as the cause. If the error is already a structured Error,
// its stack trace is preserved. Returns nil if the input error is nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type, useful for conditional
// handling based on error categories.
//
// Example:
//
//	if tferrors.IsType(err, tferrors.ErrorTypeArtifactNotFound) {
//	    return fmt.Errorf("run training first: %w", err)
//	}
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsFatal returns true if the error aborts the current pipeline run.
// Dimension mismatches are recoverable by truncation or padding; everything
// else in the taxonomy is fatal.
func IsFatal(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return true
	}
	return e.Type != ErrorTypeDimension
}

// captureStack captures the current call stack up to maxFrames deep,
// skipping the specified number of frames from the top.
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
