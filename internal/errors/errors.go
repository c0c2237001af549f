// Package errors provides a lightweight structured error type (EngineError)
// for category-based classification in the build pipeline and CLI.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory classifies an EngineError for reporting and exit handling.
type ErrorCategory string

const (
	// Configuration and invariant violations, fatal for the whole build.
	CategoryConfig ErrorCategory = "config"

	// Per-file content errors (bad front matter, unmappable extension).
	CategoryContent ErrorCategory = "content"

	// Redirect graph violations, checked before any redirect is written.
	CategoryRedirect ErrorCategory = "redirect"

	// Cache (manifest) problems. Never fatal; degrade to full rebuild.
	CategoryCache ErrorCategory = "cache"

	// Filesystem read/write failures, fatal for the affected file.
	CategoryIO ErrorCategory = "io"

	// Anything that escaped classification.
	CategoryInternal ErrorCategory = "internal"
)

// EngineError is a structured error with category and context fields.
type EngineError struct {
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for EngineError.
type ContextFields map[string]any

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *EngineError) WithContext(key string, value any) *EngineError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new EngineError.
func New(category ErrorCategory, message string) *EngineError {
	return &EngineError{
		Category: category,
		Message:  message,
	}
}

// Newf creates a new EngineError with a formatted message.
func Newf(category ErrorCategory, format string, args ...any) *EngineError {
	return &EngineError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new EngineError that wraps an existing error.
func Wrap(err error, category ErrorCategory, message string) *EngineError {
	return &EngineError{
		Category: category,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if any error in the chain belongs to a category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EngineError
	if stderrors.As(err, &ee) {
		return ee.Category == category
	}
	return false
}

// GetCategory extracts the category from the first EngineError in the
// chain, or returns CategoryInternal if there is none.
func GetCategory(err error) ErrorCategory {
	var ee *EngineError
	if stderrors.As(err, &ee) {
		return ee.Category
	}
	return CategoryInternal
}
