package errors

import (
	"fmt"
)

// ScanError is the structured error type for scandex.
type ScanError struct {
	// Code is the unique error code (e.g., "ERR_203_CORRUPT_INDEX").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category groups the error for logging and presentation.
	Category Category

	// Severity tells callers how to react.
	Severity Severity

	// Details carries additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error.
	Cause error

	// Suggestion is an actionable hint for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// Is matches ScanErrors by code, enabling errors.Is comparisons.
func (e *ScanError) Is(target error) bool {
	if t, ok := target.(*ScanError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail and returns the error for chaining.
func (e *ScanError) WithDetail(key, value string) *ScanError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion sets an actionable hint and returns the error for chaining.
func (e *ScanError) WithSuggestion(suggestion string) *ScanError {
	e.Suggestion = suggestion
	return e
}

// New creates a ScanError; category and severity are derived from the code.
func New(code string, message string, cause error) *ScanError {
	return &ScanError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a ScanError from an existing error, reusing its message.
func Wrap(code string, err error) *ScanError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *ScanError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StoreError creates a session store error.
func StoreError(message string, cause error) *ScanError {
	return New(ErrCodeStoreOpen, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *ScanError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *ScanError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal reports whether the error carries fatal severity.
func IsFatal(err error) bool {
	if se, ok := err.(*ScanError); ok {
		return se.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the code, or "" when err is not a ScanError.
func GetCode(err error) string {
	if se, ok := err.(*ScanError); ok {
		return se.Code
	}
	return ""
}
