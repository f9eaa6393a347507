// Package errors provides structured error types for lanemap.
//
// Errors carry a machine-readable [Code] so the CLI and the HTTP API can react
// to a failure category without matching on message text.
//
// # Error Codes
//
//   - INVALID_*: input validation failures (addresses, names, formats)
//   - UNSUPPORTED_*: input that is well-formed but outside the supported grid
//   - *_NOT_FOUND: missing workflows or steps
//   - STORAGE / INTERNAL_ERROR: failures in collaborators or unexpected states
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidAddress, "invalid grid address: %q", s)
//	if errors.Is(err, errors.ErrCodeInvalidAddress) {
//	    // treat the step as unplaced
//	}
//
//	err := errors.Wrap(errors.ErrCodeStorage, origErr, "update step %d", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidAddress Code = "INVALID_ADDRESS"
	ErrCodeInvalidLetter  Code = "INVALID_LETTER"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidName    Code = "INVALID_NAME"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Grid range errors
	ErrCodeUnsupportedRow Code = "UNSUPPORTED_ROW"
	ErrCodeOutOfRange     Code = "OUT_OF_RANGE"

	// Resource not found errors
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeStepNotFound     Code = "STEP_NOT_FOUND"
	ErrCodeWorkflowNotFound Code = "WORKFLOW_NOT_FOUND"

	// Collaborator errors
	ErrCodeStorage Code = "STORAGE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsNotFound reports whether err carries any of the not-found codes.
func IsNotFound(err error) bool {
	switch GetCode(err) {
	case ErrCodeNotFound, ErrCodeStepNotFound, ErrCodeWorkflowNotFound:
		return true
	}
	return false
}

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidAddress, ErrCodeInvalidLetter,
		ErrCodeInvalidFormat, ErrCodeInvalidName, ErrCodeInvalidPath,
		ErrCodeUnsupportedRow, ErrCodeOutOfRange:
		return true
	}
	return false
}
