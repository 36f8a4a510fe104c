// Package domainerrors defines the code-tagged error taxonomy shared by all
// services and handlers. Stores return sentinel errors; services translate
// them into these domain errors; the HTTP layer maps codes to status codes.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies an error category. Codes are stable API surface: they are
// serialized verbatim into the "error" field of HTTP error responses.
type Code string

const (
	CodeValidation        Code = "validation_error"
	CodeBadRequest        Code = "bad_request"
	CodeUnauthorized      Code = "unauthorized"
	CodeForbidden         Code = "forbidden"
	CodeNotFound          Code = "not_found"
	CodeConflict          Code = "conflict"
	CodeInvalidTransition Code = "invalid_transition"
	CodeInsufficientStock Code = "insufficient_stock"
	CodeTimeout           Code = "timeout"
	CodeInternal          Code = "internal_error"
)

// Error is a code-tagged domain error. Construct via New, Newf, or Wrap.
type Error struct {
	code    Code
	message string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error while preserving
// the chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Code() Code { return e.code }

// Message returns the human-readable message without the cause chain.
func (e *Error) Message() string { return e.message }

// coder lets other error types participate in code matching without
// embedding *Error.
type coder interface {
	Code() Code
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code from the first code-tagged error in the chain.
// Untagged errors are classified as internal.
func CodeOf(err error) Code {
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

// InsufficientStockError is the diagnostic form of CodeInsufficientStock:
// a legitimate business outcome, not a fault, so it carries the counts the
// caller needs to act on.
type InsufficientStockError struct {
	Available int
	Needed    int
}

func NewInsufficientStock(available, needed int) *InsufficientStockError {
	return &InsufficientStockError{Available: available, Needed: needed}
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient blood units in inventory: available %d, needed %d", e.Available, e.Needed)
}

func (e *InsufficientStockError) Code() Code { return CodeInsufficientStock }
