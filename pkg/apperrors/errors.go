// Package apperrors defines code-carrying domain errors. Services attach a
// Code so transports can map outcomes to wire responses without string
// matching, and so callers can branch on expected failures.
package apperrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error outcome.
type Code string

const (
	// CodeNotFound covers absent entities, including rows that exist under a
	// different site: tenant isolation reports those as not found.
	CodeNotFound Code = "not_found"
	// CodeValidation covers malformed input, missing required fields and
	// illegal stage transition targets.
	CodeValidation Code = "validation"
	// CodeConflict covers state rule violations: incomplete checklist without
	// a bypass, duplicate primary applicant, verify on a non-pending document.
	CodeConflict Code = "conflict"
	// CodeExternalService covers scoring-service failures: unreachable,
	// non-success status, or a non-conforming payload.
	CodeExternalService Code = "external_service"
	// CodeStorage covers persistence failures. Never swallowed.
	CodeStorage Code = "storage"
	// CodeInternal covers programming errors such as an unresolved site
	// context. Not user-facing.
	CodeInternal Code = "internal"
	// CodeInvariantViolation is raised by model constructors and transition
	// helpers; services usually translate it to validation or conflict.
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a domain error with a classification code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// CodeFrom extracts the code from err, defaulting to CodeInternal for
// unclassified errors.
func CodeFrom(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}
