// Package domainerrors defines the coded error taxonomy shared by services and
// transport. Services attach a Code describing the business outcome; the HTTP
// layer maps codes to status codes and never inspects error strings.
//
// Stores do not use this package. They return sentinel errors
// (pkg/platform/sentinel) and services translate those into coded errors.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeBadRequest marks structurally unreadable input (malformed JSON, bad multipart).
	CodeBadRequest Code = "bad_request"
	// CodeValidationSyntax marks a well-formed request with an out-of-range or
	// malformed field (bad postal code, oversized name).
	CodeValidationSyntax Code = "validation_syntax"
	// CodeValidationSemantic marks fields that are individually valid but
	// mutually inconsistent (temporal start after end).
	CodeValidationSemantic Code = "validation_semantic"
	// CodeBusinessRule marks a violated cross-entity rule (referenced area unknown).
	CodeBusinessRule Code = "business_rule"
	// CodeDeactivated marks a submission against a deactivated functional identifier.
	CodeDeactivated Code = "deactivated"
	// CodeConflict marks a lost uniqueness race.
	CodeConflict Code = "conflict"
	// CodeNotFound marks an unknown functional identifier.
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeInternal     Code = "internal_error"
)

// HTTPStatus returns the status code a transport should use for this Code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeValidationSyntax, CodeValidationSemantic, CodeBusinessRule, CodeDeactivated:
		return http.StatusUnprocessableEntity
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a coded domain error. Message is safe to return to API callers
// except when Code is CodeInternal.
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

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
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
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
