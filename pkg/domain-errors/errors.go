// Package domainerrors defines coded errors shared by services and transports.
//
// Services create or wrap errors with a Code; the HTTP layer translates codes
// into status codes and a JSON envelope without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and logging.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeCooldownActive     Code = "cooldown_active"
	CodeChallengeClosed    Code = "challenge_closed"
	CodeVerificationFailed Code = "verification_failed"
	CodeUpstreamFailure    Code = "upstream_failure"
	CodeInternal           Code = "internal"
)

// Error carries a code, a user-facing message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a domain error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the Code from err, or CodeInternal for unknown errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the user-facing message from err. Unknown errors get a
// generic message so internal details never leak to citizens.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "an unexpected error occurred"
}

// ToHTTPStatus maps a domain error code to an HTTP status code.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound, CodeChallengeClosed:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeCooldownActive:
		return http.StatusTooManyRequests
	case CodeVerificationFailed:
		return http.StatusUnprocessableEntity
	case CodeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
