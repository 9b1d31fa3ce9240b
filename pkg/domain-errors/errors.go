// Package domainerrors provides coded errors shared by the client, the wizard
// and the CLI. Callers branch on the Code, never on message text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure by how the caller is expected to react to it.
type Code string

const (
	// CodeUnauthorized is a credential failure the user can correct (bad login).
	CodeUnauthorized Code = "unauthorized"
	// CodeSessionExpired means an authenticated call got a 401; the session is gone.
	CodeSessionExpired Code = "session_expired"
	CodeForbidden      Code = "forbidden"
	CodeNotFound       Code = "not_found"
	CodeValidation     Code = "validation_error"
	CodeBadRequest     Code = "bad_request"
	CodeConflict       Code = "conflict"
	// CodeInvalidState is an operation attempted in the wrong lifecycle state.
	CodeInvalidState Code = "invalid_state"
	// CodeNetwork is a transport failure; retryable by the user.
	CodeNetwork Code = "network_error"
	// CodeAPI is any other non-2xx server response; retryable by the user.
	CodeAPI      Code = "api_error"
	CodeInternal Code = "internal_error"
)

// Error is a coded error with an optional cause and HTTP status.
type Error struct {
	Code    Code
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// WithStatus records the HTTP status that produced the error.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// CodeOf returns the code of the outermost coded error in err's chain,
// or CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// StatusOf returns the HTTP status recorded on err, or 0.
func StatusOf(err error) int {
	var de *Error
	if errors.As(err, &de) {
		return de.Status
	}
	return 0
}

// Is is errors.Is, re-exported so callers need a single import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As, re-exported alongside Is.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Retryable reports whether the user may retry the same operation unchanged.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeNetwork, CodeAPI:
		return true
	default:
		return false
	}
}
