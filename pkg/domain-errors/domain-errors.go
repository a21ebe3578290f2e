// Package domainerrors carries transport-agnostic error codes from the
// verification and listing services up to the HTTP layer.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code names what went wrong in service terms, not HTTP terms.
type Code string

const (
	CodeNotFound        Code = "not_found"
	CodeBadRequest      Code = "bad_request"
	CodeValidation      Code = "validation_failed"
	CodeInternal        Code = "internal_error"
	CodeTimeout         Code = "timeout"
	CodeUnavailable     Code = "unavailable"
	CodeRequestTooLarge Code = "request_too_large"
)

// Error pairs a stable Code with a client-safe message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches code and msg to err. A domain error already in the chain
// keeps its code.
func Wrap(err error, code Code, msg string) error {
	if existing := CodeOf(err); existing != "" {
		code = existing
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the first domain error in the chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
