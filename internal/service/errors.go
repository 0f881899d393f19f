package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies service failures.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindDuplicate      Kind = "duplicate"
	KindNotFound       Kind = "not_found"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindConflict       Kind = "conflict"
	KindBadRequest     Kind = "bad_request"
)

// Error is a client-facing failure carrying the HTTP status to respond with.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs an Error without a cause.
func NewError(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Message: message, Status: status}
}

func (e *Error) withCause(err error) *Error {
	e.Err = err
	return e
}

func (e *Error) withFields(fields map[string]string) *Error {
	e.Fields = fields
	return e
}

// KindOf reports the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}

// StatusOf reports the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Status != 0 {
		return svcErr.Status
	}
	return http.StatusInternalServerError
}

func errAuthenticationFailed(cause error) *Error {
	return NewError(KindAuthentication, http.StatusUnauthorized, "Authentication failed").withCause(cause)
}
