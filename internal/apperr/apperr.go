// Package apperr classifies failures so every layer can answer a user action
// the same way: validation, authorization and integrity problems are rejected
// before any mutation, remote errors come from the store and are surfaced verbatim.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindIntegrity     Kind = "integrity"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindRemote        Kind = "remote"
)

// Error carries a user facing message and, optionally, the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and message so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == e.Msg
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Authorization(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Msg: fmt.Sprintf(format, args...)}
}

func Integrity(format string, args ...any) *Error {
	return &Error{Kind: KindIntegrity, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Remote wraps a failure of the persistence collaborator.
func Remote(err error) *Error { return &Error{Kind: KindRemote, Err: err} }

// KindOf returns the kind of the first *Error in err's chain. Unclassified errors are remote.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRemote
}

// HTTPStatus maps an error to the status code the handlers answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindIntegrity, KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// Message is the text shown to the user. Sentinels keep their own message even when wrapped.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		if e.Kind == KindRemote && e.Err != nil {
			return e.Err.Error()
		}
		return e.Msg
	}
	return err.Error()
}
