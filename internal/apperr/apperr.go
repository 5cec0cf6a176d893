package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindInvalidRequest    Kind = "InvalidRequest"
	KindNotFound          Kind = "NotFound"
	KindForbidden         Kind = "Forbidden"
	KindProcessingFailure Kind = "ProcessingFailure"
	KindIOFailure         Kind = "IOFailure"
)

// Error carries a failure kind and a human-readable explanation. Err is the
// underlying cause, if any.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Invalid(format string, args ...any) error {
	return &Error{Kind: KindInvalidRequest, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

func Processing(err error, format string, args ...any) error {
	return &Error{Kind: KindProcessingFailure, Msg: fmt.Sprintf(format, args...), Err: err}
}

func IO(err error, format string, args ...any) error {
	return &Error{Kind: KindIOFailure, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of err. Errors that never passed through this
// package are treated as storage failures.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindIOFailure
}

// Message returns the explanation without the wrapped cause, suitable for
// returning to callers.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	return err.Error()
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
