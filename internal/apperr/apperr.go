package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into the outcomes the calling layer distinguishes.
type Kind int

const (
	KindValidation Kind = iota
	KindConflict
	KindNotFound
	KindInvalidTransition
	KindPersistence
)

// Machine-readable reason codes carried alongside the kind.
const (
	CodeAlreadyActive    = "already_active"
	CodeOverlap          = "overlap"
	CodeCapacityExceeded = "capacity_exceeded"
	CodeAlreadyResolved  = "already_resolved"
	CodeAlreadyReserved  = "already_reserved"
)

type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(code, format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Transition(code, format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidTransition, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Persistence wraps a storage-layer failure. This is the only kind the caller
// may retry, once, with backoff; the core never retries.
func Persistence(op string, err error) error {
	return &Error{Kind: KindPersistence, Msg: op, Err: err}
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// HTTPStatus maps an error to the status the API surface returns.
// Unknown errors are treated as persistence failures.
func HTTPStatus(err error) int {
	k, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
