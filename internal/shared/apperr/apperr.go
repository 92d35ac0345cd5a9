// Package apperr defines the error kinds shared by every domain package.
//
// Domain packages declare their own sentinels with the constructors below, e.g.
//
//	var ErrAccountNotFound = apperr.NotFound("account not found")
//
// and callers classify any of them with errors.Is against the kind sentinels
// (ErrNotFound, ErrConflict, ErrForbidden, ErrValidation).
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindForbidden
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is an application error carrying a kind and a client-safe message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

// Is reports whether target is the bare kind sentinel matching e.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Kind == e.Kind
}

// Kind sentinels. Match with errors.Is.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrValidation = &Error{Kind: KindValidation}
)

func NotFound(msg string) *Error   { return &Error{Kind: KindNotFound, Msg: msg} }
func Conflict(msg string) *Error   { return &Error{Kind: KindConflict, Msg: msg} }
func Forbidden(msg string) *Error  { return &Error{Kind: KindForbidden, Msg: msg} }
func Validation(msg string) *Error { return &Error{Kind: KindValidation, Msg: msg} }

// Validationf formats a validation error message.
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Message returns the client-safe message of the first *Error in err's chain.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return ""
}
