// Package apperr defines the error taxonomy shared by the authorization and storage core.
//
// Every failure surfaced to a caller is an *Error carrying a Kind. Callers classify
// errors with KindOf or the Is* helpers rather than comparing messages.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	KindAuthenticationRequired Kind = "authentication_required"
	KindPermissionDenied       Kind = "permission_denied"
	KindConfiguration          Kind = "configuration"
	KindValidation             Kind = "validation"
	KindNotFound               Kind = "not_found"
	KindInternal               Kind = "internal"
)

// Error is the error type returned across package boundaries.
// Op names the failing operation (e.g. "storage.Upload"); Msg is safe to show to callers;
// Err is the wrapped cause, which may carry backend detail and is never shown to callers.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		fmt.Fprintf(&b, "<%s>", e.Kind)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind with no message, so that
// errors.Is(err, apperr.ErrNotFound) matches any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Op == "" && t.Err == nil
}

// Sentinels for errors.Is comparisons.
var (
	ErrAuthenticationRequired = &Error{Kind: KindAuthenticationRequired}
	ErrPermissionDenied       = &Error{Kind: KindPermissionDenied}
	ErrConfiguration          = &Error{Kind: KindConfiguration}
	ErrValidation             = &Error{Kind: KindValidation}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrInternal               = &Error{Kind: KindInternal}
)

// New returns an *Error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap returns an *Error of the given kind wrapping err. Returns nil if err is nil.
func Wrap(kind Kind, op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// AuthenticationRequired reports a missing or unauthenticated identity.
func AuthenticationRequired(op string) *Error {
	return New(KindAuthenticationRequired, op, "authentication required")
}

// PermissionDenied reports an authenticated identity acting outside its role or tenant.
func PermissionDenied(op, msg string) *Error {
	if msg == "" {
		msg = "permission denied"
	}
	return New(KindPermissionDenied, op, msg)
}

// Configuration reports missing wiring. It is a programmer error, not a caller error.
func Configuration(op, msg string) *Error {
	return New(KindConfiguration, op, msg)
}

// Validation reports malformed caller input.
func Validation(op, msg string) *Error {
	return New(KindValidation, op, msg)
}

// NotFound reports a missing object or path.
func NotFound(op, msg string) *Error {
	if msg == "" {
		msg = "not found"
	}
	return New(KindNotFound, op, msg)
}

// Internal wraps an unexpected failure. The cause is kept for logs only.
func Internal(op string, err error) error {
	return Wrap(KindInternal, op, "internal error", err)
}

// KindOf returns the Kind of the first *Error in err's chain, KindInternal for any other
// non-nil error, and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err's chain contains an *Error of kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage returns the caller-safe message for err. Internal and configuration
// failures collapse to a generic message.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case KindInternal, KindConfiguration:
		return "internal error"
	}
	if e.Msg != "" {
		return e.Msg
	}
	return string(e.Kind)
}

// MustNotBeConfiguration panics if err is a configuration error. It is used while wiring
// components at startup, where missing capabilities must abort the process.
func MustNotBeConfiguration(err error) {
	if IsKind(err, KindConfiguration) {
		panic(err)
	}
}
