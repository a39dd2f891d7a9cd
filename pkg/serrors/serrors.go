// Package serrors defines the semantic error taxonomy shared by the billing
// workflow and its transports. Every failure that leaves the service layer is
// an *Error carrying one Kind; transports map kinds to status codes.
package serrors

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Kind is a marker interface implemented by all semantic error kinds created
// with NewKind.
type Kind interface {
	error
	isKind()
}

type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind creates a new semantic error kind (a sentinel). Kinds are comparable
// and can be matched with errors.Is/As through the Error wrapper.
func NewKind(name string) Kind { return kind{s: name} }

var (
	// ErrValidation means one or more field rules were violated. The caller has
	// to fix the payload and resubmit.
	ErrValidation = NewKind("VALIDATION")
	// ErrConflict means a uniqueness invariant (the bill number) was violated.
	ErrConflict = NewKind("CONFLICT")
	// ErrMessaging means the integration event could not be confirmed by the
	// broker. The bill itself may already be committed.
	ErrMessaging = NewKind("MESSAGING")
	// ErrInternal is an infrastructure failure unrelated to business rules.
	ErrInternal = NewKind("INTERNAL")
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = NewKind("NOT_FOUND")
	// ErrTimeout indicates the operation timed out.
	ErrTimeout = NewKind("TIMEOUT")
)

// Error is a semantic error carrying a kind, an optional wrapped cause, an
// optional message and, for validation failures, the offending fields.
//
// errors.Is and errors.As match either the kind sentinel or the wrapped cause.
//
// Error string formatting:
//   - If both msg and err are set: "<msg>: <err>"
//   - If only msg is set: "<msg>"
//   - If only err is set: "<err>"
//   - If neither set: the kind's Error() string.
type Error struct {
	kind   Kind
	err    error
	msg    string
	fields map[string][]string
}

// With constructs a new semantic error with the given kind and a
// human-readable message.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap constructs a new semantic error with the given kind wrapping err.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

// KindOnly creates a semantic error carrying only the kind.
func KindOnly(k Kind) *Error { return &Error{kind: k} }

// Invalid creates an ErrValidation error carrying field path -> messages. The
// map is copied so later changes by the caller are not observed.
func Invalid(fields map[string][]string, msgFmt string, args ...any) *Error {
	cp := make(map[string][]string, len(fields))
	for k, v := range fields {
		cp[k] = slices.Clone(v)
	}

	return &Error{kind: ErrValidation, msg: fmt.Sprintf(msgFmt, args...), fields: cp}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	default:
		if e.kind != nil {
			return e.kind.Error()
		}

		return "unknown error"
	}
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// Is matches against either the kind sentinel or the wrapped error.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}
	if e.kind != nil && errors.Is(e.kind, target) {
		return true
	}
	if e.err != nil && errors.Is(e.err, target) {
		return true
	}

	return false
}

// As enables type assertions against either the kind sentinel or the wrapped
// error in the chain.
func (e *Error) As(target any) bool {
	if e == nil || target == nil {
		return false
	}
	if e.kind != nil && errors.As(e.kind, target) {
		return true
	}
	if e.err != nil && errors.As(e.err, target) {
		return true
	}

	return false
}

// Kind returns the semantic kind sentinel associated with this error, or nil.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the message attached to this error.
func (e *Error) Message() string { return e.msg }

// Cause returns the wrapped cause (may be nil).
func (e *Error) Cause() error { return e.err }

// Fields returns a copy of the field errors, or nil when there are none.
func (e *Error) Fields() map[string][]string {
	if len(e.fields) == 0 {
		return nil
	}

	return maps.Clone(e.fields)
}

// KindOf returns the kind of the first *Error in err's chain, or ErrInternal
// when err carries no semantic kind. A bare Kind sentinel is returned as is.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e.kind != nil {
		return e.kind
	}

	var k Kind
	if errors.As(err, &k) {
		return k
	}

	return ErrInternal
}
