// Package connectorerr defines the typed error taxonomy shared by every
// connector component: sentinel errors wrapped with %w-compatible context
// rather than ad-hoc string errors.
package connectorerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Use errors.Is against these, or Kind(err) to recover the
// taxonomy entry for logging/metrics.
var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidIdentifier       = errors.New("invalid identifier")
	ErrMissingRequiredParam    = errors.New("missing required parameter")
	ErrInvalidMethod           = errors.New("invalid method")
	ErrInvalidRuntimeExpr      = errors.New("invalid runtime expression")
	ErrInvalidAuthParameter    = errors.New("invalid auth parameter")
	ErrCyclicalReference       = errors.New("cyclical reference")
	ErrPagingOverflow          = errors.New("paging overflow")
	ErrPoisonedLock            = errors.New("poisoned lock")
	ErrUnimplemented           = errors.New("unimplemented")
	ErrTimeout                 = errors.New("timeout")
)

// Error wraps a sentinel Kind with operation identifier context, so a
// runner failure surfaces with the identifier that was being dispatched.
type Error struct {
	Kind       error
	Identifier string
	Detail     string
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Identifier != "" {
		msg = fmt.Sprintf("%s: %s", e.Identifier, msg)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Detail)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return e.Kind
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// New builds an Error for the given sentinel kind and identifier.
func New(kind error, identifier, detail string) *Error {
	return &Error{Kind: kind, Identifier: identifier, Detail: detail}
}

// Wrap attaches identifier context to an underlying cause, tagged with a
// taxonomy kind. Transport and serialization failures surface with their
// source context intact.
func Wrap(kind error, identifier string, cause error) *Error {
	return &Error{Kind: kind, Identifier: identifier, Cause: cause}
}

// Transport-and-serialization sentinel kinds.
var (
	ErrIO       = errors.New("io error")
	ErrJSON     = errors.New("json error")
	ErrYAML     = errors.New("yaml error")
	ErrNetwork  = errors.New("network error")
	ErrURLParse = errors.New("url parse error")
	ErrHeader   = errors.New("header parse error")
)
