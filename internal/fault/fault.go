// Package fault defines the error taxonomy shared by services and the HTTP
// layer. Kinds classify who caused a failure and whether a retry can help.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Validation: malformed or missing input. Client-caused, never retried.
	Validation Kind = iota
	// Precondition: valid input, but lifecycle state forbids the operation.
	Precondition
	// NotFound: referenced entity does not exist.
	NotFound
	// Upstream: external provider or classifier failure/timeout. Safe for the
	// caller to retry with backoff; never retried inside the core.
	Upstream
	// Conflict: duplicate unique identifier on create.
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Precondition:
		return "precondition"
	case NotFound:
		return "not_found"
	case Upstream:
		return "upstream"
	case Conflict:
		return "conflict"
	}
	return "unknown"
}

// Error carries a kind alongside a message and optional cause.
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

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an existing error. A nil cause returns nil.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// KindOf returns the kind attached to err, or ok=false for untyped errors.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
