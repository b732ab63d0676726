package tracking

import (
	"errors"
	"fmt"
)

// Kind classifies why a cursor query failed.
type Kind int

const (
	KindUnavailable Kind = iota + 1
	KindPermissionDenied
	KindUnsupported
)

var (
	ErrUnavailable      = errors.New("input subsystem unavailable")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnsupported      = errors.New("platform unsupported")
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindPermissionDenied:
		return "permission_denied"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindUnsupported:
		return ErrUnsupported
	default:
		return ErrUnavailable
	}
}

// QueryError is returned when the pointer position cannot be read.
// errors.Is matches it against the sentinel for its Kind.
type QueryError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *QueryError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.sentinel().Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("cursor position: %s: %v", msg, e.Err)
	}
	return "cursor position: " + msg
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func newQueryError(kind Kind, format string, args ...any) *QueryError {
	return &QueryError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
