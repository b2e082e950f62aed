// Package errs defines the error kinds shared across the tile-serving
// pipeline so that any layer — an engine, the cache, the pipeline itself —
// can report a failure without knowing how it will eventually be rendered
// (HTTP status, CLI exit code, log line).
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the error categories from the error handling design.
type Kind int

const (
	// Unknown is the zero value; never returned deliberately.
	Unknown Kind = iota
	NotFound
	BadRequest
	Upstream
	Decode
	Timeout
	Unavailable
	Fatal
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case BadRequest:
		return "BadRequest"
	case Upstream:
		return "UpstreamError"
	case Decode:
		return "DecodeError"
	case Timeout:
		return "Timeout"
	case Unavailable:
		return "ServiceUnavailable"
	case Fatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every engine and by the
// request pipeline. Retryable only has meaning for Kind == Upstream.
type Error struct {
	Kind      Kind
	Retryable bool
	Source    string // source-id this error is about, if any
	Cause     error
}

func (e *Error) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s(%s): %v", e.Kind, e.Source, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New wraps cause as an Error of the given kind.
func New(k Kind, source string, cause error) *Error {
	return &Error{Kind: k, Source: source, Cause: cause}
}

// Newf is New with a formatted cause.
func Newf(k Kind, source, format string, args ...any) *Error {
	return &Error{Kind: k, Source: source, Cause: fmt.Errorf(format, args...)}
}

// UpstreamErr builds an Upstream error with the given retryability.
func UpstreamErr(source string, retryable bool, cause error) *Error {
	return &Error{Kind: Upstream, Source: source, Retryable: retryable, Cause: cause}
}

// As extracts an *Error from err, following the wrap chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, defaulting to Decode for errors that
// were never classified — an unclassified failure in a decode/parse path
// is the common case for bugs surfaced as plain errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Decode
}
