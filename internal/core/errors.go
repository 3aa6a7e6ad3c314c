package core

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrBackend           = errors.New("backend error")
	ErrMalformedResponse = errors.New("malformed backend response")
	ErrTimeout           = errors.New("stream timed out")
	ErrStream            = errors.New("stream failed")
	ErrStore             = errors.New("store error")
	ErrCancelled         = errors.New("request cancelled")
	ErrInvalidPrompt     = errors.New("invalid prompt")
)

// Error carries the kind of failure, the operation that failed and, for
// mid-stream failures, the text accumulated before the failure.
type Error struct {
	Kind    error
	Op      string
	Partial string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError wraps cause as a failure of the given kind.
// An existing *Error of the same kind is returned unchanged.
func NewError(kind error, op string, cause error) *Error {
	var ce *Error
	if errors.As(cause, &ce) && ce.Kind == kind {
		return ce
	}
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Backend wraps a transport or auth failure.
func Backend(op string, cause error) error { return NewError(ErrBackend, op, cause) }

// Malformed reports a decoded response that lacks the expected field.
func Malformed(op, format string, args ...any) error {
	return NewError(ErrMalformedResponse, op, fmt.Errorf(format, args...))
}

// PartialText returns the text retained with err, if any.
func PartialText(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Partial
	}
	return ""
}

// KindOf returns the kind sentinel of err, or nil when err is not classified.
func KindOf(err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return nil
}
