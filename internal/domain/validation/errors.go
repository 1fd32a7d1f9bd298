package validation

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by this package matches exactly one of
// these with errors.Is. None of them is transient.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrSelfValidation     = errors.New("self validation")
	ErrDuplicateValidator = errors.New("duplicate validator")
	ErrOutOfRange         = errors.New("out of range")
)

// Error describes which invariant an operation violated.
type Error struct {
	Op     string // operation, e.g. "validation.append_score"
	Kind   error  // one of the Err* kinds above
	Detail string // the violated invariant in plain words
	Err    error  // underlying cause, if any
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, kind error, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the error kind carried by err, or nil if err did not come
// from this package.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// Code returns a stable snake_case code for err's kind, suitable for API
// responses and metric labels. Errors from elsewhere map to "internal_error".
func Code(err error) string {
	switch KindOf(err) {
	case ErrInvalidInput:
		return "invalid_input"
	case ErrNotFound:
		return "not_found"
	case ErrInvalidState:
		return "invalid_state"
	case ErrSelfValidation:
		return "self_validation"
	case ErrDuplicateValidator:
		return "duplicate_validator"
	case ErrOutOfRange:
		return "out_of_range"
	}
	return "internal_error"
}
