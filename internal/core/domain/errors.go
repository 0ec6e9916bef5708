package domain

import (
	"errors"
	"fmt"
)

// Error is a structured domain error carrying a stable code, scoped to
// this module's error taxonomy: ignorable / data error / invariant
// violation.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is compares by code so callers can do errors.Is(err, ErrMalformedFrame).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError builds an Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Cause: cause}
}

// Data-error sentinels: malformed wire input that the decoders
// recognized as belonging to the ot2 sublanguage but could not parse. A
// magic/prefix mismatch is NOT one of these — that case is ignorable
// and the decoders return (nil, nil) for it, never an error. These
// sentinels are fatal here too: internal/ingest stops the fold and
// returns the error to its caller.
var (
	ErrUnknownMessageTag = NewError("LT-WIRE-1001", "unknown binary message tag")
	ErrMalformedText     = NewError("LT-WIRE-1002", "malformed ot2 text message")
	ErrMalformedBinary   = NewError("LT-WIRE-1003", "malformed binary message body")
	ErrInvalidUTF8       = NewError("LT-WIRE-1004", "malformed utf-8 string payload")
	ErrUnknownInstrument = NewError("LT-WIRE-1005", "unknown instrument tag")
)

// IsDataError reports whether err is one of the data-error sentinels
// above (as opposed to an ignorable no-op or an invariant violation).
func IsDataError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code {
	case ErrUnknownMessageTag.Code, ErrMalformedText.Code,
		ErrMalformedBinary.Code, ErrInvalidUTF8.Code, ErrUnknownInstrument.Code:
		return true
	default:
		return false
	}
}
