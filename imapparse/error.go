package imapparse

import (
	"errors"
	"fmt"
)

// Errors returned by Parse, wrapped in an *Error. Use errors.Is to check for a
// class of syntax error.
var (
	ErrUnterminatedQuoted = errors.New("unterminated quoted string")
	ErrBadQuoted          = errors.New("invalid character in quoted string")
	ErrLiteralHeader      = errors.New("malformed literal header")
	ErrLiteralTruncated   = errors.New("truncated literal")
	ErrUnterminatedList   = errors.New("unterminated list")
	ErrUnterminatedSpec   = errors.New("unterminated attribute specifier")
	ErrUnexpectedChar     = errors.New("unexpected character")
	ErrNesting            = errors.New("inconsistent nesting")
	ErrTooDeep            = errors.New("nesting too deep")
)

// ErrShape is returned, wrapped in a *ShapeError, by AString, NString and
// Number when a value is not of the requested form.
var ErrShape = errors.New("value has wrong shape")

// Error is a syntax error in a response. No partial result is returned with a
// syntax error.
type Error struct {
	Err    error  // One of the Err* variables.
	Msg    string // Details.
	Input  string // Complete input given to Parse.
	Offset int    // Offset into Input where the error was found.
}

func (e *Error) Error() string {
	remaining := e.Input[e.Offset:]
	if len(remaining) > 40 {
		remaining = remaining[:40] + "..."
	}
	return fmt.Sprintf("%s: %s at offset %d (remaining %q)", e.Err, e.Msg, e.Offset, remaining)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ShapeError is returned when a value cannot be interpreted as the requested
// kind of field.
type ShapeError struct {
	Want  string // "astring", "nstring" or "number".
	Value Value
}

func (e *ShapeError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: nothing cannot be read as %s", ErrShape, e.Want)
	}
	return fmt.Sprintf("%s: %s %s cannot be read as %s", ErrShape, kind(e.Value), e.Value, e.Want)
}

func (e *ShapeError) Unwrap() error {
	return ErrShape
}
