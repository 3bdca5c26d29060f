package gameio

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidVersion   ErrorCode = "INVALID_VERSION"
	CodeSchemaInvalid    ErrorCode = "SCHEMA_INVALID"
	CodeParseError       ErrorCode = "PARSE_ERROR"
	CodeIllegalMove      ErrorCode = "ILLEGAL_MOVE"
	CodeFinalFENMismatch ErrorCode = "FINAL_FEN_MISMATCH"
	CodeOutOfBounds      ErrorCode = "OUT_OF_BOUNDS"
	CodeUnknown          ErrorCode = "UNKNOWN"
)

// Error is the single failure type of this package. errors.Is matches any
// *Error with the same code, so callers may compare against the sentinels below.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

var (
	ErrInvalidVersion   = &Error{Code: CodeInvalidVersion}
	ErrSchemaInvalid    = &Error{Code: CodeSchemaInvalid}
	ErrParse            = &Error{Code: CodeParseError}
	ErrIllegalMove      = &Error{Code: CodeIllegalMove}
	ErrFinalFENMismatch = &Error{Code: CodeFinalFENMismatch}
	ErrOutOfBounds      = &Error{Code: CodeOutOfBounds}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	} else {
		msg = string(e.Code) + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the code from err, or CodeUnknown.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
