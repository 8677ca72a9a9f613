package errors

import (
	"errors"
	"fmt"
)

// Error is a classified error. Op names the operation that failed and Path
// the file, pattern or object the operation was working on, if any.
type Error struct {
	Code ErrorCode
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "[" + string(e.Code) + "]"
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" %q", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the classification of the error.
func (e *Error) ErrorCode() ErrorCode {
	return e.Code
}

// Is reports whether target is a bare code marker (an *Error with only Code
// set) carrying the same code. This makes the Err* values below usable with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" || t.Path != "" || t.Err != nil {
		return false
	}
	return t.Code == e.Code
}

// Code markers for use with errors.Is.
var (
	ErrPattern       = &Error{Code: CodePattern}
	ErrIO            = &Error{Code: CodeIO}
	ErrStore         = &Error{Code: CodeStore}
	ErrFormat        = &Error{Code: CodeFormat}
	ErrInvalidInput  = &Error{Code: CodeInvalidInput}
	ErrInvalidConfig = &Error{Code: CodeInvalidConfig}
)

// New creates an Error with a plain message.
func New(code ErrorCode, op, msg string) *Error {
	return &Error{Code: code, Op: op, Err: errors.New(msg)}
}

// Wrap classifies err under code. It returns nil when err is nil.
func Wrap(err error, code ErrorCode, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Err: err}
}

// WrapPath classifies err under code and records the path it concerns.
// It returns nil when err is nil.
func WrapPath(err error, code ErrorCode, op, path string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Path: path, Err: err}
}

// Wrapf classifies a formatted error under code.
func Wrapf(code ErrorCode, op, format string, args ...any) error {
	return &Error{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

// coder is implemented by error types from other packages that carry a code.
type coder interface {
	ErrorCode() ErrorCode
}

// CodeOf returns the code of the outermost classified error in err's chain,
// CodeUnknown if none is classified, or "" for a nil error.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return CodeUnknown
}

// HasCode reports whether err is classified under code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
