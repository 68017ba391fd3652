// Package errors provides the structured error taxonomy used across s3vfs.
// Every failure crossing the storage boundary is translated into one of the
// codes below; callers match on codes with errors.Is rather than on message
// text.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies an s3vfs failure.
type Code string

const (
	// CodeNotFound means the path or object is absent.
	CodeNotFound Code = "NOT_FOUND"

	// CodeAlreadyExists means a creation or registry insert collided with an
	// existing entry.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeDirectoryNotEmpty means a non-recursive delete was blocked.
	CodeDirectoryNotEmpty Code = "DIRECTORY_NOT_EMPTY"

	// CodeNotADirectory means a directory operation hit a regular object.
	CodeNotADirectory Code = "NOT_A_DIRECTORY"

	// CodeAccessDenied means ACL evaluation refused a requested mode.
	CodeAccessDenied Code = "ACCESS_DENIED"

	// CodeUnsupportedOperation means the requested capability is not
	// implemented (directory copy, atomic move, unknown attribute families).
	CodeUnsupportedOperation Code = "UNSUPPORTED_OPERATION"

	// CodeInvalidArgument means a malformed path, non-absolute path, or a
	// disallowed option combination.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeConfiguration means a backing client or factory could not be
	// constructed from the resolved properties.
	CodeConfiguration Code = "CONFIGURATION_ERROR"

	// CodeTransport wraps any other backing-store failure, carrying the
	// attempted path for context.
	CodeTransport Code = "TRANSPORT_ERROR"
)

// Error is a structured s3vfs error. Code is the taxonomy entry, Op the
// operation that failed, Path the path or key it was attempted against.
type Error struct {
	Code    Code
	Op      string
	Path    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches two s3vfs errors by code, so errors.Is(err, New(CodeNotFound, ""))
// works regardless of message and path.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error carrying an operation, a path, and the underlying
// cause.
func Wrap(code Code, op, path string, cause error) *Error {
	return &Error{Code: code, Op: op, Path: path, Cause: cause}
}

// WithOp returns a copy of the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	clone := *e
	clone.Op = op
	return &clone
}

// WithPath returns a copy of the error with the path set.
func (e *Error) WithPath(path string) *Error {
	clone := *e
	clone.Path = path
	return &clone
}

// CodeOf extracts the taxonomy code from an error chain, or "" if the error
// is not an s3vfs error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsAlreadyExists reports whether err carries CodeAlreadyExists.
func IsAlreadyExists(err error) bool {
	return CodeOf(err) == CodeAlreadyExists
}
