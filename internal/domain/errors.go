package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the command facade. Repositories and services
// attach exactly one kind; the facade maps kinds to wire status codes once.
type Kind int

const (
	// KindInternal is the default for IO failures, upstream 5xx and parse
	// failures on expected-valid input.
	KindInternal Kind = iota
	// KindNotFound marks a missing entity or file.
	KindNotFound
	// KindInvalidData marks malformed payloads, failed validation and the
	// chat integrity mismatch.
	KindInvalidData
	// KindAuthentication marks upstream 401/403 responses.
	KindAuthentication
	// KindPermissionDenied marks forbidden secret exposure.
	KindPermissionDenied
)

// Error is a domain failure with a classification kind.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// ErrIntegrity is the sentinel for chat integrity mismatches. The literal
// "integrity" message is what the UI keys on, so it is constructed in exactly
// one place (the chat repository).
var ErrIntegrity = &Error{kind: KindInvalidData, msg: "integrity"}

// NotFound creates a KindNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

// InvalidData creates a KindInvalidData error.
func InvalidData(format string, args ...any) error {
	return &Error{kind: KindInvalidData, msg: fmt.Sprintf(format, args...)}
}

// Authentication creates a KindAuthentication error.
func Authentication(format string, args ...any) error {
	return &Error{kind: KindAuthentication, msg: fmt.Sprintf(format, args...)}
}

// PermissionDenied creates a KindPermissionDenied error.
func PermissionDenied(format string, args ...any) error {
	return &Error{kind: KindPermissionDenied, msg: fmt.Sprintf(format, args...)}
}

// Internal creates a KindInternal error.
func Internal(format string, args ...any) error {
	return &Error{kind: KindInternal, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf returns the classification of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.kind
	}
	return KindInternal
}

// IsNotFound reports whether err is classified as NotFound.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsInvalidData reports whether err is classified as InvalidData.
func IsInvalidData(err error) bool { return KindOf(err) == KindInvalidData }

// IsIntegrity reports whether err is the chat integrity rejection.
func IsIntegrity(err error) bool {
	var de *Error
	return errors.As(err, &de) && de == ErrIntegrity
}
