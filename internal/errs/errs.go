// Package errs defines the error codes exposed by the hash storage core and a
// small wrapped-error chain that accumulates contextual frames as an error
// propagates up through the call stack, in place of the original's
// accumulating ErrorStack.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies the category of a core error. Callers should compare with
// errors.Is against the sentinel values below rather than switching on Code
// directly, since Code travels wrapped inside a *Error.
type Code uint8

const (
	OK Code = iota
	ErrOutOfFreePages
	ErrStorageDuplicateID
	ErrDependentModuleUnavailable
	ErrOutOfMemory
	ErrNotFound
	ErrRaceRetry
	ErrDuplicateKey
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case ErrOutOfFreePages:
		return "OUT_OF_FREE_PAGES"
	case ErrStorageDuplicateID:
		return "STORAGE_DUPLICATE_ID"
	case ErrDependentModuleUnavailable:
		return "DEPENDENT_MODULE_UNAVAILABLE"
	case ErrOutOfMemory:
		return "OUT_OF_MEMORY"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrRaceRetry:
		return "RACE_RETRY"
	case ErrDuplicateKey:
		return "DUPLICATE_KEY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(c))
	}
}

// sentinel is the comparable value every *Error of a given Code wraps, so
// that errors.Is(err, errs.OutOfFreePages) works regardless of how many
// frames were pushed on top.
type sentinel struct{ code Code }

func (s sentinel) Error() string { return s.code.String() }

var (
	OutOfFreePages            = sentinel{ErrOutOfFreePages}
	StorageDuplicateID         = sentinel{ErrStorageDuplicateID}
	DependentModuleUnavailable = sentinel{ErrDependentModuleUnavailable}
	OutOfMemory                = sentinel{ErrOutOfMemory}
	NotFound                   = sentinel{ErrNotFound}
	RaceRetry                  = sentinel{ErrRaceRetry}
	DuplicateKey               = sentinel{ErrDuplicateKey}
)

// Error is a frame in the error stack: a code, a message describing this
// frame, and the frame beneath it. At the root the cause is the code's
// sentinel, which Error() does not print.
type Error struct {
	Code  Code
	msg   string
	cause error
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, msg: msg, cause: sentinelFor(code)}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap pushes a new contextual frame on top of an existing error without
// losing the original sentinel for errors.Is matching.
func Wrap(err error, msg string) *Error {
	code := CodeOf(err)
	return &Error{Code: code, msg: msg, cause: err}
}

func sentinelFor(code Code) error {
	switch code {
	case ErrOutOfFreePages:
		return OutOfFreePages
	case ErrStorageDuplicateID:
		return StorageDuplicateID
	case ErrDependentModuleUnavailable:
		return DependentModuleUnavailable
	case ErrOutOfMemory:
		return OutOfMemory
	case ErrNotFound:
		return NotFound
	case ErrRaceRetry:
		return RaceRetry
	case ErrDuplicateKey:
		return DuplicateKey
	default:
		return nil
	}
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.msg
	}
	if _, root := e.cause.(sentinel); root {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// CodeOf extracts the Code carried by err, walking the wrap chain. Returns OK
// if err is nil and Code(255), a value no named code uses, if err carries
// none of our sentinels.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var s sentinel
	if errors.As(err, &s) {
		return s.code
	}
	return Code(255)
}
