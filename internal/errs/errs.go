// Package errs defines the error taxonomy shared across the memory engine.
//
// Every error surfaced to a caller carries a Code so that the tool façade
// (internal/facade) can map it to a deterministic JSON-RPC error code without
// string-matching messages. Workers (internal/jobs) switch on Code to decide
// whether to retry.
package errs

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Code classifies an error for retry and RPC-mapping purposes.
type Code int

const (
	// CodeInvalidParams means the request violated schema or range checks.
	// Never retried.
	CodeInvalidParams Code = iota
	// CodeNotFound means a referenced entity does not exist.
	CodeNotFound
	// CodeConflict means a fatal mismatch (e.g. embedding dimension) that
	// requires reconfiguration before retrying.
	CodeConflict
	// CodeTransient means a connectivity/timeout/rate-limit failure that is
	// safe to retry with backoff.
	CodeTransient
	// CodeLogic means a domain rule was violated (e.g. merge with <2 members).
	CodeLogic
	// CodeInternal is an unclassified failure.
	CodeInternal
)

func (c Code) String() string {
	switch c {
	case CodeInvalidParams:
		return "invalid_params"
	case CodeNotFound:
		return "not_found"
	case CodeConflict:
		return "conflict"
	case CodeTransient:
		return "transient"
	case CodeLogic:
		return "logic"
	default:
		return "internal"
	}
}

// Error is the concrete error type carrying a Code plus a wrapped cause.
type Error struct {
	code Code
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

// Code returns the classification of err, defaulting to CodeInternal when
// err does not carry one.
func Code_(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return CodeInternal
}

func new_(code Code, msg string, cause error) *Error {
	return &Error{code: code, msg: msg, err: cause}
}

// InvalidParams builds an InvalidParams error with a human-readable message.
func InvalidParams(msg string) error { return new_(CodeInvalidParams, msg, nil) }

// InvalidParamsf builds a formatted InvalidParams error.
func InvalidParamsf(format string, a ...interface{}) error {
	return new_(CodeInvalidParams, fmt.Sprintf(format, a...), nil)
}

// NotFound builds a NotFound error.
func NotFound(msg string) error { return new_(CodeNotFound, msg, nil) }

// NotFoundf builds a formatted NotFound error.
func NotFoundf(format string, a ...interface{}) error {
	return new_(CodeNotFound, fmt.Sprintf(format, a...), nil)
}

// Conflict builds a Conflict error (e.g. dimension mismatch).
func Conflict(msg string) error { return new_(CodeConflict, msg, nil) }

// Transient wraps cause as a retryable Transient error.
func Transient(msg string, cause error) error { return new_(CodeTransient, msg, cause) }

// Logic builds a domain-rule violation error.
func Logic(msg string) error { return new_(CodeLogic, msg, nil) }

// Internal wraps cause as an unclassified internal error.
func Internal(msg string, cause error) error { return new_(CodeInternal, msg, cause) }

// Wrap adds context to err while preserving its Code via go-faster/errors,
// which keeps a readable stack trace in non-production logs.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// IsRetryable reports whether err should be redelivered by a worker.
func IsRetryable(err error) bool {
	return Code_(err) == CodeTransient
}
