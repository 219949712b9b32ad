// Package domainerrors defines the error taxonomy shared by services and
// transports. Services create or wrap errors with a Code; the HTTP layer
// translates codes to status codes and JSON envelopes without inspecting
// error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers. Codes are stable identifiers and are
// safe to expose over the wire.
type Code string

const (
	// CodeValidation marks malformed or missing input fields. Surfaced to the
	// submitter with field-level detail.
	CodeValidation Code = "validation_error"
	// CodeBadRequest marks a structurally invalid request (bad JSON, wrong
	// content type) before field validation runs.
	CodeBadRequest Code = "bad_request"
	// CodeRateLimited marks an intake denial from the rate limiter. Distinct
	// from validation so callers can attach Retry-After.
	CodeRateLimited Code = "rate_limited"
	// CodeNotFound marks an unknown lead or child record.
	CodeNotFound Code = "not_found"
	// CodeInvalidTransition marks an illegal lead status change.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeUnauthorized marks a missing or invalid admin credential.
	CodeUnauthorized Code = "unauthorized"
	// CodeTransportFailure marks a failed notification delivery. Never
	// surfaced to the original submitter.
	CodeTransportFailure Code = "transport_failure"
	// CodeTimeout marks an operation aborted by deadline.
	CodeTimeout Code = "timeout"
	// CodeInvariantViolation marks a broken internal invariant, e.g. a status
	// change without its activity entry.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal is the generic catch-all for storage and wiring failures.
	CodeInternal Code = "internal_error"
)

// DomainError carries a Code plus a human-readable description and an
// optional wrapped cause.
type DomainError struct {
	Code    Code
	Message string
	Fields  map[string]string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message while preserving the cause for
// errors.Is / errors.As chains.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, cause: err}
}

// WithFields attaches field-level detail to a validation error so the
// transport can echo which inputs failed.
func WithFields(code Code, message string, fields map[string]string) error {
	return &DomainError{Code: code, Message: message, Fields: fields}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var de *DomainError
	for e := err; e != nil; {
		if errors.As(e, &de) {
			if de.Code == code {
				return true
			}
			e = de.cause
			continue
		}
		return false
	}
	return false
}

// CodeOf extracts the outermost code, defaulting to CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldsOf extracts field-level detail if present.
func FieldsOf(err error) map[string]string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidTransition:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
