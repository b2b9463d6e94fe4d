package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"

	// Payment protocol codes
	CodeEncoding    Code = "encoding_error" // Canonicalization input not representable as UTF-8 text
	CodeKeyNotFound Code = "key_not_found"  // No keypair available for an identity
	CodeSigning     Code = "signing_failed" // Key lifecycle failure while producing a signature
	CodeUnavailable Code = "unavailable"    // Upstream collaborator unreachable or misconfigured

	// Trust aggregation contract violations
	CodeDoubleReport Code = "double_report" // Second write to a resolved verdict slot
	CodeNotReady     Code = "not_ready"     // Decision read before every slot resolved
	CodeUnknownSlot  Code = "unknown_slot"  // Report for a slot the payload kind does not require
	CodeBadVerdict   Code = "bad_verdict"   // Report carrying a status other than pass or fail
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Reclassify wraps err under code even when err already carries a domain code.
// The inner code stays reachable through errors.Is on the chain.
func Reclassify(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
