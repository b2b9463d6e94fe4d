package ports

import (
	"errors"
	"fmt"
)

// ErrorCategory normalizes collaborator failures so the evaluation layer can
// turn them into slot verdicts without inspecting messages.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorOutage         ErrorCategory = "outage"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	// ErrorNotConfigured means the collaborator cannot run at all, for
	// example because no API key is set.
	ErrorNotConfigured ErrorCategory = "not_configured"
	ErrorInternal      ErrorCategory = "internal"
)

// CollaboratorError wraps a failed call to an external verdict source.
type CollaboratorError struct {
	Category   ErrorCategory
	Source     string
	Message    string
	Underlying error
}

func (e *CollaboratorError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Source, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Source, e.Category, e.Message)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Underlying
}

func NewError(category ErrorCategory, source, message string, underlying error) *CollaboratorError {
	return &CollaboratorError{Category: category, Source: source, Message: message, Underlying: underlying}
}

// Category extracts the category, defaulting to ErrorInternal.
func Category(err error) ErrorCategory {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ErrorInternal
}

// IsNotConfigured reports whether err says the collaborator is absent.
func IsNotConfigured(err error) bool {
	return Category(err) == ErrorNotConfigured
}
