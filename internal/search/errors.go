package search

import (
	"errors"
	"fmt"
)

// ErrorCategory normalises search backend failures.
type ErrorCategory string

const (
	// ErrorTimeout indicates the backend took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the backend returned a body we could not decode
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorOutage indicates the backend answered with a non-2xx status or
	// could not be reached
	ErrorOutage ErrorCategory = "outage"

	// ErrorCircuitOpen indicates the call was not attempted
	ErrorCircuitOpen ErrorCategory = "circuit_open"
)

// Error wraps a search failure with its category.
type Error struct {
	Category   ErrorCategory
	Message    string
	StatusCode int
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("search [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("search [%s]: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category ErrorCategory, message string, underlying error) *Error {
	return &Error{Category: category, Message: message, Underlying: underlying}
}

// Category extracts the category of a search error, or "" for anything else.
func Category(err error) ErrorCategory {
	var se *Error
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}
