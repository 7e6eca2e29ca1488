package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNavigation   ErrorType = "navigation"
	ErrorTypeLoginTimeout ErrorType = "login_timeout"
	ErrorTypeDriver       ErrorType = "driver"
	ErrorTypeParsing      ErrorType = "parsing"
	ErrorTypeFetch        ErrorType = "fetch"
	ErrorTypeStorage      ErrorType = "storage"
	ErrorTypeConfig       ErrorType = "config"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Error carries a failure category alongside the underlying cause
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given type
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap annotates err with a type and message. A nil err stays nil.
func Wrap(err error, errorType ErrorType, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Type: errorType, Message: message, Err: err}
}

// TypeOf returns the type of the outermost typed error in the chain
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsFatal reports whether an error must abort the run. Per-item failures
// (a post that fails to parse, an image that fails to download) are not.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch TypeOf(err) {
	case ErrorTypeParsing, ErrorTypeFetch:
		return false
	default:
		return true
	}
}
