package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

// Configuration error codes
const (
	ErrConfiguration      ErrorCode = "CONFIGURATION"
	ErrMissingCredentials ErrorCode = "MISSING_CREDENTIALS"
)

// Generation error codes
const (
	ErrGenerationFailed ErrorCode = "GENERATION_FAILED"
	ErrConclusionFailed ErrorCode = "CONCLUSION_FAILED"
)

// Protocol misuse error codes
const (
	ErrEmptyScheduler    ErrorCode = "EMPTY_SCHEDULER"
	ErrAlreadyStarted    ErrorCode = "ALREADY_STARTED"
	ErrNotStarted        ErrorCode = "NOT_STARTED"
	ErrConversationEnded ErrorCode = "CONVERSATION_ENDED"
	ErrInvalidSnapshot   ErrorCode = "INVALID_SNAPSHOT"
	ErrDuplicateIdentity ErrorCode = "DUPLICATE_IDENTITY"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误码匹配，使 errors.Is(err, sentinel) 对携带不同 Message/Cause 的同码错误成立。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConfigurationError reports whether err belongs to the configuration class.
func IsConfigurationError(err error) bool {
	switch GetErrorCode(err) {
	case ErrConfiguration, ErrMissingCredentials, ErrDuplicateIdentity:
		return true
	}
	return false
}
