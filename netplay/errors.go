package netplay

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// Client-side errors.
	ErrorConnection
	ErrorTimeout
	ErrorNotConnected
	ErrorAlreadyConnecting
	ErrorAlreadyAuthenticating
	ErrorInvalidConfig
	ErrorSerialization

	// Server rejections.
	ErrorAuthRejected
	ErrorRoomRejected
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorConnection:
		return "connection_error"
	case ErrorTimeout:
		return "timeout"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorAlreadyConnecting:
		return "already_connecting"
	case ErrorAlreadyAuthenticating:
		return "already_authenticating"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorAuthRejected:
		return "authentication_rejected"
	case ErrorRoomRejected:
		return "room_rejected"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// NetplayError is a structured error with code and context.
type NetplayError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *NetplayError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *NetplayError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is comparison by code.
func (e *NetplayError) Is(target error) bool {
	t, ok := target.(*NetplayError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new NetplayError with the given code and message.
func NewError(code ErrorCode, message string) *NetplayError {
	return &NetplayError{Code: code, Message: message}
}

// WrapError wraps an existing error with a NetplayError.
func WrapError(code ErrorCode, message string, err error) *NetplayError {
	return &NetplayError{Code: code, Message: message, Wrapped: err}
}

// IsTimeout reports whether err is a handshake or connect timeout.
func IsTimeout(err error) bool {
	var ne *NetplayError
	return errors.As(err, &ne) && ne.Code == ErrorTimeout
}

// IsConnectionError reports whether err is a transport-level failure.
func IsConnectionError(err error) bool {
	var ne *NetplayError
	return errors.As(err, &ne) && (ne.Code == ErrorConnection || ne.Code == ErrorNotConnected)
}

// ErrorType classifies an ErrorRecord for observability.
type ErrorType string

const (
	ErrTypeConnection     ErrorType = "connection"
	ErrTypeAuthentication ErrorType = "authentication"
	ErrTypeRoom           ErrorType = "room"
	ErrTypeGame           ErrorType = "game"
)

// ErrorRecord is one entry of the tracker's bounded error history. Records
// are never mutated after creation; critical records accompany a state
// transition, non-critical ones are advisory only.
type ErrorRecord struct {
	Type      ErrorType
	Message   string
	Code      string
	Timestamp time.Time
	Critical  bool
}
