// file: internal/transport/errors.go
package transport

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorCode identifies a transport failure.
type ErrorCode int

// Transport error codes.
const (
	ErrGeneric ErrorCode = iota + 1000
	ErrMessageTooLarge
	ErrTransportClosed
	ErrReadTimeout
	ErrWriteTimeout
)

// Error is a transport-level failure. It never reaches MCP clients directly.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Size and MaxSize are set for ErrMessageTooLarge.
	Size    int
	MaxSize int
}

func (e *Error) Error() string {
	base := fmt.Sprintf("TransportError [%d] %s", e.Code, e.Message)
	if e.Cause != nil {
		return base + ": " + e.Cause.Error()
	}
	return base
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a transport error with a stack-carrying cause.
func NewError(code ErrorCode, message string, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Code: code, Message: message, Cause: cause}
}

// NewMessageSizeError reports a line longer than maxSize.
func NewMessageSizeError(size, maxSize int) *Error {
	e := NewError(ErrMessageTooLarge, fmt.Sprintf("message size %d exceeds maximum %d", size, maxSize), nil)
	e.Size = size
	e.MaxSize = maxSize
	return e
}

// NewTimeoutError reports a read or write abandoned because ctx ended.
func NewTimeoutError(operation string, cause error) *Error {
	code := ErrReadTimeout
	if operation == "write" {
		code = ErrWriteTimeout
	}
	return NewError(code, operation+" abandoned", cause)
}

// NewClosedError reports an operation on a closed transport.
func NewClosedError(operation string) *Error {
	return NewError(ErrTransportClosed, operation+" on closed transport", nil)
}

func hasCode(err error, code ErrorCode) bool {
	var te *Error
	return errors.As(err, &te) && te.Code == code
}

// IsClosedError reports whether err means the peer or the transport is gone.
func IsClosedError(err error) bool {
	return hasCode(err, ErrTransportClosed)
}

// IsMessageSizeError reports whether err is an oversized message. The transport stays usable.
func IsMessageSizeError(err error) bool {
	return hasCode(err, ErrMessageTooLarge)
}
