package domain

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned when an operation is issued while the session is not Ready.
	ErrNotConnected = errors.New("session not connected")

	// ErrInvalidValue is returned when the caller supplies an unsupported key or value shape.
	ErrInvalidValue = errors.New("invalid value")

	// ErrTransportRefused is a non-retryable rejection of the connection by the store endpoint.
	ErrTransportRefused = errors.New("transport refused connection")

	// ErrTransportTimeout is a retryable transport failure caused by a deadline.
	ErrTransportTimeout = errors.New("transport timeout")

	// ErrTransportUnavailable is a retryable transport failure (broken pipe, reset, closed pool).
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrStoreError is returned when the store executed the command and replied with an error.
	ErrStoreError = errors.New("store error")

	// ErrSessionClosed is returned by Connect once the session reached its terminal state.
	ErrSessionClosed = errors.New("session closed")
)

// ErrorKind names the category of a failure.
type ErrorKind string

const (
	KindNone                 ErrorKind = ""
	KindNotConnected         ErrorKind = "not_connected"
	KindInvalidValue         ErrorKind = "invalid_value"
	KindTransportRefused     ErrorKind = "transport_refused"
	KindTransportTimeout     ErrorKind = "transport_timeout"
	KindTransportUnavailable ErrorKind = "transport_unavailable"
	KindStoreError           ErrorKind = "store_error"
	KindCanceled             ErrorKind = "canceled"
	KindUnknown              ErrorKind = "unknown"
)

// KindOf classifies err into the error taxonomy.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotConnected), errors.Is(err, ErrSessionClosed):
		return KindNotConnected
	case errors.Is(err, ErrInvalidValue):
		return KindInvalidValue
	case errors.Is(err, ErrTransportRefused):
		return KindTransportRefused
	case errors.Is(err, ErrTransportTimeout):
		return KindTransportTimeout
	case errors.Is(err, ErrTransportUnavailable):
		return KindTransportUnavailable
	case errors.Is(err, ErrStoreError):
		return KindStoreError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	return KindUnknown
}

// IsTransport reports whether err is a transport-level failure, which is
// handled by the reconnection policy instead of being returned to callers.
func IsTransport(err error) bool {
	switch KindOf(err) {
	case KindTransportRefused, KindTransportTimeout, KindTransportUnavailable:
		return true
	}
	return false
}
