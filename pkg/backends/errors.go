package backends

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrorClass buckets backend failures for retry decisions.
// Only rate-limit, timeout, server, and network errors are retryable.
type ErrorClass string

const (
	// ClassRateLimit is an HTTP 429 or equivalent throttling signal.
	ClassRateLimit ErrorClass = "rate_limit"

	// ClassTimeout is a request that exceeded its deadline.
	ClassTimeout ErrorClass = "timeout"

	// ClassServer is a backend-side failure (HTTP 5xx).
	ClassServer ErrorClass = "server"

	// ClassAuth is a rejected credential (HTTP 401/403). Never retried.
	ClassAuth ErrorClass = "auth"

	// ClassNotFound is an unknown model or endpoint (HTTP 404). Never retried.
	ClassNotFound ErrorClass = "not_found"

	// ClassBadRequest is a malformed request (HTTP 400/422). Never retried.
	ClassBadRequest ErrorClass = "bad_request"

	// ClassNetwork is a transport-level failure (DNS, connection reset).
	ClassNetwork ErrorClass = "network"

	// ClassUnknown is any error that does not fit the taxonomy. Never retried.
	ClassUnknown ErrorClass = "unknown"
)

// Retryable reports whether errors of this class may be retried.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ClassRateLimit, ClassTimeout, ClassServer, ClassNetwork:
		return true
	default:
		return false
	}
}

// BackendError represents a general backend failure.
// It includes the backend name, HTTP status code, and underlying error.
type BackendError struct {
	// Backend is the name of the backend that returned the error
	Backend string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Message is the error message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend %q error (status %d): %s", e.Backend, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend %q error: %s", e.Backend, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// AuthError represents an authentication failure (HTTP 401 or 403).
type AuthError struct {
	// Backend is the name of the backend that rejected authentication
	Backend string

	// Message is the error message from the backend
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("backend %q authentication failed: %s", e.Backend, e.Message)
}

// RateLimitError represents a rate limit exceeded error (HTTP 429).
// It includes the retry-after duration if provided by the backend.
type RateLimitError struct {
	// Backend is the name of the backend that throttled the request
	Backend string

	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration

	// Message is the error message from the backend
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("backend %q rate limit exceeded (retry after %s): %s",
			e.Backend, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("backend %q rate limit exceeded: %s", e.Backend, e.Message)
}

// TimeoutError represents a request that exceeded its deadline.
type TimeoutError struct {
	// Backend is the name of the backend where the timeout occurred
	Backend string

	// Timeout is the configured timeout duration
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("backend %q request timeout after %s", e.Backend, e.Timeout)
}

// ServerError represents a backend-side failure (HTTP 5xx).
type ServerError struct {
	// Backend is the name of the backend that failed
	Backend string

	// StatusCode is the HTTP status code
	StatusCode int

	// Message is the error message from the backend
	Message string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("backend %q server error (status %d): %s", e.Backend, e.StatusCode, e.Message)
}

// NotFoundError represents an unknown model or endpoint (HTTP 404).
type NotFoundError struct {
	// Backend is the name of the backend
	Backend string

	// Resource is the missing model or path
	Resource string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("backend %q resource not found: %s", e.Backend, e.Resource)
}

// BadRequestError represents a request the backend rejected as invalid.
type BadRequestError struct {
	// Backend is the name of the backend
	Backend string

	// Message describes what is invalid about the request
	Message string
}

// Error implements the error interface.
func (e *BadRequestError) Error() string {
	return fmt.Sprintf("backend %q rejected request: %s", e.Backend, e.Message)
}

// NetworkError represents a transport-level failure before any HTTP response.
type NetworkError struct {
	// Backend is the name of the backend
	Backend string

	// Cause is the underlying transport error
	Cause error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend %q network error: %v", e.Backend, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// Classify maps an error to its ErrorClass for retry decisions.
// It inspects the typed errors above first, then falls back to
// context/net sentinel detection. Unrecognized errors are ClassUnknown.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return ClassRateLimit
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return ClassTimeout
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return ClassServer
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return ClassAuth
	}

	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return ClassNotFound
	}

	var badRequestErr *BadRequestError
	if errors.As(err, &badRequestErr) {
		return ClassBadRequest
	}

	var networkErr *NetworkError
	if errors.As(err, &networkErr) {
		return ClassNetwork
	}

	// Context deadline expiry surfaces as a timeout.
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	// Raw net errors count as network failures.
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}

	return ClassUnknown
}
