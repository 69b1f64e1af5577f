package wings

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotConfigured is returned when an optional sub-client is used
	// without the settings it needs.
	ErrNotConfigured = errors.New("wings: not configured")
	// ErrInvalidUUID reports a malformed server or backup identifier.
	ErrInvalidUUID = errors.New("wings: invalid uuid")
)

const unknownError = "Unknown error"

// ConnectionError is a network level failure: DNS, dial, timeout or a
// broken exchange. Attempts counts every try made before giving up.
type ConnectionError struct {
	Method   string
	URL      string
	Attempts int
	Reason   string // "dns", "connect", "timeout" or "fatal"
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("wings: connection failed after %d attempt(s) (%s %s): %v",
		e.Attempts, e.Method, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError is a 401 or 403 from the node.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode == http.StatusForbidden {
		return "access forbidden: " + e.Message
	}
	return "authentication failed: " + e.Message
}

// RequestError is any other HTTP status >= 400.
type RequestError struct {
	StatusCode int
	Message    string
	Path       string
}

func (e *RequestError) Error() string {
	switch e.StatusCode {
	case http.StatusNotFound:
		return "endpoint not found: " + e.Path
	case http.StatusTooManyRequests:
		return "rate limit exceeded: " + e.Message
	case http.StatusInternalServerError:
		return "server error: " + e.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NotFound reports a 404.
func (e *RequestError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// RateLimited reports a 429.
func (e *RequestError) RateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// httpError maps a failed status to AuthError or RequestError. message is
// the "error" field of the body, if any.
func httpError(status int, message, path string) error {
	if message == "" {
		message = unknownError
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{StatusCode: status, Message: message}
	}
	return &RequestError{StatusCode: status, Message: message, Path: path}
}

// StatusCode extracts the HTTP status from an AuthError or RequestError,
// or 0 for anything else.
func StatusCode(err error) int {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.StatusCode
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}
