package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common conditions.
var (
	// ErrNoToken is returned when a login succeeds but carries no token.
	ErrNoToken = errors.New("backend: login response carried no token")

	// ErrNoCredentials is returned when login is attempted without email/password.
	ErrNoCredentials = errors.New("backend: email and password required")
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 200

// APIError represents a non-success response from the backend.
type APIError struct {
	// Op names the call that failed (login, create_tag, list_tags).
	Op string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the start of the response body.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("backend %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsUnauthorized reports whether err wraps a 401 APIError.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsUnauthorized()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
