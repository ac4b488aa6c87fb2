package github

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrGitLabUnsupported is returned when a gitlab source reaches the provider
// layer. Parsing accepts gitlab sources so lockfiles stay forward-compatible,
// but no client implementation exists yet.
var ErrGitLabUnsupported = errors.New("gitlab sources are not supported yet")

// APIError is a typed wrapper around a non-2xx provider response, enabling
// structured classification without string parsing upstream.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api returned %d for %s: %s", e.StatusCode, e.URL, e.Message)
}

// IsNotFound reports whether err is a provider 404. Callers treat a missing
// directory as a soft condition rather than a failure.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsAuth reports whether err is an authentication or authorization failure
// (401/403). Callers should surface a token-setup hint.
func IsAuth(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}
