// Package errors defines the error taxonomy shared across internal packages.
package errors

import (
	"errors"
	"fmt"
)

// Authorization errors.
var (
	// ErrNotAuthorized means no usable access token exists. Recoverable by
	// re-running the authorization flow.
	ErrNotAuthorized = errors.New("not authorized: no valid access token, authorize first")

	// ErrRefreshTokenMissing means a refresh was attempted with no stored
	// refresh token. Terminal for the current credential.
	ErrRefreshTokenMissing = errors.New("refresh token not available, reauthorize")
)

// Outbound call errors.
var (
	// ErrRateLimitExceeded means the retry budget for HTTP 429 responses
	// was exhausted.
	ErrRateLimitExceeded = errors.New("HubSpot API rate limit exceeded after retries")
)

// APIError carries the status and body of a non-2xx upstream response.
// It is passed through to callers untouched for diagnosis.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HubSpot API error (%d): %s", e.Status, e.Body)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
