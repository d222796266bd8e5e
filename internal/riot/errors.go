package riot

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimitExceeded is returned once every attempt came back 429.
	// Callers treat it as a signal to abandon the rest of a batch.
	ErrRateLimitExceeded = errors.New("riot: rate limit exceeded")

	// ErrTransport wraps network-level failures (DNS, reset, timeout).
	ErrTransport = errors.New("riot: transport failure")

	ErrAPIKeyExpired   = errors.New("api key expired (401)")
	ErrAPIKeyForbidden = errors.New("api key forbidden (403)")
)

// HTTPError is a terminal non-2xx, non-429 response.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	switch e.StatusCode {
	case http.StatusForbidden:
		return "riot: API returned 403 Forbidden - check if your API key is valid"
	case http.StatusNotFound:
		return "riot: API returned 404 Not Found - player/match may not exist"
	default:
		return fmt.Sprintf("riot: API returned status %d", e.StatusCode)
	}
}

// Unwrap maps 401/403 onto the key sentinels so errors.Is works on them.
func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrAPIKeyExpired
	case http.StatusForbidden:
		return ErrAPIKeyForbidden
	default:
		return nil
	}
}

// IsAPIKeyError reports whether err indicates an expired or rejected key.
func IsAPIKeyError(err error) bool {
	return errors.Is(err, ErrAPIKeyExpired) || errors.Is(err, ErrAPIKeyForbidden)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
