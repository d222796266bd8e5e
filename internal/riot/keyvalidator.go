package riot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	statusEndpoint = "/lol/status/v4/platform-data"

	defaultValidationTimeout = 10 * time.Second
)

// KeyStatus is the outcome of a key check.
type KeyStatus int

const (
	KeyUnknown KeyStatus = iota
	KeyValid
	KeyRejected
)

func (s KeyStatus) String() string {
	switch s {
	case KeyValid:
		return "valid"
	case KeyRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// KeyValidator checks an API key against the lightweight platform status
// endpoint before a sync run spends any budget.
type KeyValidator struct {
	httpClient  *http.Client
	platformURL string
}

// KeyValidatorOption configures a KeyValidator
type KeyValidatorOption func(*KeyValidator)

// WithPlatformURL sets a custom platform host (useful for testing)
func WithPlatformURL(u string) KeyValidatorOption {
	return func(v *KeyValidator) {
		v.platformURL = u
	}
}

// WithValidationTimeout bounds a single validation request.
func WithValidationTimeout(timeout time.Duration) KeyValidatorOption {
	return func(v *KeyValidator) {
		v.httpClient.Timeout = timeout
	}
}

func NewKeyValidator(opts ...KeyValidatorOption) *KeyValidator {
	v := &KeyValidator{
		httpClient:  &http.Client{Timeout: defaultValidationTimeout},
		platformURL: DefaultPlatformURL,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Check reports whether apiKey is accepted.
//
// KeyRejected with a nil error means the API answered 401/403. KeyUnknown is
// always paired with an error: the key may be fine but the check could not
// complete.
func (v *KeyValidator) Check(ctx context.Context, apiKey string) (KeyStatus, error) {
	if apiKey == "" {
		return KeyUnknown, errors.New("API key cannot be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.platformURL+statusEndpoint, nil)
	if err != nil {
		return KeyUnknown, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Riot-Token", apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return KeyUnknown, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return KeyValid, nil
	}

	httpErr := &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.String()}
	if IsAPIKeyError(httpErr) {
		return KeyRejected, nil
	}
	return KeyUnknown, httpErr
}
