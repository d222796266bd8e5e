package riot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"match-sync/internal/logging"
	"match-sync/internal/metrics"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second

	// Dev key limits are 20 req/s and 100 req/2min; stay under both.
	DefaultRequestsPerSecond    = 15
	DefaultRequestsPerTwoMinute = 90

	defaultRequestTimeout = 30 * time.Second
)

// Fetcher issues authenticated GET requests against the Riot API. Requests
// are paced by two token buckets mirroring the published key limits, and a
// 429 is retried a bounded number of times.
type Fetcher struct {
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration

	shortWindow *rate.Limiter
	longWindow  *rate.Limiter

	sleep func(ctx context.Context, d time.Duration) error
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithMaxAttempts bounds the number of requests issued per Fetch call.
func WithMaxAttempts(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the backoff unit used when a 429 carries no Retry-After.
func WithBaseDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.baseDelay = d
		}
	}
}

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// WithRateLimits sets the proactive pacing. A non-positive value disables
// that window.
func WithRateLimits(perSecond, perTwoMinutes int) FetcherOption {
	return func(f *Fetcher) {
		f.shortWindow = nil
		f.longWindow = nil
		if perSecond > 0 {
			f.shortWindow = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
		if perTwoMinutes > 0 {
			f.longWindow = rate.NewLimiter(rate.Every(2*time.Minute/time.Duration(perTwoMinutes)), perTwoMinutes)
		}
	}
}

// NewFetcher creates a Fetcher for the given API key.
func NewFetcher(apiKey string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: defaultRequestTimeout},
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		sleep:       sleepContext,
	}
	WithRateLimits(DefaultRequestsPerSecond, DefaultRequestsPerTwoMinute)(f)

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the response body of a successful GET.
//
// A 429 is retried after the Retry-After hint when present, otherwise after
// baseDelay*2^attempt. Any other non-2xx status is returned immediately as an
// *HTTPError. When every attempt was rate limited, ErrRateLimitExceeded is
// returned.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	endpoint := endpointLabel(url)
	log := logging.Ctx(ctx).With().Str("component", "fetcher").Str("endpoint", endpoint).Logger()

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if err := f.waitForRateLimit(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-Riot-Token", f.apiKey)

		resp, err := f.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.RiotRequests.WithLabelValues(endpoint, "error").Inc()
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}

		metrics.RiotRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			metrics.RiotRateLimited.Inc()

			if attempt == f.maxAttempts-1 {
				break
			}

			wait := f.retryDelay(resp.Header.Get("Retry-After"), attempt)
			log.Warn().
				Int("attempt", attempt+1).
				Int("max_attempts", f.maxAttempts).
				Dur("wait", wait).
				Msg("429 rate limited, waiting before retry")
			metrics.RiotRetryWait.Observe(wait.Seconds())

			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		body, err := readBody(resp)
		if err != nil {
			return nil, fmt.Errorf("%w: reading body: %v", ErrTransport, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url}
		}
		return body, nil
	}

	log.Error().Int("attempts", f.maxAttempts).Msg("giving up after repeated 429s")
	return nil, ErrRateLimitExceeded
}

// retryDelay honours a whole-second Retry-After hint and falls back to
// exponential backoff.
func (f *Fetcher) retryDelay(retryAfter string, attempt int) time.Duration {
	if retryAfter != "" {
		if seconds, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return f.baseDelay * time.Duration(1<<attempt)
}

func (f *Fetcher) waitForRateLimit(ctx context.Context) error {
	if f.shortWindow != nil {
		if err := f.shortWindow.Wait(ctx); err != nil {
			return err
		}
	}
	if f.longWindow != nil {
		if err := f.longWindow.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// endpointLabel reduces a URL to a low-cardinality metric label.
func endpointLabel(url string) string {
	switch {
	case strings.Contains(url, "/timeline"):
		return "timeline"
	case strings.Contains(url, "/ids"):
		return "match_ids"
	case strings.Contains(url, "/lol/match/v5/matches/"):
		return "match"
	case strings.Contains(url, "/riot/account/"):
		return "account"
	default:
		return "other"
	}
}
