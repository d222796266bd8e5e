package riot

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"match-sync/internal/logging"
	"match-sync/internal/metrics"
)

const (
	DefaultRegionalURL = "https://americas.api.riotgames.com"
	DefaultPlatformURL = "https://na1.api.riotgames.com"

	DefaultMatchHistoryCount = 20
)

// PayloadCache stores raw match and timeline bodies. Match data never changes
// once a game has ended, so entries are safe to share across groups.
type PayloadCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
}

// Client wraps the match-v5 and account-v1 endpoints on top of a Fetcher.
type Client struct {
	fetcher     *Fetcher
	regionalURL string
	matchCount  int
	queueID     int
	cache       PayloadCache
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithRegionalURL overrides the routing host (useful for testing).
func WithRegionalURL(u string) ClientOption {
	return func(c *Client) {
		c.regionalURL = u
	}
}

// WithMatchCount sets how many ids are requested per ListMatchIDs call.
func WithMatchCount(n int) ClientOption {
	return func(c *Client) {
		if n > 0 && n <= 100 {
			c.matchCount = n
		}
	}
}

// WithQueue restricts ListMatchIDs to a single queue id. Zero means all queues.
func WithQueue(queueID int) ClientOption {
	return func(c *Client) {
		c.queueID = queueID
	}
}

// WithPayloadCache serves match and timeline bodies from cache when present.
func WithPayloadCache(cache PayloadCache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// NewClient creates a Riot API client that issues every request through f.
func NewClient(f *Fetcher, opts ...ClientOption) *Client {
	c := &Client{
		fetcher:     f,
		regionalURL: DefaultRegionalURL,
		matchCount:  DefaultMatchHistoryCount,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAccountByRiotID fetches account info by Riot ID (gameName#tagLine)
func (c *Client) GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*AccountResponse, error) {
	u := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.regionalURL, url.PathEscape(gameName), url.PathEscape(tagLine))

	var account AccountResponse
	if err := c.getJSON(ctx, u, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListMatchIDs returns the most recent match ids for a player that started
// strictly after since. A zero since lists from the beginning of history.
//
// The API's startTime filter has one-second resolution and is inclusive, so
// the lower bound is the second after since. This keeps the match that set a
// cursor from being listed again on the next run.
func (c *Client) ListMatchIDs(ctx context.Context, puuid string, since time.Time) ([]string, error) {
	q := url.Values{}
	q.Set("start", "0")
	q.Set("count", strconv.Itoa(c.matchCount))
	if !since.IsZero() {
		q.Set("startTime", strconv.FormatInt(since.Unix()+1, 10))
	}
	if c.queueID != 0 {
		q.Set("queue", strconv.Itoa(c.queueID))
	}

	u := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?%s",
		c.regionalURL, url.PathEscape(puuid), q.Encode())

	var matchIDs []string
	if err := c.getJSON(ctx, u, &matchIDs); err != nil {
		return nil, err
	}
	return matchIDs, nil
}

// GetMatch fetches match details
func (c *Client) GetMatch(ctx context.Context, matchID string) (*MatchResponse, error) {
	u := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.regionalURL, url.PathEscape(matchID))

	var match MatchResponse
	if err := c.getCachedJSON(ctx, "match:"+matchID, u, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

// GetTimeline fetches match timeline
func (c *Client) GetTimeline(ctx context.Context, matchID string) (*TimelineResponse, error) {
	u := fmt.Sprintf("%s/lol/match/v5/matches/%s/timeline", c.regionalURL, url.PathEscape(matchID))

	var timeline TimelineResponse
	if err := c.getCachedJSON(ctx, "timeline:"+matchID, u, &timeline); err != nil {
		return nil, err
	}
	return &timeline, nil
}

func (c *Client) getJSON(ctx context.Context, u string, result interface{}) error {
	body, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode %s: %w", endpointLabel(u), err)
	}
	return nil
}

// getCachedJSON decodes from the payload cache when possible and populates it
// after a successful fetch. Cache failures are logged and never fail the call.
func (c *Client) getCachedJSON(ctx context.Context, key, u string, result interface{}) error {
	if c.cache == nil {
		return c.getJSON(ctx, u, result)
	}

	log := logging.Ctx(ctx)
	kind := endpointLabel(u)

	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("payload cache read failed")
	}
	if ok {
		if err := json.Unmarshal(body, result); err == nil {
			metrics.PayloadCacheHits.WithLabelValues(kind).Inc()
			return nil
		}
		log.Warn().Str("key", key).Msg("discarding undecodable cached payload")
	}

	metrics.PayloadCacheMisses.WithLabelValues(kind).Inc()

	body, err = c.fetcher.Fetch(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	if err := c.cache.Set(ctx, key, body); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("payload cache write failed")
	}
	return nil
}
