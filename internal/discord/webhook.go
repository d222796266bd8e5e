package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"match-sync/internal/logging"
)

const (
	// Colors for Discord embeds
	colorRed    = 15158332 // 0xE74C3C - failures, rejected key
	colorGreen  = 5763719  // 0x57F287 - matches synced
	colorYellow = 16705372 // 0xFEE75C - rate limited, partial run

	defaultWebhookTimeout = 10 * time.Second

	// Max attempts when Discord rate limits us
	maxRetries = 3
)

// WebhookPayload represents a Discord webhook message
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// SyncReport summarizes one scheduled group sync.
type SyncReport struct {
	GroupID       string
	RunID         string
	SyncedMatches int
	SyncedPlayers int
	FailedMatches int
	RateLimited   bool
	Elapsed       time.Duration
	Err           string
	FinishedAt    time.Time
}

// NewSyncReportPayload builds the embed for a finished sync. Rate limited
// runs are yellow and failed runs red.
func NewSyncReportPayload(r SyncReport) WebhookPayload {
	embed := Embed{
		Title: "✅ Group Synced",
		Color: colorGreen,
		Fields: []EmbedField{
			{Name: "Group", Value: r.GroupID, Inline: true},
			{Name: "Matches", Value: formatNumber(r.SyncedMatches), Inline: true},
			{Name: "Player Rows", Value: formatNumber(r.SyncedPlayers), Inline: true},
			{Name: "Elapsed", Value: formatDuration(r.Elapsed), Inline: true},
		},
		Footer: &EmbedFooter{Text: "run " + r.RunID},
	}
	if !r.FinishedAt.IsZero() {
		embed.Timestamp = r.FinishedAt.UTC().Format(time.RFC3339)
	}
	if r.FailedMatches > 0 {
		embed.Fields = append(embed.Fields, EmbedField{Name: "Skipped", Value: formatNumber(r.FailedMatches), Inline: true})
	}

	switch {
	case r.Err != "":
		embed.Title = "❌ Sync Failed"
		embed.Color = colorRed
		embed.Description = r.Err
	case r.RateLimited:
		embed.Title = "⏳ Sync Rate Limited"
		embed.Color = colorYellow
		embed.Description = "Riot rate limit hit, remaining matches will be picked up next run"
	}
	return WebhookPayload{Embeds: []Embed{embed}}
}

// NewKeyRejectedPayload creates a payload for a Riot API key that failed
// validation.
func NewKeyRejectedPayload(apiKey string) WebhookPayload {
	return WebhookPayload{
		Content: "@here Riot API key rejected",
		Embeds: []Embed{
			{
				Title: "🔑 API Key Rejected",
				Color: colorRed,
				Fields: []EmbedField{
					{Name: "Key", Value: maskAPIKey(apiKey), Inline: true},
				},
				Footer: &EmbedFooter{
					Text: "Set a fresh RGAPI key in RIOT_API_KEY and restart",
				},
			},
		},
	}
}

// WebhookClient sends notifications to Discord webhooks
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

func (c *WebhookClient) SendSyncReport(ctx context.Context, r SyncReport) error {
	return c.sendPayload(ctx, NewSyncReportPayload(r))
}

func (c *WebhookClient) SendKeyRejected(ctx context.Context, apiKey string) error {
	return c.sendPayload(ctx, NewKeyRejectedPayload(apiKey))
}

// sendPayload posts the payload, waiting out Discord's 429s.
func (c *WebhookClient) sendPayload(ctx context.Context, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		resp.Body.Close()

		// Discord returns 204 No Content
		if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			logging.Ctx(ctx).Debug().Dur("wait", wait).Int("attempt", attempt+1).Msg("Discord rate limited webhook")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return errors.New("webhook request failed after " + strconv.Itoa(maxRetries) + " attempts")
}

// retryAfter parses Discord's Retry-After, which may be fractional seconds.
func retryAfter(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil || seconds < 0 {
		return time.Second
	}
	return time.Duration(seconds * float64(time.Second))
}

// formatNumber formats a number with commas (e.g., 47832 -> "47,832")
func formatNumber(n int) string {
	s := strconv.Itoa(n)
	if n < 1000 {
		return s
	}

	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// formatDuration renders short runs in seconds and longer ones as "Xm Ys".
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

// maskAPIKey masks an API key for display (e.g., "RGAPI-xxxx-xxxx" -> "RGAPI...xxxx")
func maskAPIKey(key string) string {
	if len(key) <= 10 {
		return "****"
	}
	return key[:5] + "..." + key[len(key)-4:]
}
