package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Riot API
	RiotRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riot_requests_total",
			Help: "Riot API requests by endpoint and response status",
		},
		[]string{"endpoint", "status"},
	)

	RiotRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "riot_rate_limited_total",
			Help: "Riot API responses with status 429",
		},
	)

	RiotRetryWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riot_retry_wait_seconds",
			Help:    "Time slept before retrying a rate limited request",
			Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	// Payload cache
	PayloadCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payload_cache_hits_total",
			Help: "Match payloads served from the local cache",
		},
		[]string{"kind"}, // "match", "timeline"
	)

	PayloadCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payload_cache_misses_total",
			Help: "Match payloads not found in the local cache",
		},
		[]string{"kind"},
	)

	// Sync
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Sync runs by outcome",
		},
		[]string{"outcome"}, // "ok", "noop", "rate_limited", "cancelled", "error"
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Wall time of a group sync run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	MatchesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_matches_persisted_total",
			Help: "Match records written by sync runs",
		},
	)

	PlayerRowsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_player_rows_persisted_total",
			Help: "Group member rows written by sync runs",
		},
	)

	MatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_match_failures_total",
			Help: "Matches skipped during a sync run, by failing stage",
		},
		[]string{"stage"}, // "fetch", "normalize", "persist"
	)

	AnalyzerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_analyzer_failures_total",
			Help: "Analyzer runs or analysis upserts that failed",
		},
		[]string{"analyzer"}, // "flow", "growth"
	)

	// API
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "HTTP API requests by route pattern and status code",
		},
		[]string{"route", "status"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_websocket_clients",
			Help: "Connected sync progress subscribers",
		},
	)
)
