// Package api is a thin HTTP surface over the sync engine: trigger a group
// sync, read its results and stream its progress.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"match-sync/internal/collector"
	"match-sync/internal/logging"
	"match-sync/internal/metrics"
	"match-sync/internal/store"
)

// Reader is the read side of the store the API serves from.
type Reader interface {
	TrackedAccounts(ctx context.Context, groupID string) ([]store.TrackedAccount, error)
	LastSyncedAt(ctx context.Context, groupID string) (time.Time, error)
	GroupMatchPlayers(ctx context.Context, groupID string) ([]store.GroupMatchPlayerRow, error)
	MatchAnalysis(ctx context.Context, matchID string) (*store.MatchAnalysis, error)
}

// Config controls the API's request policy.
type Config struct {
	// SyncCooldown is the minimum gap between two sync requests for the
	// same group. Zero disables the cooldown.
	SyncCooldown time.Duration
}

type Server struct {
	store    Reader
	syncer   collector.GroupSyncer
	hub      *Hub
	cfg      Config
	upgrader websocket.Upgrader
}

// NewServer wires the handlers. hub may be nil, in which case the events
// route is not mounted.
func NewServer(st Reader, syncer collector.GroupSyncer, hub *Hub, cfg Config) *Server {
	return &Server{
		store:  st,
		syncer: syncer,
		hub:    hub,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/groups/{id}", func(r chi.Router) {
		r.With(s.syncCooldown()).Post("/sync", s.handleSync)
		r.Get("/last-synced", s.handleLastSynced)
		r.Get("/summary", s.handleSummary)
		if s.hub != nil {
			r.Get("/events", s.handleEvents)
		}
	})
	r.Get("/matches/{id}/analysis", s.handleMatchAnalysis)

	return r
}

// syncCooldown limits sync requests per group id, not per caller.
func (s *Server) syncCooldown() func(http.Handler) http.Handler {
	if s.cfg.SyncCooldown <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(1, s.cfg.SyncCooldown,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return chi.URLParam(r, "id"), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "group was synced recently, try again later")
		}),
	)
}

// requestLogger logs each request through zerolog and counts it by route.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()

		logging.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}
