package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"match-sync/internal/collector"
	"match-sync/internal/logging"
	"match-sync/internal/store"
)

type syncResponse struct {
	collector.SyncResult
	Error string `json:"error,omitempty"`
}

type lastSyncedResponse struct {
	LastSyncedAt *time.Time `json:"lastSyncedAt"`
}

type analysisResponse struct {
	MatchID   string          `json:"matchId"`
	Flow      json.RawMessage `json:"flow"`
	Growth    json.RawMessage `json:"growth"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSync runs the sync in the request and answers with its counts. A
// rate limited run is still a 200; the caller sees rateLimited=true.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	res, err := s.syncer.Sync(r.Context(), groupID)
	switch {
	case errors.Is(err, collector.ErrSyncInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Str("group", groupID).Msg("Sync request failed")
		writeJSON(w, http.StatusInternalServerError, syncResponse{SyncResult: res, Error: "sync failed"})
	default:
		writeJSON(w, http.StatusOK, syncResponse{SyncResult: res})
	}
}

func (s *Server) handleLastSynced(w http.ResponseWriter, r *http.Request) {
	at, err := s.store.LastSyncedAt(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, lastSyncedResponse{})
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	at = at.UTC()
	writeJSON(w, http.StatusOK, lastSyncedResponse{LastSyncedAt: &at})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	accounts, err := s.store.TrackedAccounts(r.Context(), groupID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if len(accounts) == 0 {
		writeError(w, http.StatusNotFound, "group has no tracked accounts")
		return
	}
	rows, err := s.store.GroupMatchPlayers(r.Context(), groupID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, collector.Summarize(groupID, accounts, rows))
}

func (s *Server) handleMatchAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.MatchAnalysis(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no analysis for match")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{
		MatchID:   a.MatchID,
		Flow:      rawOrNull(a.Flow),
		Growth:    rawOrNull(a.Growth),
		UpdatedAt: a.UpdatedAt,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		return
	}

	c := newClient(s.hub, conn, chi.URLParam(r, "id"))
	if !s.hub.register(c) {
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Store read failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func rawOrNull(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
