package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"match-sync/internal/collector"
	"match-sync/internal/store"
)

type fakeReader struct {
	accounts map[string][]store.TrackedAccount
	rows     map[string][]store.GroupMatchPlayerRow
	synced   map[string]time.Time
	analysis map[string]*store.MatchAnalysis
	err      error
}

func (f *fakeReader) TrackedAccounts(_ context.Context, groupID string) ([]store.TrackedAccount, error) {
	return f.accounts[groupID], f.err
}

func (f *fakeReader) LastSyncedAt(_ context.Context, groupID string) (time.Time, error) {
	if f.err != nil {
		return time.Time{}, f.err
	}
	at, ok := f.synced[groupID]
	if !ok {
		return time.Time{}, store.ErrNotFound
	}
	return at, nil
}

func (f *fakeReader) GroupMatchPlayers(_ context.Context, groupID string) ([]store.GroupMatchPlayerRow, error) {
	return f.rows[groupID], f.err
}

func (f *fakeReader) MatchAnalysis(_ context.Context, matchID string) (*store.MatchAnalysis, error) {
	if a, ok := f.analysis[matchID]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}

type stubSyncer struct {
	mu    sync.Mutex
	res   collector.SyncResult
	err   error
	calls int
}

func (s *stubSyncer) Sync(context.Context, string) (collector.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.res, s.err
}

func newTestServer(t *testing.T, r Reader, s collector.GroupSyncer, hub *Hub, cfg Config) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(r, s, hub, cfg).Router())
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
	}
	return resp.StatusCode, out
}

func TestSync_ReturnsCounts(t *testing.T) {
	syncer := &stubSyncer{res: collector.SyncResult{SyncedMatches: 2, SyncedPlayers: 3, RateLimited: true}}
	srv := newTestServer(t, &fakeReader{}, syncer, nil, Config{})

	status, body := doRequest(t, http.MethodPost, srv.URL+"/groups/g1/sync")
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %v", status, body)
	}
	if body["syncedMatches"] != float64(2) || body["syncedPlayers"] != float64(3) || body["rateLimited"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestSync_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"in progress", collector.ErrSyncInProgress, http.StatusConflict},
		{"failed", errors.New("load tracked accounts: boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeReader{}, &stubSyncer{err: tt.err}, nil, Config{})

			status, body := doRequest(t, http.MethodPost, srv.URL+"/groups/g1/sync")
			if status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
			if msg, _ := body["error"].(string); msg == "" || strings.Contains(msg, "boom") {
				t.Errorf("error message = %q", msg)
			}
		})
	}
}

func TestSync_CooldownIsPerGroup(t *testing.T) {
	syncer := &stubSyncer{}
	srv := newTestServer(t, &fakeReader{}, syncer, nil, Config{SyncCooldown: time.Minute})

	if status, _ := doRequest(t, http.MethodPost, srv.URL+"/groups/g1/sync"); status != http.StatusOK {
		t.Fatalf("first sync status = %d", status)
	}
	if status, _ := doRequest(t, http.MethodPost, srv.URL+"/groups/g1/sync"); status != http.StatusTooManyRequests {
		t.Errorf("second sync status = %d, want 429", status)
	}
	if status, _ := doRequest(t, http.MethodPost, srv.URL+"/groups/g2/sync"); status != http.StatusOK {
		t.Errorf("other group status = %d, want 200", status)
	}
	if syncer.calls != 2 {
		t.Errorf("syncer calls = %d, want 2", syncer.calls)
	}
}

func TestLastSynced(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	srv := newTestServer(t, &fakeReader{synced: map[string]time.Time{"g1": at}}, &stubSyncer{}, nil, Config{})

	status, body := doRequest(t, http.MethodGet, srv.URL+"/groups/g1/last-synced")
	if status != http.StatusOK || body["lastSyncedAt"] != "2026-05-01T10:00:00Z" {
		t.Errorf("g1: %d %v", status, body)
	}

	status, body = doRequest(t, http.MethodGet, srv.URL+"/groups/never/last-synced")
	if v, present := body["lastSyncedAt"]; status != http.StatusOK || !present || v != nil {
		t.Errorf("never synced: %d %v", status, body)
	}
}

func TestSummary(t *testing.T) {
	reader := &fakeReader{
		accounts: map[string][]store.TrackedAccount{"g1": {
			{GroupID: "g1", MemberID: "a", PUUID: "pa"},
			{GroupID: "g1", MemberID: "b", PUUID: "pb"},
		}},
		rows: map[string][]store.GroupMatchPlayerRow{"g1": {
			{GroupID: "g1", MatchID: "m1", MemberID: "a", Win: true},
			{GroupID: "g1", MatchID: "m1", MemberID: "b", Win: true},
			{GroupID: "g1", MatchID: "m2", MemberID: "a", Win: false},
		}},
	}
	srv := newTestServer(t, reader, &stubSyncer{}, nil, Config{})

	status, body := doRequest(t, http.MethodGet, srv.URL+"/groups/g1/summary")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["totalMatches"] != float64(1) || body["winRatePercent"] != float64(100) {
		t.Errorf("summary = %v", body)
	}

	if status, _ := doRequest(t, http.MethodGet, srv.URL+"/groups/unknown/summary"); status != http.StatusNotFound {
		t.Errorf("unknown group status = %d, want 404", status)
	}
}

func TestSummary_StoreError(t *testing.T) {
	srv := newTestServer(t, &fakeReader{err: errors.New("db down")}, &stubSyncer{}, nil, Config{})

	status, body := doRequest(t, http.MethodGet, srv.URL+"/groups/g1/summary")
	if status != http.StatusInternalServerError || body["error"] != "internal error" {
		t.Errorf("got %d %v", status, body)
	}
}

func TestMatchAnalysis(t *testing.T) {
	reader := &fakeReader{analysis: map[string]*store.MatchAnalysis{
		"NA1_1": {MatchID: "NA1_1", Flow: []byte(`[{"type":"KILL"}]`)},
	}}
	srv := newTestServer(t, reader, &stubSyncer{}, nil, Config{})

	status, body := doRequest(t, http.MethodGet, srv.URL+"/matches/NA1_1/analysis")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	flow, ok := body["flow"].([]any)
	if !ok || len(flow) != 1 {
		t.Errorf("flow = %v", body["flow"])
	}
	if v, present := body["growth"]; !present || v != nil {
		t.Errorf("growth should be null, got %v", v)
	}

	if status, _ := doRequest(t, http.MethodGet, srv.URL+"/matches/NA1_2/analysis"); status != http.StatusNotFound {
		t.Errorf("missing analysis status = %d, want 404", status)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, &fakeReader{}, &stubSyncer{}, nil, Config{})

	if status, body := doRequest(t, http.MethodGet, srv.URL+"/healthz"); status != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", status, body)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	text, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(text), "api_requests_total") {
		t.Error("metrics output should include api_requests_total")
	}
}

func TestEvents_StreamsGroupEvents(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, &fakeReader{}, &stubSyncer{}, hub, Config{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/groups/g1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.OnSyncEvent(collector.Event{Type: collector.EventSyncStarted, GroupID: "other", RunID: "r0"})
	hub.OnSyncEvent(collector.Event{Type: collector.EventMatchSynced, GroupID: "g1", RunID: "r1", MatchID: "NA1_1", Players: 2})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var got collector.Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.GroupID != "g1" || got.Type != collector.EventMatchSynced || got.MatchID != "NA1_1" {
		t.Errorf("event = %+v", got)
	}
}

func TestHub_ServeClosesSubscribers(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, &fakeReader{}, &stubSyncer{}, hub, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/groups/g1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v", err)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("clients after stop = %d", hub.ClientCount())
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage = %v, want going-away close", err)
	}
}
