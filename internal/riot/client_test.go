package riot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = body
	return nil
}

func TestListMatchIDs_Query(t *testing.T) {
	tests := []struct {
		name          string
		since         time.Time
		wantStartTime string
	}{
		{name: "no cursor", since: time.Time{}, wantStartTime: ""},
		{name: "cursor", since: time.UnixMilli(1_700_000_000_500), wantStartTime: "1700000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/lol/match/v5/matches/by-puuid/puuid-a/ids" {
					t.Errorf("path = %s", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("start") != "0" || q.Get("count") != "5" {
					t.Errorf("start/count = %s/%s", q.Get("start"), q.Get("count"))
				}
				if q.Get("startTime") != tt.wantStartTime {
					t.Errorf("startTime = %q, want %q", q.Get("startTime"), tt.wantStartTime)
				}
				w.Write([]byte(`["NA1_2","NA1_1"]`))
			}))
			defer server.Close()

			f, _ := newTestFetcher()
			c := NewClient(f, WithRegionalURL(server.URL), WithMatchCount(5))

			ids, err := c.ListMatchIDs(context.Background(), "puuid-a", tt.since)
			if err != nil {
				t.Fatalf("ListMatchIDs: %v", err)
			}
			if len(ids) != 2 || ids[0] != "NA1_2" {
				t.Errorf("ids = %v", ids)
			}
		})
	}
}

func TestGetMatch_UsesPayloadCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"metadata":{"matchId":"NA1_1"},"info":{"gameDuration":1800,"queueId":420,"teams":[{"teamId":200,"win":true}]}}`))
	}))
	defer server.Close()

	f, _ := newTestFetcher()
	cache := &memoryCache{}
	c := NewClient(f, WithRegionalURL(server.URL), WithPayloadCache(cache))

	for i := 0; i < 2; i++ {
		m, err := c.GetMatch(context.Background(), "NA1_1")
		if err != nil {
			t.Fatalf("GetMatch: %v", err)
		}
		if m.Metadata.MatchID != "NA1_1" || m.Info.WinningSide() != SideRed {
			t.Errorf("unexpected match %+v", m)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("requests = %d, want 1 (second read from cache)", got)
	}
	if _, ok, _ := cache.Get(context.Background(), "match:NA1_1"); !ok {
		t.Error("match body not cached")
	}
}

func TestGetTimeline_Decode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lol/match/v5/matches/NA1_1/timeline" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"info":{"frameInterval":60000,"frames":[{"timestamp":0,"participantFrames":{"1":{"totalGold":500,"position":{"x":10,"y":20}}},"events":[{"type":"CHAMPION_KILL","timestamp":1000,"killerId":1,"victimId":6,"position":{"x":1,"y":2}}]}]}}`))
	}))
	defer server.Close()

	f, _ := newTestFetcher()
	tl, err := NewClient(f, WithRegionalURL(server.URL)).GetTimeline(context.Background(), "NA1_1")
	if err != nil {
		t.Fatalf("GetTimeline: %v", err)
	}
	if len(tl.Info.Frames) != 1 {
		t.Fatalf("frames = %d", len(tl.Info.Frames))
	}
	pf, ok := tl.Info.Frames[0].Participant(1)
	if !ok || pf.TotalGold != 500 || pf.Position == nil || pf.Position.X != 10 {
		t.Errorf("participant frame = %+v", pf)
	}
	ev := tl.Info.Frames[0].Events[0]
	if ev.Type != EventChampionKill || ev.KillerID != 1 || ev.VictimID != 6 {
		t.Errorf("event = %+v", ev)
	}
}

func TestExtractBuildOrder(t *testing.T) {
	tl := &TimelineResponse{Info: TimelineInfo{Frames: []TimelineFrame{
		{Events: []TimelineEvent{
			{Type: EventItemPurchased, ParticipantID: 1, ItemID: 1055},
			{Type: EventItemPurchased, ParticipantID: 1, ItemID: 3031},
			{Type: EventItemPurchased, ParticipantID: 2, ItemID: 3089},
		}},
		{Events: []TimelineEvent{
			{Type: EventItemPurchased, ParticipantID: 1, ItemID: 3031},
			{Type: EventItemPurchased, ParticipantID: 1, ItemID: 3036},
		}},
	}}}

	got := ExtractBuildOrder(tl, 1)
	if len(got) != 2 || got[0] != 3031 || got[1] != 3036 {
		t.Errorf("build order = %v, want [3031 3036]", got)
	}
}
