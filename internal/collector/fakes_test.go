package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"match-sync/internal/riot"
	"match-sync/internal/store"
)

// fakeAPI serves canned histories, matches and timelines and counts fetches.
type fakeAPI struct {
	mu sync.Mutex

	history     map[string][]string // puuid -> match ids
	matches     map[string]*riot.MatchResponse
	listErr     map[string]error
	matchErr    map[string]error
	timelineErr map[string]error
	ignoreSince bool

	listed        []string
	matchCalls    map[string]int
	timelineCalls map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		history:       make(map[string][]string),
		matches:       make(map[string]*riot.MatchResponse),
		listErr:       make(map[string]error),
		matchErr:      make(map[string]error),
		timelineErr:   make(map[string]error),
		matchCalls:    make(map[string]int),
		timelineCalls: make(map[string]int),
	}
}

// addMatch registers a match and appends it to each player's history.
func (f *fakeAPI) addMatch(m *riot.MatchResponse, puuids ...string) {
	f.matches[m.Metadata.MatchID] = m
	for _, p := range puuids {
		f.history[p] = append(f.history[p], m.Metadata.MatchID)
	}
}

func (f *fakeAPI) ListMatchIDs(_ context.Context, puuid string, since time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, puuid)
	if err := f.listErr[puuid]; err != nil {
		return nil, err
	}

	var ids []string
	for _, id := range f.history[puuid] {
		m := f.matches[id]
		// startTime is exclusive at second granularity
		if !f.ignoreSince && !since.IsZero() && m.Info.GameStartTimestamp/1000 < since.Unix()+1 {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeAPI) GetMatch(_ context.Context, matchID string) (*riot.MatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matchCalls[matchID]++
	if err := f.matchErr[matchID]; err != nil {
		return nil, err
	}
	m, ok := f.matches[matchID]
	if !ok {
		return nil, &riot.HTTPError{StatusCode: 404, URL: matchID}
	}
	return m, nil
}

func (f *fakeAPI) GetTimeline(_ context.Context, matchID string) (*riot.TimelineResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timelineCalls[matchID]++
	if err := f.timelineErr[matchID]; err != nil {
		return nil, err
	}
	return &riot.TimelineResponse{
		Metadata: riot.TimelineMetadata{MatchID: matchID},
		Info: riot.TimelineInfo{
			FrameInterval: 60000,
			Frames: []riot.TimelineFrame{{
				Timestamp: 0,
				Events: []riot.TimelineEvent{
					{Type: riot.EventItemPurchased, Timestamp: 500, ParticipantID: 1, ItemID: 3031},
				},
			}},
		},
	}, nil
}

func (f *fakeAPI) calls(matchID string) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matchCalls[matchID], f.timelineCalls[matchID]
}

// testMatch builds a 10-player match. puuids fill participant slots from 1
// upward; the remaining slots get strangers. Blue wins.
func testMatch(id string, startedAt int64, puuids ...string) *riot.MatchResponse {
	m := &riot.MatchResponse{
		Metadata: riot.MatchMetadata{MatchID: id},
		Info: riot.MatchInfo{
			GameStartTimestamp: startedAt,
			GameDuration:       1800,
			GameVersion:        "14.1.1",
			QueueID:            420,
			Teams: []riot.MatchTeam{
				{TeamID: riot.SideBlue, Win: true, Objectives: map[string]riot.TeamObjective{"tower": {First: true, Kills: 7}}},
				{TeamID: riot.SideRed},
			},
		},
	}
	for slot := 1; slot <= 10; slot++ {
		side := riot.SideBlue
		if slot > 5 {
			side = riot.SideRed
		}
		puuid := fmt.Sprintf("stranger-%s-%d", id, slot)
		if slot <= len(puuids) {
			puuid = puuids[slot-1]
		}
		m.Info.Participants = append(m.Info.Participants, riot.MatchParticipant{
			ParticipantID: slot,
			PUUID:         puuid,
			ChampionName:  "Champ" + fmt.Sprint(slot),
			TeamID:        side,
			Win:           side == riot.SideBlue,
			Kills:         slot,
			Item0:         3031,
		})
	}
	return m
}

// fakeStore is an in-memory Store with switchable failures.
type fakeStore struct {
	mu sync.Mutex

	accounts map[string][]store.TrackedAccount
	cursors  map[string]map[string]store.SyncCursor
	matches  map[string]store.MatchRecord
	parts    map[string][]store.ParticipantSnapshot
	teams    map[string][]store.TeamSnapshot
	rows     map[string]store.GroupMatchPlayerRow
	flows    map[string][]byte
	growth   map[string][]byte

	failMatch  map[string]bool
	failFlow   bool
	failCursor bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:  make(map[string][]store.TrackedAccount),
		cursors:   make(map[string]map[string]store.SyncCursor),
		matches:   make(map[string]store.MatchRecord),
		parts:     make(map[string][]store.ParticipantSnapshot),
		teams:     make(map[string][]store.TeamSnapshot),
		rows:      make(map[string]store.GroupMatchPlayerRow),
		flows:     make(map[string][]byte),
		growth:    make(map[string][]byte),
		failMatch: make(map[string]bool),
	}
}

var errStoreDown = errors.New("store unavailable")

func (s *fakeStore) TrackedAccounts(_ context.Context, groupID string) ([]store.TrackedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.TrackedAccount(nil), s.accounts[groupID]...), nil
}

func (s *fakeStore) SyncCursors(_ context.Context, groupID string) (map[string]store.SyncCursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]store.SyncCursor)
	for k, v := range s.cursors[groupID] {
		out[k] = v
	}
	return out, nil
}

func (s *fakeStore) GroupIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fakeStore) LastSyncedAt(_ context.Context, groupID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last time.Time
	for _, c := range s.cursors[groupID] {
		if c.LastSyncedAt.After(last) {
			last = c.LastSyncedAt
		}
	}
	if last.IsZero() {
		return time.Time{}, store.ErrNotFound
	}
	return last, nil
}

func (s *fakeStore) GroupMatchPlayers(_ context.Context, groupID string) ([]store.GroupMatchPlayerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.GroupMatchPlayerRow
	for _, r := range s.rows {
		if r.GroupID == groupID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) MatchAnalysis(_ context.Context, matchID string) (*store.MatchAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, growth := s.flows[matchID], s.growth[matchID]
	if flow == nil && growth == nil {
		return nil, store.ErrNotFound
	}
	return &store.MatchAnalysis{MatchID: matchID, Flow: flow, Growth: growth}, nil
}

func (s *fakeStore) UpsertTrackedAccount(_ context.Context, a store.TrackedAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.accounts[a.GroupID]
	for i := range list {
		if list[i].MemberID == a.MemberID {
			list[i] = a
			return nil
		}
	}
	s.accounts[a.GroupID] = append(list, a)
	return nil
}

func (s *fakeStore) UpsertSyncCursor(_ context.Context, c store.SyncCursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCursor {
		return errStoreDown
	}
	group := s.cursors[c.GroupID]
	if group == nil {
		group = make(map[string]store.SyncCursor)
		s.cursors[c.GroupID] = group
	}
	if old, ok := group[c.MemberID]; ok && old.PUUID == c.PUUID && old.LastMatchStartedAt > c.LastMatchStartedAt {
		c.LastMatchStartedAt = old.LastMatchStartedAt
	}
	group[c.MemberID] = c
	return nil
}

func (s *fakeStore) UpsertMatch(_ context.Context, m store.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMatch[m.MatchID] {
		return errStoreDown
	}
	s.matches[m.GroupID+"/"+m.MatchID] = m
	return nil
}

func (s *fakeStore) UpsertTeams(_ context.Context, teams []store.TeamSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(teams) > 0 {
		s.teams[teams[0].MatchID] = teams
	}
	return nil
}

func (s *fakeStore) UpsertParticipants(_ context.Context, ps []store.ParticipantSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ps) > 0 {
		s.parts[ps[0].MatchID] = ps
	}
	return nil
}

func (s *fakeStore) UpsertGroupMatchPlayer(_ context.Context, r store.GroupMatchPlayerRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[r.GroupID+"/"+r.MatchID+"/"+r.MemberID] = r
	return nil
}

func (s *fakeStore) UpsertFlowEvents(_ context.Context, matchID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFlow {
		return errStoreDown
	}
	s.flows[matchID] = blob
	return nil
}

func (s *fakeStore) UpsertGrowth(_ context.Context, matchID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.growth[matchID] = blob
	return nil
}

func (s *fakeStore) Migrate(context.Context) error { return nil }
func (s *fakeStore) Close() error                  { return nil }

func (s *fakeStore) cursor(groupID, memberID string) (store.SyncCursor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cursors[groupID][memberID]
	return c, ok
}

var _ store.Store = (*fakeStore)(nil)

// recorder collects observer events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnSyncEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}
