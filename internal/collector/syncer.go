package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"match-sync/internal/analysis"
	"match-sync/internal/logging"
	"match-sync/internal/metrics"
	"match-sync/internal/riot"
	"match-sync/internal/store"
)

const (
	DefaultListWorkers  = 5
	DefaultMatchWorkers = 4
	DefaultFlushTimeout = 30 * time.Second
)

// API is the part of the Riot client a sync run depends on.
type API interface {
	ListMatchIDs(ctx context.Context, puuid string, since time.Time) ([]string, error)
	GetMatch(ctx context.Context, matchID string) (*riot.MatchResponse, error)
	GetTimeline(ctx context.Context, matchID string) (*riot.TimelineResponse, error)
}

// SyncResult reports what one run persisted.
type SyncResult struct {
	SyncedMatches int  `json:"syncedMatches"`
	SyncedPlayers int  `json:"syncedPlayers"`
	FailedMatches int  `json:"failedMatches"`
	RateLimited   bool `json:"rateLimited"`
}

// SyncerConfig holds configuration for the syncer
type SyncerConfig struct {
	ListWorkers  int
	MatchWorkers int
	FlushTimeout time.Duration
	Analysis     analysis.Config
	Observer     Observer
}

// Syncer pulls new matches for every tracked member of a group, persists them
// once each, and advances the members' cursors.
type Syncer struct {
	api      API
	store    store.Store
	cfg      SyncerConfig
	observer Observer
	now      func() time.Time
}

// NewSyncer creates a syncer, filling unset config with defaults.
func NewSyncer(api API, st store.Store, cfg SyncerConfig) *Syncer {
	if cfg.ListWorkers <= 0 {
		cfg.ListWorkers = DefaultListWorkers
	}
	if cfg.MatchWorkers <= 0 {
		cfg.MatchWorkers = DefaultMatchWorkers
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultFlushTimeout
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Syncer{
		api:      api,
		store:    st,
		cfg:      cfg,
		observer: observer,
		now:      time.Now,
	}
}

// run is the state of one Sync call.
type run struct {
	groupID string
	runID   string
	halted  atomic.Bool

	// puuid -> tracked accounts; more than one member can link the same account
	byPUUID map[string][]store.TrackedAccount

	mu       sync.Mutex
	result   SyncResult
	outcomes []matchOutcome
}

// matchOutcome records which members had a row persisted for a match.
type matchOutcome struct {
	startedAt int64
	memberIDs []string
}

// Sync runs one sync for the group. Per-match problems never fail the run;
// an error is returned only when the group cannot be loaded, the cursors
// cannot be written, or ctx is cancelled.
func (s *Syncer) Sync(ctx context.Context, groupID string) (SyncResult, error) {
	ctx = logging.WithRunID(ctx)
	logger := logging.Ctx(ctx).With().Str("group_id", groupID).Logger()
	start := s.now()

	r := &run{
		groupID: groupID,
		runID:   logging.RunIDFromContext(ctx),
		byPUUID: make(map[string][]store.TrackedAccount),
	}

	accounts, err := s.linkedAccounts(ctx, groupID)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return SyncResult{}, err
	}
	if len(accounts) == 0 {
		logger.Info().Msg("No linked accounts, nothing to sync")
		metrics.SyncRuns.WithLabelValues("noop").Inc()
		return SyncResult{}, nil
	}
	for _, a := range accounts {
		r.byPUUID[a.PUUID] = append(r.byPUUID[a.PUUID], a)
	}

	cursors, err := s.store.SyncCursors(ctx, groupID)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return SyncResult{}, fmt.Errorf("load sync cursors: %w", err)
	}

	matchIDs := s.discover(ctx, r, accounts, cursors)
	s.observer.OnSyncEvent(Event{Type: EventSyncStarted, GroupID: groupID, RunID: r.runID, Total: len(matchIDs)})
	logger.Info().Int("accounts", len(accounts)).Int("matches", len(matchIDs)).Msg("Sync started")

	if len(matchIDs) > 0 {
		s.fetchAll(ctx, r, matchIDs)
	}

	flushErr := s.flushCursors(ctx, r, accounts, cursors)

	result := r.result
	runErr := errors.Join(ctx.Err(), flushErr)
	outcome := "ok"
	switch {
	case ctx.Err() != nil:
		outcome = "cancelled"
	case flushErr != nil:
		outcome = "error"
	case result.RateLimited:
		outcome = "rate_limited"
	case len(matchIDs) == 0:
		outcome = "noop"
	}
	metrics.SyncRuns.WithLabelValues(outcome).Inc()
	metrics.SyncDuration.Observe(s.now().Sub(start).Seconds())

	s.observer.OnSyncEvent(Event{Type: EventSyncFinished, GroupID: groupID, RunID: r.runID, Result: &result, Err: errString(runErr)})
	logger.Info().
		Int("synced_matches", result.SyncedMatches).
		Int("synced_players", result.SyncedPlayers).
		Int("failed_matches", result.FailedMatches).
		Bool("rate_limited", result.RateLimited).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Sync finished")

	return result, runErr
}

// linkedAccounts drops members that have not linked a Riot account.
func (s *Syncer) linkedAccounts(ctx context.Context, groupID string) ([]store.TrackedAccount, error) {
	all, err := s.store.TrackedAccounts(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load tracked accounts: %w", err)
	}
	linked := make([]store.TrackedAccount, 0, len(all))
	for _, a := range all {
		if a.PUUID != "" {
			linked = append(linked, a)
		}
	}
	return linked, nil
}

// discover lists new match ids for every account and merges them into one
// sorted, duplicate-free slice.
func (s *Syncer) discover(ctx context.Context, r *run, accounts []store.TrackedAccount, cursors map[string]store.SyncCursor) []string {
	var (
		mu  sync.Mutex
		set = make(map[string]struct{})
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ListWorkers)

	for _, a := range accounts {
		if r.halted.Load() {
			break
		}
		since := cursorTime(a, cursors)
		g.Go(func() error {
			if r.halted.Load() || gctx.Err() != nil {
				return nil
			}
			ids, err := s.api.ListMatchIDs(gctx, a.PUUID, since)
			if err != nil {
				if errors.Is(err, riot.ErrRateLimitExceeded) {
					s.halt(gctx, r)
					return nil
				}
				logging.Ctx(gctx).Warn().Err(err).
					Str("member_id", a.MemberID).
					Msg("Failed to list matches, skipping account this run")
				return nil
			}
			mu.Lock()
			for _, id := range ids {
				set[id] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sortMatchIDs(ids)
	return ids
}

// sortMatchIDs orders ids by their numeric game id, which grows with start
// time within a platform. Ids without a numeric suffix sort last.
func sortMatchIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, aok := gameNumber(ids[i])
		b, bok := gameNumber(ids[j])
		switch {
		case aok && bok && a != b:
			return a < b
		case aok != bok:
			return aok
		}
		return ids[i] < ids[j]
	})
}

func gameNumber(matchID string) (int64, bool) {
	_, num, ok := strings.Cut(matchID, "_")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(num, 10, 64)
	return n, err == nil
}

// cursorTime returns the time to list matches after. A cursor written for a
// different puuid belongs to a previous link and is ignored.
func cursorTime(a store.TrackedAccount, cursors map[string]store.SyncCursor) time.Time {
	c, ok := cursors[a.MemberID]
	if !ok || c.PUUID != a.PUUID || c.LastMatchStartedAt <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(c.LastMatchStartedAt)
}

// fetchAll processes every match id on a bounded pool. No new match is
// started once the run has been halted by rate limiting.
func (s *Syncer) fetchAll(ctx context.Context, r *run, matchIDs []string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MatchWorkers)

	for _, id := range matchIDs {
		if r.halted.Load() || gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if r.halted.Load() || gctx.Err() != nil {
				return nil
			}
			s.syncMatch(gctx, r, id)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Syncer) syncMatch(ctx context.Context, r *run, matchID string) {
	logger := logging.Ctx(ctx).With().Str("match_id", matchID).Logger()

	match, err := s.api.GetMatch(ctx, matchID)
	if err != nil {
		s.fetchFailed(ctx, r, matchID, fmt.Errorf("get match: %w", err))
		return
	}

	// a match that cannot be stored never costs a timeline call
	nm, err := normalizeMatch(r.groupID, matchID, match)
	if err != nil {
		s.matchFailed(ctx, r, matchID, "normalize", err)
		return
	}

	timeline, err := s.api.GetTimeline(ctx, matchID)
	if err != nil {
		s.fetchFailed(ctx, r, matchID, fmt.Errorf("get timeline: %w", err))
		return
	}

	if err := s.store.UpsertMatch(ctx, nm.record); err != nil {
		s.matchFailed(ctx, r, matchID, "persist", fmt.Errorf("upsert match: %w", err))
		return
	}
	if err := s.store.UpsertParticipants(ctx, nm.participants); err != nil {
		s.matchFailed(ctx, r, matchID, "persist", fmt.Errorf("upsert participants: %w", err))
		return
	}
	if err := s.store.UpsertTeams(ctx, nm.teams); err != nil {
		logger.Warn().Err(err).Msg("Failed to upsert team snapshots")
	}

	outcome := matchOutcome{startedAt: nm.record.StartedAt}
	for _, p := range match.Info.Participants {
		for _, acct := range r.byPUUID[p.PUUID] {
			row := memberRow(nm.record, acct, p, timeline)
			if err := s.store.UpsertGroupMatchPlayer(ctx, row); err != nil {
				logger.Warn().Err(err).Str("member_id", acct.MemberID).Msg("Failed to upsert member row")
				continue
			}
			outcome.memberIDs = append(outcome.memberIDs, acct.MemberID)
		}
	}

	s.analyze(ctx, nm.record.MatchID, match, timeline)

	r.mu.Lock()
	r.result.SyncedMatches++
	r.result.SyncedPlayers += len(outcome.memberIDs)
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()

	metrics.MatchesPersisted.Inc()
	metrics.PlayerRowsPersisted.Add(float64(len(outcome.memberIDs)))
	s.observer.OnSyncEvent(Event{Type: EventMatchSynced, GroupID: r.groupID, RunID: r.runID, MatchID: nm.record.MatchID, Players: len(outcome.memberIDs)})
	logger.Debug().Int("members", len(outcome.memberIDs)).Msg("Match synced")
}

// fetchFailed halts the run on rate limiting and otherwise skips the match.
func (s *Syncer) fetchFailed(ctx context.Context, r *run, matchID string, err error) {
	if errors.Is(err, riot.ErrRateLimitExceeded) {
		s.halt(ctx, r)
		return
	}
	if ctx.Err() != nil {
		return
	}
	s.matchFailed(ctx, r, matchID, "fetch", err)
}

// analyze runs both analyzers and stores their output. Failures are logged
// and counted but never undo the match's core rows.
func (s *Syncer) analyze(ctx context.Context, matchID string, match *riot.MatchResponse, timeline *riot.TimelineResponse) {
	logger := logging.Ctx(ctx).With().Str("match_id", matchID).Logger()

	flow, err := runAnalyzer(func() ([]byte, error) {
		return json.Marshal(analysis.AnalyzeFlow(match, timeline, s.cfg.Analysis))
	})
	if err == nil {
		err = s.store.UpsertFlowEvents(ctx, matchID, flow)
	}
	if err != nil {
		metrics.AnalyzerFailures.WithLabelValues("flow").Inc()
		logger.Warn().Err(err).Msg("Flow analysis failed")
	}

	growth, err := runAnalyzer(func() ([]byte, error) {
		return json.Marshal(analysis.AnalyzeGrowth(match, timeline, s.cfg.Analysis))
	})
	if err == nil {
		err = s.store.UpsertGrowth(ctx, matchID, growth)
	}
	if err != nil {
		metrics.AnalyzerFailures.WithLabelValues("growth").Inc()
		logger.Warn().Err(err).Msg("Growth analysis failed")
	}
}

// runAnalyzer converts a panic inside fn into an error.
func runAnalyzer(fn func() ([]byte, error)) (blob []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			blob, err = nil, fmt.Errorf("analyzer panic: %v", rec)
		}
	}()
	return fn()
}

// flushCursors writes every account's cursor once, advanced to the newest
// match persisted for that member this run. It runs even after ctx is
// cancelled so committed matches are not fetched again.
func (s *Syncer) flushCursors(ctx context.Context, r *run, accounts []store.TrackedAccount, prior map[string]store.SyncCursor) error {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FlushTimeout)
	defer cancel()

	latest := make(map[string]int64)
	for _, o := range r.outcomes {
		for _, memberID := range o.memberIDs {
			latest[memberID] = max(latest[memberID], o.startedAt)
		}
	}

	now := s.now()
	var errs []error
	for _, a := range accounts {
		next := latest[a.MemberID]
		if c, ok := prior[a.MemberID]; ok && c.PUUID == a.PUUID {
			next = max(next, c.LastMatchStartedAt)
		}
		err := s.store.UpsertSyncCursor(flushCtx, store.SyncCursor{
			GroupID:            r.groupID,
			MemberID:           a.MemberID,
			PUUID:              a.PUUID,
			LastMatchStartedAt: next,
			LastSyncedAt:       now,
		})
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("member_id", a.MemberID).Msg("Failed to write sync cursor")
			errs = append(errs, fmt.Errorf("cursor for %s: %w", a.MemberID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Syncer) halt(ctx context.Context, r *run) {
	if r.halted.CompareAndSwap(false, true) {
		logging.Ctx(ctx).Warn().Str("group_id", r.groupID).Msg("Rate limit exceeded, no new matches will be started this run")
		r.mu.Lock()
		r.result.RateLimited = true
		r.mu.Unlock()
		s.observer.OnSyncEvent(Event{Type: EventRateLimited, GroupID: r.groupID, RunID: r.runID})
	}
}

func (s *Syncer) matchFailed(ctx context.Context, r *run, matchID, stage string, err error) {
	metrics.MatchFailures.WithLabelValues(stage).Inc()
	logging.Ctx(ctx).Warn().Err(err).Str("match_id", matchID).Str("stage", stage).Msg("Skipping match")

	r.mu.Lock()
	r.result.FailedMatches++
	r.mu.Unlock()

	s.observer.OnSyncEvent(Event{Type: EventMatchFailed, GroupID: r.groupID, RunID: r.runID, MatchID: matchID, Err: err.Error()})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
