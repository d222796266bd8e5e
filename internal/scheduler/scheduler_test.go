package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"match-sync/internal/collector"
	"match-sync/internal/discord"
)

type staticGroups struct {
	ids []string
	err error
}

func (g staticGroups) GroupIDs(context.Context) ([]string, error) { return g.ids, g.err }

type scriptedSyncer struct {
	mu      sync.Mutex
	results map[string]collector.SyncResult
	errs    map[string]error
	calls   []string
}

func (s *scriptedSyncer) Sync(_ context.Context, groupID string) (collector.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, groupID)
	return s.results[groupID], s.errs[groupID]
}

func (s *scriptedSyncer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type capturingReporter struct {
	mu      sync.Mutex
	reports []discord.SyncReport
	err     error
}

func (r *capturingReporter) SendSyncReport(_ context.Context, rep discord.SyncReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return r.err
}

func TestRunOnce_SyncsGroupsInOrder(t *testing.T) {
	syncer := &scriptedSyncer{results: map[string]collector.SyncResult{
		"a": {SyncedMatches: 3, SyncedPlayers: 5},
		"b": {},
	}}
	rep := &capturingReporter{}
	s := New(staticGroups{ids: []string{"a", "b", "c"}}, syncer, rep, time.Minute)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(syncer.calls) != 3 || syncer.calls[0] != "a" || syncer.calls[2] != "c" {
		t.Errorf("calls = %v", syncer.calls)
	}

	// only the group that persisted matches is reported
	if len(rep.reports) != 1 {
		t.Fatalf("reports = %+v", rep.reports)
	}
	got := rep.reports[0]
	if got.GroupID != "a" || got.SyncedMatches != 3 || got.SyncedPlayers != 5 {
		t.Errorf("report = %+v", got)
	}
	if got.RunID == "" {
		t.Error("report should carry the run id")
	}
}

func TestRunOnce_RateLimitEndsCycle(t *testing.T) {
	syncer := &scriptedSyncer{results: map[string]collector.SyncResult{
		"a": {SyncedMatches: 1, RateLimited: true},
	}}
	rep := &capturingReporter{}
	s := New(staticGroups{ids: []string{"a", "b"}}, syncer, rep, time.Minute)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(syncer.calls) != 1 {
		t.Errorf("calls = %v, want only a", syncer.calls)
	}
	if len(rep.reports) != 1 || !rep.reports[0].RateLimited {
		t.Errorf("reports = %+v", rep.reports)
	}
}

func TestRunOnce_FailuresAreReported(t *testing.T) {
	syncer := &scriptedSyncer{errs: map[string]error{
		"a": errors.New("load tracked accounts: db down"),
		"b": collector.ErrSyncInProgress,
	}}
	rep := &capturingReporter{err: errors.New("webhook down")}
	s := New(staticGroups{ids: []string{"a", "b", "c"}}, syncer, rep, time.Minute)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(syncer.calls) != 3 {
		t.Errorf("a failing group should not stop the cycle: %v", syncer.calls)
	}
	if len(rep.reports) != 1 || rep.reports[0].Err != "load tracked accounts: db down" {
		t.Errorf("reports = %+v", rep.reports)
	}
}

func TestRunOnce_GroupListError(t *testing.T) {
	boom := errors.New("boom")
	s := New(staticGroups{err: boom}, &scriptedSyncer{}, nil, time.Minute)

	if err := s.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Errorf("RunOnce = %v, want boom", err)
	}
}

func TestServe_TicksUntilCancelled(t *testing.T) {
	syncer := &scriptedSyncer{}
	s := New(staticGroups{ids: []string{"a"}}, syncer, nil, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for syncer.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("only %d cycles ran", syncer.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
	if s.String() != "sync-scheduler" {
		t.Errorf("String = %q", s.String())
	}
}
