package collector

import (
	"context"
	"errors"
	"testing"
)

type blockingSyncer struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSyncer) Sync(ctx context.Context, groupID string) (SyncResult, error) {
	close(b.started)
	<-b.release
	return SyncResult{SyncedMatches: 1}, nil
}

func TestGuard_RejectsConcurrentSameGroup(t *testing.T) {
	b := &blockingSyncer{started: make(chan struct{}), release: make(chan struct{})}
	g := NewGuard(b)

	done := make(chan SyncResult, 1)
	go func() {
		res, _ := g.Sync(context.Background(), "g1")
		done <- res
	}()
	<-b.started

	if !g.Running("g1") {
		t.Error("g1 should be running")
	}
	if _, err := g.Sync(context.Background(), "g1"); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("second sync err = %v, want ErrSyncInProgress", err)
	}

	close(b.release)
	if res := <-done; res.SyncedMatches != 1 {
		t.Errorf("first sync result = %+v", res)
	}
	if g.Running("g1") {
		t.Error("g1 should be released after the sync returns")
	}
}

func TestGuard_OtherGroupsProceed(t *testing.T) {
	api, st := premade(t)
	g := NewGuard(NewSyncer(api, st, SyncerConfig{}))

	res, err := g.Sync(context.Background(), group)
	if err != nil || res.SyncedMatches != 2 {
		t.Fatalf("Sync = %+v, %v", res, err)
	}
	if _, err := g.Sync(context.Background(), "other"); err != nil {
		t.Errorf("unrelated group: %v", err)
	}
}
