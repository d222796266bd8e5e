package collector

import (
	"context"
	"errors"
	"sync"
)

// ErrSyncInProgress is returned when the group already has a sync running.
var ErrSyncInProgress = errors.New("sync already in progress for group")

// GroupSyncer is what callers outside this package need from a syncer.
type GroupSyncer interface {
	Sync(ctx context.Context, groupID string) (SyncResult, error)
}

// Guard serializes syncs per group. A second caller for the same group is
// turned away rather than queued, since the running sync will pick up the
// same matches.
type Guard struct {
	syncer GroupSyncer

	mu      sync.Mutex
	running map[string]struct{}
}

func NewGuard(s GroupSyncer) *Guard {
	return &Guard{syncer: s, running: make(map[string]struct{})}
}

// Sync runs the group's sync unless one is already running.
func (g *Guard) Sync(ctx context.Context, groupID string) (SyncResult, error) {
	g.mu.Lock()
	if _, busy := g.running[groupID]; busy {
		g.mu.Unlock()
		return SyncResult{}, ErrSyncInProgress
	}
	g.running[groupID] = struct{}{}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.running, groupID)
		g.mu.Unlock()
	}()

	return g.syncer.Sync(ctx, groupID)
}

// Running reports whether the group is being synced.
func (g *Guard) Running(groupID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.running[groupID]
	return busy
}
