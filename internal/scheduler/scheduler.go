// Package scheduler syncs every known group on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"time"

	"match-sync/internal/collector"
	"match-sync/internal/discord"
	"match-sync/internal/logging"
)

// GroupLister returns the groups with at least one tracked account.
type GroupLister interface {
	GroupIDs(ctx context.Context) ([]string, error)
}

// Reporter receives a report for every run worth telling someone about.
type Reporter interface {
	SendSyncReport(ctx context.Context, r discord.SyncReport) error
}

// Scheduler is a suture service. Groups are synced one after another; a
// rate limited run ends the cycle early and the remaining groups wait for
// the next tick.
type Scheduler struct {
	groups   GroupLister
	syncer   collector.GroupSyncer
	reporter Reporter
	interval time.Duration
	now      func() time.Time
}

// New builds a scheduler. reporter may be nil.
func New(groups GroupLister, syncer collector.GroupSyncer, reporter Reporter, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Scheduler{
		groups:   groups,
		syncer:   syncer,
		reporter: reporter,
		interval: interval,
		now:      time.Now,
	}
}

// Serve runs a cycle right away and then once per interval.
func (s *Scheduler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			logging.Ctx(ctx).Error().Err(err).Msg("Scheduled sync cycle failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) String() string {
	return "sync-scheduler"
}

// RunOnce syncs every group once. It only fails when the group list cannot
// be read; per-group failures are logged and reported.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ids, err := s.groups.GroupIDs(ctx)
	if err != nil {
		return err
	}

	for _, groupID := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if res := s.syncGroup(ctx, groupID); res.RateLimited {
			logging.Ctx(ctx).Warn().Str("group", groupID).Msg("Rate limited, deferring remaining groups to next cycle")
			return nil
		}
	}
	return nil
}

func (s *Scheduler) syncGroup(ctx context.Context, groupID string) collector.SyncResult {
	ctx = logging.WithRunID(ctx)
	log := logging.Ctx(ctx).With().Str("group", groupID).Logger()

	start := s.now()
	res, err := s.syncer.Sync(ctx, groupID)
	if errors.Is(err, collector.ErrSyncInProgress) {
		log.Debug().Msg("Group already syncing, skipped")
		return res
	}
	if err != nil && ctx.Err() != nil {
		return res
	}
	if err != nil {
		log.Error().Err(err).Msg("Scheduled sync failed")
	}

	if s.reporter == nil || (err == nil && res.SyncedMatches == 0 && !res.RateLimited) {
		return res
	}

	report := discord.SyncReport{
		GroupID:       groupID,
		RunID:         logging.RunIDFromContext(ctx),
		SyncedMatches: res.SyncedMatches,
		SyncedPlayers: res.SyncedPlayers,
		FailedMatches: res.FailedMatches,
		RateLimited:   res.RateLimited,
		Elapsed:       s.now().Sub(start),
		FinishedAt:    s.now(),
	}
	if err != nil {
		report.Err = err.Error()
	}
	if rerr := s.reporter.SendSyncReport(ctx, report); rerr != nil {
		log.Warn().Err(rerr).Msg("Failed to send sync report")
	}
	return res
}
