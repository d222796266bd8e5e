package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"match-sync/internal/collector"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync new matches for one group",
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, _ := cmd.Flags().GetString("group")
			checkKey, _ := cmd.Flags().GetBool("check-key")
			verbose, _ := cmd.Flags().GetBool("verbose")

			ctx, stop := signalContext()
			defer stop()

			a, err := openApp(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if checkKey {
				if err := a.checkKey(ctx); err != nil {
					return err
				}
			}

			var observer collector.Observer
			if verbose {
				observer = collector.ObserverFunc(printEvent)
			}

			start := time.Now()
			res, err := a.newSyncer(observer).Sync(ctx, groupID)
			printResult(groupID, res, time.Since(start))
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				fmt.Println(warnColor.Sprint("Interrupted, progress so far was saved"))
				return nil
			}
			return err
		},
	}
	cmd.Flags().String("group", "", "group id to sync (required)")
	cmd.Flags().Bool("check-key", false, "validate the Riot API key before syncing")
	cmd.Flags().BoolP("verbose", "v", false, "print each synced match")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func printEvent(e collector.Event) {
	switch e.Type {
	case collector.EventMatchSynced:
		fmt.Printf("  %s %s (%d members)\n", okColor.Sprint("✓"), e.MatchID, e.Players)
	case collector.EventMatchFailed:
		fmt.Printf("  %s %s: %s\n", errColor.Sprint("✗"), e.MatchID, e.Err)
	case collector.EventRateLimited:
		fmt.Printf("  %s rate limited, stopping\n", warnColor.Sprint("!"))
	case collector.EventSyncStarted:
		fmt.Printf("Syncing %d new matches for %s\n", e.Total, e.GroupID)
	}
}

func printResult(groupID string, res collector.SyncResult, elapsed time.Duration) {
	status := okColor.Sprint("OK")
	switch {
	case res.RateLimited:
		status = warnColor.Sprint("RATE LIMITED")
	case res.FailedMatches > 0:
		status = warnColor.Sprint("PARTIAL")
	}

	fmt.Printf("Group %s: %s\n", groupID, status)
	fmt.Printf("  matches:     %d\n", res.SyncedMatches)
	fmt.Printf("  player rows: %d\n", res.SyncedPlayers)
	if res.FailedMatches > 0 {
		fmt.Printf("  skipped:     %s\n", errColor.Sprint(res.FailedMatches))
	}
	fmt.Printf("  elapsed:     %s\n", dimColor.Sprint(elapsed.Round(time.Millisecond)))
}
