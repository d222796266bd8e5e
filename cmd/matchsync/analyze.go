package main

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"match-sync/internal/analysis"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print the flow and growth analysis of a match as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			matchID, _ := cmd.Flags().GetString("match")
			fromStore, _ := cmd.Flags().GetBool("from-store")

			ctx, stop := signalContext()
			defer stop()

			a, err := openApp(ctx, cmd, !fromStore)
			if err != nil {
				return err
			}
			defer a.Close()

			if fromStore {
				stored, err := a.store.MatchAnalysis(ctx, matchID)
				if err != nil {
					return fmt.Errorf("load analysis for %s: %w", matchID, err)
				}
				return printJSON(map[string]json.RawMessage{
					"flow":   nullIfEmpty(stored.Flow),
					"growth": nullIfEmpty(stored.Growth),
				})
			}

			match, err := a.riot.GetMatch(ctx, matchID)
			if err != nil {
				return fmt.Errorf("fetch match: %w", err)
			}
			timeline, err := a.riot.GetTimeline(ctx, matchID)
			if err != nil {
				return fmt.Errorf("fetch timeline: %w", err)
			}

			return printJSON(struct {
				Flow   []analysis.FlowEvent    `json:"flow"`
				Growth analysis.GrowthAnalysis `json:"growth"`
			}{
				Flow:   analysis.AnalyzeFlow(match, timeline, a.cfg.Analysis),
				Growth: analysis.AnalyzeGrowth(match, timeline, a.cfg.Analysis),
			})
		},
	}
	cmd.Flags().String("match", "", "match id, e.g. NA1_5012345678 (required)")
	cmd.Flags().Bool("from-store", false, "print the stored analysis instead of fetching from Riot")
	_ = cmd.MarkFlagRequired("match")
	return cmd
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func nullIfEmpty(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return b
}
