package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"match-sync/internal/store"
)

func linkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link a group member to a Riot account",
		Example: `  matchsync link --group friends --member alice --riot-id 'Hide on bush#KR1'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, _ := cmd.Flags().GetString("group")
			memberID, _ := cmd.Flags().GetString("member")
			riotID, _ := cmd.Flags().GetString("riot-id")

			gameName, tagLine, err := parseRiotID(riotID)
			if err != nil {
				return err
			}

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

			account, err := a.riot.GetAccountByRiotID(ctx, gameName, tagLine)
			if err != nil {
				return fmt.Errorf("lookup %s#%s: %w", gameName, tagLine, err)
			}

			err = a.store.UpsertTrackedAccount(ctx, store.TrackedAccount{
				GroupID:  groupID,
				MemberID: memberID,
				PUUID:    account.PUUID,
				GameName: account.GameName,
				TagLine:  account.TagLine,
			})
			if err != nil {
				return fmt.Errorf("save account: %w", err)
			}

			fmt.Printf("%s linked %s in %s to %s#%s\n", okColor.Sprint("✓"), memberID, groupID, account.GameName, account.TagLine)
			fmt.Println(dimColor.Sprintf("  puuid: %s", account.PUUID))
			return nil
		},
	}
	cmd.Flags().String("group", "", "group id (required)")
	cmd.Flags().String("member", "", "member id within the group (required)")
	cmd.Flags().String("riot-id", "", "Riot ID as GameName#TagLine (required)")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("member")
	_ = cmd.MarkFlagRequired("riot-id")
	return cmd
}

// parseRiotID splits "GameName#TagLine".
func parseRiotID(s string) (string, string, error) {
	name, tag, ok := strings.Cut(s, "#")
	name, tag = strings.TrimSpace(name), strings.TrimSpace(tag)
	if !ok || name == "" || tag == "" {
		return "", "", fmt.Errorf("invalid Riot ID %q, expected GameName#TagLine", s)
	}
	return name, tag, nil
}
