package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "matchsync",
		Short: "Sync and analyze League of Legends matches for groups of players",
		Long: `matchsync pulls new matches for every linked member of a group from the
Riot API, stores each shared match once, and derives a timeline flow and a
gold growth analysis for it.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to config.yaml (default: $CONFIG_PATH or ./config.yaml)")

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(linkCmd())
	rootCmd.AddCommand(analyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
