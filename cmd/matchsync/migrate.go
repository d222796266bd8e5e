package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := openApp(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Println(okColor.Sprint("Schema is up to date"))
			return nil
		},
	}
}
