package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"match-sync/internal/api"
	"match-sync/internal/collector"
	"match-sync/internal/discord"
	"match-sync/internal/logging"
	"match-sync/internal/scheduler"
	"match-sync/internal/supervisor"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when enabled, the periodic sync scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			var webhook *discord.WebhookClient
			if a.cfg.Discord.WebhookURL != "" {
				webhook = discord.NewWebhookClient(a.cfg.Discord.WebhookURL)
			}

			if err := a.checkKey(ctx); err != nil {
				if webhook != nil {
					if werr := webhook.SendKeyRejected(ctx, a.cfg.Riot.APIKey); werr != nil {
						logging.Warn().Err(werr).Msg("Failed to send key rejected notification")
					}
				}
				return err
			}

			return serve(ctx, a, webhook)
		},
	}
}

func serve(ctx context.Context, a *app, webhook *discord.WebhookClient) error {
	log := logging.Component("serve")

	hub := api.NewHub()
	guard := collector.NewGuard(a.newSyncer(hub))

	server := api.NewServer(a.store, guard, hub, api.Config{SyncCooldown: a.cfg.Server.SyncCooldown})
	httpServer := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(log, supervisor.TreeConfig{ShutdownTimeout: a.cfg.Server.ShutdownTimeout})
	tree.AddAPI(supervisor.NewHTTPService(httpServer, a.cfg.Server.ShutdownTimeout))
	tree.AddAPI(hub)

	if a.cfg.Scheduler.Enabled {
		var reporter scheduler.Reporter
		if webhook != nil {
			reporter = webhook
		}
		tree.AddBackground(scheduler.New(a.store, guard, reporter, a.cfg.Scheduler.Interval))
		log.Info().Dur("interval", a.cfg.Scheduler.Interval).Msg("Scheduled sync enabled")
	}
	if a.cache != nil {
		tree.AddBackground(a.cache)
	}

	log.Info().Str("addr", a.cfg.Server.Addr).Msg("Starting match-sync server")
	fmt.Println(okColor.Sprintf("Listening on %s", a.cfg.Server.Addr))

	err := tree.Serve(ctx)
	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		log.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("Server stopped")
		return nil
	}
	return err
}
