package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"match-sync/internal/cache"
	"match-sync/internal/collector"
	"match-sync/internal/config"
	"match-sync/internal/logging"
	"match-sync/internal/riot"
	"match-sync/internal/store"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
)

// app holds what every command opens: config, store, optional payload
// cache and the Riot client.
type app struct {
	cfg   *config.Config
	store store.Store
	cache *cache.PayloadCache
	riot  *riot.Client
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path := config.LoadDotEnv(); path != "" {
		fmt.Fprintln(os.Stderr, dimColor.Sprintf("Loaded .env from: %s", path))
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	return cfg, nil
}

// openApp loads config and opens the store. withRiot also builds the Riot
// client (and the payload cache when enabled), which needs an API key.
func openApp(ctx context.Context, cmd *cobra.Command, withRiot bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if withRiot {
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, err
		}
	}

	st, err := store.Open(ctx, cfg.Database.URL, cfg.Database.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &app{cfg: cfg, store: st}

	if !withRiot {
		return a, nil
	}

	var clientOpts []riot.ClientOption
	if cfg.Cache.Enabled {
		c, err := cache.Open(cfg.Cache.Path, cfg.Cache.TTL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open payload cache: %w", err)
		}
		a.cache = c
		clientOpts = append(clientOpts, riot.WithPayloadCache(c))
	}

	fetcher := riot.NewFetcher(cfg.Riot.APIKey,
		riot.WithMaxAttempts(cfg.Riot.MaxAttempts),
		riot.WithBaseDelay(cfg.Riot.BaseDelay),
		riot.WithHTTPClient(&http.Client{Timeout: cfg.Riot.Timeout}),
		riot.WithRateLimits(cfg.Riot.RequestsPerSecond, cfg.Riot.RequestsPerTwoMinutes),
	)
	clientOpts = append(clientOpts,
		riot.WithRegionalURL(cfg.Riot.RegionalURL),
		riot.WithMatchCount(cfg.Riot.MatchHistoryCount),
		riot.WithQueue(cfg.Riot.QueueID),
	)
	a.riot = riot.NewClient(fetcher, clientOpts...)
	return a, nil
}

func (a *app) newSyncer(observer collector.Observer) *collector.Syncer {
	return collector.NewSyncer(a.riot, a.store, collector.SyncerConfig{
		ListWorkers:  a.cfg.Sync.AccountWorkers,
		MatchWorkers: a.cfg.Sync.MatchWorkers,
		FlushTimeout: a.cfg.Sync.CursorFlushTimeout,
		Analysis:     a.cfg.Analysis,
		Observer:     observer,
	})
}

// checkKey fails when the configured key is rejected. An inconclusive check
// is only a warning.
func (a *app) checkKey(ctx context.Context) error {
	v := riot.NewKeyValidator(riot.WithPlatformURL(a.cfg.Riot.PlatformURL))
	status, err := v.Check(ctx, a.cfg.Riot.APIKey)
	switch {
	case status == riot.KeyRejected:
		return errKeyRejected
	case err != nil:
		logging.Warn().Err(err).Msg("Could not validate Riot API key, continuing")
	}
	return nil
}

var errKeyRejected = errors.New("riot API key was rejected, set a fresh key in RIOT_API_KEY")

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close store")
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close payload cache")
		}
	}
}
