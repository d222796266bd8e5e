// Package cache keeps raw Riot match and timeline payloads on local disk.
// Finished matches never change, so a cached body is always valid until it
// expires to bound disk use.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"match-sync/internal/logging"
	"match-sync/internal/riot"
)

const (
	keyPrefix = "payload:"

	defaultGCInterval = 10 * time.Minute
	gcDiscardRatio    = 0.5
)

var _ riot.PayloadCache = (*PayloadCache)(nil)

// PayloadCache is a badger-backed riot.PayloadCache. It also implements
// suture.Service so value log GC runs under the process supervisor.
type PayloadCache struct {
	db         *badger.DB
	ttl        time.Duration
	inMemory   bool
	gcInterval time.Duration
}

// Open opens the cache at path, or an in-memory cache when path is empty.
// ttl of zero keeps entries forever.
func Open(path string, ttl time.Duration) (*PayloadCache, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open payload cache: %w", err)
	}
	return &PayloadCache{
		db:         db,
		ttl:        ttl,
		inMemory:   path == "",
		gcInterval: defaultGCInterval,
	}, nil
}

func (c *PayloadCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	var body []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		body, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return body, true, nil
}

func (c *PayloadCache) Set(_ context.Context, key string, body []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(keyPrefix+key), body)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

func (c *PayloadCache) Close() error {
	return c.db.Close()
}

// Serve runs value log garbage collection until ctx is done.
func (c *PayloadCache) Serve(ctx context.Context) error {
	if c.inMemory {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.collectGarbage(ctx)
		}
	}
}

// collectGarbage rewrites value log files until badger reports nothing left
// to reclaim.
func (c *PayloadCache) collectGarbage(ctx context.Context) {
	rewrites := 0
	for ctx.Err() == nil {
		err := c.db.RunValueLogGC(gcDiscardRatio)
		if err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) {
				logging.Ctx(ctx).Warn().Err(err).Msg("Payload cache GC failed")
			}
			break
		}
		rewrites++
	}
	if rewrites > 0 {
		logging.Ctx(ctx).Debug().Int("rewrites", rewrites).Msg("Payload cache GC finished")
	}
}

func (c *PayloadCache) String() string {
	return "payload-cache-gc"
}
