package cache

import (
	"fmt"
	"time"

	"broadcast-coach/config"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"
)

// SpendCache memoizes the arbitrary-window spend queries that require a full
// scan of a user's event history. Entries are keyed by a generation counter
// that the tracker bumps on every mutation, so stale results are never
// served; superseded generations simply age out via TTL.
type SpendCache struct {
	client *ristretto.Cache
	ttl    time.Duration
}

// New creates a spend cache with the given configuration. Returns nil (a
// valid no-op cache) when caching is disabled.
func New(cfg config.CacheConfig) (*SpendCache, error) {
	if !cfg.Enabled {
		log.Info().Msg("Spend cache disabled in configuration")
		return nil, nil
	}

	maxCost := int64(cfg.MaxSizeMB) * 1024 * 1024

	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.CounterSize),
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("max_size_mb", cfg.MaxSizeMB).
		Int("ttl_seconds", cfg.TTLSeconds).
		Msg("Spend cache initialized")

	return &SpendCache{
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}, nil
}

// Key builds the cache key for one spend query at one mutation generation.
func Key(generation uint64, username string, days int, category string) string {
	return fmt.Sprintf("spend:%d:%s:%d:%s", generation, username, days, category)
}

// Get returns a cached spend total, if present.
func (c *SpendCache) Get(key string) (float64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	val, found := c.client.Get(key)
	if !found {
		return 0, false
	}
	total, ok := val.(float64)
	return total, ok
}

// Set stores a spend total under key with the configured TTL.
func (c *SpendCache) Set(key string, total float64) {
	if c == nil || c.client == nil {
		return
	}
	c.client.SetWithTTL(key, total, 1, c.ttl)
}

// Close cleanly shuts down the cache.
func (c *SpendCache) Close() {
	if c != nil && c.client != nil {
		c.client.Close()
	}
}
