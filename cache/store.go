// Package cache persists resolved lyrics per song so repeat plays skip the
// provider chain.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lyrics-sync-go/config"
)

// Store is a string key-value store with optional expiry.
type Store interface {
	// Get returns the value and whether it was present and unexpired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value. A zero ttl never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear removes every entry and reports how many there were.
	Clear(ctx context.Context) (int, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Stats describes a store's contents.
type Stats struct {
	Backend string `json:"backend"`
	Keys    int    `json:"keys"`
	SizeKB  int    `json:"sizeKB,omitempty"`
}

// Open builds the configured store backend.
func Open(conf config.Config) (Store, error) {
	switch strings.ToLower(conf.Cache.Backend) {
	case "", "bolt":
		return NewBoltStore(conf.Cache.Path, conf.Cache.BackupPath, conf.FeatureFlags.CacheCompression)
	case "redis":
		return NewRedisStore(conf.Cache.RedisURL, conf.Cache.RedisPrefix, conf.FeatureFlags.CacheCompression)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", conf.Cache.Backend)
	}
}
