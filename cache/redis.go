package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/utils"

	redisClient "github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// RedisStore keeps entries in Redis under a key prefix so several
// instances can share one cache.
type RedisStore struct {
	client             *redisClient.Client
	prefix             string
	compressionEnabled bool
}

// NewRedisStore connects using a redis:// or rediss:// URL.
func NewRedisStore(url, prefix string, compressionEnabled bool) (*RedisStore, error) {
	opt, err := redisClient.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redisClient.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	log.Infof("%s Connected to %s (prefix %q, compression: %v)", logcolors.LogCacheRedis, opt.Addr, prefix, compressionEnabled)
	return NewRedisStoreWithClient(client, prefix, compressionEnabled), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redisClient.Client, prefix string, compressionEnabled bool) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, compressionEnabled: compressionEnabled}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// Get returns the value for key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redisClient.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !s.compressionEnabled {
		return raw, true, nil
	}
	value, err := utils.DecompressValue(key, raw)
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value; Redis handles expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.compressionEnabled {
		var err error
		value, err = utils.CompressValue(key, value)
		if err != nil {
			return err
		}
	}
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

// Delete removes a key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// scan visits every key under the prefix.
func (s *RedisStore) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Clear deletes every key under the prefix.
func (s *RedisStore) Clear(ctx context.Context) (int, error) {
	count := 0
	err := s.scan(ctx, func(keys []string) error {
		n, err := s.client.Del(ctx, keys...).Result()
		count += int(n)
		return err
	})
	return count, err
}

// Stats counts keys under the prefix.
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Backend: "redis"}
	err := s.scan(ctx, func(keys []string) error {
		st.Keys += len(keys)
		return nil
	})
	return st, err
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
