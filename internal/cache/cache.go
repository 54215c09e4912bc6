// Package cache keeps generated documents in memory and, when configured, in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a two-tier cache: L1 in memory, L2 in Redis.
// L1 is lost on restart; L2 is shared between instances.
type Cache struct {
	l1         sync.Map      // key → *entry
	rdb        *redis.Client // nil if Redis unavailable
	ttl        time.Duration
	maxEntries int

	hits   atomic.Int64
	misses atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

type Options struct {
	RedisURL        string
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

// New sets up the cache and starts the L1 cleanup goroutine. An empty or
// unreachable Redis URL disables L2.
func New(ctx context.Context, opts Options) *Cache {
	c := &Cache{ttl: opts.TTL, maxEntries: opts.MaxEntries, done: make(chan struct{})}
	if c.ttl <= 0 {
		c.ttl = time.Hour
	}

	if opts.RedisURL != "" {
		ropts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		} else {
			rdb := redis.NewClient(ropts)
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
				rdb.Close()
			} else {
				c.rdb = rdb
				slog.Info("cache: L2 redis connected", slog.String("addr", ropts.Addr))
			}
		}
	}

	slog.Info("cache: initialized", slog.Duration("ttl", c.ttl), slog.Bool("redis", c.rdb != nil), slog.Int("max_entries", c.maxEntries))

	interval := opts.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go c.cleanupLoop(interval)
	return c
}

// Key builds a deterministic cache key from parts.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("yd:%x", hash[:12])
}

// Get tries L1, then L2. An L2 hit populates L1.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	if val, ok := c.l1.Load(key); ok {
		e := val.(*entry)
		if time.Now().Before(e.expiresAt) {
			slog.Debug("cache: L1 hit", slog.String("key", key))
			c.hits.Add(1)
			return e.data, true
		}
		c.l1.Delete(key)
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			slog.Debug("cache: L2 hit", slog.String("key", key))
			c.hits.Add(1)
			c.l1.Store(key, &entry{data: data, expiresAt: time.Now().Add(c.ttl)})
			return data, true
		}
		if err != redis.Nil {
			slog.Debug("cache: L2 get failed", slog.Any("error", err))
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores data in both tiers.
func (c *Cache) Set(ctx context.Context, key string, data []byte) {
	if c == nil {
		return
	}

	c.evictIfNeeded()
	c.l1.Store(key, &entry{data: data, expiresAt: time.Now().Add(c.ttl)})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// GetJSON decodes a cached value. Decode errors count as a miss.
func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var out T
	data, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

func SetJSON[T any](ctx context.Context, c *Cache, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, data)
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

// Close stops the cleanup goroutine and the Redis client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.rdb != nil {
			err = c.rdb.Close()
		}
	})
	return err
}

// evictIfNeeded removes expired entries first, then the oldest ones while
// L1 is at capacity.
func (c *Cache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count < c.maxEntries {
		return
	}

	now := time.Now()
	c.l1.Range(func(key, val any) bool {
		if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})

	for count >= c.maxEntries {
		var oldestKey any
		var oldestAt time.Time
		c.l1.Range(func(key, val any) bool {
			// Earlier expiry means older entry since every entry shares the TTL.
			if e, ok := val.(*entry); ok && (oldestKey == nil || e.expiresAt.Before(oldestAt)) {
				oldestKey = key
				oldestAt = e.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			break
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()
			c.l1.Range(func(key, val any) bool {
				if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
					c.l1.Delete(key)
				}
				return true
			})
		}
	}
}
