package engine

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

// Cache provides 2-tier caching for computer-use search results: L1 in-memory
// + L2 Redis. L1 is fast but lost on restart, L2 survives restarts. Caching
// matters here because every cache miss costs paid browser steps.
var taskCache *tieredCache

// CacheTTL controls how long results stay cached.
var CacheTTL = 6 * time.Hour

// Cache metrics — atomic counters for thread-safe access.
var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

// CachedTask is the payload stored for a completed automation task.
type CachedTask struct {
	Task   string `json:"task"`
	Result string `json:"result"`
}

// tieredCache implements L1 (memory) + L2 (Redis) caching.
type tieredCache struct {
	l1              sync.Map      // key → *cacheEntry
	rdb             *redis.Client // nil if Redis unavailable
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// InitCache sets up the 2-tier cache. Call after Init().
// redisURL can be empty to disable L2.
func InitCache(redisURL string, ttl time.Duration, maxEntries int, cleanupInterval time.Duration) {
	c := &tieredCache{ttl: ttl, maxEntries: maxEntries, cleanupInterval: cleanupInterval}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		} else {
			rdb := redis.NewClient(opts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
			} else {
				c.rdb = rdb
				slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
			}
		}
	}

	taskCache = c
	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Bool("redis", c.rdb != nil), slog.Int("max_entries", maxEntries))

	// Start L1 cleanup goroutine
	go c.cleanupLoop()
}

// CacheKey builds a deterministic cache key from parts.
func CacheKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("ga:%x", hash[:12]) // 24-char hex prefix
}

// CacheGet tries L1, then L2. On L2 hit, populates L1.
func CacheGet(ctx context.Context, key string) (CachedTask, bool) {
	if taskCache == nil {
		cacheMisses.Add(1)
		return CachedTask{}, false
	}

	// L1 check
	if val, ok := taskCache.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			var out CachedTask
			if json.Unmarshal(entry.data, &out) == nil {
				slog.Debug("cache: L1 hit", slog.String("key", key))
				cacheHits.Add(1)
				return out, true
			}
		}
		taskCache.l1.Delete(key) // expired or corrupt
	}

	// L2 check
	if taskCache.rdb != nil {
		data, err := taskCache.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var out CachedTask
			if json.Unmarshal(data, &out) == nil {
				slog.Debug("cache: L2 hit", slog.String("key", key))
				cacheHits.Add(1)
				// Populate L1
				taskCache.l1.Store(key, &cacheEntry{
					data:      data,
					expiresAt: time.Now().Add(taskCache.ttl),
				})
				return out, true
			}
		}
	}

	cacheMisses.Add(1)
	return CachedTask{}, false
}

// CacheSet stores value in both L1 and L2.
func CacheSet(ctx context.Context, key string, value CachedTask) {
	if taskCache == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	// Evict if needed before adding
	taskCache.evictIfNeeded()

	// L1
	taskCache.l1.Store(key, &cacheEntry{
		data:      data,
		expiresAt: time.Now().Add(taskCache.ttl),
	})

	// L2
	if taskCache.rdb != nil {
		if err := taskCache.rdb.Set(ctx, key, data, taskCache.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// CacheStats returns current cache hit/miss counters.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

// evictIfNeeded removes entries when L1 exceeds maxEntries.
// Removes expired entries first, then oldest entries if still over limit.
func (c *tieredCache) evictIfNeeded() {
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

	// Phase 1: remove expired
	now := time.Now()
	c.l1.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})

	if count < c.maxEntries {
		return
	}

	// Phase 2: remove oldest entries until under limit.
	// Earlier expiry = older entry, since expiry = createdAt + ttl.
	for count >= c.maxEntries {
		var oldestKey any
		oldestAt := time.Now().Add(c.ttl + time.Hour)
		c.l1.Range(func(key, val any) bool {
			if entry, ok := val.(*cacheEntry); ok && entry.expiresAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

// cleanupLoop periodically drops expired L1 entries.
func (c *tieredCache) cleanupLoop() {
	interval := c.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		c.l1.Range(func(key, val any) bool {
			if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
				c.l1.Delete(key)
			}
			return true
		})
	}
}
