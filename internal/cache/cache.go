// Package cache stores serialised assessment reports in Redis.
//
// Every failure is logged and degraded: a read error is a miss, a write
// error is dropped. Callers never see Redis errors.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL applies when no TTL is configured.
	DefaultTTL   = 24 * time.Hour
	maxKeyLength = 200
	hashLength   = 16
	scanBatch    = 500
)

// Field is a named key component. Nil values are omitted.
type Field struct {
	Name  string
	Value any
}

// Key joins prefix, args and fields with ":". Fields are ordered by name and
// slice values are sorted. Keys longer than 200 characters collapse to the
// prefix and a truncated SHA-256 of the full key.
func Key(prefix string, args []string, fields ...Field) string {
	parts := append([]string{prefix}, args...)

	sorted := slices.Clone(fields)
	slices.SortFunc(sorted, func(a, b Field) int { return strings.Compare(a.Name, b.Name) })
	for _, f := range sorted {
		v, ok := fieldValue(f.Value)
		if !ok {
			continue
		}
		parts = append(parts, f.Name+":"+v)
	}

	key := strings.Join(parts, ":")
	if len(key) > maxKeyLength {
		sum := sha256.Sum256([]byte(key))
		return prefix + ":" + hex.EncodeToString(sum[:])[:hashLength]
	}
	return key
}

func fieldValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case []string:
		if t == nil {
			return "", false
		}
		values := slices.Clone(t)
		slices.Sort(values)
		b, _ := json.Marshal(values)
		return string(b), true
	case string:
		return t, true
	default:
		return fmt.Sprint(t), true
	}
}

// Cache is a JSON value store on top of a Redis client.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New wraps client. A nil client yields a cache that always misses.
func New(client redis.Cmdable, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a backing client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get decodes the value at key into dst and reports whether it was found.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if !c.Enabled() {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.DebugContext(ctx, "cache miss", "key", key)
		return false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "cache get failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.WarnContext(ctx, "cache value undecodable", "key", key, "error", err)
		return false
	}
	c.logger.DebugContext(ctx, "cache hit", "key", key)
	return true
}

// Set stores value at key for the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) bool {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL stores value at key for ttl, falling back to the configured TTL.
func (c *Cache) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if !c.Enabled() {
		return false
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache value unencodable", "key", key, "error", err)
		return false
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache set failed", "key", key, "error", err)
		return false
	}
	c.logger.DebugContext(ctx, "cache set", "key", key, "ttl", ttl.String())
	return true
}

// Delete removes key and reports whether it existed.
func (c *Cache) Delete(ctx context.Context, key string) bool {
	if !c.Enabled() {
		return false
	}
	n, err := c.client.Del(ctx, key).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "cache delete failed", "key", key, "error", err)
		return false
	}
	return n > 0
}

// DeleteMatching removes every key matching the glob pattern and returns how
// many were deleted.
func (c *Cache) DeleteMatching(ctx context.Context, pattern string) int {
	if !c.Enabled() {
		return 0
	}
	if pattern == "" {
		pattern = "*"
	}
	if !isGlob(pattern) {
		if c.Delete(ctx, pattern) {
			c.logger.InfoContext(ctx, "cache keys cleared", "pattern", pattern, "count", 1)
			return 1
		}
		return 0
	}

	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.ErrorContext(ctx, "cache scan failed", "pattern", pattern, "error", err)
		return 0
	}
	if len(keys) == 0 {
		c.logger.InfoContext(ctx, "no cache keys matched", "pattern", pattern)
		return 0
	}

	var deleted int64
	for chunk := range slices.Chunk(keys, scanBatch) {
		n, err := c.client.Del(ctx, chunk...).Result()
		if err != nil {
			c.logger.ErrorContext(ctx, "cache clear failed", "pattern", pattern, "error", err)
			return int(deleted)
		}
		deleted += n
	}
	c.logger.InfoContext(ctx, "cache keys cleared", "pattern", pattern, "count", deleted)
	return int(deleted)
}

// isGlob reports whether pattern uses Redis glob syntax. Literal keys are
// deleted directly instead of scanned for.
func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[\`)
}

// Ping reports whether Redis answers.
func (c *Cache) Ping(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.DebugContext(ctx, "cache ping failed", "error", err)
		return false
	}
	return true
}
