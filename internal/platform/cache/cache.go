// Package cache keeps per-user level summaries in Redis for a short time.
// Summaries are derived data; a miss or an unreachable cache only costs a
// recomputation, so cache errors are reported but never fatal to callers.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SummaryCache stores the level summaries of one user.
type SummaryCache interface {
	// Get returns the cached summaries and whether they were present.
	Get(ctx context.Context, userID uuid.UUID) ([]domain.LevelSummary, bool, error)
	// Set stores summaries for the configured TTL.
	Set(ctx context.Context, userID uuid.UUID, summaries []domain.LevelSummary) error
	// Invalidate drops the cached summaries of a user.
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// RedisSummaryCache implements SummaryCache with go-redis.
type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ SummaryCache = (*RedisSummaryCache)(nil)

// NewRedisSummaryCache connects to url and verifies the connection.
func NewRedisSummaryCache(
	ctx context.Context,
	url string,
	ttl time.Duration,
	logger *slog.Logger,
) (*RedisSummaryCache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return NewRedisSummaryCacheFromClient(client, ttl, logger), nil
}

// NewRedisSummaryCacheFromClient wraps an existing client.
func NewRedisSummaryCacheFromClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisSummaryCache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisSummaryCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "summary_cache")),
	}
}

// Key returns the Redis key holding the summaries of userID.
func Key(userID uuid.UUID) string {
	return "vocab:summaries:" + userID.String()
}

// Get implements SummaryCache.Get
func (c *RedisSummaryCache) Get(ctx context.Context, userID uuid.UUID) ([]domain.LevelSummary, bool, error) {
	raw, err := c.client.Get(ctx, Key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading summaries: %w", err)
	}

	var summaries []domain.LevelSummary
	if err := json.Unmarshal(raw, &summaries); err != nil {
		c.logger.Warn("dropping undecodable cache entry",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		_ = c.client.Del(ctx, Key(userID)).Err()
		return nil, false, nil
	}
	return summaries, true, nil
}

// Set implements SummaryCache.Set
func (c *RedisSummaryCache) Set(ctx context.Context, userID uuid.UUID, summaries []domain.LevelSummary) error {
	raw, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("encoding summaries: %w", err)
	}
	if err := c.client.Set(ctx, Key(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing summaries: %w", err)
	}
	return nil
}

// Invalidate implements SummaryCache.Invalidate
func (c *RedisSummaryCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("invalidating summaries: %w", err)
	}
	return nil
}

// HealthCheck verifies the cache connection is alive.
func (c *RedisSummaryCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close shuts down the cache client.
func (c *RedisSummaryCache) Close() error {
	return c.client.Close()
}

// NopSummaryCache never stores anything. It is used when no Redis URL is configured.
type NopSummaryCache struct{}

var _ SummaryCache = NopSummaryCache{}

// Get always misses.
func (NopSummaryCache) Get(context.Context, uuid.UUID) ([]domain.LevelSummary, bool, error) {
	return nil, false, nil
}

// Set does nothing.
func (NopSummaryCache) Set(context.Context, uuid.UUID, []domain.LevelSummary) error { return nil }

// Invalidate does nothing.
func (NopSummaryCache) Invalidate(context.Context, uuid.UUID) error { return nil }
