// Package ratelimit provides fixed-window login rate limiting backed by Redis,
// with an in-process go-cache implementation for single-node deployments and
// as a fallback when Redis is unavailable.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/credence/internal/config"
	"github.com/turtacn/credence/internal/domain/service"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/errors"
	"github.com/turtacn/credence/pkg/logger"
)

var _ service.RateLimitService = (*RedisRateLimiter)(nil)

// RateLimiterConfig holds rate limiter configuration.
type RateLimiterConfig struct {
	// Limit is the number of attempts allowed per window
	Limit int
	// Window is the fixed window length
	Window time.Duration
	// KeyPrefix is the Redis key prefix
	KeyPrefix string
}

// DefaultRateLimiterConfig returns default rate limiter configuration.
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Limit:     constants.DefaultLoginAttemptsPerMinute,
		Window:    constants.DefaultRateLimitWindow,
		KeyPrefix: "credence:ratelimit",
	}
}

// ConfigFrom maps the rate_limit config section onto limiter settings.
func ConfigFrom(cfg *config.RateLimitConfig) *RateLimiterConfig {
	out := DefaultRateLimiterConfig()
	if cfg == nil {
		return out
	}
	if cfg.LoginAttempts > 0 {
		out.Limit = cfg.LoginAttempts
	}
	if cfg.Window > 0 {
		out.Window = cfg.Window
	}
	return out
}

// fixedWindowScript increments the window counter, starting the window on the
// first hit, and returns {count, remaining window in ms}.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisRateLimiter implements distributed rate limiting using Redis.
type RedisRateLimiter struct {
	client   redis.UniversalClient
	logger   logger.Logger
	config   *RateLimiterConfig
	fallback service.RateLimitService
}

// NewRedisRateLimiter creates a new Redis-based rate limiter. When fallback is
// non-nil it answers while Redis is unreachable; otherwise Redis errors fail
// the check.
func NewRedisRateLimiter(client redis.UniversalClient, cfg *RateLimiterConfig, fallback service.RateLimitService, log logger.Logger) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg == nil {
		cfg = DefaultRateLimiterConfig()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultRateLimiterConfig().KeyPrefix
	}

	rl := &RedisRateLimiter{
		client:   client,
		logger:   log.WithComponent("RedisRateLimiter"),
		config:   cfg,
		fallback: fallback,
	}

	rl.logger.Info(context.Background(), "Redis rate limiter initialized",
		logger.Int("limit", cfg.Limit),
		logger.Duration("window", cfg.Window),
		logger.Bool("local_fallback", fallback != nil),
	)
	return rl, nil
}

func (rl *RedisRateLimiter) buildKey(scope constants.RateLimitScope, identifier string) string {
	return fmt.Sprintf("%s:%s:%s", rl.config.KeyPrefix, scope, identifier)
}

// Allow checks if a request is allowed under the rate limit.
func (rl *RedisRateLimiter) Allow(ctx context.Context, scope constants.RateLimitScope, identifier string) (bool, int, time.Time, error) {
	key := rl.buildKey(scope, identifier)

	res, err := fixedWindowScript.Run(ctx, rl.client, []string{key}, rl.config.Window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		if err == nil {
			err = fmt.Errorf("unexpected script result length %d", len(res))
		}
		if rl.fallback != nil {
			rl.logger.Warn(ctx, "Redis rate limiter unavailable, using local fallback", logger.Error(err))
			return rl.fallback.Allow(ctx, scope, identifier)
		}
		rl.logger.Error(ctx, "Redis rate limit check failed", err)
		return false, 0, time.Time{}, errors.ErrInternal("rate limit check failed", err)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	resetAt := time.Now().Add(ttl)
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.config.Limit, remaining, resetAt, nil
}

// Reset clears the counter for identifier.
func (rl *RedisRateLimiter) Reset(ctx context.Context, scope constants.RateLimitScope, identifier string) error {
	key := rl.buildKey(scope, identifier)

	if err := rl.client.Del(ctx, key).Err(); err != nil && err != redis.Nil {
		rl.logger.Warn(ctx, "Failed to reset rate limit", logger.Error(err))
		return errors.ErrInternal("rate limit reset failed", err)
	}
	if rl.fallback != nil {
		_ = rl.fallback.Reset(ctx, scope, identifier)
	}

	rl.logger.Debug(ctx, "Rate limit reset",
		logger.String("scope", string(scope)),
		logger.String("identifier", identifier),
	)
	return nil
}
