package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/credence/internal/config"
	"github.com/turtacn/credence/internal/domain/service"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/logger"
)

func setupRedisLimiter(t *testing.T, limit int, fallback service.RateLimitService) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	rl, err := NewRedisRateLimiter(client, &RateLimiterConfig{Limit: limit, Window: time.Minute}, fallback, logger.NewNoopLogger())
	require.NoError(t, err)
	return rl, mr
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	rl, _ := setupRedisLimiter(t, 3, nil)

	for i := 1; i <= 3; i++ {
		allowed, remaining, resetAt, err := rl.Allow(ctx, constants.RateLimitScopeLogin, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d", i)
		assert.Equal(t, 3-i, remaining)
		assert.WithinDuration(t, time.Now().Add(time.Minute), resetAt, 2*time.Second)
	}

	allowed, remaining, _, err := rl.Allow(ctx, constants.RateLimitScopeLogin, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)

	// Other identifiers have their own window.
	allowed, _, _, err = rl.Allow(ctx, constants.RateLimitScopeLogin, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_WindowExpires(t *testing.T) {
	ctx := context.Background()
	rl, mr := setupRedisLimiter(t, 1, nil)

	allowed, _, _, err := rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, _, _, _ = rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
	assert.False(t, allowed)

	mr.FastForward(61 * time.Second)

	allowed, _, _, err = rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	rl, mr := setupRedisLimiter(t, 1, nil)

	_, _, _, _ = rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
	require.True(t, mr.Exists("credence:ratelimit:login:ip"))

	require.NoError(t, rl.Reset(ctx, constants.RateLimitScopeLogin, "ip"))
	assert.False(t, mr.Exists("credence:ratelimit:login:ip"))

	allowed, _, _, err := rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_Unavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("without fallback the check fails", func(t *testing.T) {
		rl, mr := setupRedisLimiter(t, 2, nil)
		mr.Close()

		allowed, _, _, err := rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
		assert.Error(t, err)
		assert.False(t, allowed)
	})

	t.Run("with fallback the local limiter answers", func(t *testing.T) {
		fallback := NewMemoryRateLimiter(&RateLimiterConfig{Limit: 1, Window: time.Minute})
		rl, mr := setupRedisLimiter(t, 1, fallback)
		mr.Close()

		allowed, _, _, err := rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
		require.NoError(t, err)
		assert.True(t, allowed)
		allowed, _, _, err = rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
		require.NoError(t, err)
		assert.False(t, allowed)
	})
}

func TestNewRedisRateLimiter_NilClient(t *testing.T) {
	_, err := NewRedisRateLimiter(nil, nil, nil, logger.NewNoopLogger())
	assert.Error(t, err)
}

func TestMemoryRateLimiter(t *testing.T) {
	ctx := context.Background()
	rl := NewMemoryRateLimiter(&RateLimiterConfig{Limit: 2, Window: time.Minute})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	allowed, remaining, resetAt, err := rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, now.Add(time.Minute), resetAt)

	allowed, remaining, _, _ = rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)

	allowed, _, _, _ = rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
	assert.False(t, allowed)

	t.Run("window rolls over", func(t *testing.T) {
		now = now.Add(time.Minute)
		allowed, remaining, _, err := rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 1, remaining)
	})

	t.Run("reset clears the counter", func(t *testing.T) {
		_, _, _, _ = rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
		_, _, _, _ = rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
		require.NoError(t, rl.Reset(ctx, constants.RateLimitScopeLogin, "ip"))
		allowed, _, _, _ := rl.Allow(ctx, constants.RateLimitScopeLogin, "ip")
		assert.True(t, allowed)
	})
}

func TestConfigFrom(t *testing.T) {
	got := ConfigFrom(&config.RateLimitConfig{LoginAttempts: 5, Window: 30 * time.Second})
	assert.Equal(t, 5, got.Limit)
	assert.Equal(t, 30*time.Second, got.Window)

	def := ConfigFrom(nil)
	assert.Equal(t, constants.DefaultLoginAttemptsPerMinute, def.Limit)
}
