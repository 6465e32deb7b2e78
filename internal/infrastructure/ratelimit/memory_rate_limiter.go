package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/turtacn/credence/internal/domain/service"
	"github.com/turtacn/credence/pkg/constants"
)

var _ service.RateLimitService = (*MemoryRateLimiter)(nil)

// MemoryRateLimiter is a per-process fixed-window limiter on go-cache.
// Counters expire with their window.
type MemoryRateLimiter struct {
	counters *cache.Cache
	config   *RateLimiterConfig
	now      func() time.Time
}

// NewMemoryRateLimiter creates an in-process limiter.
func NewMemoryRateLimiter(cfg *RateLimiterConfig) *MemoryRateLimiter {
	if cfg == nil {
		cfg = DefaultRateLimiterConfig()
	}
	return &MemoryRateLimiter{
		counters: cache.New(cfg.Window, 2*cfg.Window),
		config:   cfg,
		now:      time.Now,
	}
}

type window struct {
	count   int
	resetAt time.Time
}

func (m *MemoryRateLimiter) key(scope constants.RateLimitScope, identifier string) string {
	return fmt.Sprintf("%s:%s", scope, identifier)
}

// Allow checks if a request is allowed under the rate limit.
func (m *MemoryRateLimiter) Allow(_ context.Context, scope constants.RateLimitScope, identifier string) (bool, int, time.Time, error) {
	key := m.key(scope, identifier)
	now := m.now()

	// go-cache's Add is atomic; a lost race falls through to the update below.
	if err := m.counters.Add(key, &window{count: 1, resetAt: now.Add(m.config.Window)}, m.config.Window); err == nil {
		return m.result(1, now.Add(m.config.Window))
	}

	w, ok := m.current(key, now)
	if !ok {
		m.counters.Set(key, &window{count: 1, resetAt: now.Add(m.config.Window)}, m.config.Window)
		return m.result(1, now.Add(m.config.Window))
	}
	w.count++
	m.counters.Set(key, &window{count: w.count, resetAt: w.resetAt}, w.resetAt.Sub(now))
	return m.result(w.count, w.resetAt)
}

func (m *MemoryRateLimiter) current(key string, now time.Time) (window, bool) {
	v, ok := m.counters.Get(key)
	if !ok {
		return window{}, false
	}
	w := *v.(*window)
	if !now.Before(w.resetAt) {
		return window{}, false
	}
	return w, true
}

func (m *MemoryRateLimiter) result(count int, resetAt time.Time) (bool, int, time.Time, error) {
	remaining := m.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= m.config.Limit, remaining, resetAt, nil
}

// Reset clears the counter for identifier.
func (m *MemoryRateLimiter) Reset(_ context.Context, scope constants.RateLimitScope, identifier string) error {
	m.counters.Delete(m.key(scope, identifier))
	return nil
}
