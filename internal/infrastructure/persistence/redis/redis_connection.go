// Package redis provides Redis connection management and client initialization.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/credence/internal/config"
	"github.com/turtacn/credence/pkg/logger"
)

// RedisConnection manages Redis client lifecycle and health monitoring.
type RedisConnection struct {
	config *config.RedisConfig
	client redis.UniversalClient
	logger logger.Logger
}

// NewRedisConnection creates a new Redis connection manager instance.
func NewRedisConnection(cfg *config.RedisConfig, log logger.Logger) *RedisConnection {
	return &RedisConnection{
		config: cfg,
		logger: log.WithComponent("RedisConnection"),
	}
}

// NewRedisConnectionWithClient wraps an existing client, e.g. one pointed at miniredis.
func NewRedisConnectionWithClient(client redis.UniversalClient, log logger.Logger) *RedisConnection {
	return &RedisConnection{
		config: &config.RedisConfig{Enabled: true},
		client: client,
		logger: log.WithComponent("RedisConnection"),
	}
}

// Connect establishes the connection and validates it with a ping.
func (rc *RedisConnection) Connect(ctx context.Context) error {
	if rc.client != nil {
		rc.logger.Warn(ctx, "Redis connection already initialized")
		return nil
	}

	poolSize := rc.config.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	client := redis.NewClient(&redis.Options{
		Addr:         rc.config.Address,
		Password:     rc.config.Password,
		DB:           rc.config.DB,
		PoolSize:     poolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	rc.client = client

	if err := rc.Ping(ctx); err != nil {
		_ = client.Close()
		rc.client = nil
		return fmt.Errorf("redis connection failed: %w", err)
	}

	rc.logger.Info(ctx, "Redis connection established successfully",
		logger.String("address", rc.config.Address),
		logger.Int("pool_size", poolSize),
	)
	return nil
}

// GetClient returns the underlying client. It is nil before Connect.
func (rc *RedisConnection) GetClient() redis.UniversalClient {
	return rc.client
}

// Ping verifies connectivity.
func (rc *RedisConnection) Ping(ctx context.Context) error {
	if rc.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	if err := rc.client.Ping(pingCtx).Err(); err != nil {
		rc.logger.Error(ctx, "Redis ping failed", err)
		return err
	}
	rc.logger.Debug(ctx, "Redis ping successful", logger.Int64("latency_ms", time.Since(start).Milliseconds()))
	return nil
}

// HealthCheck pings Redis and reports pool statistics.
func (rc *RedisConnection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	if err := rc.Ping(ctx); err != nil {
		return nil, err
	}
	info := map[string]interface{}{"status": "healthy"}
	if c, ok := rc.client.(*redis.Client); ok {
		stats := c.PoolStats()
		info["total_conns"] = stats.TotalConns
		info["idle_conns"] = stats.IdleConns
		info["hits"] = stats.Hits
		info["misses"] = stats.Misses
	}
	return info, nil
}

// Close closes the client.
func (rc *RedisConnection) Close() error {
	if rc.client == nil {
		return nil
	}
	rc.logger.Info(context.Background(), "Closing Redis connection")
	err := rc.client.Close()
	rc.client = nil
	return err
}
