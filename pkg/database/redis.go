package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/swapengine/engine/internal/config"
	"github.com/swapengine/engine/pkg/observability"
)

// RedisClient wraps redis.Client with the engine's health/metrics
// conventions. The Job Queue builds its stream operations directly on the
// embedded *redis.Client.
type RedisClient struct {
	*redis.Client
	logger  *observability.Logger
	metrics *RedisMetrics
}

// RedisMetrics tracks Redis operation counts.
type RedisMetrics struct {
	CommandCount int64
	ErrorCount   int64
	AvgLatency   time.Duration
	mu           sync.Mutex
}

// NewRedisClient creates a Redis client backing the Job Queue's streams.
func NewRedisClient(cfg config.RedisConfig, logger *observability.Logger) (*RedisClient, error) {
	opt := &redis.Options{
		Addr:            cfg.Addr(),
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		DialTimeout:     cfg.DialTimeout,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	rc := &RedisClient{Client: client, logger: logger, metrics: &RedisMetrics{}}
	logger.Info(ctx, "Redis client initialized", map[string]interface{}{
		"addr":      opt.Addr,
		"pool_size": opt.PoolSize,
	})
	return rc, nil
}

// trackCommand records a command's latency and outcome.
func (r *RedisClient) trackCommand(start time.Time, err error) {
	r.metrics.mu.Lock()
	defer r.metrics.mu.Unlock()
	r.metrics.CommandCount++
	if err != nil {
		r.metrics.ErrorCount++
	}
	d := time.Since(start)
	if r.metrics.AvgLatency == 0 {
		r.metrics.AvgLatency = d
	} else {
		const alpha = 0.1
		r.metrics.AvgLatency = time.Duration(float64(r.metrics.AvgLatency)*(1-alpha) + float64(d)*alpha)
	}
}

// Health pings Redis with a short deadline.
func (r *RedisClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	start := time.Now()
	err := r.Ping(ctx).Err()
	r.trackCommand(start, err)
	if err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (r *RedisClient) Close() error {
	r.logger.Info(context.Background(), "closing redis connection")
	return r.Client.Close()
}

// GetMetrics returns current Redis command metrics.
func (r *RedisClient) GetMetrics() map[string]interface{} {
	r.metrics.mu.Lock()
	defer r.metrics.mu.Unlock()
	return map[string]interface{}{
		"command_count": r.metrics.CommandCount,
		"error_count":   r.metrics.ErrorCount,
		"avg_latency":   r.metrics.AvgLatency,
	}
}
