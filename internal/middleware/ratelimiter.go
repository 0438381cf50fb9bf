package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/tolgaturan/authgate/internal/config"
)

// RateLimiter throttles requests per client IP over a fixed window
type RateLimiter interface {
	// Allow reports whether the client may proceed and how many requests it
	// has made in the current window
	Allow(ctx context.Context, clientIP string) (bool, int64, error)

	// Middleware returns the gin handler enforcing the limit
	Middleware() gin.HandlerFunc

	// Close closes the underlying connection
	Close() error
}

type redisRateLimiter struct {
	client *redis.Client
	window time.Duration
	limit  int64
	logger *slog.Logger
}

// NewRateLimiter creates a new Redis-based fixed-window rate limiter
func NewRateLimiter(cfg *config.Config, logger *slog.Logger) (RateLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       int(cfg.RedisDatabase),
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("❌ [RateLimiter] Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("✅ [RateLimiter] Connected to Redis",
		"host", cfg.RedisHost,
		"port", cfg.RedisPort,
	)

	return &redisRateLimiter{
		client: client,
		window: time.Duration(cfg.RateLimitWindow) * time.Second,
		limit:  cfg.RateLimitMaxRequests,
		logger: logger,
	}, nil
}

// NewRateLimiterWithClient creates a rate limiter around an existing Redis
// client (used in tests)
func NewRateLimiterWithClient(client *redis.Client, cfg *config.Config, logger *slog.Logger) RateLimiter {
	return &redisRateLimiter{
		client: client,
		window: time.Duration(cfg.RateLimitWindow) * time.Second,
		limit:  cfg.RateLimitMaxRequests,
		logger: logger,
	}
}

// windowKey generates the Redis key for a client's current window
// Format: rate:ip:{clientIP}
func windowKey(clientIP string) string {
	return fmt.Sprintf("rate:ip:%s", clientIP)
}

func (r *redisRateLimiter) Allow(ctx context.Context, clientIP string) (bool, int64, error) {
	if r.limit <= 0 {
		return true, 0, nil
	}

	key := windowKey(clientIP)

	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	// NX keeps the window anchored at the first request instead of sliding
	// on every hit.
	pipe.ExpireNX(ctx, key, r.window)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("❌ [RateLimiter] Failed to bump request count", "error", err, "client_ip", clientIP)
		// On Redis failure the request is allowed; availability over strictness.
		return true, 0, err
	}

	count := incr.Val()
	return count <= r.limit, count, nil
}

func (r *redisRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, count, err := r.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			r.logger.Warn("⚠️ [RateLimiter] Request throttled",
				"client_ip", c.ClientIP(),
				"count", count,
				"limit", r.limit,
			)
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (r *redisRateLimiter) Close() error {
	return r.client.Close()
}

// noopRateLimiter allows everything; used when Redis is unavailable at startup
type noopRateLimiter struct {
	logger *slog.Logger
}

// NewNoOpRateLimiter creates a rate limiter that never throttles
func NewNoOpRateLimiter(logger *slog.Logger) RateLimiter {
	logger.Warn("⚠️ [RateLimiter] Using no-op rate limiter, requests will not be throttled")
	return &noopRateLimiter{logger: logger}
}

func (n *noopRateLimiter) Allow(ctx context.Context, clientIP string) (bool, int64, error) {
	return true, 0, nil
}

func (n *noopRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
	}
}

func (n *noopRateLimiter) Close() error {
	return nil
}
