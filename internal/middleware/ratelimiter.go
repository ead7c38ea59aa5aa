package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/taskdeck/backend-go/internal/config"
)

// RateLimiter caps the number of API requests a user may make per UTC
// day, backed by Redis.
type RateLimiter interface {
	// Allow records one request for the user and reports whether it is
	// within the daily cap. Returns the count used so far.
	Allow(ctx context.Context, userID string) (bool, int64, error)

	// Close closes the Redis connection
	Close() error
}

type redisRateLimiter struct {
	client *redis.Client
	limit  int64
	logger *slog.Logger
}

// NewRateLimiter creates a new Redis-based rate limiter
func NewRateLimiter(cfg *config.Config, logger *slog.Logger) (RateLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       int(cfg.RedisDB),
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
		limit:  cfg.DailyRequestLimit,
		logger: logger,
	}, nil
}

// NewRateLimiterWithClient wraps an existing Redis client (for testing).
func NewRateLimiterWithClient(client *redis.Client, limit int64, logger *slog.Logger) RateLimiter {
	return &redisRateLimiter{
		client: client,
		limit:  limit,
		logger: logger,
	}
}

// dailyKey generates the Redis key for a user's daily request count
// Format: rate:daily:{userID}:{YYYY-MM-DD}
func dailyKey(userID string) string {
	today := time.Now().UTC().Format("2006-01-02")
	return fmt.Sprintf("rate:daily:%s:%s", userID, today)
}

func (r *redisRateLimiter) Allow(ctx context.Context, userID string) (bool, int64, error) {
	// If limit is 0 or negative, unlimited
	if r.limit <= 0 {
		return true, 0, nil
	}

	key := dailyKey(userID)

	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)

	// Expire at midnight UTC so the window resets with the date in the key
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	pipe.Expire(ctx, key, midnight.Sub(now))

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("❌ [RateLimiter] Failed to count request", "error", err, "user_id", userID)
		// On error, allow the request but report it
		return true, 0, err
	}

	count := incr.Val()
	return count <= r.limit, count, nil
}

func (r *redisRateLimiter) Close() error {
	return r.client.Close()
}

// Limit returns a gin middleware enforcing the daily cap. It must run
// after RequireAuth, which sets the user id on the context.
func Limit(limiter RateLimiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.Next()
			return
		}

		allowed, used, err := limiter.Allow(c.Request.Context(), userID)
		if err != nil {
			// Redis being down never blocks traffic
			c.Next()
			return
		}
		if !allowed {
			logger.Warn("⚠️ [RateLimiter] Daily limit exceeded", "user_id", userID, "used", used)
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "Daily request limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// NoOpRateLimiter allows every request.
// Used when Redis is not available
type NoOpRateLimiter struct{}

// NewNoOpRateLimiter creates a no-op rate limiter
func NewNoOpRateLimiter(logger *slog.Logger) RateLimiter {
	logger.Warn("⚠️ [RateLimiter] Using no-op rate limiter - rate limiting is disabled")
	return &NoOpRateLimiter{}
}

func (r *NoOpRateLimiter) Allow(ctx context.Context, userID string) (bool, int64, error) {
	return true, 0, nil
}

func (r *NoOpRateLimiter) Close() error {
	return nil
}
