package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexus-social/backend/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware creates a fixed-window rate limiter backed by
// Redis, keyed by authenticated user when available and client IP otherwise.
// A nil client disables limiting, for deployments without Redis.
func RedisRateLimitMiddleware(client *redis.Client, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:ip:%s", c.ClientIP())
		if userID := c.GetString("user_id"); userID != "" {
			key = fmt.Sprintf("rate_limit:user:%s", userID)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			// Fail open: a broken limiter should not take the API down.
			logger.Log.Warn("rate limit check failed, allowing request",
				zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			if err := client.Expire(ctx, key, window).Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				logger.Log.Warn("failed to set rate limit expiration",
					zap.String("key", key), zap.Error(err))
			}
		}

		if count > int64(maxRequests) {
			logger.Log.Warn("rate limit exceeded",
				zap.String("key", key),
				zap.Int("max_requests", maxRequests),
				zap.Int64("current_requests", count),
			)
			c.JSON(429, gin.H{
				"error":       "rate_limit_exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
