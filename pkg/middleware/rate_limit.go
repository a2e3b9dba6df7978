package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "guestbook_rate"

// RateLimitMiddleware caps mutating requests per caller per window.
// Kiosks at the venue share one IP, so the guest token identifies the
// caller when it is present; authenticated admins count by user id and
// everyone else by client IP.
func RateLimitMiddleware(redisClient *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetHeader("X-Guest-Token")
		if caller == "" {
			caller = c.GetString("user_id")
		}
		if caller == "" {
			caller = c.ClientIP()
		}

		key := fmt.Sprintf("%s:%s:%s", rateLimitKeyPrefix, c.Request.URL.Path, caller)

		ctx := c.Request.Context()
		count, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			c.Abort()
			return
		}

		if count == 1 {
			redisClient.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
