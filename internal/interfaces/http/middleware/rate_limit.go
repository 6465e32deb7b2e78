package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/credence/internal/application/dto"
	"github.com/turtacn/credence/internal/domain/service"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/errors"
	"github.com/turtacn/credence/pkg/logger"
)

// RateLimitMiddleware limits requests per client IP within scope. A nil
// limiter disables it; limiter failures fail open.
func RateLimitMiddleware(rateLimiter service.RateLimitService, scope constants.RateLimitScope, metrics service.Metrics, log logger.Logger) gin.HandlerFunc {
	if metrics == nil {
		metrics = service.NewNoopMetrics()
	}
	return func(c *gin.Context) {
		if rateLimiter == nil {
			c.Next()
			return
		}

		allowed, remaining, resetAt, err := rateLimiter.Allow(c.Request.Context(), scope, c.ClientIP())
		if err != nil {
			log.Warn(c.Request.Context(), "Rate limiter failed", logger.Error(err))
			c.Next() // Fail open
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			metrics.RecordRateLimitHit(scope)
			log.Warn(c.Request.Context(), "Rate limit exceeded",
				logger.String("scope", string(scope)),
				logger.String("client_ip", c.ClientIP()),
			)
			retryAfter := int64(time.Until(resetAt).Seconds()) + 1
			dto.SendError(c, errors.ErrRateLimitExceeded.WithMetadata("retry_after", retryAfter))
			return
		}

		c.Next()
	}
}
