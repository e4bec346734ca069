package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/opsmesh/watchtower-backend/errors"
	"github.com/opsmesh/watchtower-backend/services"
)

// IngestRateLimiter bounds how fast a single client may report errors.
// Keyed by client IP with a fixed one-minute window. A Redis failure
// fails open: the request proceeds, since losing rate limiting is better
// than dropping error reports.
func IngestRateLimiter(limiter services.RateLimiterInterface, requestsPerMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter, err := limiter.CheckLimit(
			c.Request.Context(),
			"ingest:"+c.ClientIP(),
			requestsPerMinute,
			time.Minute,
		)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			seconds := int(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", time.Now().UTC().Add(retryAfter).Format(time.RFC1123))
			_ = c.Error(apperrors.RateLimitExceeded("Too many error reports", seconds))
			c.Abort()
			return
		}

		c.Next()
	}
}
