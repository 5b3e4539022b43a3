package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"openpayflow/internal/shared/response"
	"openpayflow/pkg/cache"
)

// RateLimit applies a fixed-window per-client-IP limit backed by the cache.
// The first increment in a window sets the expiry; when the counter exceeds
// max the request is rejected with 429. A cache outage fails open: the store
// stays protected by its own limits and availability wins over throttling.
func RateLimit(store cache.Cache, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s", c.ClientIP())

		count, err := store.Increment(c.Request.Context(), key)
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if count == 1 {
			if err := store.Expire(c.Request.Context(), key, window); err != nil {
				log.Warn().Err(err).Msg("failed to set rate limit window")
			}
		}

		if count > int64(max) {
			response.TooManyRequests(c, "Rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}
