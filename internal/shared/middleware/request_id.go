package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"openpayflow/internal/shared"
)

// RequestID echoes an incoming X-Request-Id or generates one. The id is
// stored in the gin context under "request_id" and returned in the response
// header, so logs and error envelopes can be stitched together.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-Id", requestID)

		// Services read the id off the request context, e.g. to stamp
		// outbox payloads with the originating correlation id.
		ctx := shared.WithCorrelationID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
