package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	IdempotencyHeader     = "Idempotency-Key"
	idempotencyContextKey = "idempotency_key"
	maxIdempotencyKeyLen  = 255
)

// IdempotencyMiddleware stores the Idempotency-Key header on the context.
// Overlong keys are rejected.
func IdempotencyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		idempotencyKey := c.GetHeader(IdempotencyHeader)
		if len(idempotencyKey) > maxIdempotencyKeyLen {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Idempotency-Key must be at most 255 characters",
			})
			return
		}
		c.Set(idempotencyContextKey, idempotencyKey)
		c.Next()
	}
}

// IdempotencyKey returns the key captured by IdempotencyMiddleware.
func IdempotencyKey(c *gin.Context) string {
	return c.GetString(idempotencyContextKey)
}
