package middleware

import (
	"net/http"

	"elective-allocation/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	callerIDKey   = "caller_id"
	callerRoleKey = "caller_role"
)

// Auth requires a valid bearer token and stores the caller id and role on
// the context.
func Auth(tokens *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := token.ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortUnauthorized(c, "Authorization header must be a bearer token")
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}
		callerID, err := claims.SubjectID()
		if err != nil {
			abortUnauthorized(c, "Invalid token subject")
			return
		}

		c.Set(callerIDKey, callerID)
		c.Set(callerRoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole lets the request through only for the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		if !allowed[CallerRole(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Insufficient permissions",
				"errors":  "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}

// CallerID returns the authenticated caller, or uuid.Nil.
func CallerID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(callerIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func CallerRole(c *gin.Context) string {
	return c.GetString(callerRoleKey)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
		"errors":  "UNAUTHORIZED",
	})
}
