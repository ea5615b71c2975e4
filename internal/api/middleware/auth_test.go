package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"elective-allocation/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthEngine(tokens *token.Manager, roles ...string) *gin.Engine {
	r := gin.New()
	r.Use(IdempotencyMiddleware())
	r.GET("/whoami", Auth(tokens), RequireRole(roles...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":   CallerID(c),
			"role": CallerRole(c),
			"key":  IdempotencyKey(c),
		})
	})
	return r
}

func get(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	tokens := token.NewManager("secret", "tests", time.Hour)
	r := newAuthEngine(tokens, token.RoleAdmin, token.RoleFaculty)

	caller := uuid.New()
	signed, _, err := tokens.Issue(caller, token.RoleFaculty)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		w := get(r, map[string]string{
			"Authorization":   "Bearer " + signed,
			IdempotencyHeader: "abc",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), caller.String())
		assert.Contains(t, w.Body.String(), `"role":"faculty"`)
		assert.Contains(t, w.Body.String(), `"key":"abc"`)
	})

	t.Run("missing header", func(t *testing.T) {
		w := get(r, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _, err := token.NewManager("other", "tests", time.Hour).Issue(caller, token.RoleAdmin)
		require.NoError(t, err)
		w := get(r, map[string]string{"Authorization": "Bearer " + other})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("role not allowed", func(t *testing.T) {
		student, _, err := tokens.Issue(caller, token.RoleStudent)
		require.NoError(t, err)
		w := get(r, map[string]string{"Authorization": "Bearer " + student})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestIdempotencyKeyTooLong(t *testing.T) {
	tokens := token.NewManager("secret", "tests", time.Hour)
	r := newAuthEngine(tokens, token.RoleAdmin)

	w := get(r, map[string]string{IdempotencyHeader: strings.Repeat("k", maxIdempotencyKeyLen+1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
