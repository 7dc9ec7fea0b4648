package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const contextKeyOwner = "owner_id"

// OwnerFromContext returns the owner set by RequireBearer. "" if not set.
func OwnerFromContext(c *gin.Context) string {
	return c.GetString(contextKeyOwner)
}

// SetOwner stores the owner on the request context.
func SetOwner(c *gin.Context, owner string) {
	c.Set(contextKeyOwner, owner)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// RequireBearer returns a middleware that verifies the bearer token and sets
// the owner in context. Missing, malformed or rejected tokens get 401.
func RequireBearer(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
			return
		}
		id, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid token"})
			return
		}
		SetOwner(c, id.UserID)
		c.Next()
	}
}

// RequireCronSecret guards the cron entry points. With no secret configured
// every request is refused.
func RequireCronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
