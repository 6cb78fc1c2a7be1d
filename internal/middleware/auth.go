package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/screenloom/backend/internal/users"
	"github.com/screenloom/backend/pkg/response"
)

// AccessToken returns a middleware that resolves the Bearer token against the
// users table and stores the user in the request context. Tokens are opaque
// and long-lived; they are minted once at registration and reused after.
func AccessToken(repo *users.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		user, err := repo.GetByAccessToken(c.Request.Context(), parts[1])
		if err != nil || user == nil {
			response.Unauthorized(c, "invalid access token")
			c.Abort()
			return
		}
		c.Set(users.ContextUserKey, user)
		c.Next()
	}
}
