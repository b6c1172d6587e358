package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nexus-social/backend/internal/logger"
	"go.uber.org/zap"
)

// AuthMiddleware validates the bearer token and loads the authenticated
// user into the request context under "user".
func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "not_authenticated",
				"message": "no token provided",
			})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		user, err := h.auth.ValidateToken(token)
		if err != nil {
			logger.Log.Debug("token validation failed", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}
