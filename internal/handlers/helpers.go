package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nexus-social/backend/internal/apperr"
	"github.com/nexus-social/backend/internal/logger"
	"github.com/nexus-social/backend/internal/models"
)

// currentUser returns the authenticated user placed in the context by
// AuthMiddleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "not_authenticated",
			"message": "user not authenticated",
		})
		return nil, false
	}
	return user.(*models.User), true
}

// respondError translates service errors into JSON responses. Typed errors
// map to their HTTP status; anything else is a 500 with the detail kept out
// of the response body.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperr.As(err); ok {
		body := gin.H{
			"error":   strings.ToLower(string(appErr.Code)),
			"message": appErr.Message,
		}
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
		c.JSON(appErr.Status(), body)
		return
	}

	logger.ErrorWithFields("request failed", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": "Something went wrong",
	})
}
