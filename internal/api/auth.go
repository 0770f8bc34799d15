package api

import (
	"context"
	"net/http"
	"strconv"

	"pizza-platform/internal/models"

	"github.com/gin-gonic/gin"
)

// UserLoader resolves a principal id to the authoritative user record.
// Roles come from here at request time, never from anything the client
// declares about itself.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

const principalKey = "principal"

// authMiddleware trusts the upstream auth gateway to have verified the
// session and forwarded the principal id in X-User-ID. The role attached to
// the request is re-read from the user table on every request.
func authMiddleware(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		idHeader := c.GetHeader("X-User-ID")
		if idHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		userID, err := strconv.ParseInt(idHeader, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		c.Set(principalKey, user)
		c.Next()
	}
}

// principal returns the authenticated user set by authMiddleware.
func principal(c *gin.Context) *models.User {
	user, _ := c.Get(principalKey)
	return user.(*models.User)
}
