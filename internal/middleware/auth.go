package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"urna/internal/models"
	"urna/internal/services"
)

const UserKey = "user"

// SessionHeader carries the opaque token issued at login.
const SessionHeader = "X-Session-ID"

// AuthRequired resolves the session header to a user and sets it in the
// request context. Missing or stale tokens are rejected uniformly.
func AuthRequired(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(SessionHeader))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Sessão não informada",
			})
			return
		}
		user, err := auth.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Sessão inválida ou expirada",
			})
			return
		}
		c.Set(UserKey, user)
		c.Next()
	}
}

// AdminRequired runs after AuthRequired and gates admin-only routes.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Acesso restrito ao administrador",
			})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by AuthRequired, nil when
// the middleware did not run.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
