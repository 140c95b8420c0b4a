package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Badr070118/lupeti-project-sub000/common/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	UserContextKey  = "userID"
	RoleContextKey  = "role"
	EmailContextKey = "email"
)

// AuthMiddleware resolves the caller from a bearer token. When trustHeaders is
// set, identity headers injected by the API gateway are accepted as a fallback.
func AuthMiddleware(verifier *auth.TokenVerifier, trustHeaders bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID, role, email string

		if bearer := strings.TrimSpace(c.GetHeader("Authorization")); strings.HasPrefix(bearer, "Bearer ") {
			identity, err := verifier.IdentityFromToken(strings.TrimPrefix(bearer, "Bearer "))
			if err != nil {
				abortUnauthorized(c)
				return
			}
			userID, role, email = identity.UserID, identity.Role, identity.Email
		} else if trustHeaders {
			userID = c.GetHeader("X-User-ID")
			role = c.GetHeader("X-User-Role")
			email = c.GetHeader("X-User-Email")
		}

		if _, err := uuid.Parse(userID); err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(UserContextKey, userID)
		c.Set(RoleContextKey, role)
		c.Set(EmailContextKey, email)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": "UNAUTHORIZED", "message": "Unauthorized"},
	})
}

// GetUserID extracts the authenticated user ID from the Gin context.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return uuid.Parse(id)
		}
	}
	return uuid.Nil, errors.New("user ID not found in context")
}

// AdminOnly restricts access to admin role.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleContextKey) != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"code": "FORBIDDEN", "message": "Admin role required"},
			})
			return
		}
		c.Next()
	}
}
