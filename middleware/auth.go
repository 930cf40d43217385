package middleware

import (
	"errors"
	"net/http"
	"strings"

	"backoffice-service/common/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	UserContextKey = "userID"
	RoleContextKey = "role"
)

// AuthMiddleware reads the identity header injected by the API gateway.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			// Fallback to cookie-based user_id (set by API gateway)
			if v, err := c.Cookie("user_id"); err == nil && v != "" {
				userID = v
			}
		}

		if _, err := uuid.Parse(userID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Unauthorized: Missing User ID"})
			return
		}

		c.Set(UserContextKey, userID)
		c.Next()
	}
}

// GetUserID extracts the user ID from the Gin context.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	val, exists := c.Get(UserContextKey)
	if !exists {
		return uuid.Nil, errors.New("user ID not found in context")
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return uuid.Nil, errors.New("user ID has invalid type in context")
	}
	return uuid.Parse(s)
}

// AdminAuth accepts a Bearer access token issued by auth-service whose role
// claim is "admin". Catalogue writes go through it.
func AdminAuth(verifier *auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Missing bearer token"})
			return
		}

		claims, err := verifier.Verify(token, "access")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Invalid or expired token"})
			return
		}

		role := claims.Role
		if role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "Admin role required"})
			return
		}

		if claims.Subject != "" {
			c.Set(UserContextKey, claims.Subject)
		}
		c.Set(RoleContextKey, role)
		c.Next()
	}
}
