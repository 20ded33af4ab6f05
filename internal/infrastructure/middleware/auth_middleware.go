package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
	"experiencehub/pkg/errors"
	"experiencehub/pkg/logger"
)

const identityKey = "identity"

// IdentityFrom returns the identity stored by AuthMiddleware.
func IdentityFrom(c *gin.Context) (*domain.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*domain.Identity)
	return identity, ok && identity != nil
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func setIdentity(c *gin.Context, identity *domain.Identity) {
	c.Set(identityKey, identity)
	ctx := logger.WithValue(c.Request.Context(), logger.UserIDKey, string(identity.UserID))
	c.Request = c.Request.WithContext(ctx)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   string(errors.ErrCodeUnauthorized),
		"message": message,
	})
}

func AuthMiddleware(authenticator ports.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			abortUnauthorized(c, "authorization header required")
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		identity, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil || identity == nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			abortUnauthorized(c, "authentication required")
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   string(errors.ErrCodeForbidden),
			"message": "insufficient permissions",
		})
	}
}
