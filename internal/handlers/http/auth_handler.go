package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthHandler exposes the identity the service resolved from a token. Tokens
// are issued by the main API; this service only validates them.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

func (h *AuthHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/auth/me", h.Me)
}

func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	body := gin.H{
		"userId": identity.UserID,
		"email":  identity.Email,
		"role":   identity.Role,
	}
	if identity.OrganizationID != "" {
		body["organizationId"] = identity.OrganizationID
	}
	if identity.StudentID != "" {
		body["studentId"] = identity.StudentID
	}
	c.JSON(http.StatusOK, body)
}
