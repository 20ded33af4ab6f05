package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
	"experiencehub/pkg/errors"
	"experiencehub/pkg/validation"
)

type PresenceHandler struct {
	presence ports.PresenceRepository
}

func NewPresenceHandler(presence ports.PresenceRepository) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

func (h *PresenceHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/presence/organizations/:id", h.OrganizationPresence)
}

// OrganizationPresence is visible to admins and to members of the organization.
func (h *PresenceHandler) OrganizationPresence(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	orgID := c.Param("id")
	if err := validation.ValidateID(orgID, "organization id"); err != nil {
		respondError(c, errors.NewInvalidInputError(err.Error()))
		return
	}
	if !identity.IsAdmin() && identity.OrganizationID != domain.OrganizationID(orgID) {
		respondError(c, errors.NewForbiddenError("not a member of this organization"))
		return
	}

	room := domain.OrganizationRoom(domain.OrganizationID(orgID))
	users, err := h.presence.OnlineUsers(c.Request.Context(), room)
	if err != nil {
		respondError(c, err)
		return
	}
	connections, err := h.presence.Count(c.Request.Context(), room)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"organizationId": orgID,
		"onlineUsers":    users,
		"connections":    connections,
	})
}
