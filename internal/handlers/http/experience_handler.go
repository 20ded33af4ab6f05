package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
	"experiencehub/internal/infrastructure/middleware"
	"experiencehub/pkg/errors"
	"experiencehub/pkg/validation"
)

type ExperienceHandler struct {
	verification ports.VerificationService
}

func NewExperienceHandler(verification ports.VerificationService) *ExperienceHandler {
	return &ExperienceHandler{verification: verification}
}

func (h *ExperienceHandler) SetupRoutes(api *gin.RouterGroup) {
	api.POST("/experiences/:id/verify", middleware.RequireRole(domain.RoleOrganization), h.VerifyExperience)
}

type verifyRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// VerifyExperience runs the same flow as the experience:verify socket event,
// so the student and the organization get the same two live updates.
func (h *ExperienceHandler) VerifyExperience(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := validation.ValidateID(id, "experience id"); err != nil {
		respondError(c, errors.NewInvalidInputError(err.Error()))
		return
	}

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewInvalidInputError("invalid request format"))
		return
	}
	status, err := domain.ParseVerificationStatus(req.Status)
	if err != nil {
		respondError(c, errors.NewInvalidInputError("status must be one of PENDING, APPROVED, REJECTED"))
		return
	}
	if err := validation.ValidateStringLength(req.Note, 0, validation.MaxMessageLength, "note"); err != nil {
		respondError(c, errors.NewInvalidInputError(err.Error()))
		return
	}

	result, err := h.verification.Verify(c.Request.Context(), *identity, domain.ExperienceID(id), status, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"experienceId":   result.Experience.ID,
		"status":         result.Experience.Status,
		"verifiedAt":     result.Experience.VerifiedAt,
		"notificationId": result.NotificationID,
	})
}
