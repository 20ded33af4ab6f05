package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"

	"go.uber.org/zap"
)

// VerificationService applies an organization's verdict to an experience and
// emits exactly two broadcasts: one to the student's user room and one to the
// organization room.
type VerificationService struct {
	experiences   ports.ExperienceRepository
	notifications ports.NotificationService
	broadcaster   ports.Broadcaster
	logger        *zap.SugaredLogger
	now           func() time.Time
}

func NewVerificationService(
	experiences ports.ExperienceRepository,
	notifications ports.NotificationService,
	broadcaster ports.Broadcaster,
	logger *zap.SugaredLogger,
) *VerificationService {
	return &VerificationService{
		experiences:   experiences,
		notifications: notifications,
		broadcaster:   broadcaster,
		logger:        logger,
		now:           time.Now,
	}
}

type verificationUpdatePayload struct {
	ExperienceID   domain.ExperienceID       `json:"experienceId"`
	Title          string                    `json:"title"`
	Status         domain.VerificationStatus `json:"status"`
	VerifiedBy     domain.UserID             `json:"verifiedBy"`
	Note           string                    `json:"note,omitempty"`
	NotificationID domain.NotificationID     `json:"notificationId,omitempty"`
	Timestamp      time.Time                 `json:"timestamp"`
}

type experienceVerifiedPayload struct {
	ExperienceID domain.ExperienceID       `json:"experienceId"`
	StudentID    domain.StudentID          `json:"studentId"`
	Status       domain.VerificationStatus `json:"status"`
	VerifiedBy   domain.UserID             `json:"verifiedBy"`
	Timestamp    time.Time                 `json:"timestamp"`
}

func (s *VerificationService) Verify(
	ctx context.Context,
	caller domain.Identity,
	id domain.ExperienceID,
	status domain.VerificationStatus,
	note string,
) (*domain.VerificationResult, error) {
	if !caller.IsOrganization() {
		return nil, domain.ErrForbidden
	}

	exp, err := s.experiences.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load experience %s: %w", id, err)
	}
	if exp.OrganizationID != caller.OrganizationID {
		return nil, fmt.Errorf("experience %s: %w", id, domain.ErrForbidden)
	}

	now := s.now().UTC()
	update := domain.VerificationUpdate{
		ExperienceID:   exp.ID,
		OrganizationID: caller.OrganizationID,
		Status:         status,
		VerifiedBy:     caller.UserID,
		Note:           strings.TrimSpace(note),
		At:             now,
	}
	if err := s.experiences.UpdateVerification(ctx, update); err != nil {
		return nil, fmt.Errorf("update verification %s: %w", id, err)
	}

	exp.Status = status
	exp.VerifiedBy = caller.UserID
	exp.VerifiedAt = &now
	exp.VerificationNote = update.Note

	result := &domain.VerificationResult{Experience: exp}

	// durable copy for a student who is offline; the live push below is the
	// verification update itself, not notification:new
	if exp.StudentUserID != "" {
		n, err := s.notifications.Create(ctx, domain.NewNotification{
			UserID:    exp.StudentUserID,
			Title:     "Experience verification update",
			Message:   fmt.Sprintf("Your experience %q was marked %s", exp.Title, strings.ToLower(string(status))),
			Type:      domain.NotificationVerification,
			ActionURL: "/experiences/" + string(exp.ID),
			Metadata: map[string]interface{}{
				"experienceId": string(exp.ID),
				"status":       string(status),
			},
		})
		if err != nil {
			s.logger.Errorw("Failed to persist verification notification",
				"experience_id", exp.ID,
				"user_id", exp.StudentUserID,
				"error", err,
			)
		} else {
			result.NotificationID = n.ID
		}

		if err := s.broadcaster.SendToUser(ctx, exp.StudentUserID, domain.EventVerificationUpdate, verificationUpdatePayload{
			ExperienceID:   exp.ID,
			Title:          exp.Title,
			Status:         status,
			VerifiedBy:     caller.UserID,
			Note:           update.Note,
			NotificationID: result.NotificationID,
			Timestamp:      now,
		}); err != nil {
			s.logger.Warnw("Verification update broadcast failed", "experience_id", exp.ID, "error", err)
		}
	} else {
		s.logger.Warnw("Experience has no student user, skipping student broadcast", "experience_id", exp.ID)
	}

	if err := s.broadcaster.SendToOrganization(ctx, caller.OrganizationID, domain.EventExperienceVerified, experienceVerifiedPayload{
		ExperienceID: exp.ID,
		StudentID:    exp.StudentID,
		Status:       status,
		VerifiedBy:   caller.UserID,
		Timestamp:    now,
	}); err != nil {
		s.logger.Warnw("Experience verified broadcast failed", "experience_id", exp.ID, "error", err)
	}

	s.logger.Infow("Experience verification applied",
		"experience_id", exp.ID,
		"organization_id", caller.OrganizationID,
		"status", status,
	)
	return result, nil
}

var _ ports.VerificationService = (*VerificationService)(nil)
