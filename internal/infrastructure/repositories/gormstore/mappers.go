package gormstore

import (
	"encoding/json"

	"experiencehub/internal/core/domain"
)

func notificationToModel(n *domain.Notification) (*NotificationModel, error) {
	m := &NotificationModel{
		ID:        string(n.ID),
		UserID:    string(n.UserID),
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		ActionURL: n.ActionURL,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if len(n.Metadata) > 0 {
		raw, err := json.Marshal(n.Metadata)
		if err != nil {
			return nil, err
		}
		meta := string(raw)
		m.Metadata = &meta
	}
	return m, nil
}

// notificationFromModel tolerates malformed metadata by dropping it.
func notificationFromModel(m *NotificationModel) *domain.Notification {
	n := &domain.Notification{
		ID:        domain.NotificationID(m.ID),
		UserID:    domain.UserID(m.UserID),
		Title:     m.Title,
		Message:   m.Message,
		Type:      domain.NotificationType(m.Type),
		ActionURL: m.ActionURL,
		IsRead:    m.IsRead,
		ReadAt:    m.ReadAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Metadata != nil && *m.Metadata != "" {
		var meta map[string]interface{}
		if err := json.Unmarshal([]byte(*m.Metadata), &meta); err == nil {
			n.Metadata = meta
		}
	}
	return n
}

func portfolioViewToModel(v *domain.PortfolioView) *PortfolioViewModel {
	m := &PortfolioViewModel{
		ID:          v.ID,
		PortfolioID: string(v.PortfolioID),
		IPAddress:   v.Client.IPAddress,
		UserAgent:   v.Client.UserAgent,
		Referrer:    v.Client.Referrer,
		ViewedAt:    v.ViewedAt,
	}
	if v.ViewerID != nil {
		id := string(*v.ViewerID)
		m.ViewerID = &id
	}
	return m
}

type ownerRow struct {
	UserID string
}

type experienceRow struct {
	ExperienceModel
	StudentUserID *string
}

func experienceFromRow(r *experienceRow) *domain.Experience {
	exp := &domain.Experience{
		ID:               domain.ExperienceID(r.ID),
		Title:            r.Title,
		OrganizationID:   domain.OrganizationID(r.OrganizationID),
		StudentID:        domain.StudentID(r.StudentID),
		Status:           domain.VerificationStatus(r.Status),
		VerifiedAt:       r.VerifiedAt,
		VerificationNote: r.VerificationNote,
	}
	if r.VerifiedBy != nil {
		exp.VerifiedBy = domain.UserID(*r.VerifiedBy)
	}
	if r.StudentUserID != nil {
		exp.StudentUserID = domain.UserID(*r.StudentUserID)
	}
	return exp
}
