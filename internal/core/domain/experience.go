package domain

import (
	"strings"
	"time"
)

type ExperienceID string

type VerificationStatus string

const (
	StatusPending  VerificationStatus = "PENDING"
	StatusApproved VerificationStatus = "APPROVED"
	StatusRejected VerificationStatus = "REJECTED"
)

// ParseVerificationStatus accepts any case and returns the stored form.
func ParseVerificationStatus(s string) (VerificationStatus, error) {
	switch v := VerificationStatus(strings.ToUpper(strings.TrimSpace(s))); v {
	case StatusPending, StatusApproved, StatusRejected:
		return v, nil
	}
	return "", ErrInvalidStatus
}

type Experience struct {
	ID               ExperienceID
	Title            string
	OrganizationID   OrganizationID
	StudentID        StudentID
	StudentUserID    UserID
	Status           VerificationStatus
	VerifiedBy       UserID
	VerifiedAt       *time.Time
	VerificationNote string
}

type VerificationUpdate struct {
	ExperienceID   ExperienceID
	OrganizationID OrganizationID
	Status         VerificationStatus
	VerifiedBy     UserID
	Note           string
	At             time.Time
}

// VerificationResult is what the verification flow hands back to its caller
// after both broadcasts were issued.
type VerificationResult struct {
	Experience     *Experience
	NotificationID NotificationID
}
