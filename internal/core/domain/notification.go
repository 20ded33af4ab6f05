package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type NotificationID string

type NotificationType string

const (
	NotificationInfo         NotificationType = "info"
	NotificationSuccess      NotificationType = "success"
	NotificationWarning      NotificationType = "warning"
	NotificationVerification NotificationType = "experience_verification"
	NotificationPortfolio    NotificationType = "portfolio_view"
	NotificationInvitation   NotificationType = "invitation"
	NotificationAnnouncement NotificationType = "announcement"
)

type Notification struct {
	ID        NotificationID         `json:"id"`
	UserID    UserID                 `json:"userId"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Type      NotificationType       `json:"type"`
	ActionURL string                 `json:"actionUrl,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	IsRead    bool                   `json:"isRead"`
	ReadAt    *time.Time             `json:"readAt,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// NewNotification is the input to the persistence bridge. The recipient is
// fixed here and never changes after the row is written.
type NewNotification struct {
	UserID    UserID
	Title     string
	Message   string
	Type      NotificationType
	ActionURL string
	Metadata  map[string]interface{}
}

func (n NewNotification) Validate() error {
	if n.UserID == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidPayload)
	}
	if strings.TrimSpace(n.Title) == "" || strings.TrimSpace(n.Message) == "" {
		return fmt.Errorf("%w: title and message are required", ErrInvalidPayload)
	}
	if utf8.RuneCountInString(n.Title) > 200 {
		return fmt.Errorf("%w: title too long", ErrInvalidPayload)
	}
	return nil
}

type NotificationFilter struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 100
)

// Normalize clamps paging values.
func (f NotificationFilter) Normalize() NotificationFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultNotificationLimit
	}
	if f.Limit > MaxNotificationLimit {
		f.Limit = MaxNotificationLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
