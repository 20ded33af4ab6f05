package ports

import (
	"context"
	"time"

	"experiencehub/internal/core/domain"
)

// UserRepository resolves a credential subject to a full identity,
// including the role specific profile reference.
type UserRepository interface {
	GetIdentity(ctx context.Context, id domain.UserID) (*domain.Identity, error)
}

type ExperienceRepository interface {
	GetByID(ctx context.Context, id domain.ExperienceID) (*domain.Experience, error)
	// UpdateVerification is scoped to update.OrganizationID and returns
	// domain.ErrNotFound when no row matched.
	UpdateVerification(ctx context.Context, update domain.VerificationUpdate) error
}

type PortfolioRepository interface {
	GetOwner(ctx context.Context, id domain.PortfolioID) (domain.UserID, error)
	RecordView(ctx context.Context, view *domain.PortfolioView) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	// MarkRead flips unread rows owned by userID and returns the number changed.
	MarkRead(ctx context.Context, userID domain.UserID, ids []domain.NotificationID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID domain.UserID) (int64, error)
	ListByUser(ctx context.Context, userID domain.UserID, filter domain.NotificationFilter) ([]*domain.Notification, error)
}

// PresenceRepository tracks room membership across every instance.
type PresenceRepository interface {
	Join(ctx context.Context, room domain.RoomName, member domain.PresenceMember) error
	Leave(ctx context.Context, room domain.RoomName, member domain.PresenceMember) error
	// Count is the number of live connections in room.
	Count(ctx context.Context, room domain.RoomName) (int64, error)
	// OnlineUsers is the number of distinct authenticated users with at
	// least one live connection in room.
	OnlineUsers(ctx context.Context, room domain.RoomName) (int64, error)
}
