package ports

import (
	"context"

	"experiencehub/internal/core/domain"
)

// Broadcaster is the directed-send facade shared by socket handlers and
// REST handlers. Delivery is best effort; nothing is queued for offline users.
type Broadcaster interface {
	SendToUser(ctx context.Context, userID domain.UserID, event string, payload interface{}) error
	SendToOrganization(ctx context.Context, orgID domain.OrganizationID, event string, payload interface{}) error
	SendToStudent(ctx context.Context, studentID domain.StudentID, event string, payload interface{}) error
	SendToAll(ctx context.Context, event string, payload interface{}) error
	SendToRole(ctx context.Context, role domain.UserRole, event string, payload interface{}) error
	SendToRoom(ctx context.Context, room domain.RoomName, event string, payload interface{}, except domain.ConnID) error
}

// Authenticator turns an optional bearer credential into an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)
}

type NotificationService interface {
	Create(ctx context.Context, n domain.NewNotification) (*domain.Notification, error)
	// RecordPortfolioView never fails the caller; it returns nil when the
	// write did not happen.
	RecordPortfolioView(ctx context.Context, portfolioID domain.PortfolioID, viewer *domain.UserID, client domain.ClientMetadata) *domain.PortfolioView
	MarkRead(ctx context.Context, userID domain.UserID, ids []domain.NotificationID) (int64, error)
	UnreadCount(ctx context.Context, userID domain.UserID) (int64, error)
	List(ctx context.Context, userID domain.UserID, filter domain.NotificationFilter) ([]*domain.Notification, error)
}

type VerificationService interface {
	Verify(ctx context.Context, caller domain.Identity, id domain.ExperienceID, status domain.VerificationStatus, note string) (*domain.VerificationResult, error)
}

type PortfolioOwnerResolver interface {
	ResolveOwner(ctx context.Context, id domain.PortfolioID) (domain.UserID, error)
}
