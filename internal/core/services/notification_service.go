package services

import (
	"context"
	"fmt"
	"time"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
	"experiencehub/pkg/ids"
	"experiencehub/pkg/tracing"

	"go.uber.org/zap"
)

// NotificationService is the persistence bridge for records that must
// outlive a socket session.
type NotificationService struct {
	notifications ports.NotificationRepository
	portfolios    ports.PortfolioRepository
	logger        *zap.SugaredLogger
	now           func() time.Time
}

func NewNotificationService(
	notifications ports.NotificationRepository,
	portfolios ports.PortfolioRepository,
	logger *zap.SugaredLogger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		portfolios:    portfolios,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *NotificationService) Create(ctx context.Context, in domain.NewNotification) (*domain.Notification, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Type == "" {
		in.Type = domain.NotificationInfo
	}

	now := s.now().UTC()
	n := &domain.Notification{
		ID:        domain.NotificationID(ids.NewAt(now)),
		UserID:    in.UserID,
		Title:     in.Title,
		Message:   in.Message,
		Type:      in.Type,
		ActionURL: in.ActionURL,
		Metadata:  in.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("create notification: %w", err)
	}

	s.logger.Debugw("Notification created",
		"notification_id", n.ID,
		"user_id", n.UserID,
		"type", n.Type,
	)
	return n, nil
}

func (s *NotificationService) RecordPortfolioView(
	ctx context.Context,
	portfolioID domain.PortfolioID,
	viewer *domain.UserID,
	client domain.ClientMetadata,
) *domain.PortfolioView {
	now := s.now().UTC()
	view := &domain.PortfolioView{
		ID:          ids.NewAt(now),
		PortfolioID: portfolioID,
		ViewerID:    viewer,
		Client:      client,
		ViewedAt:    now,
	}

	if err := s.portfolios.RecordView(ctx, view); err != nil {
		s.logger.Errorw("Failed to record portfolio view",
			"portfolio_id", portfolioID,
			"error", err,
		)
		return nil
	}
	return view
}

func (s *NotificationService) MarkRead(ctx context.Context, userID domain.UserID, notificationIDs []domain.NotificationID) (int64, error) {
	if userID == "" {
		return 0, domain.ErrUnauthorized
	}
	unique := dedupe(notificationIDs)
	if len(unique) == 0 {
		return 0, nil
	}

	updated, err := s.notifications.MarkRead(ctx, userID, unique, s.now().UTC())
	if err != nil {
		tracing.RecordError(ctx, err)
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return updated, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID domain.UserID) (int64, error) {
	if userID == "" {
		return 0, domain.ErrUnauthorized
	}
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) List(ctx context.Context, userID domain.UserID, filter domain.NotificationFilter) ([]*domain.Notification, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	list, err := s.notifications.ListByUser(ctx, userID, filter.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

func dedupe(in []domain.NotificationID) []domain.NotificationID {
	seen := make(map[domain.NotificationID]struct{}, len(in))
	out := make([]domain.NotificationID, 0, len(in))
	for _, id := range in {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

var _ ports.NotificationService = (*NotificationService)(nil)
