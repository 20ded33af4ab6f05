package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
)

type MemoryNotificationRepository struct {
	notifications map[domain.NotificationID]*domain.Notification
	mu            sync.RWMutex
}

func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{
		notifications: make(map[domain.NotificationID]*domain.Notification),
	}
}

func (r *MemoryNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notifications[n.ID]; exists {
		return fmt.Errorf("notification already exists: %s", n.ID)
	}
	cp := *n
	r.notifications[n.ID] = &cp
	return nil
}

// MarkRead only touches unread rows owned by userID.
func (r *MemoryNotificationRepository) MarkRead(ctx context.Context, userID domain.UserID, ids []domain.NotificationID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for _, id := range ids {
		n, exists := r.notifications[id]
		if !exists || n.UserID != userID || n.IsRead {
			continue
		}
		readAt := at
		n.IsRead = true
		n.ReadAt = &readAt
		n.UpdatedAt = at
		updated++
	}
	return updated, nil
}

func (r *MemoryNotificationRepository) CountUnread(ctx context.Context, userID domain.UserID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// ListByUser returns newest first.
func (r *MemoryNotificationRepository) ListByUser(ctx context.Context, userID domain.UserID, filter domain.NotificationFilter) ([]*domain.Notification, error) {
	r.mu.RLock()
	var matched []*domain.Notification
	for _, n := range r.notifications {
		if n.UserID != userID || (filter.UnreadOnly && n.IsRead) {
			continue
		}
		cp := *n
		matched = append(matched, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset >= len(matched) {
		return []*domain.Notification{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

var _ ports.NotificationRepository = (*MemoryNotificationRepository)(nil)
