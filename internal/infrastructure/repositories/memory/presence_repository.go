package memory

import (
	"context"
	"sync"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
)

// MemoryPresenceRepository tracks room members for a single instance.
type MemoryPresenceRepository struct {
	rooms map[domain.RoomName]map[domain.ConnID]domain.UserID
	mu    sync.RWMutex
}

func NewMemoryPresenceRepository() *MemoryPresenceRepository {
	return &MemoryPresenceRepository{
		rooms: make(map[domain.RoomName]map[domain.ConnID]domain.UserID),
	}
}

func (r *MemoryPresenceRepository) Join(ctx context.Context, room domain.RoomName, member domain.PresenceMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[domain.ConnID]domain.UserID)
		r.rooms[room] = members
	}
	members[member.ConnID] = member.UserID
	return nil
}

func (r *MemoryPresenceRepository) Leave(ctx context.Context, room domain.RoomName, member domain.PresenceMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		return nil
	}
	delete(members, member.ConnID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	return nil
}

func (r *MemoryPresenceRepository) Count(ctx context.Context, room domain.RoomName) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.rooms[room])), nil
}

func (r *MemoryPresenceRepository) OnlineUsers(ctx context.Context, room domain.RoomName) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make(map[domain.UserID]struct{})
	for _, userID := range r.rooms[room] {
		if userID != "" {
			users[userID] = struct{}{}
		}
	}
	return int64(len(users)), nil
}

var _ ports.PresenceRepository = (*MemoryPresenceRepository)(nil)
