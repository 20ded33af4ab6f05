package memory

import (
	"context"
	"sync"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
)

type MemoryUserRepository struct {
	identities map[domain.UserID]domain.Identity
	mu         sync.RWMutex
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		identities: make(map[domain.UserID]domain.Identity),
	}
}

// Save stores or replaces the identity for a user.
func (r *MemoryUserRepository) Save(identity domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identities[identity.UserID] = identity
}

func (r *MemoryUserRepository) GetIdentity(ctx context.Context, id domain.UserID) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, exists := r.identities[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return &identity, nil
}

var _ ports.UserRepository = (*MemoryUserRepository)(nil)
