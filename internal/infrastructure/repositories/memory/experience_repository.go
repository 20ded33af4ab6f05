package memory

import (
	"context"
	"sync"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
)

type MemoryExperienceRepository struct {
	experiences map[domain.ExperienceID]domain.Experience
	mu          sync.RWMutex
}

func NewMemoryExperienceRepository() *MemoryExperienceRepository {
	return &MemoryExperienceRepository{
		experiences: make(map[domain.ExperienceID]domain.Experience),
	}
}

func (r *MemoryExperienceRepository) Save(exp domain.Experience) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if exp.Status == "" {
		exp.Status = domain.StatusPending
	}
	r.experiences[exp.ID] = exp
}

func (r *MemoryExperienceRepository) GetByID(ctx context.Context, id domain.ExperienceID) (*domain.Experience, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exp, exists := r.experiences[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return &exp, nil
}

func (r *MemoryExperienceRepository) UpdateVerification(ctx context.Context, update domain.VerificationUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, exists := r.experiences[update.ExperienceID]
	if !exists || exp.OrganizationID != update.OrganizationID {
		return domain.ErrNotFound
	}

	at := update.At
	exp.Status = update.Status
	exp.VerifiedBy = update.VerifiedBy
	exp.VerifiedAt = &at
	exp.VerificationNote = update.Note
	r.experiences[exp.ID] = exp
	return nil
}

var _ ports.ExperienceRepository = (*MemoryExperienceRepository)(nil)
