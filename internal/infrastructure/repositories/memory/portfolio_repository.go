package memory

import (
	"context"
	"sync"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
)

type MemoryPortfolioRepository struct {
	portfolios map[domain.PortfolioID]domain.Portfolio
	views      []domain.PortfolioView
	mu         sync.RWMutex
}

func NewMemoryPortfolioRepository() *MemoryPortfolioRepository {
	return &MemoryPortfolioRepository{
		portfolios: make(map[domain.PortfolioID]domain.Portfolio),
	}
}

func (r *MemoryPortfolioRepository) Save(p domain.Portfolio) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.portfolios[p.ID] = p
}

func (r *MemoryPortfolioRepository) GetOwner(ctx context.Context, id domain.PortfolioID) (domain.UserID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.portfolios[id]
	if !exists || p.OwnerUserID == "" {
		return "", domain.ErrNotFound
	}
	return p.OwnerUserID, nil
}

// RecordView appends; views are never updated or removed.
func (r *MemoryPortfolioRepository) RecordView(ctx context.Context, view *domain.PortfolioView) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := *view
	if view.ViewerID != nil {
		id := *view.ViewerID
		v.ViewerID = &id
	}
	r.views = append(r.views, v)
	return nil
}

// Views returns a copy of every view recorded for a portfolio.
func (r *MemoryPortfolioRepository) Views(id domain.PortfolioID) []domain.PortfolioView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.PortfolioView
	for _, v := range r.views {
		if v.PortfolioID == id {
			out = append(out, v)
		}
	}
	return out
}

var _ ports.PortfolioRepository = (*MemoryPortfolioRepository)(nil)
