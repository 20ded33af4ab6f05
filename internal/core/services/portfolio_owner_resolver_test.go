package services

import (
	"context"
	"testing"
	"time"

	"experiencehub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCachedOwnerResolver(t *testing.T) {
	portfolios := new(MockPortfolioRepository)
	portfolios.On("GetOwner", mock.Anything, domain.PortfolioID("p1")).Return(domain.UserID("u1"), nil).Once()
	portfolios.On("GetOwner", mock.Anything, domain.PortfolioID("missing")).Return(domain.UserID(""), domain.ErrNotFound)

	r := NewCachedOwnerResolver(portfolios, time.Minute)

	for i := 0; i < 3; i++ {
		owner, err := r.ResolveOwner(context.Background(), "p1")
		assert.NoError(t, err)
		assert.Equal(t, domain.UserID("u1"), owner)
	}
	portfolios.AssertNumberOfCalls(t, "GetOwner", 1)

	_, err := r.ResolveOwner(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = r.ResolveOwner(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	portfolios.AssertNumberOfCalls(t, "GetOwner", 3)
}
