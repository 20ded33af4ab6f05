package services

import (
	"context"
	"fmt"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"

	"go.uber.org/zap"
)

// ConnectionAuthenticator resolves a socket credential to an identity. An
// empty token yields (nil, nil); callers treat any error as anonymous.
type ConnectionAuthenticator struct {
	auth   AuthService
	users  ports.UserRepository
	logger *zap.SugaredLogger
}

func NewConnectionAuthenticator(auth AuthService, users ports.UserRepository, logger *zap.SugaredLogger) *ConnectionAuthenticator {
	return &ConnectionAuthenticator{
		auth:   auth,
		users:  users,
		logger: logger,
	}
}

func (a *ConnectionAuthenticator) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, nil
	}

	claims, err := a.auth.ValidateToken(token)
	if err != nil {
		a.logger.Warnw("Socket credential rejected, continuing anonymously", "error", err)
		return nil, err
	}

	identity, err := a.users.GetIdentity(ctx, claims.UserID)
	if err != nil {
		a.logger.Warnw("Identity lookup failed, continuing anonymously",
			"user_id", claims.UserID,
			"error", err,
		)
		return nil, fmt.Errorf("lookup identity %s: %w", claims.UserID, err)
	}

	return identity, nil
}

var _ ports.Authenticator = (*ConnectionAuthenticator)(nil)
