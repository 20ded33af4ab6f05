package http

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
	"experiencehub/internal/infrastructure/middleware"
	"experiencehub/pkg/errors"
)

// respondError attaches the AppError that matches err; the error handler
// middleware renders it.
func respondError(c *gin.Context, err error) {
	_ = c.Error(toAppError(err))
}

func toAppError(err error) *errors.AppError {
	if appErr := errors.GetAppError(err); appErr != nil {
		return appErr
	}
	switch {
	case stderrors.Is(err, domain.ErrNotFound):
		return errors.WrapError(err, errors.ErrCodeNotFound, "resource not found", http.StatusNotFound)
	case stderrors.Is(err, domain.ErrForbidden):
		return errors.WrapError(err, errors.ErrCodeForbidden, "insufficient permissions", http.StatusForbidden)
	case stderrors.Is(err, domain.ErrUnauthorized),
		stderrors.Is(err, domain.ErrInvalidToken),
		stderrors.Is(err, domain.ErrExpiredToken):
		return errors.WrapError(err, errors.ErrCodeUnauthorized, "authentication required", http.StatusUnauthorized)
	case stderrors.Is(err, domain.ErrInvalidPayload):
		return errors.WrapError(err, errors.ErrCodeInvalidInput, err.Error(), http.StatusBadRequest)
	}
	return errors.NewInternalError(err)
}

func requireIdentity(c *gin.Context) (*domain.Identity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, errors.NewUnauthorizedError("authentication required"))
		return nil, false
	}
	return identity, true
}

var (
	_ ports.NotificationHTTPHandler = (*NotificationHandler)(nil)
	_ ports.ExperienceHTTPHandler   = (*ExperienceHandler)(nil)
	_ ports.PresenceHTTPHandler     = (*PresenceHandler)(nil)
)
