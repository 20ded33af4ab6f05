package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
	"experiencehub/internal/infrastructure/middleware"
	"experiencehub/pkg/errors"
	"experiencehub/pkg/validation"
)

type NotificationHandler struct {
	notifications ports.NotificationService
	broadcaster   ports.Broadcaster
	logger        *zap.SugaredLogger
}

func NewNotificationHandler(
	notifications ports.NotificationService,
	broadcaster ports.Broadcaster,
	logger *zap.SugaredLogger,
) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		broadcaster:   broadcaster,
		logger:        logger,
	}
}

// SetupRoutes expects api to already run AuthMiddleware.
func (h *NotificationHandler) SetupRoutes(api *gin.RouterGroup) {
	notifications := api.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.PATCH("/read", h.MarkRead)
		notifications.POST("", middleware.RequireRole(domain.RoleAdmin), h.CreateNotification)
	}
}

func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	filter := domain.NotificationFilter{
		Limit:      queryInt(c, "limit", domain.DefaultNotificationLimit),
		Offset:     queryInt(c, "offset", 0),
		UnreadOnly: c.Query("unread") == "true",
	}

	list, err := h.notifications.List(c.Request.Context(), identity.UserID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	filter = filter.Normalize()
	c.JSON(http.StatusOK, gin.H{
		"notifications": list,
		"limit":         filter.Limit,
		"offset":        filter.Offset,
	})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	count, err := h.notifications.UnreadCount(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

type markReadRequest struct {
	NotificationIDs []string `json:"notificationIds"`
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewInvalidInputError("invalid request format"))
		return
	}
	if err := validation.ValidateNotificationIDs(req.NotificationIDs); err != nil {
		respondError(c, errors.NewInvalidInputError(err.Error()))
		return
	}

	ids := make([]domain.NotificationID, len(req.NotificationIDs))
	for i, id := range req.NotificationIDs {
		ids[i] = domain.NotificationID(id)
	}

	updated, err := h.notifications.MarkRead(c.Request.Context(), identity.UserID, ids)
	if err != nil {
		respondError(c, err)
		return
	}

	// Other tabs of the same user refresh their badge.
	payload := gin.H{"notificationIds": req.NotificationIDs, "updated": updated}
	if err := h.broadcaster.SendToUser(c.Request.Context(), identity.UserID, domain.EventNotificationReadOK, payload); err != nil {
		h.logger.Warnw("failed to broadcast read receipt", "user_id", identity.UserID, "error", err)
	}

	c.JSON(http.StatusOK, payload)
}

type createNotificationRequest struct {
	UserID    string                 `json:"userId" binding:"required"`
	Title     string                 `json:"title" binding:"required"`
	Message   string                 `json:"message" binding:"required"`
	Type      string                 `json:"type"`
	ActionURL string                 `json:"actionUrl"`
	Metadata  map[string]interface{} `json:"metadata"`
}

func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewInvalidInputError("invalid request format"))
		return
	}
	if err := validation.ValidateID(req.UserID, "userId"); err != nil {
		respondError(c, errors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateStringLength(req.Message, 1, validation.MaxMessageLength, "message"); err != nil {
		respondError(c, errors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateActionURL(req.ActionURL); err != nil {
		respondError(c, errors.NewInvalidInputError(err.Error()))
		return
	}

	n, err := h.notifications.Create(c.Request.Context(), domain.NewNotification{
		UserID:    domain.UserID(req.UserID),
		Title:     req.Title,
		Message:   req.Message,
		Type:      domain.NotificationType(req.Type),
		ActionURL: req.ActionURL,
		Metadata:  req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.broadcaster.SendToUser(c.Request.Context(), n.UserID, domain.EventNotificationNew, n); err != nil {
		h.logger.Warnw("failed to push notification", "notification_id", n.ID, "user_id", n.UserID, "error", err)
	}

	c.JSON(http.StatusCreated, gin.H{"notification": n})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
