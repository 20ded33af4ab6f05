package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
	"experiencehub/pkg/validation"

	"go.uber.org/zap"
)

// EventHandlers implements every inbound socket event on top of the hub,
// the broadcast facade and the persistence bridge.
type EventHandlers struct {
	hub           *Hub
	broadcaster   ports.Broadcaster
	notifications ports.NotificationService
	verification  ports.VerificationService
	owners        ports.PortfolioOwnerResolver
	logger        *zap.SugaredLogger
	now           func() time.Time
}

func NewEventHandlers(
	hub *Hub,
	broadcaster ports.Broadcaster,
	notifications ports.NotificationService,
	verification ports.VerificationService,
	owners ports.PortfolioOwnerResolver,
	logger *zap.SugaredLogger,
) *EventHandlers {
	return &EventHandlers{
		hub:           hub,
		broadcaster:   broadcaster,
		notifications: notifications,
		verification:  verification,
		owners:        owners,
		logger:        logger,
		now:           time.Now,
	}
}

// Register binds every event. Request/response style events report
// failures to the sender; everything else logs only.
func (h *EventHandlers) Register(r *Router) {
	r.HandleVisible(domain.EventJoinRoom, h.JoinRoom, "Failed to join room")
	r.Handle(domain.EventLeaveRoom, h.LeaveRoom)
	r.Handle(domain.EventStatusUpdate, h.StatusUpdate)
	r.Handle(domain.EventTypingStart, h.TypingStart)
	r.Handle(domain.EventTypingStop, h.TypingStop)
	r.Handle(domain.EventTypingLegacy, h.Typing)
	r.HandleVisible(domain.EventExperienceVerify, h.VerifyExperience, "Failed to verify experience")
	r.Handle(domain.EventExperienceCreated, h.ExperienceCreated)
	r.HandleVisible(domain.EventNotificationRead, h.NotificationRead, "Failed to mark notifications as read")
	r.HandleVisible(domain.EventNotificationCount, h.NotificationCount, "Failed to get notification count")
	r.HandleVisible(domain.EventMarkNotificationRead, h.MarkNotificationRead, "Failed to mark notification as read")
	r.Handle(domain.EventPortfolioView, h.PortfolioView)
	r.Handle(domain.EventPortfolioEditStart, h.PortfolioEditStart)
	r.Handle(domain.EventPortfolioEditStop, h.PortfolioEditStop)
	r.OnDisconnect(h.Disconnected)
	r.Handle(domain.EventOrganizationInvite, h.OrganizationInvite)
	r.Handle(domain.EventOrganizationAnnounce, h.OrganizationAnnouncement)
}

func requireIdentity(req *Request) (*domain.Identity, *Result) {
	if req.Identity == nil {
		res := Unauthorized(errors.New("anonymous connection"))
		return nil, &res
	}
	return req.Identity, nil
}

func requireOrganization(req *Request) (*domain.Identity, *Result) {
	identity, res := requireIdentity(req)
	if res != nil {
		return nil, res
	}
	if !identity.IsOrganization() {
		r := Unauthorized(fmt.Errorf("role %s: %w", identity.Role, domain.ErrForbidden))
		return nil, &r
	}
	return identity, nil
}

func invalidf(format string, args ...interface{}) Result {
	return Invalid(fmt.Errorf("%w: %s", domain.ErrInvalidPayload, fmt.Sprintf(format, args...)))
}

type joinRoomPayload struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type roomJoinedPayload struct {
	Rooms []domain.RoomName `json:"rooms"`
}

// JoinRoom re-joins the caller's identity rooms. The claimed user id must
// match the authenticated one.
func (h *EventHandlers) JoinRoom(ctx context.Context, req *Request) Result {
	var p joinRoomPayload
	if err := req.Bind(&p); err != nil {
		return Invalid(err)
	}
	identity, res := requireIdentity(req)
	if res != nil {
		return *res
	}
	if p.UserID != "" && domain.UserID(p.UserID) != identity.UserID {
		return Unauthorized(fmt.Errorf("join-room for %s by %s: %w", p.UserID, identity.UserID, domain.ErrForbidden))
	}

	rooms := domain.RoomsFor(identity)
	for _, room := range rooms {
		h.hub.Join(ctx, req.ConnID, room)
	}
	return OkReply(domain.EventRoomJoined, roomJoinedPayload{Rooms: rooms})
}

func (h *EventHandlers) LeaveRoom(ctx context.Context, req *Request) Result {
	identity, res := requireIdentity(req)
	if res != nil {
		return *res
	}
	for _, room := range domain.RoomsFor(identity) {
		h.hub.Leave(ctx, req.ConnID, room)
	}
	return Ok()
}

type statusPayload struct {
	Status string `json:"status"`
}

type statusChangedPayload struct {
	UserID    domain.UserID `json:"userId"`
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

func (h *EventHandlers) StatusUpdate(ctx context.Context, req *Request) Result {
	identity, res := requireIdentity(req)
	if res != nil {
		return *res
	}
	var p statusPayload
	if err := req.Bind(&p); err != nil {
		return Invalid(err)
	}
	if err := validation.ValidateStringLength(strings.TrimSpace(p.Status), 1, 64, "status"); err != nil {
		return invalidf("%v", err)
	}

	return FromError(h.broadcaster.SendToUser(ctx, identity.UserID, domain.EventStatusChanged, statusChangedPayload{
		UserID:    identity.UserID,
		Status:    strings.TrimSpace(p.Status),
		Timestamp: h.now().UTC(),
	}))
}

type typingPayload struct {
	ChatID   string `json:"chatId"`
	IsTyping *bool  `json:"isTyping,omitempty"`
}

type typingIndicatorPayload struct {
	UserID   domain.UserID `json:"userId,omitempty"`
	ChatID   string        `json:"chatId"`
	IsTyping bool          `json:"isTyping"`
}

func (h *EventHandlers) TypingStart(ctx context.Context, req *Request) Result {
	return h.relayTyping(ctx, req, domain.EventTypingIndicator, boolPtr(true))
}

func (h *EventHandlers) TypingStop(ctx context.Context, req *Request) Result {
	return h.relayTyping(ctx, req, domain.EventTypingIndicator, boolPtr(false))
}

// Typing is the older single-event form; the flag travels in the payload.
func (h *EventHandlers) Typing(ctx context.Context, req *Request) Result {
	return h.relayTyping(ctx, req, domain.EventUserTyping, nil)
}

// relayTyping joins the sender to the chat room implicitly and notifies
// every other member. The sender never receives its own indicator.
func (h *EventHandlers) relayTyping(ctx context.Context, req *Request, event string, forced *bool) Result {
	var p typingPayload
	if err := req.Bind(&p); err != nil {
		return Invalid(err)
	}
	if err := validation.ValidateChatID(p.ChatID); err != nil {
		return invalidf("%v", err)
	}

	isTyping := forced
	if isTyping == nil {
		isTyping = p.IsTyping
	}
	if isTyping == nil {
		isTyping = boolPtr(true)
	}

	room := domain.ChatRoom(p.ChatID)
	h.hub.Join(ctx, req.ConnID, room)

	out := typingIndicatorPayload{ChatID: p.ChatID, IsTyping: *isTyping}
	if req.Identity != nil {
		out.UserID = req.Identity.UserID
	}
	return FromError(h.broadcaster.SendToRoom(ctx, room, event, out, req.ConnID))
}

type verifyPayload struct {
	ExperienceID string `json:"experienceId"`
	Status       string `json:"status"`
	Note         string `json:"note,omitempty"`
}

func (h *EventHandlers) VerifyExperience(ctx context.Context, req *Request) Result {
	identity, res := requireOrganization(req)
	if res != nil {
		return *res
	}
	var p verifyPayload
	if err := req.Bind(&p); err != nil {
		return Invalid(err)
	}
	if err := validation.ValidateID(p.ExperienceID, "experience ID"); err != nil {
		return invalidf("%v", err)
	}
	status, err := domain.ParseVerificationStatus(p.Status)
	if err != nil {
		return Invalid(err)
	}

	_, err = h.verification.Verify(ctx, *identity, domain.ExperienceID(p.ExperienceID), status, p.Note)
	return FromError(err)
}

type experienceCreatedPayload struct {
	Experience json.RawMessage `json:"experience"`
}

type experienceNewPayload struct {
	Experience     json.RawMessage       `json:"experience"`
	OrganizationID domain.OrganizationID `json:"organizationId"`
	CreatedBy      domain.UserID         `json:"createdBy"`
	Timestamp      time.Time             `json:"timestamp"`
}

func (h *EventHandlers) ExperienceCreated(ctx context.Context, req *Request) Result {
	identity, res := requireOrganization(req)
	if res != nil {
		return *res
	}
	var p experienceCreatedPayload
	if err := req.Bind(&p); err != nil {
		return Invalid(err)
	}
	if len(p.Experience) == 0 || string(p.Experience) == "null" {
		return invalidf("experience is required")
	}

	return FromError(h.broadcaster.SendToOrganization(ctx, identity.OrganizationID, domain.EventExperienceNew, experienceNewPayload{
		Experience:     p.Experience,
		OrganizationID: identity.OrganizationID,
		CreatedBy:      identity.UserID,
		Timestamp:      h.now().UTC(),
	}))
}

type notificationReadPayload struct {
	NotificationIDs []string `json:"notificationIds"`
}

type notificationReadSuccessPayload struct {
	NotificationIDs []string `json:"notificationIds"`
	Updated         int64    `json:"updated"`
}

func (h *EventHandlers) NotificationRead(ctx context.Context, req *Request) Result {
	identity, res := requireIdentity(req)
	if res != nil {
		return *res
	}
	var p notificationReadPayload
	if err := req.Bind(&p); err != nil {
		return Invalid(err)
	}
	if err := validation.ValidateNotificationIDs(p.NotificationIDs); err != nil {
		return invalidf("%v", err)
	}

	updated, err := h.notifications.MarkRead(ctx, identity.UserID, toNotificationIDs(p.NotificationIDs))
	if err != nil {
		return FromError(err)
	}
	return OkReply(domain.EventNotificationReadOK, notificationReadSuccessPayload{
		NotificationIDs: p.NotificationIDs,
		Updated:         updated,
	})
}

type markNotificationReadPayload struct {
	NotificationID string `json:"notificationId"`
}

type notificationReadLegacyPayload struct {
	NotificationID string `json:"notificationId"`
	Updated        bool   `json:"updated"`
}

func (h *EventHandlers) MarkNotificationRead(ctx context.Context, req *Request) Result {
	identity, res := requireIdentity(req)
	if res != nil {
		return *res
	}
	var p markNotificationReadPayload
	if err := req.Bind(&p); err != nil {
		return Invalid(err)
	}
	if err := validation.ValidateID(p.NotificationID, "notification ID"); err != nil {
		return invalidf("%v", err)
	}

	updated, err := h.notifications.MarkRead(ctx, identity.UserID, []domain.NotificationID{domain.NotificationID(p.NotificationID)})
	if err != nil {
		return FromError(err)
	}
	return OkReply(domain.EventNotificationReadLegacy, notificationReadLegacyPayload{
		NotificationID: p.NotificationID,
		Updated:        updated > 0,
	})
}

type notificationCountPayload struct {
	Count int64 `json:"count"`
}

func (h *EventHandlers) NotificationCount(ctx context.Context, req *Request) Result {
	identity, res := requireIdentity(req)
	if res != nil {
		return *res
	}
	count, err := h.notifications.UnreadCount(ctx, identity.UserID)
	if err != nil {
		return FromError(err)
	}
	return OkReply(domain.EventNotificationCountOut, notificationCountPayload{Count: count})
}

type portfolioViewPayload struct {
	PortfolioID string `json:"portfolioId"`
	Referrer    string `json:"referrer,omitempty"`
}

type portfolioViewNewPayload struct {
	ViewID      string             `json:"viewId"`
	PortfolioID domain.PortfolioID `json:"portfolioId"`
	ViewerID    *domain.UserID     `json:"viewerId"`
	ViewedAt    time.Time          `json:"viewedAt"`
}

// PortfolioView works for anonymous connections. Recording the view is
// best effort and never stops the owner notification.
func (h *EventHandlers) PortfolioView(ctx context.Context, req *Request) Result {
	var p portfolioViewPayload
	if err := req.Bind(&p); err != nil {
		return Invalid(err)
	}
	if err := validation.ValidateID(p.PortfolioID, "portfolio ID"); err != nil {
		return invalidf("%v", err)
	}
	portfolioID := domain.PortfolioID(p.PortfolioID)

	var viewer *domain.UserID
	if req.Identity != nil {
		id := req.Identity.UserID
		viewer = &id
	}
	client := req.Client
	if p.Referrer != "" {
		client.Referrer = p.Referrer
	}

	view := h.notifications.RecordPortfolioView(ctx, portfolioID, viewer, client)

	owner, err := h.owners.ResolveOwner(ctx, portfolioID)
	if err != nil {
		return FromError(err)
	}
	if viewer != nil && *viewer == owner {
		return Ok()
	}

	out := portfolioViewNewPayload{
		PortfolioID: portfolioID,
		ViewerID:    viewer,
		ViewedAt:    h.now().UTC(),
	}
	if view != nil {
		out.ViewID = view.ID
		out.ViewedAt = view.ViewedAt
	}
	return FromError(h.broadcaster.SendToUser(ctx, owner, domain.EventPortfolioViewNew, out))
}

type portfolioEditPayload struct {
	PortfolioID string `json:"portfolioId"`
}

type portfolioEditorPayload struct {
	PortfolioID domain.PortfolioID `json:"portfolioId"`
	UserID      domain.UserID      `json:"userId,omitempty"`
	ConnID      domain.ConnID      `json:"connectionId"`
	Timestamp   time.Time          `json:"timestamp"`
}

func (h *EventHandlers) PortfolioEditStart(ctx context.Context, req *Request) Result {
	return h.portfolioEdit(ctx, req, true)
}

func (h *EventHandlers) PortfolioEditStop(ctx context.Context, req *Request) Result {
	return h.portfolioEdit(ctx, req, false)
}

func (h *EventHandlers) portfolioEdit(ctx context.Context, req *Request, joining bool) Result {
	var p portfolioEditPayload
	if err := req.Bind(&p); err != nil {
		return Invalid(err)
	}
	if err := validation.ValidateID(p.PortfolioID, "portfolio ID"); err != nil {
		return invalidf("%v", err)
	}
	portfolioID := domain.PortfolioID(p.PortfolioID)
	room := domain.PortfolioEditRoom(portfolioID)

	out := portfolioEditorPayload{
		PortfolioID: portfolioID,
		ConnID:      req.ConnID,
		Timestamp:   h.now().UTC(),
	}
	if req.Identity != nil {
		out.UserID = req.Identity.UserID
	}

	if joining {
		h.hub.Join(ctx, req.ConnID, room)
		return FromError(h.broadcaster.SendToRoom(ctx, room, domain.EventPortfolioEditJoined, out, req.ConnID))
	}
	if !h.hub.Leave(ctx, req.ConnID, room) {
		return Ok()
	}
	return FromError(h.broadcaster.SendToRoom(ctx, room, domain.EventPortfolioEditLeft, out, req.ConnID))
}

// Disconnected tells the remaining editors of every portfolio the
// connection was still editing that it has left.
func (h *EventHandlers) Disconnected(ctx context.Context, connID domain.ConnID, identity *domain.Identity, left []domain.RoomName) {
	for _, room := range left {
		portfolioID, ok := room.EditedPortfolio()
		if !ok {
			continue
		}
		out := portfolioEditorPayload{
			PortfolioID: portfolioID,
			ConnID:      connID,
			Timestamp:   h.now().UTC(),
		}
		if identity != nil {
			out.UserID = identity.UserID
		}
		if err := h.broadcaster.SendToRoom(ctx, room, domain.EventPortfolioEditLeft, out, connID); err != nil {
			h.logger.Warnw("Failed to announce editor departure", "conn_id", connID, "room", room, "error", err)
		}
	}
}

type invitePayload struct {
	Email   string `json:"email"`
	Message string `json:"message,omitempty"`
}

type invitationSentPayload struct {
	Email          string                `json:"email"`
	Message        string                `json:"message,omitempty"`
	OrganizationID domain.OrganizationID `json:"organizationId"`
	InvitedBy      domain.UserID         `json:"invitedBy"`
	Timestamp      time.Time             `json:"timestamp"`
}

func (h *EventHandlers) OrganizationInvite(ctx context.Context, req *Request) Result {
	identity, res := requireOrganization(req)
	if res != nil {
		return *res
	}
	var p invitePayload
	if err := req.Bind(&p); err != nil {
		return Invalid(err)
	}
	if err := validation.ValidateEmail(p.Email); err != nil {
		return invalidf("%v", err)
	}

	return FromError(h.broadcaster.SendToOrganization(ctx, identity.OrganizationID, domain.EventInvitationSent, invitationSentPayload{
		Email:          strings.TrimSpace(p.Email),
		Message:        p.Message,
		OrganizationID: identity.OrganizationID,
		InvitedBy:      identity.UserID,
		Timestamp:      h.now().UTC(),
	}))
}

type announcementPayload struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	TargetRole string `json:"targetRole,omitempty"`
}

type announcementNewPayload struct {
	Title          string                `json:"title"`
	Message        string                `json:"message"`
	TargetRole     domain.UserRole       `json:"targetRole,omitempty"`
	OrganizationID domain.OrganizationID `json:"organizationId"`
	AnnouncedBy    domain.UserID         `json:"announcedBy"`
	Timestamp      time.Time             `json:"timestamp"`
}

// OrganizationAnnouncement fans out inside the organization room only.
// targetRole is passed through for clients to filter on.
func (h *EventHandlers) OrganizationAnnouncement(ctx context.Context, req *Request) Result {
	identity, res := requireOrganization(req)
	if res != nil {
		return *res
	}
	var p announcementPayload
	if err := req.Bind(&p); err != nil {
		return Invalid(err)
	}
	if err := validation.ValidateNonEmptyString(p.Title, "title"); err != nil {
		return invalidf("%v", err)
	}
	if err := validation.ValidateNonEmptyString(p.Message, "message"); err != nil {
		return invalidf("%v", err)
	}
	var role domain.UserRole
	if p.TargetRole != "" {
		r, ok := domain.ParseRole(p.TargetRole)
		if !ok {
			return invalidf("unknown target role %q", p.TargetRole)
		}
		role = r
	}

	return FromError(h.broadcaster.SendToOrganization(ctx, identity.OrganizationID, domain.EventAnnouncementNew, announcementNewPayload{
		Title:          p.Title,
		Message:        p.Message,
		TargetRole:     role,
		OrganizationID: identity.OrganizationID,
		AnnouncedBy:    identity.UserID,
		Timestamp:      h.now().UTC(),
	}))
}

func toNotificationIDs(in []string) []domain.NotificationID {
	out := make([]domain.NotificationID, len(in))
	for i, id := range in {
		out[i] = domain.NotificationID(id)
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
