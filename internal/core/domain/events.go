package domain

// Inbound client events.
const (
	EventJoinRoom             = "join-room"
	EventLeaveRoom            = "leave-room"
	EventStatusUpdate         = "user:status:update"
	EventTypingStart          = "user:typing:start"
	EventTypingStop           = "user:typing:stop"
	EventTypingLegacy         = "typing"
	EventExperienceVerify     = "experience:verify"
	EventExperienceCreated    = "experience:created"
	EventNotificationRead     = "notification:read"
	EventNotificationCount    = "notification:count"
	EventMarkNotificationRead = "mark-notification-read"
	EventPortfolioView        = "portfolio:view"
	EventPortfolioEditStart   = "portfolio:edit:start"
	EventPortfolioEditStop    = "portfolio:edit:stop"
	EventOrganizationInvite   = "organization:student:invite"
	EventOrganizationAnnounce = "organization:announcement"
)

// Outbound server events.
const (
	EventRoomJoined             = "room-joined"
	EventError                  = "error"
	EventNotificationReadLegacy = "notification-read"
	EventUserTyping             = "user-typing"
	EventStatusChanged          = "user:status:changed"
	EventTypingIndicator        = "user:typing:indicator"
	EventVerificationUpdate     = "experience:verification:update"
	EventExperienceVerified     = "experience:verified"
	EventExperienceNew          = "experience:new"
	EventNotificationReadOK     = "notification:read:success"
	EventNotificationCountOut   = "notification:count:update"
	EventPortfolioViewNew       = "portfolio:view:new"
	EventPortfolioEditJoined    = "portfolio:edit:user:joined"
	EventPortfolioEditLeft      = "portfolio:edit:user:left"
	EventInvitationSent         = "organization:invitation:sent"
	EventAnnouncementNew        = "organization:announcement:new"
	EventNotificationNew        = "notification:new"
)
