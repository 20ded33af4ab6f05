package ports

import "github.com/gin-gonic/gin"

type NotificationHTTPHandler interface {
	ListNotifications(c *gin.Context)
	UnreadCount(c *gin.Context)
	MarkRead(c *gin.Context)
	CreateNotification(c *gin.Context)
}

type ExperienceHTTPHandler interface {
	VerifyExperience(c *gin.Context)
}

type PresenceHTTPHandler interface {
	OrganizationPresence(c *gin.Context)
}
