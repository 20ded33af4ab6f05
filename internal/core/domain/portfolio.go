package domain

import "time"

type PortfolioID string

type Portfolio struct {
	ID          PortfolioID
	StudentID   StudentID
	OwnerUserID UserID
	Title       string
	IsPublic    bool
}

// ClientMetadata is what the transport knows about the viewer.
type ClientMetadata struct {
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
}

// PortfolioView is append-only; ViewerID is nil for anonymous viewers.
type PortfolioView struct {
	ID          string         `json:"id"`
	PortfolioID PortfolioID    `json:"portfolioId"`
	ViewerID    *UserID        `json:"viewerId"`
	Client      ClientMetadata `json:"client"`
	ViewedAt    time.Time      `json:"viewedAt"`
}
