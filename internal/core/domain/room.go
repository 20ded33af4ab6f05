package domain

import "strings"

type RoomName string

const (
	userRoomPrefix         = "user:"
	organizationRoomPrefix = "organization:"
	studentRoomPrefix      = "student:"
	chatRoomPrefix         = "chat:"
	portfolioRoomPrefix    = "portfolio:"
	editorsSuffix          = ":editors"
)

func UserRoom(id UserID) RoomName {
	return RoomName(userRoomPrefix + string(id))
}

func OrganizationRoom(id OrganizationID) RoomName {
	return RoomName(organizationRoomPrefix + string(id))
}

func StudentRoom(id StudentID) RoomName {
	return RoomName(studentRoomPrefix + string(id))
}

// ChatRoom namespaces client supplied chat ids so a typing event can never
// address an identity room.
func ChatRoom(chatID string) RoomName {
	return RoomName(chatRoomPrefix + chatID)
}

func PortfolioEditRoom(id PortfolioID) RoomName {
	return RoomName(portfolioRoomPrefix + string(id) + editorsSuffix)
}

// EditedPortfolio returns the portfolio id of a portfolio:<id>:editors room.
func (r RoomName) EditedPortfolio() (PortfolioID, bool) {
	s := string(r)
	if !strings.HasPrefix(s, portfolioRoomPrefix) || !strings.HasSuffix(s, editorsSuffix) {
		return "", false
	}
	id := s[len(portfolioRoomPrefix) : len(s)-len(editorsSuffix)]
	if id == "" {
		return "", false
	}
	return PortfolioID(id), true
}

// PresenceMember is one connection's entry in a room's presence record.
// UserID is empty for anonymous connections.
type PresenceMember struct {
	ConnID ConnID
	UserID UserID
}

// RoomsFor returns the identity scoped rooms a connection joins after
// authentication. Anonymous connections join none.
func RoomsFor(identity *Identity) []RoomName {
	if identity == nil || identity.UserID == "" {
		return nil
	}
	rooms := []RoomName{UserRoom(identity.UserID)}
	switch identity.Role {
	case RoleOrganization:
		if identity.OrganizationID != "" {
			rooms = append(rooms, OrganizationRoom(identity.OrganizationID))
		}
	case RoleStudent:
		if identity.StudentID != "" {
			rooms = append(rooms, StudentRoom(identity.StudentID))
		}
	}
	return rooms
}
