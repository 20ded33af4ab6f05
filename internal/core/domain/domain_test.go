package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomsFor(t *testing.T) {
	tests := []struct {
		name     string
		identity *Identity
		want     []RoomName
	}{
		{"anonymous", nil, nil},
		{"empty user", &Identity{Role: RoleStudent, StudentID: "s1"}, nil},
		{"student", &Identity{UserID: "u1", Role: RoleStudent, StudentID: "s1"}, []RoomName{"user:u1", "student:s1"}},
		{"organization", &Identity{UserID: "u2", Role: RoleOrganization, OrganizationID: "o1"}, []RoomName{"user:u2", "organization:o1"}},
		{"organization without profile", &Identity{UserID: "u3", Role: RoleOrganization}, []RoomName{"user:u3"}},
		{"admin", &Identity{UserID: "u4", Role: RoleAdmin}, []RoomName{"user:u4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoomsFor(tt.identity))
		})
	}
}

func TestRoomName_EditedPortfolio(t *testing.T) {
	assert.Equal(t, RoomName("portfolio:p1:editors"), PortfolioEditRoom("p1"))

	id, ok := PortfolioEditRoom("p1").EditedPortfolio()
	assert.True(t, ok)
	assert.Equal(t, PortfolioID("p1"), id)

	for _, room := range []RoomName{UserRoom("u1"), ChatRoom("portfolio:p1:editors"), "portfolio::editors", "portfolio:p1"} {
		_, ok := room.EditedPortfolio()
		assert.False(t, ok, room)
	}
}

func TestParseVerificationStatus(t *testing.T) {
	s, err := ParseVerificationStatus("approved")
	assert.NoError(t, err)
	assert.Equal(t, StatusApproved, s)

	_, err = ParseVerificationStatus("maybe")
	assert.True(t, errors.Is(err, ErrInvalidPayload))
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("organization")
	assert.True(t, ok)
	assert.Equal(t, RoleOrganization, r)

	_, ok = ParseRole("owner")
	assert.False(t, ok)
}

func TestTarget_Room(t *testing.T) {
	room, ok := Target{Kind: TargetStudent, ID: "s1"}.Room()
	assert.True(t, ok)
	assert.Equal(t, RoomName("student:s1"), room)

	_, ok = Target{Kind: TargetRole, ID: string(RoleStudent)}.Room()
	assert.False(t, ok)
}

func TestNewNotification_Validate(t *testing.T) {
	assert.NoError(t, NewNotification{UserID: "u1", Title: "t", Message: "m"}.Validate())
	assert.ErrorIs(t, NewNotification{Title: "t", Message: "m"}.Validate(), ErrInvalidPayload)
	assert.ErrorIs(t, NewNotification{UserID: "u1", Title: " ", Message: "m"}.Validate(), ErrInvalidPayload)
}

func TestNotificationFilter_Normalize(t *testing.T) {
	f := NotificationFilter{Limit: 0, Offset: -3}.Normalize()
	assert.Equal(t, DefaultNotificationLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, MaxNotificationLimit, NotificationFilter{Limit: 1000}.Normalize().Limit)
}
