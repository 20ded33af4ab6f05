package domain

import (
	"strings"
	"time"
)

type UserID string
type OrganizationID string
type StudentID string
type ConnID string

type UserRole string

const (
	RoleStudent      UserRole = "STUDENT"
	RoleOrganization UserRole = "ORGANIZATION"
	RoleAdmin        UserRole = "ADMIN"
)

// ParseRole accepts a role in any case.
func ParseRole(s string) (UserRole, bool) {
	switch r := UserRole(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleStudent, RoleOrganization, RoleAdmin:
		return r, true
	}
	return "", false
}

type User struct {
	ID        UserID
	Email     string
	Name      string
	Role      UserRole
	CreatedAt time.Time
}

// Identity is the authenticated principal behind a connection. It is a value
// type; once attached to a connection it is never mutated.
type Identity struct {
	UserID         UserID
	Email          string
	Role           UserRole
	OrganizationID OrganizationID
	StudentID      StudentID
}

func (i Identity) IsOrganization() bool {
	return i.Role == RoleOrganization && i.OrganizationID != ""
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
