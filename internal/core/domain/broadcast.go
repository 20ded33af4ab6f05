package domain

import "encoding/json"

type TargetKind string

const (
	TargetUser         TargetKind = "user"
	TargetOrganization TargetKind = "organization"
	TargetStudent      TargetKind = "student"
	TargetRole         TargetKind = "role"
	TargetAll          TargetKind = "all"
	TargetRoom         TargetKind = "room"
)

type Target struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id,omitempty"`
}

// Room resolves the target to a room name. Role and all targets have none.
func (t Target) Room() (RoomName, bool) {
	switch t.Kind {
	case TargetUser:
		return UserRoom(UserID(t.ID)), true
	case TargetOrganization:
		return OrganizationRoom(OrganizationID(t.ID)), true
	case TargetStudent:
		return StudentRoom(StudentID(t.ID)), true
	case TargetRoom:
		return RoomName(t.ID), true
	}
	return "", false
}

// Envelope is a broadcast as it travels between instances.
type Envelope struct {
	InstanceID string          `json:"instanceId"`
	Target     Target          `json:"target"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
	ExceptConn ConnID          `json:"exceptConn,omitempty"`
}
