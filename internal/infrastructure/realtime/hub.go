package realtime

import (
	"context"
	"sort"
	"sync"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"

	"go.uber.org/zap"
)

// Hub owns every room index on this instance together with the
// connID -> Identity side table. Identities are stored by value and are
// never mutated once a connection is registered.
type Hub struct {
	mu          sync.RWMutex
	clients     map[domain.ConnID]*Client
	identities  map[domain.ConnID]domain.Identity
	rooms       map[domain.RoomName]map[domain.ConnID]struct{}
	memberships map[domain.ConnID]map[domain.RoomName]struct{}

	presence ports.PresenceRepository
	logger   *zap.SugaredLogger
}

// NewHub creates a hub. presence may be nil.
func NewHub(presence ports.PresenceRepository, logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:     make(map[domain.ConnID]*Client),
		identities:  make(map[domain.ConnID]domain.Identity),
		rooms:       make(map[domain.RoomName]map[domain.ConnID]struct{}),
		memberships: make(map[domain.ConnID]map[domain.RoomName]struct{}),
		presence:    presence,
		logger:      logger,
	}
}

// Register adds the client and, for an authenticated identity, joins the
// identity scoped rooms. It returns the rooms joined.
func (h *Hub) Register(ctx context.Context, c *Client, identity *domain.Identity) []domain.RoomName {
	h.mu.Lock()
	h.clients[c.id] = c
	h.memberships[c.id] = make(map[domain.RoomName]struct{})
	if identity != nil && identity.UserID != "" {
		h.identities[c.id] = *identity
	}
	h.mu.Unlock()

	rooms := domain.RoomsFor(identity)
	for _, room := range rooms {
		h.Join(ctx, c.id, room)
	}
	return rooms
}

// Unregister removes the connection from every room index, drops its
// identity and closes its send queue. Rooms left empty are deleted.
func (h *Hub) Unregister(ctx context.Context, connID domain.ConnID) []domain.RoomName {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if !ok {
		h.mu.Unlock()
		return nil
	}

	member := h.presenceMemberLocked(connID)
	left := make([]domain.RoomName, 0, len(h.memberships[connID]))
	for room := range h.memberships[connID] {
		h.removeFromRoomLocked(room, connID)
		left = append(left, room)
	}
	delete(h.memberships, connID)
	delete(h.identities, connID)
	delete(h.clients, connID)
	h.mu.Unlock()

	c.closeSend()

	if h.presence != nil {
		for _, room := range left {
			if err := h.presence.Leave(ctx, room, member); err != nil {
				h.logger.Warnw("Presence leave failed", "conn_id", connID, "room", room, "error", err)
			}
		}
	}

	sortRooms(left)
	return left
}

// Identity looks up the identity attached at connect time.
func (h *Hub) Identity(connID domain.ConnID) (domain.Identity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	identity, ok := h.identities[connID]
	return identity, ok
}

// Join adds the connection to room. It returns false if the connection is
// unknown or already a member.
func (h *Hub) Join(ctx context.Context, connID domain.ConnID, room domain.RoomName) bool {
	h.mu.Lock()
	rooms, ok := h.memberships[connID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	if _, member := rooms[room]; member {
		h.mu.Unlock()
		return false
	}
	rooms[room] = struct{}{}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[domain.ConnID]struct{})
		h.rooms[room] = members
	}
	members[connID] = struct{}{}
	member := h.presenceMemberLocked(connID)
	h.mu.Unlock()

	if h.presence != nil {
		if err := h.presence.Join(ctx, room, member); err != nil {
			h.logger.Warnw("Presence join failed", "conn_id", connID, "room", room, "error", err)
		}
	}
	return true
}

// Leave removes the connection from room. It returns false if it was not a member.
func (h *Hub) Leave(ctx context.Context, connID domain.ConnID, room domain.RoomName) bool {
	h.mu.Lock()
	rooms, ok := h.memberships[connID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	if _, member := rooms[room]; !member {
		h.mu.Unlock()
		return false
	}
	delete(rooms, room)
	h.removeFromRoomLocked(room, connID)
	member := h.presenceMemberLocked(connID)
	h.mu.Unlock()

	if h.presence != nil {
		if err := h.presence.Leave(ctx, room, member); err != nil {
			h.logger.Warnw("Presence leave failed", "conn_id", connID, "room", room, "error", err)
		}
	}
	return true
}

func (h *Hub) presenceMemberLocked(connID domain.ConnID) domain.PresenceMember {
	return domain.PresenceMember{ConnID: connID, UserID: h.identities[connID].UserID}
}

func (h *Hub) removeFromRoomLocked(room domain.RoomName, connID domain.ConnID) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Rooms lists the rooms a connection currently belongs to, sorted.
func (h *Hub) Rooms(connID domain.ConnID) []domain.RoomName {
	h.mu.RLock()
	out := make([]domain.RoomName, 0, len(h.memberships[connID]))
	for room := range h.memberships[connID] {
		out = append(out, room)
	}
	h.mu.RUnlock()
	sortRooms(out)
	return out
}

// RoomSize is the number of local connections in room.
func (h *Hub) RoomSize(room domain.RoomName) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount is the number of rooms with at least one local member.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// EmitToRoom queues msg for every member of room except the given
// connection and returns the number of clients it was queued for.
func (h *Hub) EmitToRoom(room domain.RoomName, msg []byte, except domain.ConnID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for connID := range h.rooms[room] {
		if connID == except {
			continue
		}
		if c, ok := h.clients[connID]; ok && c.enqueue(msg) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) EmitToAll(msg []byte, except domain.ConnID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for connID, c := range h.clients {
		if connID == except {
			continue
		}
		if c.enqueue(msg) {
			delivered++
		}
	}
	return delivered
}

// EmitToRole walks the identity table; role scopes have no room of their own.
func (h *Hub) EmitToRole(role domain.UserRole, msg []byte, except domain.ConnID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for connID, identity := range h.identities {
		if identity.Role != role || connID == except {
			continue
		}
		if c, ok := h.clients[connID]; ok && c.enqueue(msg) {
			delivered++
		}
	}
	return delivered
}

// CloseAll closes every live socket; the read loops then unregister.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}

func sortRooms(rooms []domain.RoomName) {
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
}
