package realtime

import (
	"context"
	"errors"
	"testing"

	"experiencehub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_DirectedSends(t *testing.T) {
	hub := NewHub(nil, testLogger(t))
	b := NewBroadcaster(hub, nil, "i1", nil, testLogger(t))
	ctx := context.Background()

	student := registerTestClient(t, hub, "s", &domain.Identity{UserID: "u1", Role: domain.RoleStudent, StudentID: "s1"})
	org := registerTestClient(t, hub, "o", &domain.Identity{UserID: "u2", Role: domain.RoleOrganization, OrganizationID: "o1"})
	anon := registerTestClient(t, hub, "a", nil)

	require.NoError(t, b.SendToUser(ctx, "u1", "to-user", map[string]string{"k": "v"}))
	require.NoError(t, b.SendToStudent(ctx, "s1", "to-student", nil))
	require.NoError(t, b.SendToOrganization(ctx, "o1", "to-org", nil))
	require.NoError(t, b.SendToRole(ctx, domain.RoleOrganization, "to-role", nil))
	require.NoError(t, b.SendToAll(ctx, "to-all", nil))

	studentFrames := drain(t, student)
	assert.Equal(t, []string{"to-user", "to-student", "to-all"}, events(studentFrames))
	assert.Equal(t, "v", decodeData(t, studentFrames[0])["k"])

	assert.Equal(t, []string{"to-org", "to-role", "to-all"}, events(drain(t, org)))
	assert.Equal(t, []string{"to-all"}, events(drain(t, anon)))
}

func TestBroadcaster_UnmarshalablePayload(t *testing.T) {
	hub := NewHub(nil, testLogger(t))
	b := NewBroadcaster(hub, nil, "i1", nil, testLogger(t))

	err := b.SendToAll(context.Background(), "bad", make(chan int))
	assert.Error(t, err)
}

func TestBroadcaster_BackplaneFanOut(t *testing.T) {
	bp := &fakeBackplane{}
	ctx := context.Background()

	hubA := NewHub(nil, testLogger(t))
	hubB := NewHub(nil, testLogger(t))
	a := NewBroadcaster(hubA, bp, "instance-a", nil, testLogger(t))
	b := NewBroadcaster(hubB, bp, "instance-b", nil, testLogger(t))
	require.NoError(t, a.Start(ctx))
	require.NoError(t, b.Start(ctx))

	onA := registerTestClient(t, hubA, "a1", &domain.Identity{UserID: "u1"})
	onB := registerTestClient(t, hubB, "b1", &domain.Identity{UserID: "u1"})

	require.NoError(t, a.SendToUser(ctx, "u1", "ping", nil))

	// each instance delivers exactly once: a locally, b via the backplane
	assert.Equal(t, []string{"ping"}, events(drain(t, onA)))
	assert.Equal(t, []string{"ping"}, events(drain(t, onB)))
	require.Len(t, bp.published, 1)
	assert.Equal(t, "instance-a", bp.published[0].InstanceID)
	assert.Equal(t, domain.Target{Kind: domain.TargetUser, ID: "u1"}, bp.published[0].Target)
}

func TestBroadcaster_BackplaneKeepsExclusion(t *testing.T) {
	bp := &fakeBackplane{}
	hub := NewHub(nil, testLogger(t))
	b := NewBroadcaster(hub, bp, "local", nil, testLogger(t))
	ctx := context.Background()

	sender := registerTestClient(t, hub, "sender", nil)
	other := registerTestClient(t, hub, "other", nil)
	hub.Join(ctx, sender.ID(), "chat:1")
	hub.Join(ctx, other.ID(), "chat:1")

	b.HandleRemote(domain.Envelope{
		InstanceID: "remote",
		Target:     domain.Target{Kind: domain.TargetRoom, ID: "chat:1"},
		Event:      "typing",
		Payload:    []byte(`{"isTyping":true}`),
		ExceptConn: "sender",
	})
	assert.Empty(t, drain(t, sender))
	assert.Equal(t, []string{"typing"}, events(drain(t, other)))

	// own envelopes are ignored
	b.HandleRemote(domain.Envelope{InstanceID: "local", Target: domain.Target{Kind: domain.TargetAll}, Event: "echo"})
	assert.Empty(t, drain(t, other))
}

func TestBroadcaster_PublishFailureStillDeliversLocally(t *testing.T) {
	bp := &fakeBackplane{err: errors.New("redis down")}
	hub := NewHub(nil, testLogger(t))
	b := NewBroadcaster(hub, bp, "local", nil, testLogger(t))
	c := registerTestClient(t, hub, "c", &domain.Identity{UserID: "u1"})

	err := b.SendToUser(context.Background(), "u1", "evt", nil)
	assert.Error(t, err)
	assert.Equal(t, []string{"evt"}, events(drain(t, c)))
}
