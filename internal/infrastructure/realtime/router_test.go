package realtime

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"experiencehub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*Router, *Hub) {
	hub := NewHub(nil, testLogger(t))
	return NewRouter(hub, time.Second, nil, testLogger(t)), hub
}

func TestRouter_VisibilityPolicy(t *testing.T) {
	tests := []struct {
		name      string
		visible   bool
		result    Result
		wantError bool
	}{
		{"ok", true, Ok(), false},
		{"unauthorized visible route", true, Unauthorized(nil), false},
		{"not found visible route", true, NotFound(domain.ErrNotFound), false},
		{"invalid visible route", true, Invalid(domain.ErrInvalidPayload), true},
		{"persistence visible route", true, PersistenceFailure(errors.New("db")), true},
		{"invalid silent route", false, Invalid(domain.ErrInvalidPayload), false},
		{"persistence silent route", false, PersistenceFailure(errors.New("db")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t)
			handler := func(context.Context, *Request) Result { return tt.result }
			if tt.visible {
				router.HandleVisible("evt", handler, "Something failed")
			} else {
				router.Handle("evt", handler)
			}

			sender := &recordingReplier{id: "c1"}
			got := router.Dispatch(context.Background(), sender, InboundFrame{Event: "evt", AckID: "7"})
			assert.Equal(t, tt.result.Outcome, got.Outcome)

			sent := sender.sent()
			if tt.wantError {
				require.Len(t, sent, 1)
				assert.Equal(t, domain.EventError, sent[0].Event)
				assert.Equal(t, "7", sent[0].AckID)
				assert.Equal(t, errorPayload{Message: "Something failed", Event: "evt"}, sent[0].Data)
			} else {
				assert.Empty(t, sent)
			}
		})
	}
}

func TestRouter_ReplyGoesToSenderWithAck(t *testing.T) {
	router, _ := newTestRouter(t)
	router.Handle("count", func(context.Context, *Request) Result {
		return OkReply("count:update", map[string]int{"count": 3})
	})

	sender := &recordingReplier{id: "c1"}
	router.Dispatch(context.Background(), sender, InboundFrame{Event: "count", AckID: "a1"})

	sent := sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "count:update", sent[0].Event)
	assert.Equal(t, "a1", sent[0].AckID)
}

func TestRouter_AttachesIdentityFromSideTable(t *testing.T) {
	router, hub := newTestRouter(t)
	identity := &domain.Identity{UserID: "u1", Role: domain.RoleStudent, StudentID: "s1"}
	c := registerTestClient(t, hub, "c1", identity)

	var seen *domain.Identity
	router.Handle("whoami", func(_ context.Context, req *Request) Result {
		seen = req.Identity
		return Ok()
	})

	router.Dispatch(context.Background(), c, InboundFrame{Event: "whoami"})
	require.NotNil(t, seen)
	assert.Equal(t, *identity, *seen)

	anon := &recordingReplier{id: "nobody"}
	router.Dispatch(context.Background(), anon, InboundFrame{Event: "whoami"})
	assert.Nil(t, seen)
}

func TestRouter_RecoversFromPanics(t *testing.T) {
	router, _ := newTestRouter(t)
	router.HandleVisible("boom", func(context.Context, *Request) Result {
		panic("nil map")
	}, "Failed")

	sender := &recordingReplier{id: "c1"}
	var got Result
	assert.NotPanics(t, func() {
		got = router.Dispatch(context.Background(), sender, InboundFrame{Event: "boom"})
	})
	assert.Equal(t, OutcomePersistenceError, got.Outcome)
	require.Len(t, sender.sent(), 1)
}

func TestRouter_UnknownEventIsSilent(t *testing.T) {
	router, _ := newTestRouter(t)
	sender := &recordingReplier{id: "c1"}

	got := router.Dispatch(context.Background(), sender, InboundFrame{Event: "nope"})
	assert.Equal(t, OutcomeNotFound, got.Outcome)
	assert.Empty(t, sender.sent())
}

func TestRouter_AppliesEventTimeout(t *testing.T) {
	hub := NewHub(nil, testLogger(t))
	router := NewRouter(hub, 20*time.Millisecond, nil, testLogger(t))
	router.Handle("slow", func(ctx context.Context, _ *Request) Result {
		<-ctx.Done()
		return PersistenceFailure(ctx.Err())
	})

	got := router.Dispatch(context.Background(), &recordingReplier{id: "c1"}, InboundFrame{Event: "slow"})
	assert.ErrorIs(t, got.Err, context.DeadlineExceeded)
}

func TestFromError(t *testing.T) {
	tests := []struct {
		err  error
		want Outcome
	}{
		{nil, OutcomeOK},
		{domain.ErrUnauthorized, OutcomeUnauthorized},
		{fmt.Errorf("wrap: %w", domain.ErrForbidden), OutcomeUnauthorized},
		{fmt.Errorf("wrap: %w", domain.ErrNotFound), OutcomeNotFound},
		{domain.ErrInvalidStatus, OutcomeInvalid},
		{errors.New("connection refused"), OutcomePersistenceError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromError(tt.err).Outcome, "%v", tt.err)
	}
}

func TestRequest_Bind(t *testing.T) {
	var p struct {
		ChatID string `json:"chatId"`
	}
	assert.NoError(t, (&Request{}).Bind(&p))
	assert.NoError(t, (&Request{Data: []byte(`{"chatId":"42"}`)}).Bind(&p))
	assert.Equal(t, "42", p.ChatID)
	assert.ErrorIs(t, (&Request{Data: []byte(`[1,2]`)}).Bind(&p), domain.ErrInvalidPayload)
}
