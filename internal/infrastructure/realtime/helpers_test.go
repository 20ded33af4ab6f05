package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"experiencehub/internal/core/domain"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type testFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	AckID string          `json:"ackId"`
}

func testLogger(t *testing.T) *zap.SugaredLogger {
	return zaptest.NewLogger(t).Sugar()
}

// registerTestClient adds a socketless client; frames queued for it stay
// in its send channel for the test to inspect.
func registerTestClient(t *testing.T, hub *Hub, id string, identity *domain.Identity) *Client {
	t.Helper()
	c := newClient(domain.ConnID(id), nil, 32, domain.ClientMetadata{IPAddress: "127.0.0.1"}, nil, nil, testLogger(t))
	hub.Register(context.Background(), c, identity)
	return c
}

func drain(t *testing.T, c *Client) []testFrame {
	t.Helper()
	var frames []testFrame
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return frames
			}
			var f testFrame
			require.NoError(t, json.Unmarshal(msg, &f))
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func events(frames []testFrame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Event)
	}
	return out
}

func decodeData(t *testing.T, f testFrame) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(f.Data, &m))
	return m
}

// recordingReplier stands in for a connection in router tests.
type recordingReplier struct {
	id     domain.ConnID
	mu     sync.Mutex
	frames []OutboundFrame
}

func (r *recordingReplier) ID() domain.ConnID { return r.id }

func (r *recordingReplier) Metadata() domain.ClientMetadata {
	return domain.ClientMetadata{IPAddress: "10.1.1.1", UserAgent: "test"}
}

func (r *recordingReplier) Send(event string, payload interface{}, ackID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, OutboundFrame{Event: event, Data: payload, AckID: ackID, Timestamp: time.Now()})
	return true
}

func (r *recordingReplier) sent() []OutboundFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OutboundFrame(nil), r.frames...)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Create(ctx context.Context, n domain.NewNotification) (*domain.Notification, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationService) RecordPortfolioView(ctx context.Context, portfolioID domain.PortfolioID, viewer *domain.UserID, client domain.ClientMetadata) *domain.PortfolioView {
	args := m.Called(ctx, portfolioID, viewer, client)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.PortfolioView)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID domain.UserID, ids []domain.NotificationID) (int64, error) {
	args := m.Called(ctx, userID, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, userID domain.UserID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) List(ctx context.Context, userID domain.UserID, filter domain.NotificationFilter) ([]*domain.Notification, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) Verify(ctx context.Context, caller domain.Identity, id domain.ExperienceID, status domain.VerificationStatus, note string) (*domain.VerificationResult, error) {
	args := m.Called(ctx, caller, id, status, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationResult), args.Error(1)
}

type MockOwnerResolver struct {
	mock.Mock
}

func (m *MockOwnerResolver) ResolveOwner(ctx context.Context, id domain.PortfolioID) (domain.UserID, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.UserID), args.Error(1)
}

// fakeBackplane loops envelopes between broadcasters in-process.
type fakeBackplane struct {
	mu        sync.Mutex
	published []domain.Envelope
	handlers  []func(domain.Envelope)
	err       error
}

func (f *fakeBackplane) Publish(_ context.Context, env domain.Envelope) error {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return f.err
	}
	f.published = append(f.published, env)
	handlers := append([]func(domain.Envelope){}, f.handlers...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(env)
	}
	return nil
}

func (f *fakeBackplane) Subscribe(_ context.Context, handler func(domain.Envelope)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler)
	return nil
}

func (f *fakeBackplane) Close() error { return nil }
