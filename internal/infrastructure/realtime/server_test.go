package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"experiencehub/internal/core/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type staticAuthenticator map[string]*domain.Identity

func (a staticAuthenticator) Authenticate(_ context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, nil
	}
	identity, ok := a[token]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	return identity, nil
}

type serverFixture struct {
	*handlerFixture
	server *Server
	http   *httptest.Server
}

func newServerFixture(t *testing.T, opts Options) *serverFixture {
	f := newHandlerFixture(t)
	auth := staticAuthenticator{
		"owner-token": {UserID: "owner-user", Role: domain.RoleStudent, StudentID: "s7"},
		"org-token":   orgIdentity,
	}
	server := NewServer(f.hub, f.router, auth, opts, nil, testLogger(t))
	ts := httptest.NewServer(http.HandlerFunc(server.HandleWebSocket))
	t.Cleanup(ts.Close)
	return &serverFixture{handlerFixture: f, server: server, http: ts}
}

func (s *serverFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.http.URL, "http")
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) testFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f testFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.PingInterval = time.Second
	opts.PongTimeout = 5 * time.Second
	opts.WriteTimeout = time.Second
	return opts
}

func TestServer_AnonymousPortfolioViewReachesOwner(t *testing.T) {
	s := newServerFixture(t, testOptions())
	s.notifications.On("RecordPortfolioView", mock.Anything, domain.PortfolioID("p1"), (*domain.UserID)(nil), mock.Anything).
		Return(&domain.PortfolioView{ID: "v1", PortfolioID: "p1", ViewedAt: time.Now().UTC()})
	s.owners.On("ResolveOwner", mock.Anything, domain.PortfolioID("p1")).Return(domain.UserID("owner-user"), nil)

	owner := s.dial(t, "owner-token")
	require.Eventually(t, func() bool {
		return s.hub.RoomSize(domain.UserRoom("owner-user")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	anon := s.dial(t, "")
	require.NoError(t, anon.WriteJSON(map[string]interface{}{
		"event": domain.EventPortfolioView,
		"data":  map[string]string{"portfolioId": "p1"},
	}))

	f := readFrame(t, owner)
	assert.Equal(t, domain.EventPortfolioViewNew, f.Event)
	assert.Equal(t, "p1", decodeData(t, f)["portfolioId"])
}

func TestServer_InvalidTokenDegradesToAnonymous(t *testing.T) {
	s := newServerFixture(t, testOptions())

	conn := s.dial(t, "forged")
	require.Eventually(t, func() bool { return s.hub.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// privileged request is ignored, the connection stays usable
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": domain.EventNotificationCount, "ackId": "1"}))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": "not-a-real-event"}))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{garbage")))

	s.notifications.AssertNotCalled(t, "UnreadCount", mock.Anything, mock.Anything)
	assert.Equal(t, 1, s.hub.ConnectionCount())
	assert.Zero(t, s.hub.RoomSize(domain.UserRoom("forged")))
}

func TestServer_RequestResponseOverSocket(t *testing.T) {
	s := newServerFixture(t, testOptions())
	s.notifications.On("UnreadCount", mock.Anything, domain.UserID("org-user")).Return(int64(3), nil)

	conn := s.dial(t, "org-token")
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": domain.EventNotificationCount, "ackId": "req-1"}))

	f := readFrame(t, conn)
	assert.Equal(t, domain.EventNotificationCountOut, f.Event)
	assert.Equal(t, "req-1", f.AckID)
	assert.Equal(t, float64(3), decodeData(t, f)["count"])
}

func TestServer_TypingNotEchoedOverSocket(t *testing.T) {
	s := newServerFixture(t, testOptions())
	x := s.dial(t, "owner-token")
	y := s.dial(t, "org-token")

	require.NoError(t, y.WriteJSON(map[string]interface{}{"event": domain.EventTypingStart, "data": map[string]string{"chatId": "chat-42"}}))
	require.Eventually(t, func() bool {
		return s.hub.RoomSize(domain.ChatRoom("chat-42")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, x.WriteJSON(map[string]interface{}{"event": domain.EventTypingStart, "data": map[string]string{"chatId": "chat-42"}}))

	f := readFrame(t, y)
	assert.Equal(t, domain.EventTypingIndicator, f.Event)
	assert.Equal(t, "owner-user", decodeData(t, f)["userId"])

	// x gets nothing back
	require.NoError(t, x.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := x.ReadMessage()
	assert.Error(t, err)
}

func TestServer_DisconnectCleansRooms(t *testing.T) {
	s := newServerFixture(t, testOptions())
	conn := s.dial(t, "org-token")

	orgRoom := domain.OrganizationRoom("org-a")
	require.Eventually(t, func() bool { return s.hub.RoomSize(orgRoom) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return s.hub.RoomSize(orgRoom) == 0 && s.hub.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_DisconnectAnnouncesEditorLeft(t *testing.T) {
	s := newServerFixture(t, testOptions())
	editor := s.dial(t, "owner-token")
	watcher := s.dial(t, "org-token")
	room := domain.PortfolioEditRoom("p9")

	require.NoError(t, watcher.WriteJSON(map[string]interface{}{"event": domain.EventPortfolioEditStart, "data": map[string]string{"portfolioId": "p9"}}))
	require.Eventually(t, func() bool { return s.hub.RoomSize(room) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, editor.WriteJSON(map[string]interface{}{"event": domain.EventPortfolioEditStart, "data": map[string]string{"portfolioId": "p9"}}))

	f := readFrame(t, watcher)
	require.Equal(t, domain.EventPortfolioEditJoined, f.Event)

	require.NoError(t, editor.Close())

	f = readFrame(t, watcher)
	assert.Equal(t, domain.EventPortfolioEditLeft, f.Event)
	data := decodeData(t, f)
	assert.Equal(t, "p9", data["portfolioId"])
	assert.Equal(t, "owner-user", data["userId"])
}

func TestServer_EventRateLimit(t *testing.T) {
	opts := testOptions()
	opts.EventsPerSecond = 1
	opts.EventBurst = 1
	s := newServerFixture(t, opts)
	s.notifications.On("UnreadCount", mock.Anything, mock.Anything).Return(int64(0), nil)

	conn := s.dial(t, "org-token")
	for i := 0; i < 5; i++ {
		require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": domain.EventNotificationCount}))
	}
	f := readFrame(t, conn)
	assert.Equal(t, domain.EventNotificationCountOut, f.Event)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	s.notifications.AssertNumberOfCalls(t, "UnreadCount", 1)
}

func TestServer_CheckOrigin(t *testing.T) {
	opts := testOptions()
	opts.AllowedOrigins = []string{"https://app.example.com"}
	s := newServerFixture(t, opts)

	url := "ws" + strings.TrimPrefix(s.http.URL, "http")
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://app.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=from-query", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-query", ExtractToken(r))

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "bearer from-header")
	assert.Equal(t, "from-header", ExtractToken(r))

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", ExtractToken(r))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}

