package realtime

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Options struct {
	PingInterval    time.Duration
	PongTimeout     time.Duration
	WriteTimeout    time.Duration
	SendBuffer      int
	MaxMessageSize  int64
	EventsPerSecond float64
	EventBurst      int
	AllowedOrigins  []string
	AuthTimeout     time.Duration
}

func DefaultOptions() Options {
	return Options{
		PingInterval:   25 * time.Second,
		PongTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		SendBuffer:     256,
		MaxMessageSize: 64 * 1024,
		AuthTimeout:    5 * time.Second,
	}
}

// Server upgrades HTTP requests to sockets and runs the per-connection
// lifecycle: authenticate, join identity rooms, read/dispatch, clean up.
type Server struct {
	hub           *Hub
	router        *Router
	authenticator ports.Authenticator
	upgrader      websocket.Upgrader
	opts          Options
	metrics       Metrics
	logger        *zap.SugaredLogger
}

func NewServer(hub *Hub, router *Router, authenticator ports.Authenticator, opts Options, metrics Metrics, logger *zap.SugaredLogger) *Server {
	s := &Server{
		hub:           hub,
		router:        router,
		authenticator: authenticator,
		opts:          opts,
		metrics:       metricsOrNoop(metrics),
		logger:        logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// HandleWebSocket never rejects a handshake because of a bad credential;
// such connections continue anonymously.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := ExtractToken(r)

	authCtx, cancel := r.Context(), context.CancelFunc(func() {})
	if s.opts.AuthTimeout > 0 {
		authCtx, cancel = context.WithTimeout(r.Context(), s.opts.AuthTimeout)
	}
	identity, err := s.authenticator.Authenticate(authCtx, token)
	cancel()
	if err != nil {
		identity = nil
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	var limiter *rate.Limiter
	if s.opts.EventsPerSecond > 0 {
		burst := s.opts.EventBurst
		if burst <= 0 {
			burst = int(s.opts.EventsPerSecond) + 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.opts.EventsPerSecond), burst)
	}

	client := newClient(domain.ConnID(uuid.NewString()), conn, s.opts.SendBuffer, clientMetadata(r), limiter, s.metrics, s.logger)
	authenticated := identity != nil

	ctx := context.Background()
	rooms := s.hub.Register(ctx, client, identity)
	s.metrics.ConnectionOpened(authenticated)

	fields := []interface{}{"conn_id", client.id, "authenticated", authenticated, "rooms", rooms}
	if authenticated {
		fields = append(fields, "user_id", identity.UserID, "role", identity.Role)
	}
	s.logger.Infow("Client connected", fields...)

	go client.writePump(s.opts.PingInterval, s.opts.WriteTimeout)
	s.readPump(ctx, client)

	left := s.hub.Unregister(ctx, client.id)
	s.router.Disconnected(ctx, client.id, identity, left)
	s.metrics.ConnectionClosed(authenticated)
	s.logger.Infow("Client disconnected", "conn_id", client.id, "rooms_left", len(left))
}

// readPump dispatches frames in arrival order until the socket fails.
func (s *Server) readPump(ctx context.Context, c *Client) {
	c.conn.SetReadLimit(s.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("error reading message from client", "conn_id", c.id, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))

		var frame InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			s.logger.Debugw("Ignoring malformed frame", "conn_id", c.id, "error", err)
			continue
		}
		if !c.allow() {
			s.logger.Warnw("Event rate exceeded, dropping event", "conn_id", c.id, "event", frame.Event)
			s.metrics.EventHandled(s.router.MetricLabel(frame.Event), "rate_limited", 0)
			continue
		}

		s.router.Dispatch(ctx, c, frame)
	}
}

// Shutdown closes every socket so read loops unwind and clean up.
func (s *Server) Shutdown() {
	s.hub.CloseAll()
}

// ExtractToken reads the credential from ?token= first and then from an
// Authorization: Bearer header.
func ExtractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func clientMetadata(r *http.Request) domain.ClientMetadata {
	return domain.ClientMetadata{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
