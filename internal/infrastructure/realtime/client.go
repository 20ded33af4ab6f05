package realtime

import (
	"sync"
	"time"

	"experiencehub/internal/core/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is one live socket. Reads happen on the goroutine that called
// readPump; all writes go through send and are performed by writePump.
type Client struct {
	id      domain.ConnID
	conn    *websocket.Conn
	send    chan []byte
	meta    domain.ClientMetadata
	limiter *rate.Limiter

	mu      sync.RWMutex
	closed  bool
	metrics Metrics
	logger  *zap.SugaredLogger
}

func newClient(id domain.ConnID, conn *websocket.Conn, buffer int, meta domain.ClientMetadata, limiter *rate.Limiter, metrics Metrics, logger *zap.SugaredLogger) *Client {
	return &Client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, buffer),
		meta:    meta,
		limiter: limiter,
		metrics: metricsOrNoop(metrics),
		logger:  logger,
	}
}

func (c *Client) ID() domain.ConnID { return c.id }

func (c *Client) Metadata() domain.ClientMetadata { return c.meta }

// Send encodes and queues one frame for this client only.
func (c *Client) Send(event string, payload interface{}, ackID string) bool {
	msg, err := encodeFrame(event, payload, ackID)
	if err != nil {
		c.logger.Errorw("Failed to encode frame", "conn_id", c.id, "event", event, "error", err)
		return false
	}
	return c.enqueue(msg)
}

// enqueue never blocks. A full buffer means a slow consumer and the
// message is dropped for this client only.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.metrics.MessageDropped()
		c.logger.Warnw("Send buffer full, dropping message", "conn_id", c.id)
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// allow applies the per-connection inbound event rate.
func (c *Client) allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}

func (c *Client) writePump(pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debugw("Write failed", "conn_id", c.id, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debugw("Error sending ping", "conn_id", c.id, "error", err)
				return
			}
		}
	}
}
