package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"experiencehub/internal/core/domain"
	"experiencehub/pkg/logger"
	"experiencehub/pkg/tracing"

	"go.uber.org/zap"
)

// Request is one inbound event as seen by a handler.
type Request struct {
	ConnID   domain.ConnID
	Identity *domain.Identity // nil for anonymous connections
	Data     json.RawMessage
	Client   domain.ClientMetadata
}

// Bind decodes the event data into v. Missing data decodes as an empty object.
func (r *Request) Bind(v interface{}) error {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return nil
}

type HandlerFunc func(ctx context.Context, req *Request) Result

// Replier is the sender side of a connection.
type Replier interface {
	ID() domain.ConnID
	Metadata() domain.ClientMetadata
	Send(event string, payload interface{}, ackID string) bool
}

type route struct {
	handler HandlerFunc
	// errorMessage is sent to the sender on Invalid or PersistenceError.
	// Empty means failures of this event are only logged.
	errorMessage string
}

// DisconnectFunc runs after a connection has been removed from every room.
// left is the set of rooms it was still a member of.
type DisconnectFunc func(ctx context.Context, connID domain.ConnID, identity *domain.Identity, left []domain.RoomName)

// Router dispatches the closed set of inbound events.
type Router struct {
	routes       map[string]route
	onDisconnect DisconnectFunc
	hub          *Hub
	timeout      time.Duration
	metrics      Metrics
	logger       *zap.SugaredLogger
}

func NewRouter(hub *Hub, timeout time.Duration, metrics Metrics, logger *zap.SugaredLogger) *Router {
	return &Router{
		routes:  make(map[string]route),
		hub:     hub,
		timeout: timeout,
		metrics: metricsOrNoop(metrics),
		logger:  logger,
	}
}

// Handle registers a fire-and-forget event whose failures are logged only.
func (r *Router) Handle(event string, h HandlerFunc) {
	r.routes[event] = route{handler: h}
}

// HandleVisible registers an event whose Invalid and PersistenceError
// outcomes are reported to the sender with message.
func (r *Router) HandleVisible(event string, h HandlerFunc, message string) {
	r.routes[event] = route{handler: h, errorMessage: message}
}

func (r *Router) OnDisconnect(fn DisconnectFunc) {
	r.onDisconnect = fn
}

// Disconnected runs the disconnect hook, if any, under the event timeout.
func (r *Router) Disconnected(ctx context.Context, connID domain.ConnID, identity *domain.Identity, left []domain.RoomName) {
	if r.onDisconnect == nil || len(left) == 0 {
		return
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	r.onDisconnect(ctx, connID, identity, left)
}

func (r *Router) Events() []string {
	out := make([]string, 0, len(r.routes))
	for event := range r.routes {
		out = append(out, event)
	}
	return out
}

const unknownEventLabel = "unknown"

// MetricLabel returns event when it is routed and a fixed label otherwise,
// keeping client supplied names out of metric labels.
func (r *Router) MetricLabel(event string) string {
	if _, ok := r.routes[event]; ok {
		return event
	}
	return unknownEventLabel
}

// Dispatch runs the handler for frame and applies the uniform emission
// policy. It never panics and never closes the connection.
func (r *Router) Dispatch(ctx context.Context, sender Replier, frame InboundFrame) Result {
	rt, ok := r.routes[frame.Event]
	if !ok {
		r.logger.Debugw("Ignoring unknown event", "conn_id", sender.ID(), "event", frame.Event)
		r.metrics.EventHandled(unknownEventLabel, OutcomeNotFound.String(), 0)
		return NotFound(fmt.Errorf("unknown event %q", frame.Event))
	}

	ctx = logger.WithValue(ctx, logger.ConnIDKey, string(sender.ID()))
	ctx, span := tracing.TraceSocketEvent(ctx, frame.Event, string(sender.ID()))
	defer span.End()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req := &Request{
		ConnID: sender.ID(),
		Data:   frame.Data,
		Client: sender.Metadata(),
	}
	if identity, ok := r.hub.Identity(sender.ID()); ok {
		req.Identity = &identity
		ctx = logger.WithValue(ctx, logger.UserIDKey, string(identity.UserID))
		tracing.AddSpanAttributes(ctx, tracing.UserIDKey.String(string(identity.UserID)))
	}
	tracing.AddSpanAttributes(ctx, tracing.AuthStateKey.Bool(req.Identity != nil))

	start := time.Now()
	result := r.invoke(ctx, rt.handler, req, frame.Event)
	r.metrics.EventHandled(frame.Event, result.Outcome.String(), time.Since(start))
	tracing.AddSpanAttributes(ctx, tracing.OutcomeKey.String(result.Outcome.String()))

	r.emit(ctx, sender, frame, rt, result)
	return result
}

func (r *Router) invoke(ctx context.Context, h HandlerFunc, req *Request, event string) (result Result) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorw("Handler panic recovered", "conn_id", req.ConnID, "event", event, "panic", p)
			result = PersistenceFailure(fmt.Errorf("handler panic: %v", p))
		}
	}()
	return h(ctx, req)
}

func (r *Router) emit(ctx context.Context, sender Replier, frame InboundFrame, rt route, result Result) {
	fields := []interface{}{"conn_id", sender.ID(), "event", frame.Event, "outcome", result.Outcome.String()}

	switch result.Outcome {
	case OutcomeOK:
		if result.Reply != nil {
			sender.Send(result.Reply.Event, result.Reply.Payload, frame.AckID)
		}
		return

	case OutcomeUnauthorized, OutcomeNotFound:
		r.logger.Debugw("Event ignored", append(fields, "reason", errString(result.Err))...)
		return

	case OutcomeInvalid:
		r.logger.Infow("Rejected event payload", append(fields, "error", errString(result.Err))...)

	case OutcomePersistenceError:
		tracing.RecordError(ctx, result.Err)
		r.logger.Errorw("Event handler failed", append(fields, "error", errString(result.Err))...)
	}

	if rt.errorMessage != "" {
		sender.Send(domain.EventError, errorPayload{Message: rt.errorMessage, Event: frame.Event}, frame.AckID)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
