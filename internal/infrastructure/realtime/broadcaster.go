package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
	"experiencehub/pkg/tracing"

	"go.uber.org/zap"
)

// Backplane carries broadcasts between instances. Implementations must not
// hand an instance its own envelopes back.
type Backplane interface {
	Publish(ctx context.Context, env domain.Envelope) error
	Subscribe(ctx context.Context, handler func(domain.Envelope)) error
	Close() error
}

// Broadcaster is the directed-send facade. It always delivers to local
// room members and, when a backplane is attached, republishes the same
// envelope for the other instances.
type Broadcaster struct {
	hub        *Hub
	backplane  Backplane
	instanceID string
	metrics    Metrics
	logger     *zap.SugaredLogger
}

// NewBroadcaster creates the facade. backplane may be nil for a single instance.
func NewBroadcaster(hub *Hub, backplane Backplane, instanceID string, metrics Metrics, logger *zap.SugaredLogger) *Broadcaster {
	return &Broadcaster{
		hub:        hub,
		backplane:  backplane,
		instanceID: instanceID,
		metrics:    metricsOrNoop(metrics),
		logger:     logger,
	}
}

// Start subscribes to the backplane. It is a no-op without one.
func (b *Broadcaster) Start(ctx context.Context) error {
	if b.backplane == nil {
		return nil
	}
	return b.backplane.Subscribe(ctx, b.HandleRemote)
}

func (b *Broadcaster) SendToUser(ctx context.Context, userID domain.UserID, event string, payload interface{}) error {
	return b.send(ctx, domain.Target{Kind: domain.TargetUser, ID: string(userID)}, event, payload, "")
}

func (b *Broadcaster) SendToOrganization(ctx context.Context, orgID domain.OrganizationID, event string, payload interface{}) error {
	return b.send(ctx, domain.Target{Kind: domain.TargetOrganization, ID: string(orgID)}, event, payload, "")
}

func (b *Broadcaster) SendToStudent(ctx context.Context, studentID domain.StudentID, event string, payload interface{}) error {
	return b.send(ctx, domain.Target{Kind: domain.TargetStudent, ID: string(studentID)}, event, payload, "")
}

func (b *Broadcaster) SendToAll(ctx context.Context, event string, payload interface{}) error {
	return b.send(ctx, domain.Target{Kind: domain.TargetAll}, event, payload, "")
}

func (b *Broadcaster) SendToRole(ctx context.Context, role domain.UserRole, event string, payload interface{}) error {
	return b.send(ctx, domain.Target{Kind: domain.TargetRole, ID: string(role)}, event, payload, "")
}

func (b *Broadcaster) SendToRoom(ctx context.Context, room domain.RoomName, event string, payload interface{}, except domain.ConnID) error {
	return b.send(ctx, domain.Target{Kind: domain.TargetRoom, ID: string(room)}, event, payload, except)
}

func (b *Broadcaster) send(ctx context.Context, target domain.Target, event string, payload interface{}, except domain.ConnID) error {
	ctx, span := tracing.TraceBroadcast(ctx, string(target.Kind), target.ID, event)
	defer span.End()

	raw, err := json.Marshal(payload)
	if err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}

	env := domain.Envelope{
		InstanceID: b.instanceID,
		Target:     target,
		Event:      event,
		Payload:    raw,
		ExceptConn: except,
	}

	if err := b.deliverLocal(env); err != nil {
		return err
	}
	b.metrics.BroadcastSent(string(target.Kind))

	if b.backplane != nil {
		if err := b.backplane.Publish(ctx, env); err != nil {
			tracing.RecordError(ctx, err)
			b.logger.Warnw("Backplane publish failed",
				"event", event,
				"target", target.Kind,
				"error", err,
			)
			return fmt.Errorf("publish %s: %w", event, err)
		}
		b.metrics.BackplaneMessage("out")
	}
	return nil
}

// HandleRemote re-emits an envelope published by another instance.
func (b *Broadcaster) HandleRemote(env domain.Envelope) {
	if env.InstanceID == b.instanceID {
		return
	}
	b.metrics.BackplaneMessage("in")
	if err := b.deliverLocal(env); err != nil {
		b.logger.Warnw("Dropping backplane envelope", "event", env.Event, "error", err)
	}
}

func (b *Broadcaster) deliverLocal(env domain.Envelope) error {
	msg, err := encodeFrame(env.Event, env.Payload, "")
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", env.Event, err)
	}

	var delivered int
	switch env.Target.Kind {
	case domain.TargetAll:
		delivered = b.hub.EmitToAll(msg, env.ExceptConn)
	case domain.TargetRole:
		delivered = b.hub.EmitToRole(domain.UserRole(env.Target.ID), msg, env.ExceptConn)
	default:
		room, ok := env.Target.Room()
		if !ok {
			return fmt.Errorf("unknown broadcast target %q", env.Target.Kind)
		}
		delivered = b.hub.EmitToRoom(room, msg, env.ExceptConn)
	}

	b.logger.Debugw("Broadcast delivered locally",
		"event", env.Event,
		"target", env.Target.Kind,
		"target_id", env.Target.ID,
		"delivered", delivered,
	)
	return nil
}

var _ ports.Broadcaster = (*Broadcaster)(nil)
