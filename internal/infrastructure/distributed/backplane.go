package distributed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"experiencehub/internal/core/domain"
)

// ErrAlreadySubscribed is returned by a second Subscribe on the same backplane.
var ErrAlreadySubscribed = errors.New("backplane already subscribed")

// RedisBackplane relays broadcast envelopes between instances over a single
// Redis pub/sub channel.
type RedisBackplane struct {
	client     *redis.Client
	channel    string
	instanceID string
	logger     *zap.SugaredLogger

	mu     sync.Mutex
	pubsub *redis.PubSub
}

func NewRedisBackplane(client *redis.Client, channel, instanceID string, logger *zap.SugaredLogger) *RedisBackplane {
	return &RedisBackplane{
		client:     client,
		channel:    channel,
		instanceID: instanceID,
		logger:     logger,
	}
}

// Publish stamps the envelope with this instance and publishes it.
func (b *RedisBackplane) Publish(ctx context.Context, env domain.Envelope) error {
	env.InstanceID = b.instanceID

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish envelope: %w", err)
	}

	b.logger.Debugw("published envelope",
		"event", env.Event,
		"target", env.Target.Kind,
	)
	return nil
}

// Subscribe confirms the subscription and then delivers envelopes from other
// instances on a background goroutine until ctx is cancelled or Close is called.
func (b *RedisBackplane) Subscribe(ctx context.Context, handler func(domain.Envelope)) error {
	b.mu.Lock()
	if b.pubsub != nil {
		b.mu.Unlock()
		return ErrAlreadySubscribed
	}
	pubsub := b.client.Subscribe(ctx, b.channel)
	b.pubsub = pubsub
	b.mu.Unlock()

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = b.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	ch := pubsub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				env, err := decodeEnvelope(msg.Payload)
				if err != nil {
					b.logger.Warnw("failed to decode envelope",
						"error", err,
						"payload", msg.Payload,
					)
					continue
				}
				if env.InstanceID == b.instanceID {
					continue
				}
				handler(env)
			}
		}
	}()

	b.logger.Infow("subscribed to backplane",
		"channel", b.channel,
		"instance_id", b.instanceID,
	)
	return nil
}

func (b *RedisBackplane) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubsub == nil {
		return nil
	}
	err := b.pubsub.Close()
	b.pubsub = nil
	return err
}

func decodeEnvelope(payload string) (domain.Envelope, error) {
	var env domain.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return domain.Envelope{}, err
	}
	if env.Event == "" {
		return domain.Envelope{}, fmt.Errorf("envelope has no event")
	}
	if env.Target.Kind == "" {
		return domain.Envelope{}, fmt.Errorf("envelope has no target")
	}
	return env, nil
}
