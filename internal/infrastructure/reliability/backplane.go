package reliability

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/infrastructure/distributed"
	"experiencehub/internal/infrastructure/realtime"
	"experiencehub/pkg/circuitbreaker"
	"experiencehub/pkg/retry"
)

// StateObserver is told about every breaker transition.
type StateObserver interface {
	CircuitStateChanged(dependency string, state int)
}

// Options configures ResilientBackplane.
type Options struct {
	Retry   retry.Config
	Breaker circuitbreaker.Config
}

// ResilientBackplane retries backplane publishes and fails fast while the
// broker is known to be down. Local delivery happens before Publish is
// called, so a rejected publish only costs the other instances the message.
type ResilientBackplane struct {
	inner   realtime.Backplane
	retry   retry.Config
	breaker *circuitbreaker.Breaker
	logger  *zap.SugaredLogger
}

// NewResilientBackplane wraps inner. observer may be nil.
func NewResilientBackplane(inner realtime.Backplane, opts Options, observer StateObserver, logger *zap.SugaredLogger) *ResilientBackplane {
	breaker := circuitbreaker.New("backplane", opts.Breaker)
	breaker.OnStateChange(func(name string, from, to circuitbreaker.State) {
		logger.Warnw("Circuit breaker state changed",
			"dependency", name,
			"from", from.String(),
			"to", to.String(),
		)
		if observer != nil {
			observer.CircuitStateChanged(name, int(to))
		}
	})
	if observer != nil {
		observer.CircuitStateChanged(breaker.Name(), int(circuitbreaker.StateClosed))
	}

	return &ResilientBackplane{
		inner:   inner,
		retry:   opts.Retry,
		breaker: breaker,
		logger:  logger,
	}
}

func (b *ResilientBackplane) Publish(ctx context.Context, env domain.Envelope) error {
	return retry.Do(ctx, b.retry, func(ctx context.Context) error {
		err := b.breaker.Execute(func() error {
			return b.inner.Publish(ctx, env)
		})
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return retry.Permanent(err)
		}
		return err
	})
}

// Subscribe retries the initial subscription. It does not go through the
// breaker.
func (b *ResilientBackplane) Subscribe(ctx context.Context, handler func(domain.Envelope)) error {
	return retry.Do(ctx, b.retry, func(ctx context.Context) error {
		err := b.inner.Subscribe(ctx, handler)
		if errors.Is(err, distributed.ErrAlreadySubscribed) {
			return retry.Permanent(err)
		}
		if err != nil {
			b.logger.Warnw("Backplane subscribe attempt failed", "error", err)
		}
		return err
	})
}

func (b *ResilientBackplane) Close() error {
	return b.inner.Close()
}

// State returns the publish breaker's state.
func (b *ResilientBackplane) State() circuitbreaker.State {
	return b.breaker.State()
}

var _ realtime.Backplane = (*ResilientBackplane)(nil)
