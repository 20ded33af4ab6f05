package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestScheduler_RunsJobRepeatedly(t *testing.T) {
	s := NewScheduler(zap.NewNop().Sugar())
	var runs atomic.Int32

	require.NoError(t, s.Add(context.Background(), Job{
		Name:  "presence-refresh",
		Every: 20 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))
	assert.Equal(t, 1, s.Len())

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := NewScheduler(zap.New(core).Sugar())

	require.NoError(t, s.Add(context.Background(), Job{
		Name:  "rooms-sample",
		Every: 20 * time.Millisecond,
		Run:   func(context.Context) error { return errors.New("boom") },
	}))
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("Scheduled job failed").Len() > 0
	}, 2*time.Second, 5*time.Millisecond)

	entry := logs.FilterMessage("Scheduled job failed").All()[0]
	assert.Equal(t, "rooms-sample", entry.ContextMap()["job"])
}

func TestScheduler_SkipsRunsAfterContextDone(t *testing.T) {
	s := NewScheduler(zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var runs atomic.Int32
	require.NoError(t, s.Add(ctx, Job{
		Name:  "presence-refresh",
		Every: 10 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))
	s.Start()
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	assert.Zero(t, runs.Load())
}

func TestScheduler_AddValidates(t *testing.T) {
	s := NewScheduler(zap.NewNop().Sugar())
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.Add(context.Background(), Job{Every: time.Second, Run: noop}))
	assert.Error(t, s.Add(context.Background(), Job{Name: "x", Run: noop}))
	assert.Error(t, s.Add(context.Background(), Job{Name: "x", Every: time.Second}))
	assert.Zero(t, s.Len())
}
