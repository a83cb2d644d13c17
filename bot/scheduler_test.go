package bot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerAfterFires(t *testing.T) {
	s := NewScheduler()
	defer s.Stop(context.Background())

	var fired atomic.Int32
	s.After(MessageKey{ChatID: 1, MessageID: 1}, 10*time.Millisecond, func(context.Context) { fired.Add(1) })
	assert.Equal(t, 1, s.Pending())

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.Pending())
}

func TestSchedulerCancelPreventsFiring(t *testing.T) {
	s := NewScheduler()
	defer s.Stop(context.Background())

	var fired atomic.Int32
	key := MessageKey{ChatID: 1, MessageID: 2}
	s.After(key, 30*time.Millisecond, func(context.Context) { fired.Add(1) })

	assert.True(t, s.Cancel(key))
	assert.False(t, s.Cancel(key))
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestSchedulerRescheduleReplaces(t *testing.T) {
	s := NewScheduler()
	defer s.Stop(context.Background())

	var first, second atomic.Int32
	key := MessageKey{ChatID: 5, MessageID: 5}
	s.After(key, 20*time.Millisecond, func(context.Context) { first.Add(1) })
	s.After(key, 20*time.Millisecond, func(context.Context) { second.Add(1) })
	assert.Equal(t, 1, s.Pending())

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, first.Load())
}

func TestSchedulerStopDropsPending(t *testing.T) {
	s := NewScheduler()

	var fired atomic.Int32
	s.After(MessageKey{ChatID: 1, MessageID: 1}, 20*time.Millisecond, func(context.Context) { fired.Add(1) })
	s.Stop(context.Background())

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, fired.Load())
	assert.Zero(t, s.Pending())
}

func TestSchedulerEvery(t *testing.T) {
	s := NewScheduler()
	defer s.Stop(context.Background())

	assert.Error(t, s.Every("every now and then", "bad", func(context.Context) {}))

	var runs atomic.Int32
	require.NoError(t, s.Every("@every 1s", "tick", func(context.Context) { runs.Add(1) }))
	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}
