package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 8 * * *"))
	assert.NoError(t, ValidateSchedule("*/5 * * * *"))
	assert.Error(t, ValidateSchedule("every morning"))
	assert.Error(t, ValidateSchedule("0 0 8 * * *"), "seconds field is not accepted")
}

func TestNextRun(t *testing.T) {
	from := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	next, err := NextRun("0 8 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), next)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Daily at 08:00", Describe("0 8 * * *"))
	assert.Equal(t, "Custom schedule: 5 4 * * *", Describe("5 4 * * *"))
}

func TestNotificationScheduler_StartStop(t *testing.T) {
	s := NewNotificationScheduler("0 8 * * *", func(context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	assert.NotNil(t, s.NextRunTime())

	require.NoError(t, s.Start(ctx), "second start is a no-op")

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRunTime())
}

func TestNotificationScheduler_StopsOnCancel(t *testing.T) {
	s := NewNotificationScheduler("0 8 * * *", func(context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
}

func TestNotificationScheduler_InvalidSchedule(t *testing.T) {
	s := NewNotificationScheduler("bogus", func(context.Context) error { return nil })
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())

	assert.Error(t, NewNotificationScheduler("0 8 * * *", nil).Start(context.Background()))
}

func TestNotificationScheduler_RunNow(t *testing.T) {
	var calls atomic.Int32
	s := NewNotificationScheduler("0 8 * * *", func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, s.RunNow(context.Background()))
	assert.Equal(t, int32(1), calls.Load())

	failing := NewNotificationScheduler("0 8 * * *", func(context.Context) error { return errors.New("boom") })
	assert.Error(t, failing.RunNow(context.Background()))
}
