package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hongKong(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Hong_Kong")
	require.NoError(t, err)
	return loc
}

func TestNextFireTime(t *testing.T) {
	loc := hongKong(t)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before the instant targets today",
			now:  time.Date(2026, 10, 16, 10, 0, 0, 0, loc),
			want: time.Date(2026, 10, 16, 23, 59, 0, 0, loc),
		},
		{
			name: "after the instant targets tomorrow",
			now:  time.Date(2026, 10, 16, 23, 59, 30, 0, loc),
			want: time.Date(2026, 10, 17, 23, 59, 0, 0, loc),
		},
		{
			name: "exactly on the instant targets tomorrow",
			now:  time.Date(2026, 10, 16, 23, 59, 0, 0, loc),
			want: time.Date(2026, 10, 17, 23, 59, 0, 0, loc),
		},
		{
			name: "evaluated in the fixed zone, not the caller's",
			// 16:30 UTC is 00:30 next day in Hong Kong.
			now:  time.Date(2026, 10, 16, 16, 30, 0, 0, time.UTC),
			want: time.Date(2026, 10, 17, 23, 59, 0, 0, loc),
		},
		{
			name: "month rollover",
			now:  time.Date(2026, 10, 31, 23, 59, 1, 0, loc),
			want: time.Date(2026, 11, 1, 23, 59, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextFireTime(tt.now, loc, 23, 59)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestDailyTask(t *testing.T) {
	loc := hongKong(t)

	t.Run("Happy path - fires at the instant and re-arms for the next day", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 10, 0, 0, 0, loc))
		var runs atomic.Int32
		task := NewDailyTask("sweep", clock, loc, 23, 59, func(ctx context.Context) error {
			runs.Add(1)
			return nil
		})
		require.True(t, task.Start())
		t.Cleanup(task.Stop)

		clock.BlockUntil(1)
		next, armed := task.NextRun()
		require.True(t, armed)
		assert.True(t, next.Equal(time.Date(2026, 10, 16, 23, 59, 0, 0, loc)))

		clock.Advance(13*time.Hour + 58*time.Minute)
		assert.Equal(t, int32(0), runs.Load(), "must not fire early")

		clock.Advance(time.Minute)
		clock.BlockUntil(1)
		assert.Equal(t, int32(1), runs.Load())

		next, armed = task.NextRun()
		require.True(t, armed)
		assert.True(t, next.Equal(time.Date(2026, 10, 17, 23, 59, 0, 0, loc)), "got %s", next)
	})

	t.Run("Unhappy path - a failing run still re-arms", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 23, 0, 0, 0, loc))
		var runs atomic.Int32
		task := NewDailyTask("sweep", clock, loc, 23, 59, func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("storage unavailable")
		})
		require.True(t, task.Start())
		t.Cleanup(task.Stop)

		clock.BlockUntil(1)
		clock.Advance(time.Hour)
		clock.BlockUntil(1)
		assert.Equal(t, int32(1), runs.Load())

		clock.Advance(24 * time.Hour)
		clock.BlockUntil(1)
		assert.Equal(t, int32(2), runs.Load())
	})

	t.Run("Unhappy path - a panicking run still re-arms", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 23, 58, 0, 0, loc))
		var runs atomic.Int32
		task := NewDailyTask("sweep", clock, loc, 23, 59, func(ctx context.Context) error {
			runs.Add(1)
			panic("unexpected")
		})
		require.True(t, task.Start())
		t.Cleanup(task.Stop)

		clock.BlockUntil(1)
		clock.Advance(time.Minute)
		clock.BlockUntil(1)
		assert.Equal(t, int32(1), runs.Load())
		assert.True(t, task.Running())
	})

	t.Run("Happy path - start is idempotent and stop disarms", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 10, 0, 0, 0, loc))
		task := NewDailyTask("sweep", clock, loc, 23, 59, func(ctx context.Context) error { return nil })

		require.True(t, task.Start())
		assert.False(t, task.Start())
		assert.True(t, task.Running())

		task.Stop()
		assert.False(t, task.Running())
		_, armed := task.NextRun()
		assert.False(t, armed)

		// Stopping twice is harmless.
		task.Stop()
	})
}

func TestPoller(t *testing.T) {
	t.Run("Happy path - checks once per interval until stopped", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		var checks atomic.Int32
		poller := NewPoller(clock, time.Minute, func(ctx context.Context) error {
			checks.Add(1)
			return nil
		})
		poller.Start()

		clock.BlockUntil(1)
		clock.Advance(time.Minute)
		clock.BlockUntil(1)
		assert.Equal(t, int32(1), checks.Load())

		clock.Advance(time.Minute)
		clock.BlockUntil(1)
		assert.Equal(t, int32(2), checks.Load())

		poller.Stop()
		clock.Advance(time.Minute)
		assert.Equal(t, int32(2), checks.Load())
	})

	t.Run("Unhappy path - failing checks keep polling", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		var checks atomic.Int32
		poller := NewPoller(clock, time.Minute, func(ctx context.Context) error {
			checks.Add(1)
			return errors.New("network down")
		})
		poller.Start()
		t.Cleanup(poller.Stop)

		clock.BlockUntil(1)
		clock.Advance(time.Minute)
		clock.BlockUntil(1)
		clock.Advance(time.Minute)
		clock.BlockUntil(1)
		assert.Equal(t, int32(2), checks.Load())
	})
}
