package contest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alex-pricope/art-contest-voting/storage"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSettings struct{ err error }

func (f failingSettings) Get(context.Context) (*storage.Settings, error) { return nil, f.err }
func (f failingSettings) Put(context.Context, *storage.Settings) error   { return f.err }

func newTestSettings(t *testing.T) (*SettingsService, *storage.Memory) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC)) // 12:00 in Hong Kong
	mem := storage.NewMemory()
	defaults := Defaults{Theme: "Spring", MaxVotes: 5, MaxRefreshes: 15, ShowLeaderboardImages: true}
	return NewSettingsService(mem.Settings(), defaults, NewZone(clock, DefaultTimezone)), mem
}

func TestStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC)
	before, after := now.Add(-time.Hour), now.Add(time.Hour)

	tests := []struct {
		name     string
		settings storage.Settings
		want     VotingStatus
		allowed  bool
	}{
		{"no window", storage.Settings{}, StatusAlways, true},
		{"not started", storage.Settings{VotingStartTime: &after}, StatusNotStarted, false},
		{"ended", storage.Settings{VotingStartTime: &before, VotingEndTime: &before}, StatusEnded, false},
		{"active", storage.Settings{VotingStartTime: &before, VotingEndTime: &after}, StatusActive, true},
		{"open start", storage.Settings{VotingEndTime: &after}, StatusActive, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(&tt.settings, now))
			assert.Equal(t, tt.allowed, IsVotingAllowed(&tt.settings, now))
		})
	}
}

func TestSettingsService(t *testing.T) {
	ctx := context.Background()

	t.Run("Happy path - defaults are written on first load", func(t *testing.T) {
		svc, mem := newTestSettings(t)

		settings, err := svc.Load(ctx)

		require.NoError(t, err)
		assert.Equal(t, 5, settings.MaxVotes)
		assert.Equal(t, 15, settings.MaxRefreshes)
		stored, err := mem.Settings().Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Spring", stored.Theme)
	})

	t.Run("Happy path - window bounds are read in the contest zone", func(t *testing.T) {
		svc, _ := newTestSettings(t)

		settings, err := svc.UpdateWindow(ctx, "2025-03-10T09:00", "2025-03-10T18:00")

		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC), *settings.VotingStartTime)
		assert.Equal(t, StatusActive, svc.Status(settings))
		_, err = svc.CheckVotingOpen(ctx)
		assert.NoError(t, err)
	})

	t.Run("Unhappy path - closed window blocks voting", func(t *testing.T) {
		svc, _ := newTestSettings(t)
		_, err := svc.UpdateWindow(ctx, "2025-03-09T09:00", "2025-03-09T18:00")
		require.NoError(t, err)

		_, err = svc.CheckVotingOpen(ctx)

		require.ErrorIs(t, err, ErrVotingClosed)
		var closed *VotingClosedError
		require.True(t, errors.As(err, &closed))
		assert.Equal(t, StatusEnded, closed.Status)
	})

	t.Run("Unhappy path - end before start", func(t *testing.T) {
		svc, _ := newTestSettings(t)
		_, err := svc.UpdateWindow(ctx, "2025-03-10T18:00", "2025-03-10T09:00")
		assert.ErrorIs(t, err, ErrInvalidWindow)
		_, err = svc.UpdateWindow(ctx, "garbage", "")
		assert.Error(t, err)
	})

	t.Run("Happy path - clear window and toggle images", func(t *testing.T) {
		svc, _ := newTestSettings(t)
		_, err := svc.UpdateWindow(ctx, "2025-03-11T09:00", "")
		require.NoError(t, err)

		settings, err := svc.ClearWindow(ctx)
		require.NoError(t, err)
		assert.Nil(t, settings.VotingStartTime)
		assert.Equal(t, StatusAlways, svc.Status(settings))

		settings, err = svc.SetLeaderboardImages(ctx, nil)
		require.NoError(t, err)
		assert.False(t, settings.ShowLeaderboardImages)
		show := true
		settings, err = svc.SetLeaderboardImages(ctx, &show)
		require.NoError(t, err)
		assert.True(t, settings.ShowLeaderboardImages)
	})

	t.Run("Unhappy path - empty theme", func(t *testing.T) {
		svc, _ := newTestSettings(t)
		_, err := svc.UpdateTheme(ctx, "  ")
		assert.Error(t, err)
		settings, err := svc.UpdateTheme(ctx, " Autumn ")
		require.NoError(t, err)
		assert.Equal(t, "Autumn", settings.Theme)
	})

	t.Run("Unhappy path - storage failure is remote", func(t *testing.T) {
		svc := NewSettingsService(failingSettings{err: errors.New("timeout")}, Defaults{}, NewZone(clockwork.NewFakeClock(), DefaultTimezone))
		_, err := svc.Load(ctx)
		assert.True(t, IsRemote(err))
	})
}
