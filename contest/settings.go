package contest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/alex-pricope/art-contest-voting/storage"
)

type VotingStatus string

const (
	StatusAlways     VotingStatus = "always"
	StatusNotStarted VotingStatus = "notStarted"
	StatusEnded      VotingStatus = "ended"
	StatusActive     VotingStatus = "active"
)

var statusMessages = map[VotingStatus]string{
	StatusAlways:     "no time limit",
	StatusNotStarted: "voting has not started yet",
	StatusEnded:      "voting has ended",
	StatusActive:     "voting is open",
}

func (s VotingStatus) Message() string {
	return statusMessages[s]
}

type Defaults struct {
	Theme                 string
	MaxVotes              int
	MaxRefreshes          int
	ShowLeaderboardImages bool
}

func (d Defaults) Settings() *storage.Settings {
	return &storage.Settings{
		ID:                    storage.SettingsKey,
		Theme:                 d.Theme,
		MaxVotes:              d.MaxVotes,
		MaxRefreshes:          d.MaxRefreshes,
		ShowLeaderboardImages: d.ShowLeaderboardImages,
	}
}

// Status places now against the optional voting window. A missing bound is open-ended.
func Status(settings *storage.Settings, now time.Time) VotingStatus {
	if settings.VotingStartTime == nil && settings.VotingEndTime == nil {
		return StatusAlways
	}
	if settings.VotingStartTime != nil && now.Before(*settings.VotingStartTime) {
		return StatusNotStarted
	}
	if settings.VotingEndTime != nil && now.After(*settings.VotingEndTime) {
		return StatusEnded
	}
	return StatusActive
}

func IsVotingAllowed(settings *storage.Settings, now time.Time) bool {
	status := Status(settings, now)
	return status == StatusAlways || status == StatusActive
}

// SettingsService loads the singleton settings document and applies admin changes.
type SettingsService struct {
	storage  storage.SettingsStorage
	defaults Defaults
	zone     *Zone
}

func NewSettingsService(s storage.SettingsStorage, defaults Defaults, zone *Zone) *SettingsService {
	return &SettingsService{storage: s, defaults: defaults, zone: zone}
}

// Load returns the settings, writing the defaults on first run.
func (s *SettingsService) Load(ctx context.Context) (*storage.Settings, error) {
	settings, err := s.storage.Get(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, storage.ErrItemNotFound) {
		logging.Log.Errorf("SETTINGS: failed to load settings: %v", err)
		return nil, Remote("load settings", err)
	}

	logging.Log.Infof("SETTINGS: %v, writing defaults", ErrConfigurationMissing)
	settings = s.defaults.Settings()
	if err := s.storage.Put(ctx, settings); err != nil {
		logging.Log.Errorf("SETTINGS: failed to write default settings: %v", err)
		return nil, Remote("write default settings", err)
	}
	return settings, nil
}

// CheckVotingOpen fails with a VotingClosedError outside the window.
func (s *SettingsService) CheckVotingOpen(ctx context.Context) (*storage.Settings, error) {
	settings, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if status := Status(settings, s.zone.Now()); status != StatusAlways && status != StatusActive {
		return settings, &VotingClosedError{Status: status}
	}
	return settings, nil
}

func (s *SettingsService) Status(settings *storage.Settings) VotingStatus {
	return Status(settings, s.zone.Now())
}

func (s *SettingsService) UpdateTheme(ctx context.Context, theme string) (*storage.Settings, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return nil, errors.New("theme must not be empty")
	}
	return s.mutate(ctx, "update theme", func(settings *storage.Settings) {
		settings.Theme = theme
	})
}

// UpdateWindow sets the voting window. Empty values clear the matching bound.
func (s *SettingsService) UpdateWindow(ctx context.Context, start, end string) (*storage.Settings, error) {
	startTime, err := s.parseBound(start)
	if err != nil {
		return nil, fmt.Errorf("invalid start time: %w", err)
	}
	endTime, err := s.parseBound(end)
	if err != nil {
		return nil, fmt.Errorf("invalid end time: %w", err)
	}
	if startTime != nil && endTime != nil && !startTime.Before(*endTime) {
		return nil, ErrInvalidWindow
	}
	return s.mutate(ctx, "update voting window", func(settings *storage.Settings) {
		settings.VotingStartTime = startTime
		settings.VotingEndTime = endTime
	})
}

func (s *SettingsService) ClearWindow(ctx context.Context) (*storage.Settings, error) {
	return s.mutate(ctx, "clear voting window", func(settings *storage.Settings) {
		settings.VotingStartTime = nil
		settings.VotingEndTime = nil
	})
}

// SetLeaderboardImages sets the visibility flag, or flips it when show is nil.
func (s *SettingsService) SetLeaderboardImages(ctx context.Context, show *bool) (*storage.Settings, error) {
	return s.mutate(ctx, "update leaderboard images", func(settings *storage.Settings) {
		if show == nil {
			settings.ShowLeaderboardImages = !settings.ShowLeaderboardImages
			return
		}
		settings.ShowLeaderboardImages = *show
	})
}

func (s *SettingsService) parseBound(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := s.zone.ParseWindowTime(value)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func (s *SettingsService) mutate(ctx context.Context, op string, apply func(*storage.Settings)) (*storage.Settings, error) {
	settings, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	apply(settings)
	if err := s.storage.Put(ctx, settings); err != nil {
		logging.Log.Errorf("SETTINGS: failed to %s: %v", op, err)
		return nil, Remote(op, err)
	}
	logging.Log.Infof("SETTINGS: %s done", op)
	return settings, nil
}
