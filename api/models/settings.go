package models

import (
	"time"

	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/storage"
)

type SettingsResponse struct {
	Theme                 string               `json:"theme"`
	MaxVotes              int                  `json:"maxVotes"`
	MaxRefreshes          int                  `json:"maxRefreshes"`
	ShowLeaderboardImages bool                 `json:"showLeaderboardImages"`
	VotingStartTime       *time.Time           `json:"votingStartTime,omitempty"`
	VotingEndTime         *time.Time           `json:"votingEndTime,omitempty"`
	VotingStart           string               `json:"votingStart,omitempty"`
	VotingEnd             string               `json:"votingEnd,omitempty"`
	Status                contest.VotingStatus `json:"status"`
	StatusMessage         string               `json:"statusMessage"`
	IsVotingAllowed       bool                 `json:"isVotingAllowed"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

// WindowRequest bounds accept RFC3339 or "YYYY-MM-DDTHH:MM" in the contest timezone.
type WindowRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type LeaderboardImagesRequest struct {
	// Show toggles the current value when omitted.
	Show *bool `json:"show"`
}

func TransformSettings(s *storage.Settings, zone *contest.Zone) SettingsResponse {
	status := contest.Status(s, zone.Now())
	resp := SettingsResponse{
		Theme:                 s.Theme,
		MaxVotes:              s.MaxVotes,
		MaxRefreshes:          s.MaxRefreshes,
		ShowLeaderboardImages: s.ShowLeaderboardImages,
		VotingStartTime:       s.VotingStartTime,
		VotingEndTime:         s.VotingEndTime,
		Status:                status,
		StatusMessage:         status.Message(),
		IsVotingAllowed:       status == contest.StatusAlways || status == contest.StatusActive,
	}
	if s.VotingStartTime != nil {
		resp.VotingStart = zone.Display(*s.VotingStartTime)
	}
	if s.VotingEndTime != nil {
		resp.VotingEnd = zone.Display(*s.VotingEndTime)
	}
	return resp
}
