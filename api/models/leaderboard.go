package models

import (
	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/storage"
)

type LeaderboardResponse struct {
	Entries   []storage.LeaderboardEntry `json:"entries"`
	UpdatedAt string                     `json:"updatedAt"`
}

// TransformLeaderboard drops image references when the contest hides them.
func TransformLeaderboard(l *storage.Leaderboard, showImages bool, zone *contest.Zone) LeaderboardResponse {
	entries := make([]storage.LeaderboardEntry, 0, len(l.Entries))
	for _, e := range l.Entries {
		if !showImages {
			e.ImageURL = ""
		}
		entries = append(entries, e)
	}
	return LeaderboardResponse{Entries: entries, UpdatedAt: zone.Display(l.UpdatedAt)}
}
