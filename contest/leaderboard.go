package contest

import (
	"context"
	"sort"

	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/alex-pricope/art-contest-voting/storage"
)

// Rank orders submissions by score, highest first, ties by id.
func Rank(submissions []*storage.Submission) []storage.LeaderboardEntry {
	sorted := append([]*storage.Submission{}, submissions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].ID < sorted[j].ID
	})

	entries := make([]storage.LeaderboardEntry, 0, len(sorted))
	for i, s := range sorted {
		entries = append(entries, storage.LeaderboardEntry{
			Rank:     i + 1,
			ID:       s.ID,
			Title:    s.Title,
			ImageURL: s.ImageURL,
			Score:    s.Score,
		})
	}
	return entries
}

type LeaderboardService struct {
	submissions storage.SubmissionStorage
	snapshots   storage.LeaderboardStorage
	zone        *Zone
}

func NewLeaderboardService(submissions storage.SubmissionStorage, snapshots storage.LeaderboardStorage, zone *Zone) *LeaderboardService {
	return &LeaderboardService{submissions: submissions, snapshots: snapshots, zone: zone}
}

// Refresh recomputes and stores the snapshot. It is only ever triggered by hand.
func (s *LeaderboardService) Refresh(ctx context.Context) (*storage.Leaderboard, error) {
	submissions, err := s.submissions.GetAll(ctx)
	if err != nil {
		return nil, Remote("load submissions", err)
	}

	snapshot := &storage.Leaderboard{
		ID:        storage.LeaderboardKey,
		Entries:   Rank(submissions),
		UpdatedAt: s.zone.Clock().Now().UTC(),
	}
	if err := s.snapshots.Put(ctx, snapshot); err != nil {
		return nil, Remote("store leaderboard", err)
	}
	logging.Log.Infof("LEADERBOARD: refreshed with %d entries", len(snapshot.Entries))
	return snapshot, nil
}

// Latest returns storage.ErrItemNotFound when no snapshot was ever generated.
func (s *LeaderboardService) Latest(ctx context.Context) (*storage.Leaderboard, error) {
	snapshot, err := s.snapshots.Get(ctx)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, err
		}
		return nil, Remote("load leaderboard", err)
	}
	return snapshot, nil
}
