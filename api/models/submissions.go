package models

import (
	"time"

	"github.com/alex-pricope/art-contest-voting/storage"
)

type SubmissionResponse struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	ImageURL  string               `json:"imageUrl"`
	ImagePath string               `json:"imagePath"`
	Score     int                  `json:"score"`
	Votes     []storage.VoteRecord `json:"votes"`
	CreatedAt time.Time            `json:"createdAt"`
}

func TransformSubmissionFromStorage(s *storage.Submission) SubmissionResponse {
	votes := s.Votes
	if votes == nil {
		votes = []storage.VoteRecord{}
	}
	return SubmissionResponse{
		ID:        s.ID,
		Title:     s.Title,
		ImageURL:  s.ImageURL,
		ImagePath: s.ImagePath,
		Score:     s.Score,
		Votes:     votes,
		CreatedAt: s.CreatedAt,
	}
}
