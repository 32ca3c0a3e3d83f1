package models

import (
	"errors"

	"github.com/alex-pricope/art-contest-voting/pairing"
	"github.com/alex-pricope/art-contest-voting/quota"
	"github.com/alex-pricope/art-contest-voting/storage"
)

type SubmissionCard struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
}

type PairResponse struct {
	State              quota.State     `json:"state"`
	Message            string          `json:"message,omitempty"`
	Left               *SubmissionCard `json:"left,omitempty"`
	Right              *SubmissionCard `json:"right,omitempty"`
	VotesRemaining     int             `json:"votesRemaining"`
	RefreshesRemaining int             `json:"refreshesRemaining"`
}

type VoteRequest struct {
	WinnerID string `json:"winnerId"`
}

type VoteResponse struct {
	Message        string `json:"message"`
	VoteID         string `json:"voteId"`
	VotesRemaining int    `json:"votesRemaining"`
}

func transformCard(s *storage.Submission) *SubmissionCard {
	if s == nil {
		return nil
	}
	return &SubmissionCard{ID: s.ID, Title: s.Title, ImageURL: s.ImageURL}
}

func TransformPairResult(r quota.PairResult) PairResponse {
	resp := PairResponse{
		State:   r.State,
		Message: PairMessage(r.State, r.Reason),
		Left:    transformCard(r.Left),
		Right:   transformCard(r.Right),
	}
	if r.User != nil {
		resp.VotesRemaining = r.User.VotesRemaining
		resp.RefreshesRemaining = r.User.RefreshesRemaining
	}
	return resp
}

func PairMessage(state quota.State, reason error) string {
	switch state {
	case quota.StateExhaustedVotes:
		return "You have used all of today's votes. Come back tomorrow!"
	case quota.StateAwaitingReset:
		return "Your votes will be restored shortly."
	case quota.StateExhaustedPairs:
		if errors.Is(reason, pairing.ErrInsufficientCandidates) {
			return "There are not enough submissions left to compare."
		}
		return "You have voted on every available pair today."
	}
	return ""
}
