package models

import (
	"github.com/alex-pricope/art-contest-voting/quota"
	"github.com/alex-pricope/art-contest-voting/storage"
)

type LoginRequest struct {
	Name string `json:"name"`
}

type SessionResponse struct {
	Name               string         `json:"name"`
	VotesRemaining     int            `json:"votesRemaining"`
	RefreshesRemaining int            `json:"refreshesRemaining"`
	LastVoteDate       string         `json:"lastVoteDate"`
	State              quota.State    `json:"state"`
	Notices            []quota.Notice `json:"notices,omitempty"`
}

func TransformUserToSession(u *storage.User, state quota.State, notices []quota.Notice) SessionResponse {
	return SessionResponse{
		Name:               u.Name,
		VotesRemaining:     u.VotesRemaining,
		RefreshesRemaining: u.RefreshesRemaining,
		LastVoteDate:       u.LastVoteDate,
		State:              state,
		Notices:            notices,
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}
