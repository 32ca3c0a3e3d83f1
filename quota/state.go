package quota

import (
	"errors"

	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/pairing"
	"github.com/alex-pricope/art-contest-voting/storage"
)

type State string

const (
	StateActive         State = "active"
	StateExhaustedVotes State = "exhaustedVotes"
	StateExhaustedPairs State = "exhaustedPairs"
	StateAwaitingReset  State = "awaitingReset"
)

// Evaluate places a user in the quota state machine. reason is the outcome of the
// last pair selection (nil when a pair was found). An exhausted user whose
// watermark is not today is waiting for a reset.
func Evaluate(user *storage.User, today string, reason error) State {
	exhausted := StateActive
	switch {
	case user.VotesRemaining <= 0 || errors.Is(reason, contest.ErrQuotaExhausted):
		exhausted = StateExhaustedVotes
	case errors.Is(reason, pairing.ErrPairsExhausted), errors.Is(reason, pairing.ErrInsufficientCandidates):
		exhausted = StateExhaustedPairs
	}
	if exhausted != StateActive && user.LastVoteDate != today {
		return StateAwaitingReset
	}
	return exhausted
}
