// Package pairing picks the next two submissions a voter is shown.
//
// A pair is never offered twice to the same voter between resets: every resolved
// matchup is recorded as a pair key, and keys are compared in both orientations.
// Submissions that already won a vote from the voter drop out of the candidate set.
package pairing

import (
	"errors"
	"math/rand/v2"
	"sync"
)

var (
	ErrInsufficientCandidates = errors.New("fewer than two submissions left to compare")
	ErrPairsExhausted         = errors.New("every remaining pair has already been voted on")
)

const keySeparator = "-"

// Pair is a displayed matchup. Left/Right is display order only.
type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

func (p Pair) Key() string {
	return Key(p.Left, p.Right)
}

func (p Pair) Contains(id string) bool {
	return p.Left == id || p.Right == id
}

// Other returns the opponent of id within the pair.
func (p Pair) Other(id string) (string, bool) {
	switch id {
	case p.Left:
		return p.Right, true
	case p.Right:
		return p.Left, true
	}
	return "", false
}

// Key is the order-independent identifier of a matchup.
func Key(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + keySeparator + b
}

// Voted reports whether the matchup appears in votedPairs in either orientation.
// Keys written as "winner-loser" and canonical keys are both recognised.
func Voted(votedPairs map[string]struct{}, a, b string) bool {
	if _, ok := votedPairs[a+keySeparator+b]; ok {
		return true
	}
	_, ok := votedPairs[b+keySeparator+a]
	return ok
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{rng: rng}
}

// Candidates enumerates every unordered pair of non-winner submissions whose key
// is absent from votedPairs. The full enumeration is redone on every call since the
// histories change after each vote.
func Candidates(all []string, votedWinners, votedPairs []string) ([]Pair, error) {
	winners := toSet(votedWinners)
	voted := toSet(votedPairs)

	seen := make(map[string]struct{}, len(all))
	candidates := make([]string, 0, len(all))
	for _, id := range all {
		if _, won := winners[id]; won {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		candidates = append(candidates, id)
	}
	if len(candidates) < 2 {
		return nil, ErrInsufficientCandidates
	}

	pairs := make([]Pair, 0, len(candidates)*(len(candidates)-1)/2)
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if Voted(voted, candidates[i], candidates[j]) {
				continue
			}
			pairs = append(pairs, Pair{Left: candidates[i], Right: candidates[j]})
		}
	}
	if len(pairs) == 0 {
		return nil, ErrPairsExhausted
	}
	return pairs, nil
}

// Next picks a pair uniformly at random. When previous is set, pairs sharing a
// submission with it are avoided unless nothing else is left. The returned
// orientation is a coin flip.
func (s *Selector) Next(all []string, votedWinners, votedPairs []string, previous *Pair) (Pair, error) {
	pairs, err := Candidates(all, votedWinners, votedPairs)
	if err != nil {
		return Pair{}, err
	}

	pool := pairs
	if previous != nil {
		fresh := make([]Pair, 0, len(pairs))
		for _, p := range pairs {
			if previous.Contains(p.Left) || previous.Contains(p.Right) {
				continue
			}
			fresh = append(fresh, p)
		}
		if len(fresh) > 0 {
			pool = fresh
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	chosen := pool[s.rng.IntN(len(pool))]
	if s.rng.IntN(2) == 1 {
		chosen.Left, chosen.Right = chosen.Right, chosen.Left
	}
	return chosen, nil
}
