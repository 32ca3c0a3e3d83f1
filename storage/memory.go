package storage

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps every document in process. It backs local runs with
// storage.driver=memory and the unit tests; updates are atomic under one lock,
// mirroring the conditional expressions of the DynamoDB storages.
type Memory struct {
	mu          sync.Mutex
	submissions map[string]*Submission
	users       map[string]*User
	settings    *Settings
	leaderboard *Leaderboard
}

func NewMemory() *Memory {
	return &Memory{
		submissions: make(map[string]*Submission),
		users:       make(map[string]*User),
	}
}

func (m *Memory) Submissions() *MemorySubmissionStorage  { return &MemorySubmissionStorage{m} }
func (m *Memory) Users() *MemoryUserStorage              { return &MemoryUserStorage{m} }
func (m *Memory) Settings() *MemorySettingsStorage       { return &MemorySettingsStorage{m} }
func (m *Memory) Leaderboard() *MemoryLeaderboardStorage { return &MemoryLeaderboardStorage{m} }

func copySubmission(s *Submission) *Submission {
	c := *s
	c.Votes = append([]VoteRecord{}, s.Votes...)
	return &c
}

func copyUser(u *User) *User {
	c := *u
	c.VotedPairs = append([]string{}, u.VotedPairs...)
	c.VotedWinners = append([]string{}, u.VotedWinners...)
	return &c
}

type MemorySubmissionStorage struct{ m *Memory }

func (s *MemorySubmissionStorage) Get(_ context.Context, id string) (*Submission, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sub, ok := s.m.submissions[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return copySubmission(sub), nil
}

func (s *MemorySubmissionStorage) GetAll(_ context.Context) ([]*Submission, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	all := make([]*Submission, 0, len(s.m.submissions))
	for _, sub := range s.m.submissions {
		all = append(all, copySubmission(sub))
	}
	// Scan order is unspecified; keep it stable for callers that print it.
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (s *MemorySubmissionStorage) Create(_ context.Context, submission *Submission) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.submissions[submission.ID]; ok {
		return ErrItemWithIDAlreadyExists
	}
	s.m.submissions[submission.ID] = copySubmission(submission)
	return nil
}

func (s *MemorySubmissionStorage) Delete(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.submissions, id)
	return nil
}

func (s *MemorySubmissionStorage) RecordVote(_ context.Context, id string, vote VoteRecord) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sub, ok := s.m.submissions[id]
	if !ok {
		return ErrItemNotFound
	}
	sub.Score++
	sub.Votes = append(sub.Votes, vote)
	return nil
}

func (s *MemorySubmissionStorage) RemoveVote(_ context.Context, id string, voteID string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sub, ok := s.m.submissions[id]
	if !ok {
		return ErrItemNotFound
	}
	for i, v := range sub.Votes {
		if v.ID == voteID {
			sub.Votes = append(sub.Votes[:i:i], sub.Votes[i+1:]...)
			if sub.Score > 0 {
				sub.Score--
			}
			return nil
		}
	}
	return ErrItemNotFound
}

type MemoryUserStorage struct{ m *Memory }

func (s *MemoryUserStorage) Get(_ context.Context, name string) (*User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[name]
	if !ok {
		return nil, ErrItemNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryUserStorage) GetAll(_ context.Context) ([]*User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	all := make([]*User, 0, len(s.m.users))
	for _, u := range s.m.users {
		all = append(all, copyUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (s *MemoryUserStorage) Create(_ context.Context, user *User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[user.Name]; ok {
		return ErrItemWithIDAlreadyExists
	}
	s.m.users[user.Name] = copyUser(user)
	return nil
}

func (s *MemoryUserStorage) ApplyVote(_ context.Context, name, pairKey, winnerID, date string) (*User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[name]
	if !ok || u.VotesRemaining <= 0 {
		return nil, ErrConditionFailed
	}
	u.VotesRemaining--
	u.VotedPairs = append(u.VotedPairs, pairKey)
	u.VotedWinners = append(u.VotedWinners, winnerID)
	u.LastVoteDate = date
	return copyUser(u), nil
}

func (s *MemoryUserStorage) ConsumeRefresh(_ context.Context, name string) (*User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[name]
	if !ok || u.RefreshesRemaining <= 0 {
		return nil, ErrConditionFailed
	}
	u.RefreshesRemaining--
	return copyUser(u), nil
}

func (s *MemoryUserStorage) Reset(_ context.Context, name string, reset QuotaReset) (*User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[name]
	if !ok {
		return nil, ErrItemNotFound
	}
	u.VotesRemaining = reset.Votes
	u.RefreshesRemaining = reset.Refreshes
	u.VotedPairs = []string{}
	u.VotedWinners = []string{}
	if reset.Watermark != "" {
		u.LastVoteDate = reset.Watermark
	}
	return copyUser(u), nil
}

type MemorySettingsStorage struct{ m *Memory }

func (s *MemorySettingsStorage) Get(_ context.Context) (*Settings, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.settings == nil {
		return nil, ErrItemNotFound
	}
	c := *s.m.settings
	return &c, nil
}

func (s *MemorySettingsStorage) Put(_ context.Context, settings *Settings) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	c := *settings
	c.ID = SettingsKey
	s.m.settings = &c
	return nil
}

type MemoryLeaderboardStorage struct{ m *Memory }

func (s *MemoryLeaderboardStorage) Get(_ context.Context) (*Leaderboard, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.leaderboard == nil {
		return nil, ErrItemNotFound
	}
	c := *s.m.leaderboard
	c.Entries = append([]LeaderboardEntry{}, s.m.leaderboard.Entries...)
	return &c, nil
}

func (s *MemoryLeaderboardStorage) Put(_ context.Context, leaderboard *Leaderboard) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	c := *leaderboard
	c.ID = LeaderboardKey
	c.Entries = append([]LeaderboardEntry{}, leaderboard.Entries...)
	s.m.leaderboard = &c
	return nil
}

var (
	_ SubmissionStorage  = (*MemorySubmissionStorage)(nil)
	_ UserStorage        = (*MemoryUserStorage)(nil)
	_ SettingsStorage    = (*MemorySettingsStorage)(nil)
	_ LeaderboardStorage = (*MemoryLeaderboardStorage)(nil)
	_ SubmissionStorage  = (*DynamoSubmissionStorage)(nil)
	_ UserStorage        = (*DynamoUserStorage)(nil)
	_ SettingsStorage    = (*DynamoSettingsStorage)(nil)
	_ LeaderboardStorage = (*DynamoLeaderboardStorage)(nil)
)
