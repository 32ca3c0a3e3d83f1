package storage

import "context"

type SubmissionStorage interface {
	Get(ctx context.Context, id string) (*Submission, error)
	GetAll(ctx context.Context) ([]*Submission, error)
	Create(ctx context.Context, submission *Submission) error
	Delete(ctx context.Context, id string) error
	// RecordVote atomically increments the score and appends the record.
	RecordVote(ctx context.Context, id string, vote VoteRecord) error
	// RemoveVote atomically removes one record and decrements the score.
	RemoveVote(ctx context.Context, id string, voteID string) error
}

type UserStorage interface {
	Get(ctx context.Context, name string) (*User, error)
	GetAll(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, user *User) error
	// ApplyVote decrements the remaining votes, appends the pair key and winner and
	// moves the watermark. Fails with ErrConditionFailed when no votes remain.
	ApplyVote(ctx context.Context, name, pairKey, winnerID, date string) (*User, error)
	// ConsumeRefresh fails with ErrConditionFailed, without mutating, when no refreshes remain.
	ConsumeRefresh(ctx context.Context, name string) (*User, error)
	Reset(ctx context.Context, name string, reset QuotaReset) (*User, error)
}

type SettingsStorage interface {
	// Get returns ErrItemNotFound before the first write.
	Get(ctx context.Context) (*Settings, error)
	Put(ctx context.Context, settings *Settings) error
}

type LeaderboardStorage interface {
	Get(ctx context.Context) (*Leaderboard, error)
	Put(ctx context.Context, leaderboard *Leaderboard) error
}
