package storage

import "time"

const (
	SettingsKey    = "config"
	LeaderboardKey = "leaderboard"
)

type Submission struct {
	ID        string       `dynamodbav:"PK" json:"id"`
	Title     string       `dynamodbav:"Title" json:"title"`
	ImageURL  string       `dynamodbav:"ImageURL" json:"imageUrl"`
	ImagePath string       `dynamodbav:"ImagePath" json:"imagePath"`
	Score     int          `dynamodbav:"Score" json:"score"`
	Votes     []VoteRecord `dynamodbav:"Votes" json:"votes"`
	CreatedAt time.Time    `dynamodbav:"CreatedAt" json:"createdAt"`
}

// VoteRecord is owned by the submission it was cast for.
type VoteRecord struct {
	ID        string    `dynamodbav:"ID" json:"id"`
	Voter     string    `dynamodbav:"Voter" json:"voter"`
	Timestamp time.Time `dynamodbav:"Timestamp" json:"timestamp"`
	Date      string    `dynamodbav:"Date" json:"date"` // display time in the contest timezone
}

// User is keyed by display name. Names are case-sensitive and two people picking
// the same name share one quota.
type User struct {
	Name               string   `dynamodbav:"PK" json:"name"`
	VotesRemaining     int      `dynamodbav:"VotesRemaining" json:"votesRemaining"`
	RefreshesRemaining int      `dynamodbav:"RefreshesRemaining" json:"refreshesRemaining"`
	VotedPairs         []string `dynamodbav:"VotedPairs" json:"votedPairs"`
	VotedWinners       []string `dynamodbav:"VotedWinners" json:"votedWinners"`
	LastVoteDate       string   `dynamodbav:"LastVoteDate" json:"lastVoteDate"`
}

// QuotaReset is the shape written by every reset path. An empty Watermark leaves
// the stored one untouched (the sweep does not move watermarks).
type QuotaReset struct {
	Votes     int
	Refreshes int
	Watermark string
}

type Settings struct {
	ID                    string     `dynamodbav:"PK" json:"-"`
	Theme                 string     `dynamodbav:"Theme" json:"theme"`
	MaxVotes              int        `dynamodbav:"MaxVotes" json:"maxVotes"`
	MaxRefreshes          int        `dynamodbav:"MaxRefreshes" json:"maxRefreshes"`
	ShowLeaderboardImages bool       `dynamodbav:"ShowLeaderboardImages" json:"showLeaderboardImages"`
	VotingStartTime       *time.Time `dynamodbav:"VotingStartTime,omitempty" json:"votingStartTime"`
	VotingEndTime         *time.Time `dynamodbav:"VotingEndTime,omitempty" json:"votingEndTime"`
}

type LeaderboardEntry struct {
	Rank     int    `dynamodbav:"Rank" json:"rank"`
	ID       string `dynamodbav:"SubmissionID" json:"id"`
	Title    string `dynamodbav:"Title" json:"title"`
	ImageURL string `dynamodbav:"ImageURL" json:"imageUrl"`
	Score    int    `dynamodbav:"Score" json:"score"`
}

// Leaderboard lives in the settings table next to the Settings document.
type Leaderboard struct {
	ID        string             `dynamodbav:"PK" json:"-"`
	Entries   []LeaderboardEntry `dynamodbav:"Entries" json:"entries"`
	UpdatedAt time.Time          `dynamodbav:"UpdatedAt" json:"updatedAt"`
}
