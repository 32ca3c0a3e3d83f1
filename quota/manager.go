// Package quota enforces the daily vote and refresh budgets and resets them once
// per contest-timezone day.
//
// Two reset paths exist on purpose: a privileged daily sweep over every user, and
// a per-user watermark check (at login and on a poll). Both write the same shape,
// are idempotent and may race.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/alex-pricope/art-contest-voting/metrics"
	"github.com/alex-pricope/art-contest-voting/pairing"
	"github.com/alex-pricope/art-contest-voting/storage"
	"github.com/google/uuid"
)

var (
	ErrEmptyName          = errors.New("display name is required")
	ErrNotLoggedIn        = errors.New("no voter is logged in")
	ErrNotInPair          = errors.New("winner is not part of the displayed pair")
	ErrAlreadyVoted       = errors.New("this pair or winner was already voted on today")
	ErrSubmissionNotFound = errors.New("submission not found")
)

// Session is the per-voter state carried between operations: who is voting and
// which pair is on screen. Operations take it and return the updated copy.
type Session struct {
	UserName    string        `json:"userName"`
	CurrentPair *pairing.Pair `json:"currentPair,omitempty"`
}

func (s Session) LoggedIn() bool {
	return s.UserName != ""
}

type PairResult struct {
	Session Session
	User    *storage.User
	Pair    *pairing.Pair
	// Left and Right follow Pair's display order.
	Left   *storage.Submission
	Right  *storage.Submission
	State  State
	Reason error
	// Reset is set when the call found a stale watermark and restored the quota first.
	Reset bool
}

type VoteResult struct {
	Session Session
	User    *storage.User
	Vote    storage.VoteRecord
	Reset   bool
}

type Manager struct {
	users       storage.UserStorage
	submissions storage.SubmissionStorage
	settings    *contest.SettingsService
	selector    *pairing.Selector
	zone        *contest.Zone
	metrics     *metrics.Metrics
	newID       func() string

	// catchUpMu serialises watermark resets so a poll landing after a vote
	// cannot restore the quota that vote just spent.
	catchUpMu sync.Mutex
}

func NewManager(users storage.UserStorage, submissions storage.SubmissionStorage, settings *contest.SettingsService,
	selector *pairing.Selector, zone *contest.Zone, m *metrics.Metrics) *Manager {
	return &Manager{
		users:       users,
		submissions: submissions,
		settings:    settings,
		selector:    selector,
		zone:        zone,
		metrics:     m,
		newID:       uuid.NewString,
	}
}

// Login opens a voting session by display name, creating the user on first visit
// and resetting a user whose watermark is stale. reset reports the latter.
func (m *Manager) Login(ctx context.Context, name string) (sess Session, user *storage.User, reset bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Session{}, nil, false, ErrEmptyName
	}
	settings, err := m.settings.CheckVotingOpen(ctx)
	if err != nil {
		return Session{}, nil, false, err
	}

	today := m.zone.Today()
	user, err = m.users.Get(ctx, name)
	switch {
	case errors.Is(err, storage.ErrItemNotFound):
		user = &storage.User{
			Name:               name,
			VotesRemaining:     settings.MaxVotes,
			RefreshesRemaining: settings.MaxRefreshes,
			VotedPairs:         []string{},
			VotedWinners:       []string{},
			LastVoteDate:       today,
		}
		if err := m.users.Create(ctx, user); err != nil {
			if !errors.Is(err, storage.ErrItemWithIDAlreadyExists) {
				return Session{}, nil, false, contest.Remote("create user", err)
			}
			// Another session with the same name won the race; use its document.
			if user, err = m.users.Get(ctx, name); err != nil {
				return Session{}, nil, false, contest.Remote("load user", err)
			}
		}
		logging.Log.Infof("USER: '%s' joined", name)
	case err != nil:
		return Session{}, nil, false, contest.Remote("load user", err)
	}

	if user.LastVoteDate != today {
		logging.Log.Infof("USER: '%s' watermark %s is stale, resetting at login", name, user.LastVoteDate)
		if user, err = m.resetUser(ctx, settings, name, today); err != nil {
			return Session{}, nil, false, err
		}
		m.metrics.Reset(metrics.TriggerLogin, 1)
		reset = true
	}
	return Session{UserName: name}, user, reset, nil
}

func (m *Manager) Logout(sess Session) Session {
	if sess.LoggedIn() {
		logging.Log.Infof("USER: '%s' logged out", sess.UserName)
	}
	return Session{}
}

// User loads the voter behind a session.
func (m *Manager) User(ctx context.Context, sess Session) (*storage.User, error) {
	if !sess.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	user, err := m.users.Get(ctx, sess.UserName)
	if err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, contest.Remote("load user", err)
	}
	return user, nil
}

// NextPair selects the pair to display, avoiding the one currently on screen.
// Terminal states (no votes, no pairs) are reported in the result, not as errors.
func (m *Manager) NextPair(ctx context.Context, sess Session) (PairResult, error) {
	if _, err := m.settings.CheckVotingOpen(ctx); err != nil {
		return PairResult{Session: sess}, err
	}
	user, err := m.User(ctx, sess)
	if err != nil {
		return PairResult{Session: sess}, err
	}
	user, reset, err := m.catchUp(ctx, user)
	if err != nil {
		return PairResult{Session: sess}, err
	}
	if reset {
		sess.CurrentPair = nil
	}
	result, err := m.nextPair(ctx, sess, user)
	result.Reset = reset
	return result, err
}

func (m *Manager) nextPair(ctx context.Context, sess Session, user *storage.User) (PairResult, error) {
	today := m.zone.Today()
	if user.VotesRemaining <= 0 {
		sess.CurrentPair = nil
		return PairResult{Session: sess, User: user, State: Evaluate(user, today, contest.ErrQuotaExhausted), Reason: contest.ErrQuotaExhausted}, nil
	}

	all, err := m.submissions.GetAll(ctx)
	if err != nil {
		return PairResult{Session: sess, User: user}, contest.Remote("load submissions", err)
	}
	byID := make(map[string]*storage.Submission, len(all))
	ids := make([]string, 0, len(all))
	for _, s := range all {
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}

	pair, err := m.selector.Next(ids, user.VotedWinners, user.VotedPairs, sess.CurrentPair)
	if err != nil {
		if errors.Is(err, pairing.ErrPairsExhausted) || errors.Is(err, pairing.ErrInsufficientCandidates) {
			logging.Log.Infof("PAIRING: nothing left for '%s': %v", user.Name, err)
			m.metrics.Exhausted()
			sess.CurrentPair = nil
			return PairResult{Session: sess, User: user, State: Evaluate(user, today, err), Reason: err}, nil
		}
		return PairResult{Session: sess, User: user}, err
	}

	sess.CurrentPair = &pair
	return PairResult{
		Session: sess,
		User:    user,
		Pair:    &pair,
		Left:    byID[pair.Left],
		Right:   byID[pair.Right],
		State:   StateActive,
	}, nil
}

// Refresh spends one refresh and shows a different pair. With no refreshes left
// it fails with ErrQuotaExhausted and changes nothing. When there is nothing to
// show instead (no votes or no pairs left) the terminal state is returned and the
// refresh is kept.
func (m *Manager) Refresh(ctx context.Context, sess Session) (PairResult, error) {
	user, err := m.User(ctx, sess)
	if err != nil {
		return PairResult{Session: sess}, err
	}
	user, reset, err := m.catchUp(ctx, user)
	if err != nil {
		return PairResult{Session: sess}, err
	}
	if reset {
		sess.CurrentPair = nil
	}

	result, err := m.nextPair(ctx, sess, user)
	result.Reset = reset
	if err != nil || result.State != StateActive {
		return result, err
	}

	updated, err := m.ConsumeRefresh(ctx, user.Name)
	if err != nil {
		return PairResult{Session: sess, User: user, Reset: reset}, err
	}
	result.User = updated
	return result, nil
}

func (m *Manager) ConsumeRefresh(ctx context.Context, name string) (*storage.User, error) {
	user, err := m.users.ConsumeRefresh(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			return nil, contest.ErrQuotaExhausted
		}
		return nil, contest.Remote("consume refresh", err)
	}
	m.metrics.RefreshUsed()
	logging.Log.Debugf("USER: '%s' used a refresh, %d left", name, user.RefreshesRemaining)
	return user, nil
}

// CastVote records a win for one side of the displayed pair.
//
// The submission is updated first and the user second. There is no transaction
// across the two: if the user update fails the vote stays recorded while the
// quota is stale. The user update is conditional on a vote remaining, so two
// tabs racing on the same name cannot push the quota below zero.
func (m *Manager) CastVote(ctx context.Context, sess Session, winnerID string) (VoteResult, error) {
	if _, err := m.settings.CheckVotingOpen(ctx); err != nil {
		return VoteResult{Session: sess}, err
	}
	if !sess.LoggedIn() {
		return VoteResult{Session: sess}, ErrNotLoggedIn
	}
	if sess.CurrentPair == nil {
		return VoteResult{Session: sess}, ErrNotInPair
	}
	loserID, ok := sess.CurrentPair.Other(winnerID)
	if !ok {
		return VoteResult{Session: sess}, ErrNotInPair
	}

	user, err := m.User(ctx, sess)
	if err != nil {
		return VoteResult{Session: sess}, err
	}
	// The pair on screen stays valid across midnight; only the quota behind it is renewed.
	user, reset, err := m.catchUp(ctx, user)
	if err != nil {
		return VoteResult{Session: sess}, err
	}
	if user.VotesRemaining <= 0 {
		return VoteResult{Session: sess, User: user, Reset: reset}, contest.ErrQuotaExhausted
	}
	if votedPair(user, winnerID, loserID) || contains(user.VotedWinners, winnerID) {
		return VoteResult{Session: sess, User: user, Reset: reset}, ErrAlreadyVoted
	}

	now := m.zone.Now()
	vote := storage.VoteRecord{
		ID:        m.newID(),
		Voter:     user.Name,
		Timestamp: now.UTC(),
		Date:      m.zone.Display(now),
	}
	if err := m.submissions.RecordVote(ctx, winnerID, vote); err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			return VoteResult{Session: sess, User: user}, fmt.Errorf("%w: %s", ErrSubmissionNotFound, winnerID)
		}
		return VoteResult{Session: sess, User: user}, contest.Remote("record vote", err)
	}
	m.metrics.VoteCast()

	updated, err := m.users.ApplyVote(ctx, user.Name, pairing.Key(winnerID, loserID), winnerID, m.zone.Today())
	if err != nil {
		logging.Log.Errorf("VOTE: vote %s on %s is recorded but quota of '%s' was not updated: %v", vote.ID, winnerID, user.Name, err)
		if errors.Is(err, storage.ErrConditionFailed) {
			return VoteResult{Session: sess, User: user, Vote: vote}, contest.ErrQuotaExhausted
		}
		return VoteResult{Session: sess, User: user, Vote: vote}, contest.Remote("update user quota", err)
	}

	logging.Log.Infof("VOTE: '%s' voted %s over %s, %d votes left", user.Name, winnerID, loserID, updated.VotesRemaining)
	sess.CurrentPair = nil
	return VoteResult{Session: sess, User: updated, Vote: vote, Reset: reset}, nil
}

// CheckWatermark resets a single user when their watermark is not today.
func (m *Manager) CheckWatermark(ctx context.Context, name string) (*storage.User, bool, error) {
	user, err := m.users.Get(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			return nil, false, err
		}
		return nil, false, contest.Remote("load user", err)
	}
	return m.catchUp(ctx, user)
}

// catchUp restores the quota of a user whose watermark is from an earlier day.
// Every voter operation runs it first: a vote moves the watermark to today, so a
// stale quota spent after midnight would otherwise never be reset.
func (m *Manager) catchUp(ctx context.Context, user *storage.User) (*storage.User, bool, error) {
	today := m.zone.Today()
	if user.LastVoteDate == today {
		return user, false, nil
	}

	m.catchUpMu.Lock()
	defer m.catchUpMu.Unlock()
	current, err := m.users.Get(ctx, user.Name)
	if err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			return nil, false, err
		}
		return nil, false, contest.Remote("load user", err)
	}
	if current.LastVoteDate == today {
		return current, false, nil
	}

	settings, err := m.settings.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	logging.Log.Infof("USER: date changed for '%s' (%s -> %s), restoring quota", user.Name, user.LastVoteDate, today)
	user, err = m.resetUser(ctx, settings, user.Name, today)
	if err != nil {
		return nil, false, err
	}
	m.metrics.Reset(metrics.TriggerWatermark, 1)
	return user, true, nil
}

// ResetUser restores one user's quota and clears their histories, moving the
// watermark to today. Running it twice in a day ends in the same state.
func (m *Manager) ResetUser(ctx context.Context, name string) (*storage.User, error) {
	settings, err := m.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	return m.resetUser(ctx, settings, name, m.zone.Today())
}

func (m *Manager) resetUser(ctx context.Context, settings *storage.Settings, name, today string) (*storage.User, error) {
	user, err := m.users.Reset(ctx, name, storage.QuotaReset{
		Votes:     settings.MaxVotes,
		Refreshes: settings.MaxRefreshes,
		Watermark: today,
	})
	if err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			return nil, err
		}
		return nil, contest.Remote("reset user", err)
	}
	return user, nil
}

// ResetAll restores every known user unconditionally. Watermarks are left alone.
// A failure on one user does not stop the others; all failures are returned joined.
func (m *Manager) ResetAll(ctx context.Context, trigger string) (int, error) {
	settings, err := m.settings.Load(ctx)
	if err != nil {
		return 0, err
	}
	users, err := m.users.GetAll(ctx)
	if err != nil {
		return 0, contest.Remote("list users", err)
	}

	reset := storage.QuotaReset{Votes: settings.MaxVotes, Refreshes: settings.MaxRefreshes}
	var errs []error
	count := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := m.users.Reset(ctx, u.Name, reset); err != nil {
			logging.Log.Errorf("SWEEP: failed to reset '%s': %v", u.Name, err)
			errs = append(errs, fmt.Errorf("reset %s: %w", u.Name, err))
			continue
		}
		count++
	}

	m.metrics.Reset(trigger, count)
	logging.Log.Infof("SWEEP: %s reset restored %d of %d users", trigger, count, len(users))
	if len(errs) > 0 {
		return count, contest.Remote("reset users", errors.Join(errs...))
	}
	return count, nil
}

// Sweep is the daily scheduled run.
func (m *Manager) Sweep(ctx context.Context) error {
	_, err := m.ResetAll(ctx, metrics.TriggerSweep)
	m.metrics.Sweep(err)
	return err
}

func votedPair(user *storage.User, a, b string) bool {
	voted := make(map[string]struct{}, len(user.VotedPairs))
	for _, k := range user.VotedPairs {
		voted[k] = struct{}{}
	}
	return pairing.Voted(voted, a, b)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
