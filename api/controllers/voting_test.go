package controllers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	testutils "github.com/alex-pricope/art-contest-voting/api/controllers/testing"
	"github.com/alex-pricope/art-contest-voting/api/models"
	"github.com/alex-pricope/art-contest-voting/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVotingController(t *testing.T) {
	t.Run("Happy path - login, vote until the quota is spent", func(t *testing.T) {
		e := newEnv(t, 3)
		browser := testutils.NewBrowser(e.router)

		res := browser.Do(http.MethodPost, "/api/session/login", models.LoginRequest{Name: " Mei "}, nil)
		require.Equal(t, http.StatusOK, res.Code)
		sess := testutils.Decode[models.SessionResponse](res)
		assert.Equal(t, "Mei", sess.Name)
		assert.Equal(t, 2, sess.VotesRemaining)
		assert.Equal(t, quota.StateActive, sess.State)

		for votesLeft := 1; votesLeft >= 0; votesLeft-- {
			res = browser.Do(http.MethodGet, "/api/pair", nil, nil)
			require.Equal(t, http.StatusOK, res.Code)
			pair := testutils.Decode[models.PairResponse](res)
			require.Equal(t, quota.StateActive, pair.State)
			require.NotNil(t, pair.Left)
			require.NotNil(t, pair.Right)

			res = browser.Do(http.MethodPost, "/api/vote", models.VoteRequest{WinnerID: pair.Left.ID}, nil)
			require.Equal(t, http.StatusOK, res.Code, res.Body.String())
			vote := testutils.Decode[models.VoteResponse](res)
			assert.Equal(t, votesLeft, vote.VotesRemaining)
			assert.NotEmpty(t, vote.VoteID)

			// The pair is gone from the session once voted on.
			res = browser.Do(http.MethodPost, "/api/vote", models.VoteRequest{WinnerID: pair.Left.ID}, nil)
			assert.Equal(t, http.StatusConflict, res.Code)
			assert.Equal(t, models.CodeNotInPair, testutils.Decode[models.ErrorResponse](res).Code)
		}

		res = browser.Do(http.MethodGet, "/api/pair", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)
		pair := testutils.Decode[models.PairResponse](res)
		assert.Equal(t, quota.StateExhaustedVotes, pair.State)
		assert.Nil(t, pair.Left)
		assert.NotEmpty(t, pair.Message)
	})

	t.Run("Happy path - session survives and logout clears it", func(t *testing.T) {
		e := newEnv(t, 3)
		browser := testutils.NewBrowser(e.router)
		require.Equal(t, http.StatusOK, browser.Do(http.MethodPost, "/api/session/login", models.LoginRequest{Name: "Mei"}, nil).Code)
		assert.True(t, e.services.Watchers.Watching("Mei"))

		res := browser.Do(http.MethodGet, "/api/session", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "Mei", testutils.Decode[models.SessionResponse](res).Name)

		require.Equal(t, http.StatusOK, browser.Do(http.MethodPost, "/api/session/logout", nil, nil).Code)
		assert.False(t, e.services.Watchers.Watching("Mei"))

		res = browser.Do(http.MethodGet, "/api/session", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, res.Code)
		assert.Equal(t, models.CodeNotLoggedIn, testutils.Decode[models.ErrorResponse](res).Code)
	})

	t.Run("Happy path - new contest day restores the quota", func(t *testing.T) {
		e := newEnv(t, 3)
		browser := testutils.NewBrowser(e.router)
		require.Equal(t, http.StatusOK, browser.Do(http.MethodPost, "/api/session/login", models.LoginRequest{Name: "Mei"}, nil).Code)
		require.Equal(t, http.StatusOK, browser.Do(http.MethodGet, "/api/pair", nil, nil).Code)
		require.Equal(t, http.StatusOK, browser.Do(http.MethodPost, "/api/pair/refresh", nil, nil).Code)

		e.clock.Advance(24 * time.Hour)

		res := browser.Do(http.MethodPost, "/api/session/check", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)
		sess := testutils.Decode[models.SessionResponse](res)
		assert.Equal(t, 2, sess.VotesRemaining)
		assert.Equal(t, 1, sess.RefreshesRemaining)
		assert.Equal(t, "2025-03-11", sess.LastVoteDate)
	})

	t.Run("Happy path - vote after midnight spends from the new day", func(t *testing.T) {
		e := newEnv(t, 3)
		browser := testutils.NewBrowser(e.router)
		require.Equal(t, http.StatusOK, browser.Do(http.MethodPost, "/api/session/login", models.LoginRequest{Name: "Mei"}, nil).Code)
		res := browser.Do(http.MethodGet, "/api/pair", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)
		pair := testutils.Decode[models.PairResponse](res)
		require.NotNil(t, pair.Left)

		e.clock.Advance(13 * time.Hour)
		res = browser.Do(http.MethodPost, "/api/vote", models.VoteRequest{WinnerID: pair.Left.ID}, nil)

		require.Equal(t, http.StatusOK, res.Code, res.Body.String())
		assert.Equal(t, 1, testutils.Decode[models.VoteResponse](res).VotesRemaining)
		res = browser.Do(http.MethodGet, "/api/session", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)
		sess := testutils.Decode[models.SessionResponse](res)
		assert.Equal(t, "2025-03-11", sess.LastVoteDate)
		require.NotEmpty(t, sess.Notices)
		assert.Equal(t, quota.NewDayNotice, sess.Notices[0].Message)
	})

	t.Run("Happy path - voter cookie after a restart resumes polling", func(t *testing.T) {
		before := newEnv(t, 3)
		browser := testutils.NewBrowser(before.router)
		require.Equal(t, http.StatusOK, browser.Do(http.MethodPost, "/api/session/login", models.LoginRequest{Name: "Mei"}, nil).Code)
		user, err := before.services.Stores.Users.Get(context.Background(), "Mei")
		require.NoError(t, err)
		before.services.Close()

		after := newEnv(t, 3)
		require.NoError(t, after.services.Stores.Users.Create(context.Background(), user))
		browser.Use(after.router)
		require.False(t, after.services.Watchers.Watching("Mei"))

		res := browser.Do(http.MethodGet, "/api/session", nil, nil)

		require.Equal(t, http.StatusOK, res.Code)
		assert.True(t, after.services.Watchers.Watching("Mei"))
	})

	t.Run("Unhappy path - refresh without any left", func(t *testing.T) {
		e := newEnv(t, 4)
		browser := testutils.NewBrowser(e.router)
		require.Equal(t, http.StatusOK, browser.Do(http.MethodPost, "/api/session/login", models.LoginRequest{Name: "Mei"}, nil).Code)
		require.Equal(t, http.StatusOK, browser.Do(http.MethodGet, "/api/pair", nil, nil).Code)

		res := browser.Do(http.MethodPost, "/api/pair/refresh", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, 0, testutils.Decode[models.PairResponse](res).RefreshesRemaining)

		res = browser.Do(http.MethodPost, "/api/pair/refresh", nil, nil)
		assert.Equal(t, http.StatusConflict, res.Code)
		assert.Equal(t, models.CodeQuotaExhausted, testutils.Decode[models.ErrorResponse](res).Code)
	})

	t.Run("Unhappy path - voting window closed", func(t *testing.T) {
		e := newEnv(t, 3)
		_, err := e.services.Settings.UpdateWindow(context.Background(), "2025-03-01T09:00", "2025-03-02T18:00")
		require.NoError(t, err)

		res := testutils.PerformRequest(e.router, http.MethodPost, "/api/session/login", models.LoginRequest{Name: "Mei"}, nil)

		assert.Equal(t, http.StatusForbidden, res.Code)
		assert.Equal(t, models.CodeVotingClosed, testutils.Decode[models.ErrorResponse](res).Code)
	})

	t.Run("Unhappy path - bad requests", func(t *testing.T) {
		e := newEnv(t, 3)

		res := testutils.PerformRequest(e.router, http.MethodPost, "/api/session/login", models.LoginRequest{Name: "   "}, nil)
		assert.Equal(t, http.StatusBadRequest, res.Code)

		res = testutils.PerformRequest(e.router, http.MethodGet, "/api/pair", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, res.Code)

		res = testutils.PerformRequest(e.router, http.MethodPost, "/api/vote", models.VoteRequest{}, nil)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})
}
