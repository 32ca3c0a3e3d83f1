package controllers_test

import (
	"context"
	"net/http"
	"testing"

	testutils "github.com/alex-pricope/art-contest-voting/api/controllers/testing"
	"github.com/alex-pricope/art-contest-voting/api/models"
	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminBrowser(t *testing.T, e *env) *testutils.Browser {
	t.Helper()
	browser := testutils.NewBrowser(e.router)
	res := browser.Do(http.MethodPost, "/api/admin/login", models.AdminLoginRequest{Email: adminEmail, Password: adminPassword}, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	return browser
}

func TestAdminAuth(t *testing.T) {
	t.Run("Unhappy path - protected routes need a session", func(t *testing.T) {
		e := newEnv(t, 0)
		res := testutils.PerformRequest(e.router, http.MethodPut, "/api/admin/settings/theme", models.ThemeRequest{Theme: "Winter"}, nil)
		assert.Equal(t, http.StatusUnauthorized, res.Code)
	})

	t.Run("Unhappy path - wrong password", func(t *testing.T) {
		e := newEnv(t, 0)
		res := testutils.PerformRequest(e.router, http.MethodPost, "/api/admin/login", models.AdminLoginRequest{Email: adminEmail, Password: "nope"}, nil)
		assert.Equal(t, http.StatusUnauthorized, res.Code)
		assert.Equal(t, models.CodeInvalidCredential, testutils.Decode[models.ErrorResponse](res).Code)
		assert.False(t, e.services.Sweep.Running())
	})

	t.Run("Happy path - sign-in arms the sweep, sign-out disarms it", func(t *testing.T) {
		e := newEnv(t, 0)
		browser := adminBrowser(t, e)
		assert.True(t, e.services.Sweep.Running())
		assert.Equal(t, 1, e.services.Identity.Active())

		// A second login from the same browser reuses the session.
		res := browser.Do(http.MethodPost, "/api/admin/login", models.AdminLoginRequest{Email: adminEmail, Password: adminPassword}, nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, 1, e.services.Identity.Active())

		assert.Eventually(t, func() bool {
			res := browser.Do(http.MethodGet, "/api/admin/sweep", nil, nil)
			status := testutils.Decode[models.SweepStatusResponse](res)
			return status.Armed && status.NextRun == "2025/03/10 23:59:00"
		}, testTimeout, testTick)

		require.Equal(t, http.StatusOK, browser.Do(http.MethodPost, "/api/admin/logout", nil, nil).Code)
		assert.False(t, e.services.Sweep.Running())
		assert.Equal(t, http.StatusUnauthorized, browser.Do(http.MethodGet, "/api/admin/sweep", nil, nil).Code)
	})
}

func TestAdminRestart(t *testing.T) {
	before := newEnv(t, 0)
	browser := adminBrowser(t, before)
	before.services.Close()

	after := newEnv(t, 0)
	browser.Use(after.router)
	require.False(t, after.services.Sweep.Running())

	res := browser.Do(http.MethodPost, "/api/admin/login", models.AdminLoginRequest{Email: adminEmail, Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.False(t, after.services.Sweep.Running())

	res = browser.Do(http.MethodPost, "/api/admin/login", models.AdminLoginRequest{Email: adminEmail, Password: adminPassword}, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, after.services.Sweep.Running())
	assert.Equal(t, 1, after.services.Identity.Active())

	res = browser.Do(http.MethodGet, "/api/admin/sweep", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, testutils.Decode[models.SweepStatusResponse](res).Armed)
}

func TestAdminSettings(t *testing.T) {
	e := newEnv(t, 0)
	browser := adminBrowser(t, e)

	t.Run("Happy path - theme", func(t *testing.T) {
		res := browser.Do(http.MethodPut, "/api/admin/settings/theme", models.ThemeRequest{Theme: "Winter"}, nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "Winter", testutils.Decode[models.SettingsResponse](res).Theme)

		res = browser.Do(http.MethodPut, "/api/admin/settings/theme", models.ThemeRequest{Theme: " "}, nil)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("Happy path - window set and cleared", func(t *testing.T) {
		res := browser.Do(http.MethodPut, "/api/admin/settings/window", models.WindowRequest{Start: "2025-03-10T09:00", End: "2025-03-10T18:00"}, nil)
		require.Equal(t, http.StatusOK, res.Code)
		settings := testutils.Decode[models.SettingsResponse](res)
		assert.Equal(t, contest.StatusActive, settings.Status)
		assert.Equal(t, "2025/03/10 09:00:00", settings.VotingStart)
		assert.True(t, settings.IsVotingAllowed)

		res = browser.Do(http.MethodDelete, "/api/admin/settings/window", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, contest.StatusAlways, testutils.Decode[models.SettingsResponse](res).Status)
	})

	t.Run("Unhappy path - window ends before it starts", func(t *testing.T) {
		res := browser.Do(http.MethodPut, "/api/admin/settings/window", models.WindowRequest{Start: "2025-03-10T18:00", End: "2025-03-10T09:00"}, nil)
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, models.CodeInvalidWindow, testutils.Decode[models.ErrorResponse](res).Code)

		res = browser.Do(http.MethodPut, "/api/admin/settings/window", models.WindowRequest{Start: "whenever"}, nil)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("Happy path - leaderboard images toggle and set", func(t *testing.T) {
		res := browser.Do(http.MethodPut, "/api/admin/settings/leaderboard-images", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.True(t, testutils.Decode[models.SettingsResponse](res).ShowLeaderboardImages)

		show := false
		res = browser.Do(http.MethodPut, "/api/admin/settings/leaderboard-images", models.LeaderboardImagesRequest{Show: &show}, nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.False(t, testutils.Decode[models.SettingsResponse](res).ShowLeaderboardImages)
	})
}

func TestAdminOperations(t *testing.T) {
	t.Run("Happy path - manual reset restores every voter", func(t *testing.T) {
		e := newEnv(t, 3)
		ctx := context.Background()
		for _, name := range []string{"Mei", "Kai"} {
			require.NoError(t, e.services.Stores.Users.Create(ctx, &storage.User{Name: name, LastVoteDate: "2025-03-10", VotedPairs: []string{"submission_0-submission_1"}}))
		}
		browser := adminBrowser(t, e)

		res := browser.Do(http.MethodPost, "/api/admin/users/reset", nil, nil)

		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, 2, testutils.Decode[models.ResetResponse](res).Reset)
		user, err := e.services.Stores.Users.Get(ctx, "Mei")
		require.NoError(t, err)
		assert.Equal(t, 2, user.VotesRemaining)
		assert.Empty(t, user.VotedPairs)
	})

	t.Run("Happy path - refreshed leaderboard is published", func(t *testing.T) {
		e := newEnv(t, 2)
		browser := adminBrowser(t, e)

		res := browser.Do(http.MethodPost, "/api/admin/leaderboard", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.Len(t, testutils.Decode[models.LeaderboardResponse](res).Entries, 2)

		res = testutils.PerformRequest(e.router, http.MethodGet, "/api/leaderboard", nil, nil)
		assert.Equal(t, http.StatusOK, res.Code)
	})

	t.Run("Happy path - qr code of the voting page", func(t *testing.T) {
		e := newEnv(t, 0)
		browser := adminBrowser(t, e)

		res := browser.Do(http.MethodGet, "/api/admin/qrcode?size=128", nil, nil)

		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "image/png", res.Header().Get("Content-Type"))
		assert.Equal(t, "\x89PNG", res.Body.String()[:4])
	})

	t.Run("Happy path - hosting token verification", func(t *testing.T) {
		e := newEnv(t, 0)
		browser := adminBrowser(t, e)

		res := browser.Do(http.MethodPost, "/api/admin/hosting/verify", nil, map[string]string{"x-hosting-token": hostingToken})
		assert.Equal(t, http.StatusOK, res.Code)

		res = browser.Do(http.MethodPost, "/api/admin/hosting/verify", nil, nil)
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, models.CodeCredentialMissing, testutils.Decode[models.ErrorResponse](res).Code)

		res = browser.Do(http.MethodPost, "/api/admin/hosting/verify", nil, map[string]string{"x-hosting-token": "password123"})
		assert.Equal(t, http.StatusUnauthorized, res.Code)
	})
}
