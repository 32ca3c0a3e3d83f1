package controllers_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alex-pricope/art-contest-voting/api"
	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/hosting"
	"github.com/alex-pricope/art-contest-voting/identity"
	"github.com/alex-pricope/art-contest-voting/storage"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "correct horse battery staple"
	hostingToken  = "ghp_0123456789abcdefghij"
)

var hongKong = time.FixedZone("HKT", 8*60*60)

type fakeImages struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	err      error
}

func (f *fakeImages) Upload(_ context.Context, token, name string, _ []byte) (*hosting.Image, error) {
	if err := hosting.ValidateToken(token); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p := "images/1741579200000_" + hosting.SanitizeName(name)
	f.uploaded = append(f.uploaded, p)
	return &hosting.Image{Path: p, URL: "https://raw.example.com/" + p, SHA: "abc123"}, nil
}

func (f *fakeImages) Delete(_ context.Context, _ string, filePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, filePath)
	return f.err
}

func (f *fakeImages) Verify(_ context.Context, token string) error {
	if err := hosting.ValidateToken(token); err != nil {
		return err
	}
	return f.err
}

type env struct {
	services *api.Services
	router   *gin.Engine
	images   *fakeImages
	clock    interface {
		clockwork.Clock
		Advance(time.Duration)
		BlockUntil(int)
	}
}

func newEnv(t *testing.T, submissions int) *env {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	conf := &api.Config{
		StorageConfig: api.StorageConfig{Driver: api.DriverMemory},
		ServerConfig:  api.ServerConfig{Mode: gin.TestMode, PublicURL: "https://contest.example.com"},
		ContestConfig: api.ContestConfig{
			Timezone:     contest.DefaultTimezone,
			ResetHour:    23,
			ResetMinute:  59,
			PollInterval: time.Minute,
			Theme:        "Spring",
			MaxVotes:     2,
			MaxRefreshes: 1,
		},
		AdminConfig: api.AdminConfig{
			SessionSecret: "0123456789abcdef0123456789abcdef",
			Accounts:      []identity.Account{{Email: adminEmail, PasswordHash: string(hash)}},
		},
	}

	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 10, 12, 0, 0, 0, hongKong))
	stores, err := api.NewStores(context.Background(), conf.StorageConfig)
	require.NoError(t, err)
	services := api.NewServicesWithStores(conf, clock, stores)
	images := &fakeImages{}
	services.Hosting = images
	t.Cleanup(services.Close)

	for i := 0; i < submissions; i++ {
		require.NoError(t, stores.Submissions.Create(context.Background(), &storage.Submission{
			ID:       fmt.Sprintf("submission_%d", i),
			Title:    fmt.Sprintf("Piece %d", i),
			ImageURL: fmt.Sprintf("https://raw.example.com/images/%d.png", i),
		}))
	}

	return &env{services: services, router: api.Router(services), images: images, clock: clock}
}
