// Package hosting stores submission images as files in a GitHub repository and
// serves them back through the raw content host.
package hosting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/google/go-github/v66/github"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultRawURL = "https://raw.githubusercontent.com"
	DefaultPath   = "images"
	DefaultBranch = "main"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type Config struct {
	Owner  string
	Repo   string
	Branch string
	Path   string
	// APIURL overrides the GitHub API endpoint, e.g. for GitHub Enterprise.
	APIURL string
	RawURL string
}

type Image struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	SHA  string `json:"sha"`
}

// Store is the image host used by the submission admin.
type Store interface {
	Upload(ctx context.Context, token, name string, content []byte) (*Image, error)
	Delete(ctx context.Context, token, filePath string) error
	Verify(ctx context.Context, token string) error
}

type GitHubStore struct {
	cfg        Config
	clock      clockwork.Clock
	httpClient *http.Client
}

func NewGitHubStore(cfg Config, clock clockwork.Clock, httpClient *http.Client) *GitHubStore {
	if cfg.Branch == "" {
		cfg.Branch = DefaultBranch
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.RawURL == "" {
		cfg.RawURL = DefaultRawURL
	}
	cfg.Path = strings.Trim(cfg.Path, "/")
	cfg.RawURL = strings.TrimSuffix(cfg.RawURL, "/")
	return &GitHubStore{cfg: cfg, clock: clock, httpClient: httpClient}
}

// ValidateToken only checks the shape of a personal access token; GitHub decides
// whether it is actually valid.
func ValidateToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return contest.ErrCredentialMissing
	}
	if !strings.HasPrefix(token, "ghp_") && !strings.HasPrefix(token, "github_pat_") {
		return fmt.Errorf("%w: token must start with ghp_ or github_pat_", contest.ErrInvalidCredential)
	}
	return nil
}

// SanitizeName keeps a file name safe to use as the last segment of a repository path.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "image"
	}
	return name
}

func (s *GitHubStore) client(token string) (*github.Client, error) {
	if err := ValidateToken(token); err != nil {
		return nil, err
	}
	client := github.NewClient(s.httpClient).WithAuthToken(strings.TrimSpace(token))
	if s.cfg.APIURL != "" {
		base, err := url.Parse(strings.TrimSuffix(s.cfg.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid hosting api url: %w", err)
		}
		client.BaseURL = base
	}
	return client, nil
}

// Upload commits the image under <path>/<unixMillis>_<name> and returns its raw URL.
func (s *GitHubStore) Upload(ctx context.Context, token, name string, content []byte) (*Image, error) {
	client, err := s.client(token)
	if err != nil {
		return nil, err
	}

	fileName := fmt.Sprintf("%d_%s", s.clock.Now().UnixMilli(), SanitizeName(name))
	filePath := s.cfg.Path + "/" + fileName
	resp, _, err := client.Repositories.CreateFile(ctx, s.cfg.Owner, s.cfg.Repo, filePath, &github.RepositoryContentFileOptions{
		Message: github.String("Upload " + fileName),
		Content: content,
		Branch:  github.String(s.cfg.Branch),
	})
	if err != nil {
		logging.Log.Errorf("HOSTING: upload of %s failed: %v", filePath, err)
		return nil, mapError("upload image", err)
	}

	image := &Image{Path: filePath, URL: s.RawURL(filePath)}
	if resp != nil && resp.Content != nil {
		image.SHA = resp.Content.GetSHA()
	}
	logging.Log.Infof("HOSTING: uploaded %s", filePath)
	return image, nil
}

// Delete removes a previously uploaded file. A file that is already gone is not an error.
func (s *GitHubStore) Delete(ctx context.Context, token, filePath string) error {
	if filePath == "" {
		return nil
	}
	client, err := s.client(token)
	if err != nil {
		return err
	}

	file, _, resp, err := client.Repositories.GetContents(ctx, s.cfg.Owner, s.cfg.Repo, filePath,
		&github.RepositoryContentGetOptions{Ref: s.cfg.Branch})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			logging.Log.Warnf("HOSTING: %s is already gone", filePath)
			return nil
		}
		return mapError("look up image", err)
	}
	if file == nil {
		return fmt.Errorf("%s is a directory", filePath)
	}

	_, _, err = client.Repositories.DeleteFile(ctx, s.cfg.Owner, s.cfg.Repo, filePath, &github.RepositoryContentFileOptions{
		Message: github.String("Delete " + filePath),
		SHA:     github.String(file.GetSHA()),
		Branch:  github.String(s.cfg.Branch),
	})
	if err != nil {
		logging.Log.Errorf("HOSTING: delete of %s failed: %v", filePath, err)
		return mapError("delete image", err)
	}
	logging.Log.Infof("HOSTING: deleted %s", filePath)
	return nil
}

// Verify checks that the token can see the configured repository.
func (s *GitHubStore) Verify(ctx context.Context, token string) error {
	client, err := s.client(token)
	if err != nil {
		return err
	}
	if _, _, err := client.Repositories.Get(ctx, s.cfg.Owner, s.cfg.Repo); err != nil {
		return mapError("verify repository access", err)
	}
	return nil
}

func (s *GitHubStore) RawURL(filePath string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", s.cfg.RawURL, s.cfg.Owner, s.cfg.Repo, s.cfg.Branch, filePath)
}

func mapError(op string, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w: %s", op, contest.ErrInvalidCredential, ghErr.Message)
		}
	}
	return contest.Remote(op, err)
}
