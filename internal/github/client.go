// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

const (
	// Total attempts per request, including the first.
	maxRetries = 3

	defaultInitialBackoff = 500 * time.Millisecond
)

// Client is a request-scoped wrapper around the go-github client.
// Build one per user token; it holds no state shared across users.
type Client struct {
	gh             *github.Client
	logger         *slog.Logger
	maxRetries     int
	initialBackoff time.Duration
	baseURL        string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a GitHub Enterprise or test API root.
func WithBaseURL(rawURL string) Option {
	return func(c *Client) { c.baseURL = rawURL }
}

// WithMaxRetries sets the total number of attempts per request.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithInitialBackoff sets the first retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) { c.initialBackoff = d }
}

// NewClient creates and configures a new Client instance.
// The provided token is used to create an authenticated http.Client; an
// empty token yields an anonymous client.
func NewClient(token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	c := &Client{
		logger:         logger,
		maxRetries:     maxRetries,
		initialBackoff: defaultInitialBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}

	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	c.gh = github.NewClient(httpClient)

	if c.baseURL != "" {
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", c.baseURL, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		c.gh.BaseURL = u
	}

	return c, nil
}

// AuthenticatedLogin returns the login of the token's owner.
func (c *Client) AuthenticatedLogin(ctx context.Context) (string, error) {
	user, err := withRetry(ctx, c, "users.get", func() (*github.User, *github.Response, error) {
		return c.gh.Users.Get(ctx, "")
	})
	if err != nil {
		return "", err
	}
	return user.GetLogin(), nil
}

// ListUserRepos fetches one page of the authenticated user's repositories,
// most recently updated first.
func (c *Client) ListUserRepos(ctx context.Context, page, perPage int) ([]*github.Repository, error) {
	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Type:        "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	c.logger.Debug("Fetching user repositories page", "page", page)
	return withRetry(ctx, c, "repos.listForAuthenticatedUser", func() ([]*github.Repository, *github.Response, error) {
		return c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
	})
}

// ListOrgRepos fetches one page of an organization's repositories,
// most recently updated first.
func (c *Client) ListOrgRepos(ctx context.Context, org string, page, perPage int) ([]*github.Repository, error) {
	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	c.logger.Debug("Fetching organization repositories page", "org", org, "page", page)
	return withRetry(ctx, c, "repos.listForOrg", func() ([]*github.Repository, *github.Response, error) {
		return c.gh.Repositories.ListByOrg(ctx, org, opts)
	})
}

// GetRepository fetches repository details.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*github.Repository, error) {
	return withRetry(ctx, c, "repos.get", func() (*github.Repository, *github.Response, error) {
		return c.gh.Repositories.Get(ctx, owner, name)
	})
}

// ListBranches fetches the first page of a repository's branches.
func (c *Client) ListBranches(ctx context.Context, owner, name string, perPage int) ([]*github.Branch, error) {
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	return withRetry(ctx, c, "repos.listBranches", func() ([]*github.Branch, *github.Response, error) {
		return c.gh.Repositories.ListBranches(ctx, owner, name, opts)
	})
}

// ListCommits fetches the most recent commits on the default branch.
func (c *Client) ListCommits(ctx context.Context, owner, name string, perPage int) ([]*github.RepositoryCommit, error) {
	opts := &github.CommitsListOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	return withRetry(ctx, c, "repos.listCommits", func() ([]*github.RepositoryCommit, *github.Response, error) {
		return c.gh.Repositories.ListCommits(ctx, owner, name, opts)
	})
}

// ListContributors fetches the top contributors by commit count.
func (c *Client) ListContributors(ctx context.Context, owner, name string, perPage int) ([]*github.Contributor, error) {
	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	return withRetry(ctx, c, "repos.listContributors", func() ([]*github.Contributor, *github.Response, error) {
		return c.gh.Repositories.ListContributors(ctx, owner, name, opts)
	})
}

// ListLanguages fetches the byte count per language.
func (c *Client) ListLanguages(ctx context.Context, owner, name string) (map[string]int, error) {
	return withRetry(ctx, c, "repos.listLanguages", func() (map[string]int, *github.Response, error) {
		return c.gh.Repositories.ListLanguages(ctx, owner, name)
	})
}

// withRetry runs call with exponential backoff on server and transport errors.
// Rate-limit errors wait for the advertised reset before the next attempt,
// unless no attempt remains; other client errors fail immediately.
func withRetry[T any](ctx context.Context, c *Client, op string, call func() (T, *github.Response, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries-1)), ctx)

	attempt := 0
	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, _, err := call()
		if err != nil {
			return v, c.classify(ctx, err, attempt >= c.maxRetries)
		}
		return v, nil
	}, policy, func(err error, wait time.Duration) {
		c.logger.Warn("Retrying GitHub request", "op", op, "attempt", attempt, "backoff", wait.String(), "error", err)
	})
}

// classify decides whether err is worth another attempt. Retryable errors are
// returned as-is; everything else is wrapped with backoff.Permanent.
// On the last attempt every error is permanent, so rate limits are not waited out.
func (c *Client) classify(ctx context.Context, err error, lastAttempt bool) error {
	if ctx.Err() != nil || lastAttempt {
		return backoff.Permanent(err)
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		wait := time.Until(rateErr.Rate.Reset.Time)
		c.logger.Warn("GitHub rate limit hit, waiting for reset", "wait", wait.String())
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		wait := abuseErr.GetRetryAfter()
		c.logger.Warn("GitHub secondary rate limit hit, backing off", "wait", wait.String())
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		if respErr.Response != nil && respErr.Response.StatusCode >= http.StatusInternalServerError {
			return err
		}
		return backoff.Permanent(err)
	}

	// Transport-level failure.
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsNotFound reports whether err is a GitHub 404.
func IsNotFound(err error) bool {
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound
}
