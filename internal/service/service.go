// internal/service/service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	custom_errors "repo-atlas/internal/errors"
	"repo-atlas/internal/github"
	"repo-atlas/internal/identity"
	"repo-atlas/internal/model"
	"repo-atlas/internal/scanner"
)

// Cache is the persistence gate the service reads through and writes behind.
// *cache.Gate satisfies it.
type Cache interface {
	EnsureUser(ctx context.Context, externalID string) (int64, error)
	Scan(ctx context.Context, userID int64, org string) *model.ScanResult
	SaveScan(ctx context.Context, userID int64, result *model.ScanResult) error
	Analysis(ctx context.Context, userID int64, owner, repo string) *model.RepoAnalysis
	SaveAnalysis(ctx context.Context, userID int64, owner, repo string, analysis *model.RepoAnalysis) error
	LatestScanTime(ctx context.Context, userID int64) (time.Time, bool, error)
}

// Scanner runs scans and analyses against GitHub on behalf of one user.
// *scanner.Scanner satisfies it.
type Scanner interface {
	ScanUserRepos(ctx context.Context, onProgress scanner.ProgressFunc) (*model.ScanResult, error)
	ScanOrgRepos(ctx context.Context, org string, onProgress scanner.ProgressFunc) (*model.ScanResult, error)
	AnalyzeRepo(ctx context.Context, owner, name string) (*model.RepoAnalysis, error)
}

// ScannerFactory builds a Scanner authenticated with a user's token.
type ScannerFactory func(token string) (Scanner, error)

// GitHubScanners returns a ScannerFactory that creates a fresh GitHub client
// for every call.
func GitHubScanners(logger *slog.Logger, opts ...github.Option) ScannerFactory {
	return func(token string) (Scanner, error) {
		client, err := github.NewClient(token, logger, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create github client: %w", err)
		}
		return scanner.NewScanner(client, logger), nil
	}
}

// ScanOptions controls a repository scan.
type ScanOptions struct {
	// Org scans an organization instead of the user's own repositories.
	Org string
	// Force bypasses the cached result. The new scan is still cached.
	Force bool
	// OnProgress is notified after each scanned repository.
	OnProgress scanner.ProgressFunc
}

// AnalyzeOptions controls a repository analysis.
type AnalyzeOptions struct {
	Force bool
}

// Service is the caller-facing entry point for scans and analyses.
type Service struct {
	cache      Cache
	tokens     identity.TokenSource
	newScanner ScannerFactory
	logger     *slog.Logger
}

// New creates a Service. cache may be nil, which disables caching.
func New(cache Cache, tokens identity.TokenSource, newScanner ScannerFactory, logger *slog.Logger) *Service {
	return &Service{
		cache:      cache,
		tokens:     tokens,
		newScanner: newScanner,
		logger:     logger,
	}
}

// ScanRepos returns the user's repositories with health data, served from
// the cache when a fresh scan for the same owner exists.
func (s *Service) ScanRepos(ctx context.Context, userKey string, opts ScanOptions) (*model.ScanResult, error) {
	sc, err := s.scannerFor(ctx, userKey)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("user", userKey, "org", opts.Org)

	userID, cached := s.userID(ctx, userKey)
	if cached && !opts.Force {
		if result := s.cache.Scan(ctx, userID, opts.Org); result != nil {
			logger.Debug("Serving cached scan", "scanned_at", result.ScannedAt)
			return result, nil
		}
	}

	var result *model.ScanResult
	if opts.Org != "" {
		result, err = sc.ScanOrgRepos(ctx, opts.Org, opts.OnProgress)
	} else {
		result, err = sc.ScanUserRepos(ctx, opts.OnProgress)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("Scan completed", "owner", result.Owner, "repos", result.TotalCount, "duration_ms", result.ScanDurationMs)

	if cached {
		if err := s.cache.SaveScan(ctx, userID, result); err != nil {
			logger.Error("Failed to cache scan", "error", err)
		}
	}
	return result, nil
}

// AnalyzeRepo returns the detailed analysis of owner/repo, served from the
// cache when a fresh analysis exists.
func (s *Service) AnalyzeRepo(ctx context.Context, userKey, owner, repo string, opts AnalyzeOptions) (*model.RepoAnalysis, error) {
	if userKey == "" {
		return nil, custom_errors.ErrUnauthenticated
	}
	if owner == "" || repo == "" {
		return nil, &custom_errors.ErrInvalidRepoFormat{Repo: owner + "/" + repo}
	}
	sc, err := s.scannerFor(ctx, userKey)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("user", userKey, "owner", owner, "repo", repo)

	userID, cached := s.userID(ctx, userKey)
	if cached && !opts.Force {
		if analysis := s.cache.Analysis(ctx, userID, owner, repo); analysis != nil {
			logger.Debug("Serving cached analysis", "analyzed_at", analysis.AnalyzedAt)
			return analysis, nil
		}
	}

	analysis, err := sc.AnalyzeRepo(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	if cached {
		if err := s.cache.SaveAnalysis(ctx, userID, owner, repo, analysis); err != nil {
			logger.Error("Failed to cache analysis", "error", err)
		}
	}
	return analysis, nil
}

// LatestScanTime reports when the user last completed a scan. ok is false
// when there is no recorded scan.
func (s *Service) LatestScanTime(ctx context.Context, userKey string) (t time.Time, ok bool, err error) {
	if userKey == "" {
		return time.Time{}, false, custom_errors.ErrUnauthenticated
	}
	if s.cache == nil {
		return time.Time{}, false, nil
	}
	userID, err := s.cache.EnsureUser(ctx, userKey)
	if err != nil {
		return time.Time{}, false, err
	}
	return s.cache.LatestScanTime(ctx, userID)
}

// ParseFullName splits an "owner/name" repository reference.
func ParseFullName(fullName string) (owner, name string, err error) {
	owner, name, found := strings.Cut(fullName, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", &custom_errors.ErrInvalidRepoFormat{Repo: fullName}
	}
	return owner, name, nil
}

// scannerFor checks the caller's identity and GitHub connection and builds
// a Scanner with their token.
func (s *Service) scannerFor(ctx context.Context, userKey string) (Scanner, error) {
	if userKey == "" {
		return nil, custom_errors.ErrUnauthenticated
	}

	token, err := s.tokens.Token(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve github token: %w", err)
	}
	if token == "" {
		return nil, custom_errors.ErrNotConnected
	}

	return s.newScanner(token)
}

// userID resolves the internal user id. ok is false when caching is
// unavailable for this request.
func (s *Service) userID(ctx context.Context, userKey string) (id int64, ok bool) {
	if s.cache == nil {
		return 0, false
	}
	id, err := s.cache.EnsureUser(ctx, userKey)
	if err != nil {
		s.logger.Warn("User sync failed, caching disabled for request", "user", userKey, "error", err)
		return 0, false
	}
	return id, true
}
