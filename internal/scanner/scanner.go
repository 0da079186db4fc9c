// internal/scanner/scanner.go
package scanner

import (
	"cmp"
	"context"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/sync/errgroup"

	custom_errors "repo-atlas/internal/errors"
	"repo-atlas/internal/model"
)

const (
	pageSize         = 100
	branchLimit      = 100
	commitLimit      = 20
	contributorLimit = 30
)

// Provider is the source-control API the scanner reads from.
// *github.Client in internal/github satisfies it.
type Provider interface {
	AuthenticatedLogin(ctx context.Context) (string, error)
	ListUserRepos(ctx context.Context, page, perPage int) ([]*github.Repository, error)
	ListOrgRepos(ctx context.Context, org string, page, perPage int) ([]*github.Repository, error)
	GetRepository(ctx context.Context, owner, name string) (*github.Repository, error)
	ListBranches(ctx context.Context, owner, name string, perPage int) ([]*github.Branch, error)
	ListCommits(ctx context.Context, owner, name string, perPage int) ([]*github.RepositoryCommit, error)
	ListContributors(ctx context.Context, owner, name string, perPage int) ([]*github.Contributor, error)
	ListLanguages(ctx context.Context, owner, name string) (map[string]int, error)
}

// ProgressFunc receives a best-effort notification after each scanned repository.
type ProgressFunc func(model.ScanProgress)

// Scanner turns provider listings into scored repository data.
type Scanner struct {
	provider Provider
	logger   *slog.Logger
	now      func() time.Time
}

// NewScanner creates a Scanner reading from provider.
func NewScanner(provider Provider, logger *slog.Logger) *Scanner {
	return &Scanner{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// ScanUserRepos scans every repository visible to the authenticated user.
func (s *Scanner) ScanUserRepos(ctx context.Context, onProgress ProgressFunc) (*model.ScanResult, error) {
	start := s.now()

	login, err := s.provider.AuthenticatedLogin(ctx)
	if err != nil {
		return nil, &custom_errors.UpstreamError{Op: "get authenticated user", Err: err}
	}

	repos, err := s.paginate(ctx, login, onProgress, func(page int) ([]*github.Repository, error) {
		return s.provider.ListUserRepos(ctx, page, pageSize)
	})
	if err != nil {
		return nil, err
	}

	return s.result(repos, login, start), nil
}

// ScanOrgRepos scans every repository of an organization.
func (s *Scanner) ScanOrgRepos(ctx context.Context, org string, onProgress ProgressFunc) (*model.ScanResult, error) {
	start := s.now()

	repos, err := s.paginate(ctx, org, onProgress, func(page int) ([]*github.Repository, error) {
		return s.provider.ListOrgRepos(ctx, org, page, pageSize)
	})
	if err != nil {
		return nil, err
	}

	return s.result(repos, org, start), nil
}

// paginate walks listing pages sequentially until an empty or short page.
// A failed page fails the whole scan.
func (s *Scanner) paginate(ctx context.Context, owner string, onProgress ProgressFunc, fetch func(page int) ([]*github.Repository, error)) ([]model.RepoInfo, error) {
	logger := s.logger.With("owner", owner)
	repos := []model.RepoInfo{}

	for page := 1; ; page++ {
		data, err := fetch(page)
		if err != nil {
			return nil, &custom_errors.UpstreamError{Op: "list repositories", Target: owner, Err: err}
		}
		logger.Debug("Fetched repositories page", "page", page, "count", len(data))

		if len(data) == 0 {
			break
		}

		now := s.now()
		for _, ghRepo := range data {
			repos = append(repos, normalizeRepo(ghRepo, owner, nil, now))
			if onProgress != nil {
				onProgress(model.ScanProgress{
					ReposScanned: len(repos),
					TotalRepos:   -1,
					CurrentRepo:  ghRepo.GetFullName(),
				})
			}
		}

		if len(data) < pageSize {
			break
		}
	}

	logger.Info("Scanned repositories", "count", len(repos))
	return repos, nil
}

func (s *Scanner) result(repos []model.RepoInfo, owner string, start time.Time) *model.ScanResult {
	end := s.now()
	return &model.ScanResult{
		Repos:          repos,
		TotalCount:     len(repos),
		ScannedAt:      end.UTC(),
		Owner:          owner,
		ScanDurationMs: end.Sub(start).Milliseconds(),
	}
}

// AnalyzeRepo fetches repository details, branches, recent commits,
// contributors and languages concurrently. Only the repository fetch is
// required; the other facets fall back to empty values on failure.
func (s *Scanner) AnalyzeRepo(ctx context.Context, owner, name string) (*model.RepoAnalysis, error) {
	logger := s.logger.With("owner", owner, "repo", name)

	var (
		ghRepo       *github.Repository
		branches     []*github.Branch
		commits      []*github.RepositoryCommit
		contributors []*github.Contributor
		languages    map[string]int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ghRepo, err = s.provider.GetRepository(gctx, owner, name)
		return err
	})
	g.Go(func() error {
		branches = degrade(logger, "branches", func() ([]*github.Branch, error) {
			return s.provider.ListBranches(gctx, owner, name, branchLimit)
		})
		return nil
	})
	g.Go(func() error {
		commits = degrade(logger, "commits", func() ([]*github.RepositoryCommit, error) {
			return s.provider.ListCommits(gctx, owner, name, commitLimit)
		})
		return nil
	})
	g.Go(func() error {
		contributors = degrade(logger, "contributors", func() ([]*github.Contributor, error) {
			return s.provider.ListContributors(gctx, owner, name, contributorLimit)
		})
		return nil
	})
	g.Go(func() error {
		languages = degrade(logger, "languages", func() (map[string]int, error) {
			return s.provider.ListLanguages(gctx, owner, name)
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, &custom_errors.UpstreamError{Op: "get repository", Target: owner + "/" + name, Err: err}
	}

	now := s.now()
	if languages == nil {
		languages = map[string]int{}
	}

	analysis := &model.RepoAnalysis{
		Repo:              normalizeRepo(ghRepo, owner, languages, now),
		Branches:          make([]model.BranchInfo, 0, len(branches)),
		RecentCommits:     make([]model.CommitInfo, 0, len(commits)),
		Contributors:      make([]model.ContributorInfo, 0, len(contributors)),
		LanguageBreakdown: languageBreakdown(languages),
		AnalyzedAt:        now.UTC(),
	}
	for _, b := range branches {
		analysis.Branches = append(analysis.Branches, toBranchInfo(b))
	}
	for _, c := range commits {
		analysis.RecentCommits = append(analysis.RecentCommits, toCommitInfo(c))
	}
	for _, c := range contributors {
		analysis.Contributors = append(analysis.Contributors, toContributorInfo(c))
	}

	logger.Info("Analyzed repository",
		"branches", len(analysis.Branches),
		"commits", len(analysis.RecentCommits),
		"contributors", len(analysis.Contributors),
		"languages", len(analysis.LanguageBreakdown),
	)
	return analysis, nil
}

// degrade runs an optional fetch, logging and discarding its error.
func degrade[T any](logger *slog.Logger, facet string, fetch func() (T, error)) T {
	v, err := fetch()
	if err != nil {
		logger.Warn("Optional analysis facet unavailable", "facet", facet, "error", err)
		var zero T
		return zero
	}
	return v
}

// languageBreakdown converts byte counts into shares rounded to one decimal,
// largest first. All shares are zero when there are no bytes.
func languageBreakdown(languages map[string]int) []model.LanguageBreakdown {
	total := 0
	for _, b := range languages {
		total += b
	}

	breakdown := make([]model.LanguageBreakdown, 0, len(languages))
	for lang, bytes := range languages {
		pct := 0.0
		if total > 0 {
			pct = math.Round(float64(bytes)/float64(total)*1000) / 10
		}
		breakdown = append(breakdown, model.LanguageBreakdown{Language: lang, Bytes: bytes, Percentage: pct})
	}

	slices.SortFunc(breakdown, func(a, b model.LanguageBreakdown) int {
		if c := cmp.Compare(b.Bytes, a.Bytes); c != 0 {
			return c
		}
		return cmp.Compare(a.Language, b.Language)
	})
	return breakdown
}
