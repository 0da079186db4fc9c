// internal/service/service_test.go
package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	custom_errors "repo-atlas/internal/errors"
	"repo-atlas/internal/identity"
	"repo-atlas/internal/model"
	"repo-atlas/internal/scanner"
)

// MockCache is a mock of the Cache interface.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) EnsureUser(ctx context.Context, externalID string) (int64, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockCache) Scan(ctx context.Context, userID int64, org string) *model.ScanResult {
	args := m.Called(ctx, userID, org)
	result, _ := args.Get(0).(*model.ScanResult)
	return result
}
func (m *MockCache) SaveScan(ctx context.Context, userID int64, result *model.ScanResult) error {
	args := m.Called(ctx, userID, result)
	return args.Error(0)
}
func (m *MockCache) Analysis(ctx context.Context, userID int64, owner, repo string) *model.RepoAnalysis {
	args := m.Called(ctx, userID, owner, repo)
	analysis, _ := args.Get(0).(*model.RepoAnalysis)
	return analysis
}
func (m *MockCache) SaveAnalysis(ctx context.Context, userID int64, owner, repo string, analysis *model.RepoAnalysis) error {
	args := m.Called(ctx, userID, owner, repo, analysis)
	return args.Error(0)
}
func (m *MockCache) LatestScanTime(ctx context.Context, userID int64) (time.Time, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

// MockScanner is a mock of the Scanner interface.
type MockScanner struct {
	mock.Mock
}

func (m *MockScanner) ScanUserRepos(ctx context.Context, onProgress scanner.ProgressFunc) (*model.ScanResult, error) {
	args := m.Called(ctx, onProgress)
	result, _ := args.Get(0).(*model.ScanResult)
	return result, args.Error(1)
}
func (m *MockScanner) ScanOrgRepos(ctx context.Context, org string, onProgress scanner.ProgressFunc) (*model.ScanResult, error) {
	args := m.Called(ctx, org, onProgress)
	result, _ := args.Get(0).(*model.ScanResult)
	return result, args.Error(1)
}
func (m *MockScanner) AnalyzeRepo(ctx context.Context, owner, name string) (*model.RepoAnalysis, error) {
	args := m.Called(ctx, owner, name)
	analysis, _ := args.Get(0).(*model.RepoAnalysis)
	return analysis, args.Error(1)
}

type testDeps struct {
	cache   *MockCache
	scanner *MockScanner
	tokens  []string
}

func newTestService(tokens map[string]string) (*Service, *testDeps) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	deps := &testDeps{cache: new(MockCache), scanner: new(MockScanner)}
	factory := func(token string) (Scanner, error) {
		deps.tokens = append(deps.tokens, token)
		return deps.scanner, nil
	}
	return New(deps.cache, identity.StaticTokens{Tokens: tokens}, factory, logger), deps
}

var liveScan = &model.ScanResult{
	Repos:      []model.RepoInfo{{ID: 1, FullName: "octocat/hello"}},
	TotalCount: 1,
	ScannedAt:  time.Date(2026, 1, 29, 12, 0, 0, 0, time.UTC),
	Owner:      "octocat",
}

func TestService_ScanRepos(t *testing.T) {
	ctx := context.Background()
	tokens := map[string]string{"user_1": "gho_token"}

	t.Run("unauthenticated", func(t *testing.T) {
		svc, deps := newTestService(tokens)

		_, err := svc.ScanRepos(ctx, "", ScanOptions{})

		assert.ErrorIs(t, err, custom_errors.ErrUnauthenticated)
		deps.cache.AssertNotCalled(t, "EnsureUser", mock.Anything, mock.Anything)
	})

	t.Run("github not connected", func(t *testing.T) {
		svc, deps := newTestService(tokens)

		_, err := svc.ScanRepos(ctx, "user_2", ScanOptions{})

		assert.ErrorIs(t, err, custom_errors.ErrNotConnected)
		assert.Empty(t, deps.tokens)
	})

	t.Run("serves fresh cached scan", func(t *testing.T) {
		svc, deps := newTestService(tokens)
		cached := &model.ScanResult{Owner: "octocat", TotalCount: 3}
		deps.cache.On("EnsureUser", ctx, "user_1").Return(int64(9), nil).Once()
		deps.cache.On("Scan", ctx, int64(9), "").Return(cached).Once()

		result, err := svc.ScanRepos(ctx, "user_1", ScanOptions{})

		require.NoError(t, err)
		assert.Same(t, cached, result)
		deps.scanner.AssertNotCalled(t, "ScanUserRepos", mock.Anything, mock.Anything)
		deps.cache.AssertNotCalled(t, "SaveScan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache miss scans and saves", func(t *testing.T) {
		svc, deps := newTestService(tokens)
		deps.cache.On("EnsureUser", ctx, "user_1").Return(int64(9), nil).Once()
		deps.cache.On("Scan", ctx, int64(9), "").Return(nil).Once()
		deps.scanner.On("ScanUserRepos", ctx, mock.Anything).Return(liveScan, nil).Once()
		deps.cache.On("SaveScan", ctx, int64(9), liveScan).Return(nil).Once()

		result, err := svc.ScanRepos(ctx, "user_1", ScanOptions{})

		require.NoError(t, err)
		assert.Same(t, liveScan, result)
		assert.Equal(t, []string{"gho_token"}, deps.tokens)
		deps.cache.AssertExpectations(t)
		deps.scanner.AssertExpectations(t)
	})

	t.Run("force skips the read but still saves", func(t *testing.T) {
		svc, deps := newTestService(tokens)
		deps.cache.On("EnsureUser", ctx, "user_1").Return(int64(9), nil).Once()
		deps.scanner.On("ScanOrgRepos", ctx, "acme", mock.Anything).Return(liveScan, nil).Once()
		deps.cache.On("SaveScan", ctx, int64(9), liveScan).Return(nil).Once()

		_, err := svc.ScanRepos(ctx, "user_1", ScanOptions{Org: "acme", Force: true})

		require.NoError(t, err)
		deps.cache.AssertNotCalled(t, "Scan", mock.Anything, mock.Anything, mock.Anything)
		deps.cache.AssertExpectations(t)
	})

	t.Run("user sync failure disables caching", func(t *testing.T) {
		svc, deps := newTestService(tokens)
		deps.cache.On("EnsureUser", ctx, "user_1").Return(int64(0), errors.New("db down")).Once()
		deps.scanner.On("ScanUserRepos", ctx, mock.Anything).Return(liveScan, nil).Once()

		result, err := svc.ScanRepos(ctx, "user_1", ScanOptions{})

		require.NoError(t, err)
		assert.Same(t, liveScan, result)
		deps.cache.AssertNotCalled(t, "Scan", mock.Anything, mock.Anything, mock.Anything)
		deps.cache.AssertNotCalled(t, "SaveScan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache write failure still returns the scan", func(t *testing.T) {
		svc, deps := newTestService(tokens)
		deps.cache.On("EnsureUser", ctx, "user_1").Return(int64(9), nil).Once()
		deps.cache.On("Scan", ctx, int64(9), "").Return(nil).Once()
		deps.scanner.On("ScanUserRepos", ctx, mock.Anything).Return(liveScan, nil).Once()
		deps.cache.On("SaveScan", ctx, int64(9), liveScan).Return(errors.New("disk full")).Once()

		result, err := svc.ScanRepos(ctx, "user_1", ScanOptions{})

		require.NoError(t, err)
		assert.Same(t, liveScan, result)
	})

	t.Run("upstream failure is returned", func(t *testing.T) {
		svc, deps := newTestService(tokens)
		upstream := &custom_errors.UpstreamError{Op: "list repositories", Target: "octocat", Err: errors.New("boom")}
		deps.cache.On("EnsureUser", ctx, "user_1").Return(int64(9), nil).Once()
		deps.cache.On("Scan", ctx, int64(9), "").Return(nil).Once()
		deps.scanner.On("ScanUserRepos", ctx, mock.Anything).Return(nil, upstream).Once()

		_, err := svc.ScanRepos(ctx, "user_1", ScanOptions{})

		var target *custom_errors.UpstreamError
		require.ErrorAs(t, err, &target)
		deps.cache.AssertNotCalled(t, "SaveScan", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_AnalyzeRepo(t *testing.T) {
	ctx := context.Background()
	tokens := map[string]string{"user_1": "gho_token"}
	analysis := &model.RepoAnalysis{Repo: model.RepoInfo{FullName: "octocat/hello"}}

	t.Run("missing repository name", func(t *testing.T) {
		svc, _ := newTestService(tokens)

		_, err := svc.AnalyzeRepo(ctx, "user_1", "octocat", "", AnalyzeOptions{})

		var target *custom_errors.ErrInvalidRepoFormat
		assert.ErrorAs(t, err, &target)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		svc, _ := newTestService(tokens)

		_, err := svc.AnalyzeRepo(ctx, "", "octocat", "hello", AnalyzeOptions{})

		assert.ErrorIs(t, err, custom_errors.ErrUnauthenticated)
	})

	t.Run("github not connected", func(t *testing.T) {
		svc, deps := newTestService(tokens)

		_, err := svc.AnalyzeRepo(ctx, "user_2", "octocat", "hello", AnalyzeOptions{})

		assert.ErrorIs(t, err, custom_errors.ErrNotConnected)
		assert.Empty(t, deps.tokens)
		deps.cache.AssertNotCalled(t, "EnsureUser", mock.Anything, mock.Anything)
	})

	t.Run("serves fresh cached analysis", func(t *testing.T) {
		svc, deps := newTestService(tokens)
		deps.cache.On("EnsureUser", ctx, "user_1").Return(int64(9), nil).Once()
		deps.cache.On("Analysis", ctx, int64(9), "octocat", "hello").Return(analysis).Once()

		result, err := svc.AnalyzeRepo(ctx, "user_1", "octocat", "hello", AnalyzeOptions{})

		require.NoError(t, err)
		assert.Same(t, analysis, result)
		deps.scanner.AssertNotCalled(t, "AnalyzeRepo", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("force analyzes and saves", func(t *testing.T) {
		svc, deps := newTestService(tokens)
		deps.cache.On("EnsureUser", ctx, "user_1").Return(int64(9), nil).Once()
		deps.scanner.On("AnalyzeRepo", ctx, "octocat", "hello").Return(analysis, nil).Once()
		deps.cache.On("SaveAnalysis", ctx, int64(9), "octocat", "hello", analysis).Return(nil).Once()

		result, err := svc.AnalyzeRepo(ctx, "user_1", "octocat", "hello", AnalyzeOptions{Force: true})

		require.NoError(t, err)
		assert.Same(t, analysis, result)
		deps.cache.AssertNotCalled(t, "Analysis", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		deps.cache.AssertExpectations(t)
	})

	t.Run("cache write failure still returns the analysis", func(t *testing.T) {
		svc, deps := newTestService(tokens)
		deps.cache.On("EnsureUser", ctx, "user_1").Return(int64(9), nil).Once()
		deps.cache.On("Analysis", ctx, int64(9), "octocat", "hello").Return((*model.RepoAnalysis)(nil)).Once()
		deps.scanner.On("AnalyzeRepo", ctx, "octocat", "hello").Return(analysis, nil).Once()
		deps.cache.On("SaveAnalysis", ctx, int64(9), "octocat", "hello", analysis).Return(errors.New("disk full")).Once()

		result, err := svc.AnalyzeRepo(ctx, "user_1", "octocat", "hello", AnalyzeOptions{})

		require.NoError(t, err)
		assert.Same(t, analysis, result)
		deps.cache.AssertExpectations(t)
		deps.scanner.AssertExpectations(t)
	})
}

func TestService_LatestScanTime(t *testing.T) {
	ctx := context.Background()
	svc, deps := newTestService(nil)
	when := time.Date(2026, 1, 28, 9, 0, 0, 0, time.UTC)
	deps.cache.On("EnsureUser", ctx, "user_1").Return(int64(9), nil).Once()
	deps.cache.On("LatestScanTime", ctx, int64(9)).Return(when, true, nil).Once()

	got, ok, err := svc.LatestScanTime(ctx, "user_1")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, when, got)

	_, _, err = svc.LatestScanTime(ctx, "")
	assert.ErrorIs(t, err, custom_errors.ErrUnauthenticated)
}

func TestParseFullName(t *testing.T) {
	testCases := []struct {
		input     string
		wantOwner string
		wantName  string
		wantErr   bool
	}{
		{input: "octocat/hello", wantOwner: "octocat", wantName: "hello"},
		{input: "octocat", wantErr: true},
		{input: "/hello", wantErr: true},
		{input: "octocat/", wantErr: true},
		{input: "a/b/c", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			owner, name, err := ParseFullName(tc.input)
			if tc.wantErr {
				var target *custom_errors.ErrInvalidRepoFormat
				assert.ErrorAs(t, err, &target)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantOwner, owner)
			assert.Equal(t, tc.wantName, name)
		})
	}
}
