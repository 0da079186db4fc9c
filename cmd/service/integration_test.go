//go:build integration

// cmd/service/integration_test.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-testfixtures/testfixtures/v3"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"repo-atlas/internal/cache"
	"repo-atlas/internal/config"
	"repo-atlas/internal/database"
	"repo-atlas/internal/model"
	"repo-atlas/internal/service"
)

func setupTestDatabase(ctx context.Context, t *testing.T) *pgxpool.Pool {
	// Start a postgres container
	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(context.Background()))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrate.New("file://../../migrations", connStr)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	dbpool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(dbpool.Close)

	// Seed fixtures through a database/sql view of the pool.
	db := stdlib.OpenDBFromPool(dbpool)
	t.Cleanup(func() { db.Close() })
	fixtures, err := testfixtures.New(
		testfixtures.Database(db),
		testfixtures.Dialect("postgres"),
		testfixtures.Directory("testdata/fixtures"),
	)
	require.NoError(t, err)
	require.NoError(t, fixtures.Load())

	return dbpool
}

// fakeGitHub serves one user with two repositories. Contributors always fail.
func fakeGitHub(t *testing.T, listCalls, repoCalls *int32) *httptest.Server {
	pushed := time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			fmt.Fprintln(w, `{"login": "octocat"}`)
		case "/user/repos":
			atomic.AddInt32(listCalls, 1)
			fmt.Fprintf(w, `[
				{"id": 1, "name": "hello", "full_name": "octocat/hello", "owner": {"login": "octocat"},
				 "description": "Hello world service", "language": "Go", "stargazers_count": 3,
				 "has_issues": true, "size": 120, "pushed_at": %q, "license": {"spdx_id": "MIT"}},
				{"id": 2, "name": "scratch", "full_name": "octocat/scratch", "owner": {"login": "octocat"}, "private": true}
			]`, pushed)
		case "/repos/octocat/hello":
			atomic.AddInt32(repoCalls, 1)
			fmt.Fprintf(w, `{"id": 1, "name": "hello", "full_name": "octocat/hello", "owner": {"login": "octocat"}, "pushed_at": %q}`, pushed)
		case "/repos/octocat/hello/branches":
			fmt.Fprintln(w, `[{"name": "main", "protected": true, "commit": {"sha": "abc"}}]`)
		case "/repos/octocat/hello/commits":
			fmt.Fprintln(w, `[{"sha": "abc", "commit": {"message": "initial commit", "author": {"name": "Octo", "date": "2026-01-01T00:00:00Z"}}}]`)
		case "/repos/octocat/hello/contributors":
			w.WriteHeader(http.StatusInternalServerError)
		case "/repos/octocat/hello/languages":
			fmt.Fprintln(w, `{"Go": 750, "Makefile": 250}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestService_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dbpool := setupTestDatabase(ctx, t)

	var listCalls, repoCalls int32
	server := fakeGitHub(t, &listCalls, &repoCalls)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := &config.Config{
		CacheMaxAge:      15 * time.Minute,
		GithubAPIURL:     server.URL,
		GithubMaxRetries: 2,
		StaticTokens:     map[string]string{"user_seeded": "tok-seeded", "user_new": "tok-new"},
	}
	queries := database.New(dbpool)
	svc := newService(cfg, queries, logger)

	t.Run("stale seeded scan is ignored", func(t *testing.T) {
		result, err := svc.ScanRepos(ctx, "user_seeded", service.ScanOptions{})

		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&listCalls))
		assert.Equal(t, "octocat", result.Owner)
		require.Equal(t, 2, result.TotalCount)
		assert.Equal(t, model.ActivityActive, result.Repos[0].ActivityLevel)
		assert.Equal(t, "main", result.Repos[1].DefaultBranch)
	})

	t.Run("second scan is served from cache", func(t *testing.T) {
		result, err := svc.ScanRepos(ctx, "user_seeded", service.ScanOptions{})

		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&listCalls))
		require.Len(t, result.Repos, 2)
		assert.Equal(t, "octocat/hello", result.Repos[0].FullName)
		assert.WithinDuration(t, time.Now(), result.ScannedAt, time.Minute)
	})

	t.Run("cached scan of another owner is a miss", func(t *testing.T) {
		_, err := svc.ScanRepos(ctx, "user_seeded", service.ScanOptions{Org: "someone-else"})

		require.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&listCalls))
	})

	t.Run("force bypasses the cache", func(t *testing.T) {
		_, err := svc.ScanRepos(ctx, "user_seeded", service.ScanOptions{Force: true})

		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&listCalls))
	})

	t.Run("caches are per user", func(t *testing.T) {
		_, err := svc.ScanRepos(ctx, "user_new", service.ScanOptions{})

		require.NoError(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&listCalls))

		id, err := queries.UpsertUser(ctx, "user_seeded")
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
	})

	t.Run("latest scan time", func(t *testing.T) {
		scannedAt, ok, err := svc.LatestScanTime(ctx, "user_seeded")

		require.NoError(t, err)
		require.True(t, ok)
		assert.WithinDuration(t, time.Now(), scannedAt, time.Minute)
	})

	t.Run("analysis degrades and caches", func(t *testing.T) {
		analysis, err := svc.AnalyzeRepo(ctx, "user_seeded", "octocat", "hello", service.AnalyzeOptions{})

		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&repoCalls))
		assert.Empty(t, analysis.Contributors)
		require.Len(t, analysis.Branches, 1)
		require.Len(t, analysis.LanguageBreakdown, 2)
		assert.Equal(t, 75.0, analysis.LanguageBreakdown[0].Percentage)

		cached, err := svc.AnalyzeRepo(ctx, "user_seeded", "octocat", "hello", service.AnalyzeOptions{})

		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&repoCalls))
		assert.Equal(t, analysis.RecentCommits, cached.RecentCommits)
		assert.Equal(t, analysis.LanguageBreakdown, cached.LanguageBreakdown)
	})

	t.Run("unknown repository", func(t *testing.T) {
		_, err := svc.AnalyzeRepo(ctx, "user_seeded", "octocat", "missing", service.AnalyzeOptions{})

		require.Error(t, err)
	})
}

func TestCacheGate_Expiry_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dbpool := setupTestDatabase(ctx, t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	gate := cache.NewGate(database.New(dbpool), time.Minute, logger)

	userID, err := gate.EnsureUser(ctx, "user_seeded")
	require.NoError(t, err)

	// The seeded scan is years old.
	assert.Nil(t, gate.Scan(ctx, userID, ""))

	scan := &model.ScanResult{Repos: []model.RepoInfo{}, Owner: "octocat", ScannedAt: time.Now().Add(-30 * time.Second)}
	require.NoError(t, gate.SaveScan(ctx, userID, scan))
	require.NotNil(t, gate.Scan(ctx, userID, "octocat"))

	old := &model.ScanResult{Repos: []model.RepoInfo{}, Owner: "octocat", ScannedAt: time.Now().Add(-2 * time.Minute)}
	require.NoError(t, gate.SaveScan(ctx, userID, old))
	assert.NotNil(t, gate.Scan(ctx, userID, ""), "latest row wins regardless of insert order")
}
