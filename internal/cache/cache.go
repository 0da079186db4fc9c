// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"repo-atlas/internal/database"
	"repo-atlas/internal/model"
)

// DefaultMaxAge is how long a cached scan or analysis stays fresh.
const DefaultMaxAge = 15 * time.Minute

// Gate serves persisted scan and analysis results while they are fresh.
// Reads never fail: any store problem is logged and reported as a miss.
type Gate struct {
	queries database.Querier
	maxAge  time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewGate creates a Gate over queries. A non-positive maxAge falls back to DefaultMaxAge.
func NewGate(queries database.Querier, maxAge time.Duration, logger *slog.Logger) *Gate {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Gate{
		queries: queries,
		maxAge:  maxAge,
		logger:  logger,
		now:     time.Now,
	}
}

// MaxAge returns the freshness window.
func (g *Gate) MaxAge() time.Duration {
	return g.maxAge
}

// EnsureUser maps an identity-provider user id to the internal user id,
// creating the user on first sight.
func (g *Gate) EnsureUser(ctx context.Context, externalID string) (int64, error) {
	id, err := g.queries.UpsertUser(ctx, externalID)
	if err != nil {
		return 0, fmt.Errorf("upsert user %q: %w", externalID, err)
	}
	return id, nil
}

// Scan returns the user's latest scan if it is fresh. When org is not empty
// the cached scan must also belong to that owner.
func (g *Gate) Scan(ctx context.Context, userID int64, org string) *model.ScanResult {
	logger := g.logger.With("user_id", userID, "org", org)

	row, err := g.queries.GetLatestScanResult(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			logger.Warn("Failed to read cached scan", "error", err)
		}
		return nil
	}

	if !g.fresh(row.ScannedAt) {
		logger.Debug("Cached scan expired", "scanned_at", row.ScannedAt.Time)
		return nil
	}
	if org != "" && !strings.EqualFold(row.Owner, org) {
		logger.Debug("Cached scan belongs to another owner", "owner", row.Owner)
		return nil
	}

	repos := []model.RepoInfo{}
	if err := json.Unmarshal(row.Repos, &repos); err != nil {
		logger.Warn("Failed to decode cached scan", "error", err)
		return nil
	}

	return &model.ScanResult{
		Repos:          repos,
		TotalCount:     int(row.TotalCount),
		ScannedAt:      row.ScannedAt.Time.UTC(),
		Owner:          row.Owner,
		ScanDurationMs: row.ScanDurationMs,
	}
}

// SaveScan records a scan for the user.
func (g *Gate) SaveScan(ctx context.Context, userID int64, result *model.ScanResult) error {
	repos, err := json.Marshal(result.Repos)
	if err != nil {
		return fmt.Errorf("encode scan: %w", err)
	}

	err = g.queries.CreateScanResult(ctx, database.CreateScanResultParams{
		UserID:         userID,
		Owner:          result.Owner,
		Repos:          repos,
		TotalCount:     int32(result.TotalCount),
		ScanDurationMs: result.ScanDurationMs,
		ScannedAt:      g.timestamp(result.ScannedAt),
	})
	if err != nil {
		return fmt.Errorf("save scan for %s: %w", result.Owner, err)
	}
	return nil
}

// Analysis returns the user's latest analysis of owner/repo if it is fresh.
func (g *Gate) Analysis(ctx context.Context, userID int64, owner, repo string) *model.RepoAnalysis {
	logger := g.logger.With("user_id", userID, "owner", owner, "repo", repo)

	row, err := g.queries.GetLatestRepoAnalysis(ctx, database.GetLatestRepoAnalysisParams{
		UserID: userID,
		Owner:  owner,
		Repo:   repo,
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			logger.Warn("Failed to read cached analysis", "error", err)
		}
		return nil
	}

	if !g.fresh(row.AnalyzedAt) {
		logger.Debug("Cached analysis expired", "analyzed_at", row.AnalyzedAt.Time)
		return nil
	}

	var analysis model.RepoAnalysis
	if err := json.Unmarshal(row.Analysis, &analysis); err != nil {
		logger.Warn("Failed to decode cached analysis", "error", err)
		return nil
	}
	analysis.AnalyzedAt = row.AnalyzedAt.Time.UTC()
	return &analysis
}

// SaveAnalysis records an analysis of owner/repo for the user.
func (g *Gate) SaveAnalysis(ctx context.Context, userID int64, owner, repo string, analysis *model.RepoAnalysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	err = g.queries.CreateRepoAnalysis(ctx, database.CreateRepoAnalysisParams{
		UserID:     userID,
		Owner:      owner,
		Repo:       repo,
		Analysis:   payload,
		AnalyzedAt: g.timestamp(analysis.AnalyzedAt),
	})
	if err != nil {
		return fmt.Errorf("save analysis for %s/%s: %w", owner, repo, err)
	}
	return nil
}

// LatestScanTime reports when the user's most recent scan finished,
// regardless of freshness. ok is false when the user never scanned.
func (g *Gate) LatestScanTime(ctx context.Context, userID int64) (t time.Time, ok bool, err error) {
	ts, err := g.queries.GetLatestScanTime(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("get latest scan time: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	return ts.Time.UTC(), true, nil
}

// fresh reports whether a row written at ts is still within maxAge.
func (g *Gate) fresh(ts pgtype.Timestamptz) bool {
	if !ts.Valid {
		return false
	}
	return g.now().Sub(ts.Time) <= g.maxAge
}

func (g *Gate) timestamp(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		t = g.now()
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}
