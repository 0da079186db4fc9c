// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"repo-atlas/internal/model"
	"repo-atlas/internal/service"
)

const (
	// Number of users to rescan in parallel
	concurrency = 5
)

// Scanner runs a scan on behalf of a user. *service.Service satisfies it.
type Scanner interface {
	ScanRepos(ctx context.Context, userKey string, opts service.ScanOptions) (*model.ScanResult, error)
}

// Syncer periodically rescans a fixed set of users so their cached scans
// stay warm.
type Syncer struct {
	svc          Scanner
	logger       *slog.Logger
	users        []string
	syncInterval time.Duration
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(svc Scanner, logger *slog.Logger, users []string, interval time.Duration) (*Syncer, error) {
	if interval <= 0 {
		return nil, errors.New("sync interval must be positive")
	}
	if len(users) == 0 {
		return nil, errors.New("no users to sync")
	}

	return &Syncer{
		svc:          svc,
		logger:       logger,
		users:        users,
		syncInterval: interval,
	}, nil
}

// Start begins the continuous synchronization process.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting syncer", "interval", s.syncInterval.String(), "users", len(s.users), "concurrency", concurrency)
	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	s.runSyncCycle(ctx) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.runSyncCycle(ctx)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

// runSyncCycle forces a fresh scan for every configured user concurrently.
// A failed user is logged and does not affect the others.
func (s *Syncer) runSyncCycle(ctx context.Context) {
	s.logger.Info("Starting new sync cycle")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, user := range s.users {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			result, err := s.svc.ScanRepos(gctx, user, service.ScanOptions{Force: true})
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Error("Failed to refresh scan", "user", user, "error", err)
				}
				return nil
			}
			s.logger.Debug("Refreshed scan", "user", user, "owner", result.Owner, "repos", result.TotalCount)
			return nil
		})
	}

	_ = g.Wait()
	s.logger.Info("Sync cycle finished")
}
