// Package scheduler runs the periodic collusion sweep. Each sweep snapshots
// the contribution graph, runs detection under the configured deadline,
// persists the clusters for audit and refreshes the cached per-user graph
// scores that the credibility service reads.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"poolguard/internal/config"
	"poolguard/internal/graph"
	"poolguard/internal/repositories"
	"poolguard/internal/services/collusion"
)

// graphScoreTTL must outlive the gap between sweeps so synchronous scoring
// keeps finding a graph signal.
const graphScoreTTL = 2 * time.Hour

// Scheduler owns the cron loop for the collusion sweep.
type Scheduler struct {
	store    *graph.Store
	detector *collusion.Detector
	clusters repositories.ClusterRepository
	cache    repositories.CacheRepository
	cfg      *config.EngineConfig
	cron     *cron.Cron
	logger   *zap.Logger
}

// New creates the sweep scheduler. The cache is optional.
func New(store *graph.Store, detector *collusion.Detector, clusters repositories.ClusterRepository, cache repositories.CacheRepository, cfg *config.EngineConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:    store,
		detector: detector,
		clusters: clusters,
		cache:    cache,
		cfg:      cfg,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start registers the sweep on the configured cron spec and starts the loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.SweepSpec, func() {
		if _, err := s.RunSweepNow(context.Background()); err != nil {
			s.logger.Error("scheduled collusion sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("collusion sweep scheduled", zap.String("spec", s.cfg.SweepSpec))
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunSweepNow executes one sweep immediately and returns its result. Also
// used by the admin endpoint to force a sweep between cron ticks.
func (s *Scheduler) RunSweepNow(ctx context.Context) (*collusion.Result, error) {
	started := time.Now()
	sweepID := uuid.NewString()

	snap := s.store.Snapshot()

	detectCtx, cancel := context.WithTimeout(ctx, s.cfg.DetectorTimeout)
	defer cancel()

	res, err := s.detector.Detect(detectCtx, snap)
	if err != nil {
		return nil, err
	}

	if err := s.clusters.SaveSweep(ctx, sweepID, res, started.UTC()); err != nil {
		return nil, err
	}

	s.refreshGraphScores(ctx, snap, res)

	s.logger.Info("collusion sweep finished",
		zap.String("sweep_id", sweepID),
		zap.Int("users", len(snap.Users)),
		zap.Int("funds", len(snap.Funds)),
		zap.Int("clusters", len(res.Clusters)),
		zap.Int("highly_connected", len(res.HighlyConnected)),
		zap.Bool("partial", res.Partial),
		zap.Duration("elapsed", time.Since(started)))
	return res, nil
}

// refreshGraphScores writes every user's graph score to the cache and drops
// stale fused results so the next synchronous score picks up fresh graph
// signals. A partial sweep may have missed clusters, so its scores are never
// cached: scoring keeps the last complete sweep's values until they expire
// and then degrades to a partial fused score. Cache failures degrade scoring
// the same way, they never fail the sweep.
func (s *Scheduler) refreshGraphScores(ctx context.Context, snap *graph.Snapshot, res *collusion.Result) {
	if s.cache == nil {
		return
	}
	if res.Partial {
		s.logger.Warn("partial sweep result, skipping graph score cache refresh")
		return
	}
	for _, userID := range snap.Users {
		score := s.detector.GraphScore(snap, res, userID)
		if err := s.cache.SetFloat64(ctx, repositories.GraphScoreKey(userID), score, graphScoreTTL); err != nil {
			s.logger.Warn("failed to cache graph score",
				zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	if err := s.cache.DeleteMany(ctx, "credibility:result:*"); err != nil {
		s.logger.Warn("failed to invalidate cached credibility results", zap.Error(err))
	}
}
