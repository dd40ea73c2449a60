// Package feedback collects moderator and user judgements and decides when
// accumulated feedback warrants a re-scoring or model refresh.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"poolguard/internal/apperr"
	"poolguard/internal/models"
	"poolguard/internal/repositories"
)

// DefaultRetrainThreshold is the feedback count at which a retrain fires.
const DefaultRetrainThreshold = 10

var validTypes = map[string]struct{}{
	models.FeedbackPositive: {},
	models.FeedbackNegative: {},
	models.FeedbackNeutral:  {},
}

var validKinds = map[string]struct{}{
	models.TargetKindUser: {},
	models.TargetKindFund: {},
}

// Service is the feedback log and retrain trigger.
type Service struct {
	repo      repositories.FeedbackRepository
	threshold int
	logger    *zap.Logger
}

// NewService creates the feedback service. threshold <= 0 falls back to the
// default.
func NewService(repo repositories.FeedbackRepository, threshold int, logger *zap.Logger) *Service {
	if repo == nil {
		panic("feedback repository is required")
	}
	if threshold <= 0 {
		threshold = DefaultRetrainThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, threshold: threshold, logger: logger}
}

// RecordFeedback appends one feedback event. Replayed events with an
// identical (source, target, occurred_at) key are dropped silently so
// duplicates never double-count toward the retrain threshold.
func (s *Service) RecordFeedback(ctx context.Context, event models.FeedbackEvent) error {
	if _, ok := validTypes[event.Type]; !ok {
		return apperr.Validation("unknown feedback type %q", event.Type)
	}
	if _, ok := validKinds[event.TargetKind]; !ok {
		return apperr.Validation("unknown feedback target kind %q", event.TargetKind)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	err := s.repo.Append(ctx, &event)
	if errors.Is(err, repositories.ErrDuplicateFeedback) {
		s.logger.Debug("duplicate feedback event dropped",
			zap.Uint("source_user_id", event.SourceUserID),
			zap.Uint("target_id", event.TargetID),
			zap.Time("occurred_at", event.OccurredAt))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to append feedback: %w", err)
	}
	return nil
}

// ShouldRetrain reports whether the feedback accumulated since the last
// retrain watermark has reached the threshold.
func (s *Service) ShouldRetrain(ctx context.Context) (bool, error) {
	state, err := s.repo.RetrainState(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read retrain state: %w", err)
	}
	count, err := s.repo.CountSince(ctx, state.LastRetrainTime)
	if err != nil {
		return false, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count >= int64(s.threshold), nil
}

// MarkRetrained advances the retrain watermark to now. The watermark is
// strictly monotonic: an older clock reading never moves it backwards.
func (s *Service) MarkRetrained(ctx context.Context) error {
	state, err := s.repo.RetrainState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read retrain state: %w", err)
	}
	now := time.Now().UTC()
	if !now.After(state.LastRetrainTime) {
		return nil
	}
	if err := s.repo.SetRetrainTime(ctx, now); err != nil {
		return fmt.Errorf("failed to advance retrain watermark: %w", err)
	}
	s.logger.Info("retrain watermark advanced", zap.Time("watermark", now))
	return nil
}

// Threshold returns the configured retrain threshold.
func (s *Service) Threshold() int { return s.threshold }
