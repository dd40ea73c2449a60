// Package credibility fuses the per-user document, behavior and graph
// signals into a single credibility score and flag. Scoring is stateless and
// pure; the weight configuration is read through an atomic pointer and only
// ever swapped whole.
package credibility

import (
	"context"
	"math"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolguard/internal/apperr"
	"poolguard/internal/config"
	"poolguard/internal/models"
)

// redCap is the ceiling applied by the device-fingerprint veto. It sits just
// below the red band boundary so a vetoed user always flags red.
const redCap = 0.4999

// Service is the credibility fusion engine.
type Service struct {
	cfg    atomic.Pointer[config.EngineConfig]
	logger *zap.Logger
}

// NewService creates a fusion service. The weight configuration is validated
// up front; a config error here refuses to start the engine.
func NewService(cfg config.EngineConfig, logger *zap.Logger) (*Service, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{logger: logger}
	s.cfg.Store(&cfg)
	return s, nil
}

// Reload swaps in a new configuration atomically. Running batches keep the
// configuration they started with; no evaluator observes a half-updated set.
func (s *Service) Reload(cfg config.EngineConfig) error {
	if err := cfg.Weights.Validate(); err != nil {
		return err
	}
	s.cfg.Store(&cfg)
	s.logger.Info("credibility weights reloaded",
		zap.Float64("document", cfg.Weights.Document),
		zap.Float64("behavior", cfg.Weights.Behavior),
		zap.Float64("graph", cfg.Weights.Graph))
	return nil
}

// ComputeScore fuses one signal tuple into a credibility score in [0,1],
// rounded half-even to 4 decimal places. The second return marks a partial
// score: at least one signal was unavailable and defaulted to 0, so
// downstream consumers can discount it.
func (s *Service) ComputeScore(sig models.Signals) (float64, bool) {
	cfg := s.cfg.Load()
	w := cfg.Weights

	doc, beh, gra := sig.Document, sig.Behavior, sig.Graph
	partial := !sig.DocumentAvailable || !sig.BehaviorAvailable || !sig.GraphAvailable
	if !sig.DocumentAvailable {
		doc = 0
	}
	if !sig.BehaviorAvailable {
		beh = 0
	}
	if !sig.GraphAvailable {
		gra = 0
	}

	if sig.DuplicateDevice && !cfg.DeviceVeto {
		// Soft mode: a duplicate device fingerprint halves the behavior
		// signal instead of vetoing the score.
		beh /= 2
	}

	score := w.Document*doc + w.Behavior*beh + w.Graph*gra
	if sig.DuplicateDevice && cfg.DeviceVeto {
		score = math.Min(score, redCap)
	}
	return round4(score), partial
}

// Score fuses the signals for one user and assigns flag and risk level.
func (s *Service) Score(userID uint, sig models.Signals) models.CredibilityResult {
	score, partial := s.ComputeScore(sig)
	flag := AssignFlag(score)
	return models.CredibilityResult{
		UserID:    userID,
		Score:     score,
		Flag:      flag,
		RiskLevel: RiskLevel(flag),
		Partial:   partial,
	}
}

// BatchInput pairs a user with their signal tuple for batch scoring.
type BatchInput struct {
	UserID  uint
	Signals models.Signals
}

// ScoreBatch scores many users in parallel. Scoring shares no mutable state,
// so inputs fan out over a bounded worker pool; output order is unspecified
// but every result carries its originating user id.
func (s *Service) ScoreBatch(ctx context.Context, inputs []BatchInput) ([]models.CredibilityResult, error) {
	if err := validateBatch(inputs); err != nil {
		return nil, err
	}

	results := make([]models.CredibilityResult, len(inputs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Load().BatchWorkers)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			results[i] = s.Score(in.UserID, in.Signals)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Explain builds the explanation payload for one scored user: the weighted
// contribution of each signal plus the graph flag. Unavailable signals are
// zeroed the same way ComputeScore zeroes them, so the impacts account for
// the fused score exactly.
func (s *Service) Explain(userID uint, sig models.Signals) models.ExplanationInput {
	w := s.cfg.Load().Weights
	score, _ := s.ComputeScore(sig)

	doc, beh, gra := sig.Document, sig.Behavior, sig.Graph
	if !sig.DocumentAvailable {
		doc = 0
	}
	if !sig.BehaviorAvailable {
		beh = 0
	}
	if !sig.GraphAvailable {
		gra = 0
	}
	impacts := map[string]float64{
		"document_score": round4(w.Document * doc),
		"behavior_score": round4(w.Behavior * beh),
		"graph_score":    round4(w.Graph * gra),
	}
	if sig.DuplicateDevice {
		impacts["duplicate_device"] = round4(score - (impacts["document_score"] + impacts["behavior_score"] + impacts["graph_score"]))
	}
	return models.ExplanationInput{
		UserID:         userID,
		Score:          score,
		FeatureImpacts: impacts,
		GraphFlag:      sig.GraphAvailable && sig.Graph >= 1.0,
	}
}

// AssignFlag maps a score to its credibility flag. The bands are closed-open
// intervals with no gaps or overlaps, so exactly one flag applies to any
// score and a higher score never yields a worse flag.
func AssignFlag(score float64) string {
	switch {
	case score >= 0.75:
		return models.FlagGreen
	case score >= 0.5:
		return models.FlagYellow
	default:
		return models.FlagRed
	}
}

// RiskLevel maps a flag to its operational risk level.
func RiskLevel(flag string) string {
	switch flag {
	case models.FlagGreen:
		return models.RiskLow
	case models.FlagYellow:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

func validateBatch(inputs []BatchInput) error {
	for _, in := range inputs {
		if err := validateSignals(in.Signals); err != nil {
			return err
		}
	}
	return nil
}

func validateSignals(sig models.Signals) error {
	for name, v := range map[string]float64{
		"document_score": sig.Document,
		"behavior_score": sig.Behavior,
		"graph_score":    sig.Graph,
	} {
		if v < 0 || v > 1 {
			return apperr.Validation("%s out of range [0,1]: %v", name, v)
		}
	}
	return nil
}

// ValidateSignals rejects out-of-range signal values at the boundary.
func ValidateSignals(sig models.Signals) error { return validateSignals(sig) }

// round4 rounds to 4 decimal places using round-half-even.
func round4(v float64) float64 {
	return math.RoundToEven(v*10000) / 10000
}
