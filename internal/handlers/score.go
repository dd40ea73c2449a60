package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"poolguard/internal/models"
	"poolguard/internal/repositories"
	"poolguard/internal/services/alerts"
	"poolguard/internal/services/credibility"
	"poolguard/internal/utils"
)

// resultTTL bounds how long a fused result may serve reads before the next
// scoring pass.
const resultTTL = 15 * time.Minute

// ScoreHandler exposes synchronous and batch credibility scoring. The graph
// signal is never supplied by callers; it is read from the sweep-refreshed
// cache, and a cache miss degrades the score to partial instead of failing.
type ScoreHandler struct {
	cred   *credibility.Service
	engine *alerts.Engine
	users  repositories.UserRepository
	cache  repositories.CacheRepository
	logger *zap.Logger
}

func NewScoreHandler(cred *credibility.Service, engine *alerts.Engine, users repositories.UserRepository, cache repositories.CacheRepository, logger *zap.Logger) *ScoreHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreHandler{cred: cred, engine: engine, users: users, cache: cache, logger: logger}
}

type scoreRequest struct {
	Document          float64 `json:"document_score"`
	Behavior          float64 `json:"behavior_score"`
	DocumentAvailable *bool   `json:"document_available"`
	BehaviorAvailable *bool   `json:"behavior_available"`
	DuplicateDevice   bool    `json:"is_duplicate"`
}

type scoreResponse struct {
	Result      models.CredibilityResult `json:"result"`
	Action      alerts.Action            `json:"action"`
	Explanation models.ExplanationInput  `json:"explanation"`
}

// ScoreUser fuses one user's signals, persists the posture and returns the
// result with its alert action and explanation.
func (h *ScoreHandler) ScoreUser(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}
	var req scoreRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	if _, err := h.users.GetByID(userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return utils.NotFound(c, "user not found")
		}
		return utils.Error(c, err)
	}

	sig := h.buildSignals(c.Context(), userID, req)
	if err := credibility.ValidateSignals(sig); err != nil {
		return utils.Error(c, err)
	}

	res := h.cred.Score(userID, sig)
	if err := h.persist(c.Context(), res); err != nil {
		return utils.Error(c, err)
	}

	return utils.Success(c, scoreResponse{
		Result:      res,
		Action:      h.engine.EvaluateUser(res.Score, res.Flag),
		Explanation: h.cred.Explain(userID, sig),
	})
}

type batchScoreRequest struct {
	Items []struct {
		UserID uint `json:"user_id"`
		scoreRequest
	} `json:"items"`
}

// ScoreBatch fuses signals for many users in one request. Results come back
// keyed by user id; persistence failures for individual users are logged and
// surfaced per item, they do not abort the batch.
func (h *ScoreHandler) ScoreBatch(c *fiber.Ctx) error {
	var req batchScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if len(req.Items) == 0 {
		return utils.BadRequest(c, "items must not be empty")
	}

	inputs := make([]credibility.BatchInput, 0, len(req.Items))
	for _, item := range req.Items {
		inputs = append(inputs, credibility.BatchInput{
			UserID:  item.UserID,
			Signals: h.buildSignals(c.Context(), item.UserID, item.scoreRequest),
		})
	}

	results, err := h.cred.ScoreBatch(c.Context(), inputs)
	if err != nil {
		return utils.Error(c, err)
	}

	type batchItem struct {
		models.CredibilityResult
		Action    alerts.Action `json:"action"`
		Persisted bool          `json:"persisted"`
	}
	out := make([]batchItem, 0, len(results))
	for _, res := range results {
		persisted := true
		if err := h.persist(c.Context(), res); err != nil {
			h.logger.Warn("failed to persist batch score",
				zap.Uint("user_id", res.UserID), zap.Error(err))
			persisted = false
		}
		out = append(out, batchItem{
			CredibilityResult: res,
			Action:            h.engine.EvaluateUser(res.Score, res.Flag),
			Persisted:         persisted,
		})
	}
	return utils.Success(c, fiber.Map{"results": out})
}

// buildSignals assembles the fusion input: caller-supplied document and
// behavior signals plus the cached graph score from the last sweep.
func (h *ScoreHandler) buildSignals(ctx context.Context, userID uint, req scoreRequest) models.Signals {
	sig := models.Signals{
		Document:          req.Document,
		Behavior:          req.Behavior,
		DocumentAvailable: req.DocumentAvailable == nil || *req.DocumentAvailable,
		BehaviorAvailable: req.BehaviorAvailable == nil || *req.BehaviorAvailable,
		DuplicateDevice:   req.DuplicateDevice,
	}
	if h.cache == nil {
		return sig
	}
	score, err := h.cache.GetFloat64(ctx, repositories.GraphScoreKey(userID))
	if err != nil {
		if !errors.Is(err, repositories.ErrCacheMiss) {
			h.logger.Warn("graph score cache read failed",
				zap.Uint("user_id", userID), zap.Error(err))
		}
		return sig
	}
	sig.Graph = score
	sig.GraphAvailable = true
	return sig
}

func (h *ScoreHandler) persist(ctx context.Context, res models.CredibilityResult) error {
	if err := h.users.UpdateScore(ctx, res.UserID, res); err != nil {
		return err
	}
	if h.cache != nil {
		if err := h.cache.SetResult(ctx, res, resultTTL); err != nil {
			h.logger.Debug("failed to cache credibility result",
				zap.Uint("user_id", res.UserID), zap.Error(err))
		}
	}
	return nil
}

// GetScore serves the cached or stored posture for one user without
// recomputing it.
func (h *ScoreHandler) GetScore(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}
	if h.cache != nil {
		if res, err := h.cache.GetResult(c.Context(), userID); err == nil {
			return utils.Success(c, res)
		}
	}
	user, err := h.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return utils.NotFound(c, "user not found")
		}
		return utils.Error(c, err)
	}
	return utils.Success(c, models.CredibilityResult{
		UserID:    user.ID,
		Score:     user.CredibilityScore,
		Flag:      user.Flag,
		RiskLevel: user.RiskLevel,
		Partial:   user.Partial,
	})
}
