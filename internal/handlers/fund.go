package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"poolguard/internal/models"
	"poolguard/internal/repositories"
	"poolguard/internal/services/alerts"
	"poolguard/internal/services/escrow"
	"poolguard/internal/utils"
)

// statusTTL keeps derived fund status hot between contributions. Writes
// invalidate it, so a short TTL only covers external mutations.
const statusTTL = 30 * time.Second

// FundHandler exposes the escrow surface: fund lifecycle, status, release
// and the audit ledger.
type FundHandler struct {
	escrow *escrow.Service
	engine *alerts.Engine
	cache  repositories.CacheRepository
	logger *zap.Logger
}

func NewFundHandler(svc *escrow.Service, engine *alerts.Engine, cache repositories.CacheRepository, logger *zap.Logger) *FundHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FundHandler{escrow: svc, engine: engine, cache: cache, logger: logger}
}

type createFundRequest struct {
	Name         string     `json:"name"`
	TargetAmount float64    `json:"target_amount"`
	GoalDate     *time.Time `json:"goal_date"`
}

// Create registers a new pooling campaign.
func (h *FundHandler) Create(c *fiber.Ctx) error {
	var req createFundRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if req.Name == "" {
		return utils.BadRequest(c, "name is required")
	}
	var goal time.Time
	if req.GoalDate != nil {
		goal = *req.GoalDate
	}
	fund, err := h.escrow.CreateFund(c.Context(), req.Name, req.TargetAmount, goal)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, fund)
}

// Status derives the fund's current escrow status, cache-aside.
func (h *FundHandler) Status(c *fiber.Ctx) error {
	fundID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid fund id")
	}

	if h.cache != nil {
		if status, err := h.cache.GetString(c.Context(), repositories.FundStatusKey(fundID)); err == nil {
			return utils.Success(c, fiber.Map{"fund_id": fundID, "status": status, "cached": true})
		}
	}

	status, err := h.escrow.CheckStatus(c.Context(), fundID)
	if err != nil {
		return utils.Error(c, err)
	}
	if h.cache != nil {
		if err := h.cache.SetString(c.Context(), repositories.FundStatusKey(fundID), status, statusTTL); err != nil {
			h.logger.Debug("failed to cache fund status", zap.Uint("fund_id", fundID), zap.Error(err))
		}
	}
	return utils.Success(c, fiber.Map{"fund_id": fundID, "status": status, "cached": false})
}

// Release attempts the terminal escrow transition. A refusal comes back as a
// 200 with Released=false and the reason; only lookup and storage failures
// are errors.
func (h *FundHandler) Release(c *fiber.Ctx) error {
	fundID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid fund id")
	}
	decision, err := h.escrow.ReleaseFunds(c.Context(), fundID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, decision)
}

// Ledger returns the fund's escrow audit trail.
func (h *FundHandler) Ledger(c *fiber.Ctx) error {
	fundID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid fund id")
	}
	entries, err := h.escrow.LedgerHistory(c.Context(), fundID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"fund_id": fundID, "ledger": entries})
}

// Evaluate runs the alert rules for a fund: red-flagged contributors take
// precedence, then completion drives release-vs-hold, and a lapsed goal date
// on a pending fund forces manual review.
func (h *FundHandler) Evaluate(c *fiber.Ctx) error {
	fundID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid fund id")
	}
	fund, err := h.escrow.GetFund(c.Context(), fundID)
	if err != nil {
		return utils.Error(c, err)
	}
	redFlags, err := h.escrow.RedFlagCount(c.Context(), fundID)
	if err != nil {
		if errors.Is(err, repositories.ErrFundNotFound) {
			return utils.NotFound(c, "fund not found")
		}
		return utils.Error(c, err)
	}

	lapsed := escrow.DeadlinePassed(fund, time.Now().UTC())
	action := h.engine.EvaluateDeadline(lapsed, fund.Status, int(redFlags))

	reason := ""
	switch {
	case redFlags > 0:
		reason = fmt.Sprintf("%d red-flagged contributor(s) in pool", redFlags)
	case lapsed:
		reason = "goal date passed without reaching target"
	case fund.Status == models.FundStatusCompleted:
		reason = "completed with no red-flagged contributors"
	}
	return utils.Success(c, models.AlertAction{
		SubjectID: fundID,
		Action:    string(action),
		Reason:    reason,
	})
}
