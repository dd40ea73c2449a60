package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"poolguard/internal/services/escrow"
	"poolguard/internal/utils"
)

// ContributionHandler records pooled contributions.
type ContributionHandler struct {
	escrow *escrow.Service
	logger *zap.Logger
}

func NewContributionHandler(svc *escrow.Service, logger *zap.Logger) *ContributionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContributionHandler{escrow: svc, logger: logger}
}

type contributionRequest struct {
	FundID uint    `json:"fund_id"`
	UserID uint    `json:"user_id"`
	Amount float64 `json:"amount"`
}

// Create records one contribution and returns the fund's updated state.
func (h *ContributionHandler) Create(c *fiber.Ctx) error {
	var req contributionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	fund, err := h.escrow.UpdateContribution(c.Context(), req.FundID, req.UserID, req.Amount)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, fiber.Map{
		"fund_id":        fund.ID,
		"status":         fund.Status,
		"current_amount": fund.CurrentAmount,
		"target_amount":  fund.TargetAmount,
	})
}
