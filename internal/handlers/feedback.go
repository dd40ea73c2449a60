package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"poolguard/internal/models"
	"poolguard/internal/services/feedback"
	"poolguard/internal/utils"
)

// FeedbackHandler records judgements and exposes the retrain trigger.
type FeedbackHandler struct {
	feedback *feedback.Service
	logger   *zap.Logger
}

func NewFeedbackHandler(svc *feedback.Service, logger *zap.Logger) *FeedbackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackHandler{feedback: svc, logger: logger}
}

type feedbackRequest struct {
	SourceUserID uint       `json:"source_user_id"`
	TargetID     uint       `json:"target_id"`
	TargetKind   string     `json:"target_kind"`
	Type         string     `json:"type"`
	OccurredAt   *time.Time `json:"occurred_at"`
}

// Create appends one feedback event. Duplicates are accepted and dropped, so
// clients may retry safely.
func (h *FeedbackHandler) Create(c *fiber.Ctx) error {
	var req feedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	event := models.FeedbackEvent{
		SourceUserID: req.SourceUserID,
		TargetID:     req.TargetID,
		TargetKind:   req.TargetKind,
		Type:         req.Type,
	}
	if req.OccurredAt != nil {
		event.OccurredAt = req.OccurredAt.UTC()
	}
	if err := h.feedback.RecordFeedback(c.Context(), event); err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, fiber.Map{"recorded": true})
}

// RetrainCheck reports whether accumulated feedback has reached the retrain
// threshold.
func (h *FeedbackHandler) RetrainCheck(c *fiber.Ctx) error {
	should, err := h.feedback.ShouldRetrain(c.Context())
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{
		"should_retrain": should,
		"threshold":      h.feedback.Threshold(),
	})
}

// RetrainMark advances the retrain watermark after an external retrain run.
func (h *FeedbackHandler) RetrainMark(c *fiber.Ctx) error {
	if err := h.feedback.MarkRetrained(c.Context()); err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"marked": true})
}
