package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"poolguard/internal/graph"
	"poolguard/internal/models"
	"poolguard/internal/repositories"
	"poolguard/internal/utils"
)

// UserHandler manages contributor registration and lifecycle.
type UserHandler struct {
	users  repositories.UserRepository
	graph  *graph.Store
	logger *zap.Logger
}

func NewUserHandler(users repositories.UserRepository, store *graph.Store, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{users: users, graph: store, logger: logger}
}

type registerUserRequest struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
}

// Register creates a contributor. New users start red-flagged and partial
// until their first scoring pass.
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var req registerUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if req.ExternalID == "" {
		return utils.BadRequest(c, "external_id is required")
	}

	user := &models.User{
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Flag:       models.FlagRed,
		RiskLevel:  models.RiskHigh,
		Partial:    true,
		Active:     true,
	}
	if err := h.users.Create(user); err != nil {
		h.logger.Error("failed to create user", zap.Error(err))
		return utils.InternalError(c, "failed to create user")
	}
	if h.graph != nil {
		h.graph.AddUser(user.ID)
	}
	return utils.Created(c, user)
}

type deviceFlagRequest struct {
	Duplicate bool `json:"duplicate"`
}

// FlagDevice sets or clears the duplicate-device fingerprint flag.
func (h *UserHandler) FlagDevice(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}
	var req deviceFlagRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if err := h.users.SetDuplicateDevice(c.Context(), id, req.Duplicate); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return utils.NotFound(c, "user not found")
		}
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"user_id": id, "duplicate_device": req.Duplicate})
}

// Deactivate retires a contributor. The user's edges stop influencing future
// graph snapshots once the graph is rehydrated.
func (h *UserHandler) Deactivate(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}
	if err := h.users.Deactivate(id); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return utils.NotFound(c, "user not found")
		}
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"user_id": id, "active": false})
}

// Get returns a contributor with their current trust posture.
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}
	user, err := h.users.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return utils.NotFound(c, "user not found")
		}
		return utils.Error(c, err)
	}
	return utils.Success(c, user)
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(raw), nil
}
