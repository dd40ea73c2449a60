package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"poolguard/internal/models"
	"poolguard/internal/services/auth"
	"poolguard/internal/utils"
)

// AuthHandler handles moderator sessions.
type AuthHandler struct {
	auth   auth.Service
	logger *zap.Logger
}

func NewAuthHandler(svc auth.Service, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: svc, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a moderator and issues an access token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return utils.BadRequest(c, "email and password are required")
	}

	mod, token, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return utils.Unauthorized(c, "invalid credentials")
		}
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{
		"token": token,
		"moderator": fiber.Map{
			"id":    mod.ID,
			"email": mod.Email,
			"role":  mod.Role,
		},
	})
}

// Logout invalidates every outstanding token for the moderator.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.ModeratorClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}
	if err := h.auth.Logout(claims.ModeratorID); err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"logged_out": true})
}
