// Package middleware provides request processing middleware for the fiber
// HTTP surface.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"poolguard/internal/models"
	"poolguard/internal/services/auth"
	"poolguard/internal/utils"
)

// AuthMiddleware validates moderator JWTs and stores the claims on the
// request context. A token whose version lags the moderator's current
// version is treated as an expired session.
type AuthMiddleware struct {
	authService auth.Service
	logger      *zap.Logger
}

func NewAuthMiddleware(authService auth.Service, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{authService: authService, logger: logger}
}

func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return utils.Unauthorized(c, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return utils.Unauthorized(c, "invalid authorization format")
	}

	claims, err := utils.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		m.logger.Debug("token validation failed", zap.Error(err))
		return utils.Unauthorized(c, "invalid token")
	}

	currentVersion, err := m.authService.TokenVersion(claims.ModeratorID)
	if err != nil {
		m.logger.Debug("failed to load token version", zap.Uint("moderator_id", claims.ModeratorID), zap.Error(err))
		return utils.Unauthorized(c, "invalid token")
	}
	if claims.TokenVersion != currentVersion {
		return utils.Unauthorized(c, "session expired")
	}

	c.Locals("claims", claims)
	c.Locals("moderatorID", claims.ModeratorID)
	return c.Next()
}

// AdminOnly requires the authenticated moderator to carry the admin role.
func AdminOnly(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.ModeratorClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}
	if !claims.IsAdmin() {
		return utils.Forbidden(c, "insufficient permissions")
	}
	return c.Next()
}
