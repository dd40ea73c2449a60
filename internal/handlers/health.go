package handlers

import (
	"github.com/gofiber/fiber/v2"

	"poolguard/internal/repositories"
)

// HealthCheck reports service liveness plus database and cache reachability.
func HealthCheck(c *fiber.Ctx) error {
	status := fiber.Map{"status": "ok"}

	if repositories.DB != nil {
		if sqlDB, err := repositories.DB.DB(); err != nil || sqlDB.Ping() != nil {
			status["database"] = "unreachable"
			status["status"] = "degraded"
		} else {
			status["database"] = "ok"
		}
	}
	if repositories.Cache != nil {
		if err := repositories.Cache.Ping(c.Context()); err != nil {
			status["cache"] = "unreachable"
			status["status"] = "degraded"
		} else {
			status["cache"] = "ok"
		}
	}

	code := fiber.StatusOK
	if status["status"] != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(status)
}
