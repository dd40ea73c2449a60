package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"poolguard/internal/apperr"
	"poolguard/internal/repositories"
)

// Respond sends a JSON response with the specified status code.
func Respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// Success sends a successful JSON response.
func Success(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusOK, data)
}

// Created sends a JSON response with status 201.
func Created(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusCreated, data)
}

// BadRequest sends a JSON error response with status 400.
func BadRequest(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusBadRequest, fiber.Map{"error": message})
}

// Unauthorized sends a JSON error response with status 401.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusUnauthorized, fiber.Map{"error": message})
}

// Forbidden sends a JSON error response with status 403.
func Forbidden(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusForbidden, fiber.Map{"error": message})
}

// NotFound sends a JSON error response with status 404.
func NotFound(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusNotFound, fiber.Map{"error": message})
}

// Conflict sends a JSON error response with status 409.
func Conflict(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusConflict, fiber.Map{"error": message})
}

// InternalError sends a JSON error response with status 500.
func InternalError(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusInternalServerError, fiber.Map{"error": message})
}

// Error maps a service error onto the right HTTP status. Validation and
// config errors are the caller's fault, conflicts and not-founds get their
// dedicated codes, everything else is a 500 with a generic message so
// internals never leak to clients.
func Error(c *fiber.Ctx, err error) error {
	switch {
	case apperr.IsKind(err, apperr.KindValidation), apperr.IsKind(err, apperr.KindConfig):
		return BadRequest(c, err.Error())
	case apperr.IsKind(err, apperr.KindNotFound),
		errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, repositories.ErrFundNotFound):
		return NotFound(c, err.Error())
	case apperr.IsKind(err, apperr.KindConflict):
		return Conflict(c, err.Error())
	default:
		return InternalError(c, "internal server error")
	}
}
