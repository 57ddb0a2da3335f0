package handler

import (
	"errors"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/service"
	"go-dispatch-ws/pkg/validator"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors to an HTTP status with an error body.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, validator.ErrValidation), errors.Is(err, service.ErrInvalidInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		status = fiber.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrEmailExists), errors.Is(err, service.ErrInsufficientStock):
		status = fiber.StatusConflict
	}
	if status == fiber.StatusInternalServerError {
		return c.Status(status).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
}

// actor reads the caller set by middleware.RequireAuth.
func actor(c *fiber.Ctx) service.Actor {
	id, _ := c.Locals("user_id").(string)
	email, _ := c.Locals("user_email").(string)
	role, _ := c.Locals("user_role").(string)
	return service.Actor{ID: id, Email: email, Role: model.Role(role)}
}
