package handler

import (
	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /rest/v1/users
func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	users, err := h.userService.List()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GET /rest/v1/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.userService.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// PATCH /rest/v1/users/:id
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	var patch model.UserPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidJSON(c)
	}
	user, err := h.userService.Update(c.Params("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// DeleteUser removes the profile and its account.
// DELETE /rest/v1/users/:id
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	if c.Params("id") == actor(c).ID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot delete your own account"})
	}
	if err := h.userService.Delete(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
