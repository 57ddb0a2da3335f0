package handler

import (
	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignIn handles password authentication
// POST /auth/v1/token
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req model.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Email and password are required"})
	}

	session, err := h.authService.SignIn(&req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

// SignUp creates an account with its profile. Admin only.
// POST /auth/v1/signup
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req model.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	resp, err := h.authService.SignUp(&req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GET /auth/v1/user
func (h *AuthHandler) CurrentUser(c *fiber.Ctx) error {
	user, err := h.authService.CurrentUser(actor(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// SignOut revokes the caller's tokens
// POST /auth/v1/logout
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	if err := h.authService.SignOut(actor(c).ID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
