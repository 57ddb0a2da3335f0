package handler

import (
	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

// GET /rest/v1/orders
func (h *OrderHandler) GetOrders(c *fiber.Ctx) error {
	orders, err := h.service.List()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orders)
}

// GET /rest/v1/orders/:id
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.service.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// UpdateOrder is open to dispatchers so they can complete orders.
// PATCH /rest/v1/orders/:id
func (h *OrderHandler) UpdateOrder(c *fiber.Ctx) error {
	var patch model.OrderPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidJSON(c)
	}
	updated, err := h.service.Update(c.Params("id"), patch, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

// DELETE /rest/v1/orders/:id
func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PlaceOrder stores the order and decrements stock atomically.
// POST /rest/v1/rpc/place_order
func (h *OrderHandler) PlaceOrder(c *fiber.Ctx) error {
	var req model.PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	result, err := h.service.PlaceOrder(&req, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}
