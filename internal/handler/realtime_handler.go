package handler

import (
	"encoding/json"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/ws"
	"go-dispatch-ws/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type RealtimeHandler struct {
	hub *ws.Hub
	log *logger.Logger
}

func NewRealtimeHandler(hub *ws.Hub, log *logger.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, log: log}
}

// Upgrade rejects plain HTTP requests on the realtime endpoint.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.SendStatus(fiber.StatusUpgradeRequired)
}

// Serve reads subscribe and unsubscribe frames until the client goes away.
// GET /realtime/v1
func (h *RealtimeHandler) Serve() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		if !h.hub.Join(c) {
			return
		}
		defer h.hub.Leave(c)

		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				break
			}
			var msg model.RealtimeMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				h.log.Debug().Err(err).Msg("ignoring malformed realtime frame")
				continue
			}
			h.handle(c, msg)
		}
	})
}

func (h *RealtimeHandler) handle(c ws.Conn, msg model.RealtimeMessage) {
	switch msg.Type {
	case model.MessageSubscribe:
		if !msg.Topic.Valid() {
			h.hub.Reject(c, msg.Topic, "unknown topic")
			return
		}
		h.hub.Subscribe(c, msg.Topic)
	case model.MessageUnsubscribe:
		h.hub.Unsubscribe(c, msg.Topic)
	default:
		h.log.Debug().Str("type", msg.Type).Msg("ignoring realtime frame")
	}
}
