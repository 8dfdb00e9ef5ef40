package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"smartshop-be/internal/dto"
	"smartshop-be/internal/pkg/logger"
	"smartshop-be/internal/service"
	internalWS "smartshop-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	socketModule = "ChatSocket"
	turnTimeout  = 90 * time.Second
)

type socketFrame struct {
	Type    string            `json:"type"`
	Data    *dto.ChatResponse `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
}

type ChatSocketHandler struct {
	chatService service.IChatService
	hub         *internalWS.Hub
	logger      logger.ILogger
}

func NewChatSocketHandler(chatService service.IChatService, hub *internalWS.Hub, log logger.ILogger) *ChatSocketHandler {
	return &ChatSocketHandler{
		chatService: chatService,
		hub:         hub,
		logger:      log,
	}
}

func (h *ChatSocketHandler) RegisterRoutes(app fiber.Router) {
	app.Get("/ws/chat/:conversation_id", h.ServeWs)
}

// ServeWs upgrades the request and runs every inbound text frame as a turn.
func (h *ChatSocketHandler) ServeWs(c *fiber.Ctx) error {
	conversationID := strings.TrimSpace(c.Params("conversation_id"))
	if conversationID == "" || len(conversationID) > 128 {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid conversation id")
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info(socketModule, "Starting WebSocket session", map[string]interface{}{"conversation_id": conversationID})
		internalWS.ServeWs(h.hub, conn, conversationID, h.handleFrame)
		h.logger.Info(socketModule, "WebSocket session ended", map[string]interface{}{"conversation_id": conversationID})
	})(c)
}

// ParseFrame accepts either raw text or {"message": "..."}.
func ParseFrame(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var req dto.ChatRequest
		if err := json.Unmarshal([]byte(trimmed), &req); err == nil {
			return strings.TrimSpace(req.Message)
		}
	}
	return trimmed
}

func (h *ChatSocketHandler) handleFrame(conversationID, raw string) {
	text := ParseFrame(raw)
	if text == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	res, err := h.chatService.SendMessage(ctx, &dto.ChatRequest{Message: text, ConversationId: conversationID})
	frame := socketFrame{Type: "turn", Data: res}
	if err != nil {
		var svcErr *service.Error
		msg := "Internal server error"
		if errors.As(err, &svcErr) {
			msg = svcErr.Message
		}
		h.logger.Warn(socketModule, "Turn failed", map[string]interface{}{"conversation_id": conversationID, "error": err.Error()})
		frame = socketFrame{Type: "error", Message: msg}
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	h.hub.Deliver(conversationID, payload)
}
