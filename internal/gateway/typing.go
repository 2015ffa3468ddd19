package gateway

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arnb-smnta/chatline/internal/auth"
	"github.com/arnb-smnta/chatline/internal/database"
	"github.com/arnb-smnta/chatline/internal/redis"
)

// TypingHandler handles POST /api/v1/chats/:id/typing.
type TypingHandler struct {
	chats   database.ChatRepository
	redis   *redis.Client
	manager *Manager
}

// NewTypingHandler creates a TypingHandler.
func NewTypingHandler(chats database.ChatRepository, redisClient *redis.Client, manager *Manager) *TypingHandler {
	return &TypingHandler{
		chats:   chats,
		redis:   redisClient,
		manager: manager,
	}
}

// Handle processes a typing indicator request.
func (h *TypingHandler) Handle(c echo.Context) error {
	chatID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(400, "invalid chat id")
	}

	userID := auth.GetUserID(c)
	ctx := c.Request().Context()

	chat, err := h.chats.GetByID(ctx, chatID)
	if err != nil {
		return echo.NewHTTPError(500, "internal server error")
	}
	if chat == nil {
		return echo.NewHTTPError(404, "chat not found")
	}
	if !chat.HasMember(userID) {
		return echo.NewHTTPError(403, "you are not a member of this chat")
	}

	if err := h.redis.SetTyping(ctx, chatID, userID); err != nil {
		return echo.NewHTTPError(500, "internal server error")
	}

	h.manager.DispatchToChatExcept(chatID, userID, EventTypingStart, TypingStartData{
		ChatID:    chatID,
		UserID:    userID,
		Timestamp: time.Now().Unix(),
	})

	return c.NoContent(204)
}
