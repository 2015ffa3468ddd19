package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arnb-smnta/chatline/internal/auth"
	"github.com/arnb-smnta/chatline/internal/service"
)

const defaultMessageLimit = 50

// MessageHandler handles message endpoints within a chat.
type MessageHandler struct {
	service *service.MessageService
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(svc *service.MessageService) *MessageHandler {
	return &MessageHandler{service: svc}
}

// List handles GET /api/v1/chats/:id/messages.
func (h *MessageHandler) List(c echo.Context) error {
	userID := auth.GetUserID(c)

	chatID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid chat ID")
	}

	limit := defaultMessageLimit
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			return Error(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 100")
		}
	}

	var before *primitive.ObjectID
	if raw := c.QueryParam("before"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid before cursor")
		}
		before = &id
	}

	messages, err := h.service.List(c.Request().Context(), chatID, userID, before, limit)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, messages)
}

type sendMessageRequest struct {
	Content       string   `json:"content"`
	AttachmentIDs []string `json:"attachment_ids"`
}

// Send handles POST /api/v1/chats/:id/messages.
func (h *MessageHandler) Send(c echo.Context) error {
	userID := auth.GetUserID(c)

	chatID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid chat ID")
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	attachmentIDs := make([]primitive.ObjectID, 0, len(req.AttachmentIDs))
	for _, raw := range req.AttachmentIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid attachment ID")
		}
		attachmentIDs = append(attachmentIDs, id)
	}

	msg, err := h.service.Send(c.Request().Context(), chatID, userID, req.Content, attachmentIDs)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, msg)
}

// Get handles GET /api/v1/chats/:id/messages/:messageID.
func (h *MessageHandler) Get(c echo.Context) error {
	userID := auth.GetUserID(c)

	chatID, msgID, ok := parseMessageTarget(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid ID")
	}

	msg, err := h.service.Get(c.Request().Context(), chatID, msgID, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, msg)
}

// Delete handles DELETE /api/v1/chats/:id/messages/:messageID.
func (h *MessageHandler) Delete(c echo.Context) error {
	userID := auth.GetUserID(c)

	chatID, msgID, ok := parseMessageTarget(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid ID")
	}

	if err := h.service.Delete(c.Request().Context(), chatID, msgID, userID); err != nil {
		return mapServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func parseMessageTarget(c echo.Context) (primitive.ObjectID, primitive.ObjectID, bool) {
	chatID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	msgID, err := primitive.ObjectIDFromHex(c.Param("messageID"))
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return chatID, msgID, true
}
