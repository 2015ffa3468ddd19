package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arnb-smnta/chatline/internal/auth"
	"github.com/arnb-smnta/chatline/internal/service"
)

// ChatHandler handles chat management endpoints.
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

type createDirectRequest struct {
	UserID string `json:"user_id"`
}

// CreateDirect handles POST /api/v1/chats/direct.
func (h *ChatHandler) CreateDirect(c echo.Context) error {
	userID := auth.GetUserID(c)

	var req createDirectRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	otherID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid user ID")
	}

	chat, err := h.service.CreateDirect(c.Request().Context(), userID, otherID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, chat)
}

type createGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

// CreateGroup handles POST /api/v1/chats/group.
func (h *ChatHandler) CreateGroup(c echo.Context) error {
	userID := auth.GetUserID(c)

	var req createGroupRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	memberIDs := make([]primitive.ObjectID, 0, len(req.MemberIDs))
	for _, raw := range req.MemberIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid member ID")
		}
		memberIDs = append(memberIDs, id)
	}

	chat, err := h.service.CreateGroup(c.Request().Context(), userID, req.Name, memberIDs)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, chat)
}

// List handles GET /api/v1/chats.
func (h *ChatHandler) List(c echo.Context) error {
	userID := auth.GetUserID(c)

	chats, err := h.service.ListMine(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, chats)
}

// Get handles GET /api/v1/chats/:id.
func (h *ChatHandler) Get(c echo.Context) error {
	userID := auth.GetUserID(c)

	chatID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid chat ID")
	}

	chat, err := h.service.Get(c.Request().Context(), chatID, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, chat)
}

type updateChatRequest struct {
	Name       *string `json:"name"`
	OnlyAdmins *bool   `json:"only_admins"`
}

// Update handles PATCH /api/v1/chats/:id.
func (h *ChatHandler) Update(c echo.Context) error {
	userID := auth.GetUserID(c)

	chatID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid chat ID")
	}

	var req updateChatRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	chat, err := h.service.Update(c.Request().Context(), chatID, userID, req.Name, req.OnlyAdmins)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, chat)
}

// AddMember handles PUT /api/v1/chats/:id/members/:userID.
func (h *ChatHandler) AddMember(c echo.Context) error {
	userID := auth.GetUserID(c)

	chatID, targetID, ok := parseChatTarget(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid ID")
	}

	if err := h.service.AddMember(c.Request().Context(), chatID, userID, targetID); err != nil {
		return mapServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// RemoveMember handles DELETE /api/v1/chats/:id/members/:userID.
func (h *ChatHandler) RemoveMember(c echo.Context) error {
	userID := auth.GetUserID(c)

	chatID, targetID, ok := parseChatTarget(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid ID")
	}

	if err := h.service.RemoveMember(c.Request().Context(), chatID, userID, targetID); err != nil {
		return mapServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// PromoteAdmin handles PUT /api/v1/chats/:id/admins/:userID.
func (h *ChatHandler) PromoteAdmin(c echo.Context) error {
	userID := auth.GetUserID(c)

	chatID, targetID, ok := parseChatTarget(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid ID")
	}

	if err := h.service.PromoteAdmin(c.Request().Context(), chatID, userID, targetID); err != nil {
		return mapServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// DemoteAdmin handles DELETE /api/v1/chats/:id/admins/:userID.
func (h *ChatHandler) DemoteAdmin(c echo.Context) error {
	userID := auth.GetUserID(c)

	chatID, targetID, ok := parseChatTarget(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid ID")
	}

	if err := h.service.DemoteAdmin(c.Request().Context(), chatID, userID, targetID); err != nil {
		return mapServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func parseChatTarget(c echo.Context) (primitive.ObjectID, primitive.ObjectID, bool) {
	chatID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	targetID, err := primitive.ObjectIDFromHex(c.Param("userID"))
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return chatID, targetID, true
}
