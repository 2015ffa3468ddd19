package service

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arnb-smnta/chatline/internal/database"
	"github.com/arnb-smnta/chatline/internal/gateway"
	"github.com/arnb-smnta/chatline/internal/models"
)

const (
	maxGroupNameLength = 64
	minGroupMembers    = 3 // creator plus at least two others
)

// ChatService handles chat lifecycle and membership business logic.
type ChatService struct {
	chats   database.ChatRepository
	users   database.UserRepository
	gateway gateway.Dispatcher
}

// NewChatService creates a ChatService.
func NewChatService(chats database.ChatRepository, users database.UserRepository, gw gateway.Dispatcher) *ChatService {
	return &ChatService{chats: chats, users: users, gateway: gw}
}

// CreateDirect returns the direct chat between the caller and otherID,
// creating it if none exists.
func (s *ChatService) CreateDirect(ctx context.Context, userID, otherID primitive.ObjectID) (*models.Chat, error) {
	if otherID == userID {
		return nil, BadRequest("INVALID_USER", "cannot open a chat with yourself")
	}

	other, err := s.users.GetByID(ctx, otherID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if other == nil {
		return nil, NotFound("NOT_FOUND", "user not found")
	}

	existing, err := s.chats.FindDirect(ctx, userID, otherID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if existing != nil {
		return existing, nil
	}

	// Stored sorted so the unique index sees the same pair in one order.
	members := []primitive.ObjectID{userID, otherID}
	sort.Slice(members, func(i, j int) bool { return members[i].Hex() < members[j].Hex() })

	now := time.Now()
	chat := &models.Chat{
		ID:        primitive.NewObjectID(),
		IsGroup:   false,
		MemberIDs: members,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	s.gateway.SubscribeToChat(userID, chat.ID)
	s.gateway.SubscribeToChat(otherID, chat.ID)
	s.gateway.DispatchToUser(otherID, gateway.EventChatCreate, chat)

	return chat, nil
}

// CreateGroup creates a group chat with the caller as its first admin.
func (s *ChatService) CreateGroup(ctx context.Context, userID primitive.ObjectID, name string, memberIDs []primitive.ObjectID) (*models.Chat, error) {
	if len(name) == 0 || len(name) > maxGroupNameLength {
		return nil, BadRequest("INVALID_NAME", "group name must be 1-64 characters")
	}

	members := dedupeWith(memberIDs, userID)
	if len(members) < minGroupMembers {
		return nil, BadRequest("NOT_ENOUGH_MEMBERS", "a group needs at least two other members")
	}

	for _, id := range members {
		if id == userID {
			continue
		}
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, Internal("INTERNAL", "internal server error")
		}
		if u == nil {
			return nil, BadRequest("INVALID_MEMBER", "one or more members do not exist")
		}
	}

	now := time.Now()
	chat := &models.Chat{
		ID:        primitive.NewObjectID(),
		Name:      name,
		IsGroup:   true,
		MemberIDs: members,
		AdminIDs:  []primitive.ObjectID{userID},
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	for _, id := range members {
		s.gateway.SubscribeToChat(id, chat.ID)
		if id != userID {
			s.gateway.DispatchToUser(id, gateway.EventChatCreate, chat)
		}
	}

	return chat, nil
}

// ListMine returns the caller's chats, most recently active first.
func (s *ChatService) ListMine(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	chats, err := s.chats.GetByMember(ctx, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	return chats, nil
}

// Get returns a chat the caller belongs to.
func (s *ChatService) Get(ctx context.Context, chatID, userID primitive.ObjectID) (*models.Chat, error) {
	return s.resolveMember(ctx, chatID, userID)
}

// Update renames a group and/or toggles admin-only posting. Admin only.
func (s *ChatService) Update(ctx context.Context, chatID, userID primitive.ObjectID, name *string, onlyAdmins *bool) (*models.Chat, error) {
	chat, err := s.resolveGroupAdmin(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	if name != nil {
		if len(*name) == 0 || len(*name) > maxGroupNameLength {
			return nil, BadRequest("INVALID_NAME", "group name must be 1-64 characters")
		}
		chat.Name = *name
	}
	if onlyAdmins != nil {
		chat.OnlyAdmins = *onlyAdmins
	}

	if err := s.chats.Update(ctx, chat); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	s.gateway.DispatchToChat(chatID, gateway.EventChatUpdate, chat)

	return chat, nil
}

// AddMember adds a user to a group chat. Admin only.
func (s *ChatService) AddMember(ctx context.Context, chatID, userID, targetID primitive.ObjectID) error {
	chat, err := s.resolveGroupAdmin(ctx, chatID, userID)
	if err != nil {
		return err
	}

	if chat.HasMember(targetID) {
		return Conflict("ALREADY_MEMBER", "user is already a member of this chat")
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if target == nil {
		return NotFound("NOT_FOUND", "user not found")
	}

	if err := s.chats.AddMember(ctx, chatID, targetID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	s.gateway.SubscribeToChat(targetID, chatID)
	s.gateway.DispatchToChat(chatID, gateway.EventChatMemberAdd, memberEvent(chatID, targetID))
	s.gateway.DispatchToUser(targetID, gateway.EventChatCreate, chat)

	return nil
}

// RemoveMember removes a user from a group chat. Members may remove
// themselves (leave); removing anyone else requires admin. The last admin
// cannot leave while the group still needs one.
func (s *ChatService) RemoveMember(ctx context.Context, chatID, userID, targetID primitive.ObjectID) error {
	chat, err := s.resolveMember(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !chat.IsGroup {
		return Forbidden("NOT_A_GROUP", "direct chats have fixed membership")
	}

	if targetID != userID && !chat.HasAdmin(userID) {
		return Forbidden("FORBIDDEN", "only admins can remove other members")
	}
	if !chat.HasMember(targetID) {
		return NotFound("NOT_FOUND", "user is not a member of this chat")
	}
	if chat.HasAdmin(targetID) && len(chat.AdminIDs) == 1 {
		return Forbidden("LAST_ADMIN", "promote another admin first")
	}

	if err := s.chats.RemoveMember(ctx, chatID, targetID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	s.gateway.UnsubscribeFromChat(targetID, chatID)
	s.gateway.DispatchToChat(chatID, gateway.EventChatMemberRemove, memberEvent(chatID, targetID))
	s.gateway.DispatchToUser(targetID, gateway.EventChatMemberRemove, memberEvent(chatID, targetID))

	return nil
}

// PromoteAdmin makes a group member an admin. Admin only.
func (s *ChatService) PromoteAdmin(ctx context.Context, chatID, userID, targetID primitive.ObjectID) error {
	chat, err := s.resolveGroupAdmin(ctx, chatID, userID)
	if err != nil {
		return err
	}

	if !chat.HasMember(targetID) {
		return NotFound("NOT_FOUND", "user is not a member of this chat")
	}
	if chat.HasAdmin(targetID) {
		return Conflict("ALREADY_ADMIN", "user is already an admin")
	}

	if err := s.chats.AddAdmin(ctx, chatID, targetID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	chat.AdminIDs = append(chat.AdminIDs, targetID)
	s.gateway.DispatchToChat(chatID, gateway.EventChatUpdate, chat)

	return nil
}

// DemoteAdmin removes a group member's admin role. Admin only; the last
// admin cannot be demoted.
func (s *ChatService) DemoteAdmin(ctx context.Context, chatID, userID, targetID primitive.ObjectID) error {
	chat, err := s.resolveGroupAdmin(ctx, chatID, userID)
	if err != nil {
		return err
	}

	if !chat.HasAdmin(targetID) {
		return NotFound("NOT_FOUND", "user is not an admin of this chat")
	}
	if len(chat.AdminIDs) == 1 {
		return Forbidden("LAST_ADMIN", "a group must retain at least one admin")
	}

	if err := s.chats.RemoveAdmin(ctx, chatID, targetID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	remaining := chat.AdminIDs[:0]
	for _, id := range chat.AdminIDs {
		if id != targetID {
			remaining = append(remaining, id)
		}
	}
	chat.AdminIDs = remaining
	s.gateway.DispatchToChat(chatID, gateway.EventChatUpdate, chat)

	return nil
}

func (s *ChatService) resolveMember(ctx context.Context, chatID, userID primitive.ObjectID) (*models.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if chat == nil {
		return nil, NotFound("NOT_FOUND", "chat not found")
	}
	if !chat.HasMember(userID) {
		return nil, Forbidden("NOT_MEMBER", "you are not a member of this chat")
	}
	return chat, nil
}

func (s *ChatService) resolveGroupAdmin(ctx context.Context, chatID, userID primitive.ObjectID) (*models.Chat, error) {
	chat, err := s.resolveMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup {
		return nil, Forbidden("NOT_A_GROUP", "direct chats cannot be managed")
	}
	if !chat.HasAdmin(userID) {
		return nil, Forbidden("FORBIDDEN", "only admins can manage this chat")
	}
	return chat, nil
}

func memberEvent(chatID, userID primitive.ObjectID) any {
	return struct {
		ChatID primitive.ObjectID `json:"chat_id"`
		UserID primitive.ObjectID `json:"user_id"`
	}{ChatID: chatID, UserID: userID}
}

// dedupeWith returns ids deduplicated, with required guaranteed present.
func dedupeWith(ids []primitive.ObjectID, required primitive.ObjectID) []primitive.ObjectID {
	seen := map[primitive.ObjectID]bool{required: true}
	out := []primitive.ObjectID{required}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
