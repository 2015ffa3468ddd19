package service

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arnb-smnta/chatline/internal/database"
	"github.com/arnb-smnta/chatline/internal/gateway"
	"github.com/arnb-smnta/chatline/internal/models"
)

const (
	maxContentLength = 4096

	// deleteWindow is how long a sender may delete their own message.
	// Chat admins are not bound by it.
	deleteWindow = 15 * time.Minute

	destroyTimeout = 30 * time.Second
)

// MessageService handles message business logic for direct and group chats.
type MessageService struct {
	messages    database.MessageRepository
	chats       database.ChatRepository
	attachments database.AttachmentRepository
	storage     MediaStorage
	gateway     gateway.Dispatcher
}

// NewMessageService creates a MessageService.
func NewMessageService(
	messages database.MessageRepository,
	chats database.ChatRepository,
	attachments database.AttachmentRepository,
	storage MediaStorage,
	gw gateway.Dispatcher,
) *MessageService {
	return &MessageService{
		messages:    messages,
		chats:       chats,
		attachments: attachments,
		storage:     storage,
		gateway:     gw,
	}
}

// Send creates a message in a chat, claiming any staged attachments.
func (s *MessageService) Send(ctx context.Context, chatID, userID primitive.ObjectID, content string, attachmentIDs []primitive.ObjectID) (*models.MessageWithSender, error) {
	chat, err := s.resolveMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	if chat.IsGroup && chat.OnlyAdmins && !chat.HasAdmin(userID) {
		return nil, Forbidden("ADMINS_ONLY", "only admins may post in this chat")
	}

	staged, err := s.claimStaged(ctx, chatID, userID, attachmentIDs)
	if err != nil {
		return nil, err
	}

	if len(staged) == 0 && len(content) == 0 {
		return nil, BadRequest("INVALID_CONTENT", "message content must not be empty")
	}
	if len(content) > maxContentLength {
		return nil, BadRequest("INVALID_CONTENT", "message content must be at most 4096 characters")
	}

	msg := &models.Message{
		ID:        primitive.NewObjectID(),
		ChatID:    chatID,
		SenderID:  userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	for _, st := range staged {
		msg.Attachments = append(msg.Attachments, st.Attachment)
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	// The stages are claimed; drop them so they cannot be reused.
	if err := s.attachments.DeleteByIDs(ctx, attachmentIDs); err != nil {
		slog.Error("failed to drop claimed attachment stages", "messageID", msg.ID, "error", err)
	}
	if err := s.chats.Touch(ctx, chatID, msg.CreatedAt); err != nil {
		slog.Error("failed to touch chat", "chatID", chatID, "error", err)
	}

	full, err := s.messages.GetByID(ctx, msg.ID)
	if err != nil || full == nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	s.gateway.DispatchToChatExcept(chatID, userID, gateway.EventMessageCreate, full)

	return full, nil
}

// List returns messages from a chat with cursor-based pagination, newest first.
func (s *MessageService) List(ctx context.Context, chatID, userID primitive.ObjectID, before *primitive.ObjectID, limit int) ([]models.MessageWithSender, error) {
	if _, err := s.resolveMember(ctx, chatID, userID); err != nil {
		return nil, err
	}

	messages, err := s.messages.GetByChatID(ctx, chatID, before, limit)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if messages == nil {
		messages = []models.MessageWithSender{}
	}
	return messages, nil
}

// Get returns a single message by ID.
func (s *MessageService) Get(ctx context.Context, chatID, msgID, userID primitive.ObjectID) (*models.MessageWithSender, error) {
	if _, err := s.resolveMember(ctx, chatID, userID); err != nil {
		return nil, err
	}

	msg, err := s.messages.GetByID(ctx, msgID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if msg == nil || msg.ChatID != chatID {
		return nil, NotFound("NOT_FOUND", "message not found")
	}

	return msg, nil
}

// Delete removes a message. The sender may delete their own message within
// the delete window; group admins may delete any message at any time.
// Attachment objects are destroyed asynchronously after the document is gone.
func (s *MessageService) Delete(ctx context.Context, chatID, msgID, userID primitive.ObjectID) error {
	chat, err := s.resolveMember(ctx, chatID, userID)
	if err != nil {
		return err
	}

	msg, err := s.messages.GetByID(ctx, msgID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if msg == nil || msg.ChatID != chatID {
		return NotFound("NOT_FOUND", "message not found")
	}

	isAdmin := chat.IsGroup && chat.HasAdmin(userID)
	if msg.SenderID != userID {
		if !isAdmin {
			return Forbidden("FORBIDDEN", "you can only delete your own messages")
		}
	} else if !isAdmin && time.Since(msg.CreatedAt) > deleteWindow {
		return Forbidden("DELETE_WINDOW_EXPIRED", "messages can only be deleted within 15 minutes of sending")
	}

	if err := s.messages.Delete(ctx, msgID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	if len(msg.Attachments) > 0 {
		go s.destroyAttachments(msg.ID, msg.Attachments)
	}

	deletePayload := struct {
		ID     primitive.ObjectID `json:"id"`
		ChatID primitive.ObjectID `json:"chat_id"`
	}{ID: msgID, ChatID: chatID}

	s.gateway.DispatchToChatExcept(chatID, userID, gateway.EventMessageDelete, deletePayload)

	return nil
}

// claimStaged loads and validates the staged attachments a send refers to.
// A stage can only be claimed by its uploader, in the chat it was uploaded to.
func (s *MessageService) claimStaged(ctx context.Context, chatID, userID primitive.ObjectID, ids []primitive.ObjectID) ([]models.StagedAttachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	staged, err := s.attachments.GetByIDs(ctx, ids)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if len(staged) != len(ids) {
		return nil, BadRequest("INVALID_ATTACHMENT", "one or more attachments do not exist")
	}
	for _, st := range staged {
		if st.UploaderID != userID || st.ChatID != chatID {
			return nil, BadRequest("INVALID_ATTACHMENT", "attachment was not uploaded by you to this chat")
		}
	}
	return staged, nil
}

// destroyAttachments removes attachment objects from the media store.
// Failures are logged and never retried.
func (s *MessageService) destroyAttachments(msgID primitive.ObjectID, attachments []models.Attachment) {
	ctx, cancel := context.WithTimeout(context.Background(), destroyTimeout)
	defer cancel()

	for _, a := range attachments {
		if err := s.storage.Destroy(ctx, a.PublicID); err != nil {
			slog.Error("failed to destroy attachment object",
				"messageID", msgID, "publicID", a.PublicID, "error", err)
		}
	}
}

// resolveMember loads the chat and verifies the user belongs to it.
func (s *MessageService) resolveMember(ctx context.Context, chatID, userID primitive.ObjectID) (*models.Chat, error) {
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
