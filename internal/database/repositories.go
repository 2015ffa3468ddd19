package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arnb-smnta/chatline/internal/models"
)

// Repositories return (nil, nil) when a document does not exist; errors mean
// the store itself failed.

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type ChatRepository interface {
	Create(ctx context.Context, chat *models.Chat) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error)
	GetByMember(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error)
	FindDirect(ctx context.Context, userA, userB primitive.ObjectID) (*models.Chat, error)
	Update(ctx context.Context, chat *models.Chat) error
	AddMember(ctx context.Context, chatID, userID primitive.ObjectID) error
	RemoveMember(ctx context.Context, chatID, userID primitive.ObjectID) error
	AddAdmin(ctx context.Context, chatID, userID primitive.ObjectID) error
	RemoveAdmin(ctx context.Context, chatID, userID primitive.ObjectID) error
	Touch(ctx context.Context, chatID primitive.ObjectID, at time.Time) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.MessageWithSender, error)
	GetByChatID(ctx context.Context, chatID primitive.ObjectID, before *primitive.ObjectID, limit int) ([]models.MessageWithSender, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// AttachmentRepository stores staged uploads until a message claims them.
type AttachmentRepository interface {
	Create(ctx context.Context, staged *models.StagedAttachment) error
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.StagedAttachment, error)
	DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) error
}
