package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Message struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	ChatID      primitive.ObjectID `bson:"chat_id" json:"chat_id"`
	SenderID    primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Content     string             `bson:"content" json:"content"`
	Attachments []Attachment       `bson:"attachments,omitempty" json:"attachments,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// MessageWithSender is a message joined with its sender's public profile,
// as returned by list and fetch endpoints.
type MessageWithSender struct {
	Message           `bson:",inline"`
	SenderUsername    string  `bson:"sender_username" json:"sender_username"`
	SenderDisplayName string  `bson:"sender_display_name" json:"sender_display_name"`
	SenderAvatarURL   *string `bson:"sender_avatar_url,omitempty" json:"sender_avatar_url,omitempty"`
}
