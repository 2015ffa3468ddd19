package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Attachment is a stored media object. PublicID is the opaque provider key
// used for upload and destroy calls; it never changes once assigned.
type Attachment struct {
	PublicID    string    `bson:"public_id" json:"public_id"`
	Filename    string    `bson:"filename" json:"filename"`
	ContentType string    `bson:"content_type" json:"content_type"`
	Size        int64     `bson:"size" json:"size"`
	URL         string    `bson:"url" json:"url"`
	UploadedAt  time.Time `bson:"uploaded_at" json:"uploaded_at"`
}

// StagedAttachment is an uploaded object not yet claimed by a message.
// It records who uploaded it and into which chat, so a later send can only
// claim its own stages.
type StagedAttachment struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	ChatID     primitive.ObjectID `bson:"chat_id" json:"chat_id"`
	UploaderID primitive.ObjectID `bson:"uploader_id" json:"uploader_id"`
	Attachment `bson:",inline"`
}
