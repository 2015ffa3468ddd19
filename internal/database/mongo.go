package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// Connect opens a MongoDB client, verifies the connection, and returns the
// named database handle.
func Connect(ctx context.Context, mongoURL, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, client.Database(dbName), nil
}

// EnsureIndexes creates the indexes the repositories rely on. Creation is
// idempotent, so this runs on every startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	users := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection("users").Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	// Direct-chat uniqueness is enforced by the find-or-create in the chat
	// service. A unique index on member_ids cannot express it: multikey
	// indexes key each array element, not the pair.
	chats := []mongo.IndexModel{
		{Keys: bson.D{{Key: "member_ids", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	}
	if _, err := db.Collection("chats").Indexes().CreateMany(ctx, chats); err != nil {
		return fmt.Errorf("chats indexes: %w", err)
	}

	messages := []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "_id", Value: -1}}},
	}
	if _, err := db.Collection("messages").Indexes().CreateMany(ctx, messages); err != nil {
		return fmt.Errorf("messages indexes: %w", err)
	}

	attachments := []mongo.IndexModel{
		{Keys: bson.D{{Key: "uploader_id", Value: 1}}},
	}
	if _, err := db.Collection("attachments").Indexes().CreateMany(ctx, attachments); err != nil {
		return fmt.Errorf("attachments indexes: %w", err)
	}

	return nil
}
