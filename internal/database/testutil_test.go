package database

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arnb-smnta/chatline/internal/models"
)

// testDB returns a handle to the test database.
// It skips the test if MONGO_URL is not set.
func testDB(t *testing.T) *mongo.Database {
	t.Helper()
	url := os.Getenv("MONGO_URL")
	if url == "" {
		t.Skip("MONGO_URL not set, skipping integration test")
	}
	client, db, err := Connect(context.Background(), url, "chatline_test")
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return db
}

// createTestUser inserts a user with a unique username and registers cleanup.
func createTestUser(t *testing.T, db *mongo.Database) *models.User {
	t.Helper()
	ctx := context.Background()
	repo := NewUserRepository(db)

	id := primitive.NewObjectID()
	u := &models.User{
		ID:           id,
		Username:     "user-" + id.Hex(),
		DisplayName:  "Test User",
		PasswordHash: "x",
		CreatedAt:    time.Now().Truncate(time.Millisecond),
	}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("createTestUser: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Collection("users").DeleteOne(ctx, bson.M{"_id": id})
	})
	return u
}

// createTestGroupChat inserts a group chat and registers cleanup.
func createTestGroupChat(t *testing.T, db *mongo.Database, creator primitive.ObjectID, members ...primitive.ObjectID) *models.Chat {
	t.Helper()
	ctx := context.Background()
	repo := NewChatRepository(db)

	now := time.Now().Truncate(time.Millisecond)
	c := &models.Chat{
		ID:        primitive.NewObjectID(),
		Name:      "test group",
		IsGroup:   true,
		MemberIDs: append([]primitive.ObjectID{creator}, members...),
		AdminIDs:  []primitive.ObjectID{creator},
		CreatedBy: creator,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("createTestGroupChat: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Collection("chats").DeleteOne(ctx, bson.M{"_id": c.ID})
	})
	return c
}
