package database

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arnb-smnta/chatline/internal/models"
)

// createTestMessage inserts a message and registers cleanup.
func createTestMessage(t *testing.T, db *mongo.Database, chatID, senderID primitive.ObjectID, content string) *models.Message {
	t.Helper()
	ctx := context.Background()
	repo := NewMessageRepository(db)

	msg := &models.Message{
		ID:        primitive.NewObjectID(),
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().Truncate(time.Millisecond),
	}
	if err := repo.Create(ctx, msg); err != nil {
		t.Fatalf("createTestMessage: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Collection("messages").DeleteOne(ctx, bson.M{"_id": msg.ID})
	})
	return msg
}

func TestMessageRepo_CreateAndGetByID(t *testing.T) {
	db := testDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	sender := createTestUser(t, db)
	chat := createTestGroupChat(t, db, sender.ID)
	msg := createTestMessage(t, db, chat.ID, sender.ID, "Hello, world!")

	got, err := repo.GetByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil after Create")
	}
	if got.Content != "Hello, world!" {
		t.Errorf("Content = %q, want %q", got.Content, "Hello, world!")
	}
	if got.SenderUsername != sender.Username {
		t.Errorf("SenderUsername = %q, want %q", got.SenderUsername, sender.Username)
	}
}

func TestMessageRepo_GetByID_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	got, err := repo.GetByID(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestMessageRepo_GetByChatID(t *testing.T) {
	db := testDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	sender := createTestUser(t, db)
	chat := createTestGroupChat(t, db, sender.ID)

	for i := 0; i < 3; i++ {
		createTestMessage(t, db, chat.ID, sender.ID, "Message "+string(rune('A'+i)))
	}

	messages, err := repo.GetByChatID(ctx, chat.ID, nil, 100)
	if err != nil {
		t.Fatalf("GetByChatID: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	// Newest first.
	if messages[0].Content != "Message C" {
		t.Errorf("messages[0].Content = %q, want %q", messages[0].Content, "Message C")
	}
	if messages[0].SenderUsername != sender.Username {
		t.Errorf("SenderUsername = %q, want %q", messages[0].SenderUsername, sender.Username)
	}
}

func TestMessageRepo_GetByChatID_Pagination(t *testing.T) {
	db := testDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	sender := createTestUser(t, db)
	chat := createTestGroupChat(t, db, sender.ID)

	var msgs []*models.Message
	for i := 0; i < 3; i++ {
		msgs = append(msgs, createTestMessage(t, db, chat.ID, sender.ID, "Paginated"))
	}

	// Cursor at the newest message should return only the older two.
	cursor := msgs[2].ID
	messages, err := repo.GetByChatID(ctx, chat.ID, &cursor, 100)
	if err != nil {
		t.Fatalf("GetByChatID with cursor: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages before cursor, got %d", len(messages))
	}
	for _, m := range messages {
		if m.ID.Hex() >= cursor.Hex() {
			t.Errorf("message %s should be before cursor %s", m.ID.Hex(), cursor.Hex())
		}
	}
}

func TestMessageRepo_GetByChatID_Limit(t *testing.T) {
	db := testDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	sender := createTestUser(t, db)
	chat := createTestGroupChat(t, db, sender.ID)

	for i := 0; i < 5; i++ {
		createTestMessage(t, db, chat.ID, sender.ID, "Limited")
	}

	messages, err := repo.GetByChatID(ctx, chat.ID, nil, 2)
	if err != nil {
		t.Fatalf("GetByChatID: %v", err)
	}
	if len(messages) != 2 {
		t.Errorf("expected 2 messages with limit 2, got %d", len(messages))
	}
}

func TestMessageRepo_Delete(t *testing.T) {
	db := testDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	sender := createTestUser(t, db)
	chat := createTestGroupChat(t, db, sender.ID)
	msg := createTestMessage(t, db, chat.ID, sender.ID, "To Delete")

	if err := repo.Delete(ctx, msg.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := repo.GetByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Error("expected nil after Delete")
	}
}
