package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arnb-smnta/chatline/internal/auth"
	"github.com/arnb-smnta/chatline/internal/database"
	"github.com/arnb-smnta/chatline/internal/models"
)

// Set via -ldflags at build time.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "indexes":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: chatline-cli indexes")
			fmt.Println()
			fmt.Println("Ensure all MongoDB indexes exist.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  MONGO_URL       MongoDB connection string (required)")
			fmt.Println("  MONGO_DATABASE  Database name (default: chatline)")
			return
		}
		os.Exit(runIndexes())
	case "seed":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: chatline-cli seed")
			fmt.Println()
			fmt.Println("Seed the database with demo data: 2 users, a direct chat, and messages.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  MONGO_URL       MongoDB connection string (required)")
			fmt.Println("  MONGO_DATABASE  Database name (default: chatline)")
			return
		}
		os.Exit(runSeed())
	case "health":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: chatline-cli health")
			fmt.Println()
			fmt.Println("Check if the Chatline server is running.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  SERVER_URL  Server base URL (default: http://localhost:8080)")
			return
		}
		os.Exit(runHealth())
	case "version":
		fmt.Printf("chatline-cli %s\n", version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: chatline-cli <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  indexes  Ensure MongoDB indexes exist")
	fmt.Println("  seed     Seed demo data (users, chat, messages)")
	fmt.Println("  health   Check if the server is running")
	fmt.Println("  version  Print version info")
	fmt.Println()
	fmt.Println("Run 'chatline-cli <command> --help' for details on a command.")
}

func hasFlag(flag string, args []string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Fprintf(os.Stderr, "error: %s environment variable is required\n", key)
		os.Exit(1)
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// --- indexes ---

func runIndexes() int {
	mongoURL := requireEnv("MONGO_URL")
	dbName := envOr("MONGO_DATABASE", "chatline")
	ctx := context.Background()

	fmt.Println("connecting to database...")
	client, db, err := database.Connect(ctx, mongoURL, dbName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: database connection failed: %v\n", err)
		return 1
	}
	defer client.Disconnect(ctx)

	fmt.Println("ensuring indexes...")
	if err := database.EnsureIndexes(ctx, db); err != nil {
		fmt.Fprintf(os.Stderr, "error: ensuring indexes: %v\n", err)
		return 1
	}

	fmt.Println("indexes ensured")
	return 0
}

// --- seed ---

func runSeed() int {
	mongoURL := requireEnv("MONGO_URL")
	dbName := envOr("MONGO_DATABASE", "chatline")
	ctx := context.Background()

	fmt.Println("connecting to database...")
	client, db, err := database.Connect(ctx, mongoURL, dbName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: database connection failed: %v\n", err)
		return 1
	}
	defer client.Disconnect(ctx)

	if err := database.EnsureIndexes(ctx, db); err != nil {
		fmt.Fprintf(os.Stderr, "error: ensuring indexes: %v\n", err)
		return 1
	}

	users := database.NewUserRepository(db)
	chats := database.NewChatRepository(db)
	messages := database.NewMessageRepository(db)

	fmt.Println("hashing passwords...")
	aliceHash, err := auth.HashPassword("password123")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: hashing password: %v\n", err)
		return 1
	}
	bobHash, err := auth.HashPassword("password456")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: hashing password: %v\n", err)
		return 1
	}

	now := time.Now()

	fmt.Println("creating users...")
	alice := &models.User{
		ID:           primitive.NewObjectID(),
		Username:     "alice",
		DisplayName:  "Alice",
		PasswordHash: aliceHash,
		CreatedAt:    now,
	}
	bob := &models.User{
		ID:           primitive.NewObjectID(),
		Username:     "bob",
		DisplayName:  "Bob",
		PasswordHash: bobHash,
		CreatedAt:    now,
	}
	for _, u := range []*models.User{alice, bob} {
		if existing, err := users.GetByUsername(ctx, u.Username); err != nil {
			fmt.Fprintf(os.Stderr, "error: looking up user %s: %v\n", u.Username, err)
			return 1
		} else if existing != nil {
			*u = *existing
			continue
		}
		if err := users.Create(ctx, u); err != nil {
			fmt.Fprintf(os.Stderr, "error: creating user %s: %v\n", u.Username, err)
			return 1
		}
	}

	fmt.Println("creating chat...")
	pair := []primitive.ObjectID{alice.ID, bob.ID}
	sort.Slice(pair, func(i, j int) bool { return pair[i].Hex() < pair[j].Hex() })

	chat, err := chats.FindDirect(ctx, pair[0], pair[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: looking up chat: %v\n", err)
		return 1
	}
	if chat == nil {
		chat = &models.Chat{
			ID:        primitive.NewObjectID(),
			IsGroup:   false,
			MemberIDs: pair,
			CreatedBy: alice.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := chats.Create(ctx, chat); err != nil {
			fmt.Fprintf(os.Stderr, "error: creating chat: %v\n", err)
			return 1
		}
	}

	fmt.Println("creating messages...")
	seedMessages := []*models.Message{
		{ID: primitive.NewObjectID(), ChatID: chat.ID, SenderID: alice.ID, Content: "hey bob!", CreatedAt: now},
		{ID: primitive.NewObjectID(), ChatID: chat.ID, SenderID: bob.ID, Content: "hey alice, how's it going?", CreatedAt: now.Add(time.Second)},
		{ID: primitive.NewObjectID(), ChatID: chat.ID, SenderID: alice.ID, Content: "pretty good, trying out the new chat", CreatedAt: now.Add(2 * time.Second)},
	}
	for _, m := range seedMessages {
		if err := messages.Create(ctx, m); err != nil {
			fmt.Fprintf(os.Stderr, "error: creating message: %v\n", err)
			return 1
		}
	}

	fmt.Println()
	fmt.Println("seed complete:")
	fmt.Printf("  alice  %s  (password123)\n", alice.ID.Hex())
	fmt.Printf("  bob    %s  (password456)\n", bob.ID.Hex())
	fmt.Printf("  chat   %s\n", chat.ID.Hex())
	return 0
}

// --- health ---

func runHealth() int {
	base := envOr("SERVER_URL", "http://localhost:8080")

	resp, err := http.Get(base + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: server unreachable: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "error: server unhealthy (status %d): %s\n", resp.StatusCode, body)
		return 1
	}

	fmt.Printf("server healthy: %s\n", body)
	return 0
}
