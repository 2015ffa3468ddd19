package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/arnb-smnta/chatline/internal/api"
	"github.com/arnb-smnta/chatline/internal/auth"
	"github.com/arnb-smnta/chatline/internal/config"
	"github.com/arnb-smnta/chatline/internal/database"
	"github.com/arnb-smnta/chatline/internal/gateway"
	redisclient "github.com/arnb-smnta/chatline/internal/redis"
	"github.com/arnb-smnta/chatline/internal/service"
	"github.com/arnb-smnta/chatline/internal/storage"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))

	// --- Infrastructure ---

	client, db, err := database.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("mongo indexes: %v", err)
	}

	rdb, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	store, err := storage.NewMediaStore(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MediaBaseURL)
	if err != nil {
		log.Fatalf("media store: %v", err)
	}

	tokenSvc := auth.NewTokenService(cfg.JWTSecret)

	// --- Repositories ---

	users := database.NewUserRepository(db)
	chats := database.NewChatRepository(db)
	messages := database.NewMessageRepository(db)
	attachments := database.NewAttachmentRepository(db)

	// --- Gateway ---

	gwManager := gateway.NewManager(tokenSvc, chats, rdb)

	// --- Services ---

	authSvc := service.NewAuthService(users, tokenSvc, rdb)
	userSvc := service.NewUserService(users)
	chatSvc := service.NewChatService(chats, users, gwManager)
	messageSvc := service.NewMessageService(messages, chats, attachments, store, gwManager)
	uploadSvc := service.NewUploadService(attachments, chats, store)

	// --- Handlers ---

	deps := &api.Dependencies{
		Auth:         api.NewAuthHandler(authSvc),
		Users:        api.NewUserHandler(userSvc),
		Chats:        api.NewChatHandler(chatSvc),
		Messages:     api.NewMessageHandler(messageSvc),
		Uploads:      api.NewUploadHandler(uploadSvc),
		Typing:       gateway.NewTypingHandler(chats, rdb, gwManager),
		Gateway:      gwManager,
		TokenService: tokenSvc,
		Redis:        rdb,
	}

	// --- Echo ---

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.SetupRouter(e, deps)

	// --- Start ---

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("chatline starting on %s", cfg.ServerAddr)
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("shutting down...")
	if err := e.Shutdown(context.Background()); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
