package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arnb-smnta/chatline/internal/auth"
	"github.com/arnb-smnta/chatline/internal/gateway"
	"github.com/arnb-smnta/chatline/internal/redis"
)

// Dependencies holds all handler instances and middleware for route wiring.
type Dependencies struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Chats    *ChatHandler
	Messages *MessageHandler
	Uploads  *UploadHandler
	Typing   *gateway.TypingHandler
	Gateway  *gateway.Manager

	TokenService *auth.TokenService
	Redis        *redis.Client
}

// SetupRouter registers all API routes on the Echo instance.
func SetupRouter(e *echo.Echo, deps *Dependencies) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// WebSocket gateway
	e.GET("/gateway", deps.Gateway.HandleWebSocket)

	v1 := e.Group("/api/v1")

	// Auth routes — no auth middleware, stricter rate limit
	authGroup := v1.Group("/auth",
		RateLimitMiddleware(deps.Redis, 5, time.Minute),
	)
	authGroup.POST("/register", deps.Auth.Register)
	authGroup.POST("/login", deps.Auth.Login)
	authGroup.POST("/refresh", deps.Auth.Refresh)

	// Protected routes — require JWT auth + general rate limit
	authMw := deps.TokenService.Middleware()
	protected := v1.Group("", authMw,
		RateLimitMiddleware(deps.Redis, 50, time.Minute),
	)

	// Auth (protected)
	protected.POST("/auth/logout", deps.Auth.Logout)

	// Users
	protected.GET("/users/@me", deps.Users.GetMe)
	protected.PATCH("/users/@me", deps.Users.UpdateMe)
	protected.GET("/users/search", deps.Users.Search)

	// Chats
	protected.POST("/chats/direct", deps.Chats.CreateDirect)
	protected.POST("/chats/group", deps.Chats.CreateGroup)
	protected.GET("/chats", deps.Chats.List)
	protected.GET("/chats/:id", deps.Chats.Get)
	protected.PATCH("/chats/:id", deps.Chats.Update)

	// Members and admins
	protected.PUT("/chats/:id/members/:userID", deps.Chats.AddMember)
	protected.DELETE("/chats/:id/members/:userID", deps.Chats.RemoveMember)
	protected.PUT("/chats/:id/admins/:userID", deps.Chats.PromoteAdmin)
	protected.DELETE("/chats/:id/admins/:userID", deps.Chats.DemoteAdmin)

	// Messages
	protected.GET("/chats/:id/messages", deps.Messages.List)
	protected.POST("/chats/:id/messages", deps.Messages.Send)
	protected.GET("/chats/:id/messages/:messageID", deps.Messages.Get)
	protected.DELETE("/chats/:id/messages/:messageID", deps.Messages.Delete)

	// Attachments
	protected.POST("/chats/:id/attachments", deps.Uploads.Upload)

	// Typing indicator
	protected.POST("/chats/:id/typing", deps.Typing.Handle)
}
