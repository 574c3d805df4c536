// Package api exposes the REST surface and the websocket endpoint over
// Fiber.
package api

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Keshujangid/Chat-app/modules/auth"
	"github.com/Keshujangid/Chat-app/modules/chat"
	"github.com/Keshujangid/Chat-app/modules/realtime"
	"github.com/Keshujangid/Chat-app/modules/upload"
)

// Module is the HTTP API module.
type Module struct {
	app      *fiber.App
	addr     string
	auth     *auth.Module
	chat     *chat.Module
	realtime *realtime.Module
	upload   *upload.Module
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the API module over the modules it fronts.
func NewModule(addr string, authModule *auth.Module, chatModule *chat.Module, realtimeModule *realtime.Module, uploadModule *upload.Module) *Module {
	return &Module{
		addr:     addr,
		auth:     authModule,
		chat:     chatModule,
		realtime: realtimeModule,
		upload:   uploadModule,
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "api" }

// Start initializes the Fiber HTTP server.
func (m *Module) Start(_ context.Context) error {
	m.app = fiber.New(fiber.Config{
		AppName:               "Chat App",
		DisableStartupMessage: true,
		BodyLimit:             upload.MaxFileSize + 1<<20,
		ErrorHandler:          errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:5173"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.setupRoutes()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[api] HTTP server started on %s", m.addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{"addr": m.addr},
	}
}

// setupRoutes configures all API and websocket routes.
func (m *Module) setupRoutes() {
	authService := m.auth.Service()
	handlers := NewHandlers(authService, m.chat.Service(), m.upload.Service())

	m.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "module": "api"})
	})

	// Websocket endpoint. Upgrade requests authenticate via query token
	// or Authorization header before the protocol switch.
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", WebsocketAuthMiddleware(authService), websocket.New(m.realtime.Handlers().HandleConnection))

	v1 := m.app.Group("/api/v1")

	// Public auth routes.
	authRoutes := v1.Group("/auth")
	authRoutes.Post("/register", handlers.Register)
	authRoutes.Post("/login", handlers.Login)
	authRoutes.Post("/refresh", handlers.Refresh)

	// Stored blobs are public by URL.
	v1.Get("/files/:name", handlers.ServeFile)

	// Protected routes.
	protected := v1.Group("", AuthMiddleware(authService))

	users := protected.Group("/users")
	users.Get("/me", handlers.Me)
	users.Put("/me", handlers.UpdateProfile)
	users.Put("/me/avatar", handlers.UpdateAvatar)
	users.Get("/search", handlers.SearchUsers)

	conversations := protected.Group("/conversations")
	conversations.Get("/", handlers.ListConversations)
	conversations.Post("/group", handlers.CreateGroup)
	conversations.Get("/:id", handlers.GetConversation)
	conversations.Get("/:id/messages", handlers.ListMessages)
	conversations.Post("/:id/messages", handlers.SendMessage)

	friends := protected.Group("/friends")
	friends.Get("/", handlers.ListFriendships)
	friends.Post("/requests", handlers.SendFriendRequest)
	friends.Put("/requests/:requesterId/accept", handlers.AcceptFriendRequest)
	friends.Delete("/:friendId", handlers.RemoveFriendship)

	protected.Post("/upload", handlers.Upload)
}

// errorHandler handles Fiber errors.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
