package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Keshujangid/Chat-app/modules/auth"
	"github.com/Keshujangid/Chat-app/modules/realtime"
)

// UserContextKey is the key used to store user claims in the Fiber
// context. It matches the key the websocket handlers read.
const UserContextKey = realtime.LocalsUserKey

// AuthMiddleware creates a middleware that validates JWT access tokens.
func AuthMiddleware(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header is required. Use: Bearer <token>",
			})
		}

		claims, err := authService.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

// WebsocketAuthMiddleware authenticates the upgrade request. Browsers
// cannot set headers on websocket connections, so the token may arrive
// as a `token` query parameter instead of an Authorization header.
func WebsocketAuthMiddleware(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			token = bearerToken(c)
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Token is required",
			})
		}

		claims, err := authService.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}
