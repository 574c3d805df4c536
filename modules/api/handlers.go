package api

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
	"github.com/Keshujangid/Chat-app/modules/auth"
	"github.com/Keshujangid/Chat-app/modules/chat"
	"github.com/Keshujangid/Chat-app/modules/upload"
)

// Handlers contains the HTTP request handlers.
type Handlers struct {
	auth   *auth.Service
	chat   *chat.Service
	upload *upload.Service
}

// NewHandlers creates the API handlers.
func NewHandlers(authService *auth.Service, chatService *chat.Service, uploadService *upload.Service) *Handlers {
	return &Handlers{auth: authService, chat: chatService, upload: uploadService}
}

// currentClaims returns the authenticated identity set by the auth
// middleware.
func currentClaims(c *fiber.Ctx) *domain.Claims {
	claims, _ := c.Locals(UserContextKey).(*domain.Claims)
	return claims
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, tokens, err := h.auth.Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{User: user, Tokens: tokens})
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, tokens, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(AuthResponse{User: user, Tokens: tokens})
}

// Refresh exchanges a refresh token for a new token pair.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}

	tokens, err := h.auth.RefreshTokens(c.UserContext(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired refresh token",
		})
	}

	return c.JSON(tokens)
}

// Me returns the authenticated user's profile.
func (h *Handlers) Me(c *fiber.Ctx) error {
	claims := currentClaims(c)
	user, err := h.auth.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile updates the authenticated user's username and bio.
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	claims := currentClaims(c)

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.Username) < 3 || len(req.Username) > 32 {
		return badRequest(c, "username must be 3-32 characters")
	}

	user, err := h.auth.Repository().UpdateProfile(claims.UserID, req.Username, req.Bio)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(user)
}

// UpdateAvatar stores an uploaded avatar image and points the profile at
// it.
func (h *Handlers) UpdateAvatar(c *fiber.Ctx) error {
	claims := currentClaims(c)

	header, err := c.FormFile("avatar")
	if err != nil {
		return badRequest(c, "avatar file is required")
	}

	file, err := header.Open()
	if err != nil {
		return badRequest(c, "failed to read avatar file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest(c, "failed to read avatar file")
	}

	result, err := h.upload.Upload(c.UserContext(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		return h.fail(c, err)
	}
	if result.Type != domain.AttachmentImage {
		return badRequest(c, "avatar must be an image")
	}

	if err := h.auth.Repository().UpdateAvatar(claims.UserID, result.URL); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"avatarUrl": result.URL})
}

// SearchUsers finds users by username, annotated with friendship status.
func (h *Handlers) SearchUsers(c *fiber.Ctx) error {
	claims := currentClaims(c)
	users, err := h.auth.Repository().Search(claims.UserID, c.Query("q"), c.QueryInt("limit"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// ListConversations returns the user's conversation summaries, most
// recently active first.
func (h *Handlers) ListConversations(c *fiber.Ctx) error {
	claims := currentClaims(c)
	summaries, err := h.chat.ListConversations(c.UserContext(), claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"conversations": summaries})
}

// GetConversation returns one conversation the user participates in.
func (h *Handlers) GetConversation(c *fiber.Ctx) error {
	claims := currentClaims(c)
	conv, err := h.chat.GetConversation(c.UserContext(), c.Params("id"), claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(conv)
}

// CreateGroup creates a group conversation with the caller as owner.
func (h *Handlers) CreateGroup(c *fiber.Ctx) error {
	claims := currentClaims(c)

	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	conv, err := h.chat.CreateGroup(c.UserContext(), claims.UserID, req.Title, req.ParticipantIDs)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

// ListMessages returns a page of messages, oldest first, with a cursor
// for the next older page.
func (h *Handlers) ListMessages(c *fiber.Ctx) error {
	claims := currentClaims(c)
	page, err := h.chat.ListMessages(c.UserContext(), c.Params("id"), claims.UserID, c.Query("cursor"), c.QueryInt("limit"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(page)
}

// SendMessage is the REST fallback for clients without a socket. The
// message still fans out to connected room members; with no originating
// connection nobody is excluded from the broadcast.
func (h *Handlers) SendMessage(c *fiber.Ctx) error {
	claims := currentClaims(c)

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	view, err := h.chat.SendMessage(c.UserContext(), chat.SendMessageInput{
		ConversationID: c.Params("id"),
		SenderID:       claims.UserID,
		Text:           req.Text,
		Attachments:    req.Attachments,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// SendFriendRequest creates a pending friendship.
func (h *Handlers) SendFriendRequest(c *fiber.Ctx) error {
	claims := currentClaims(c)

	var req FriendRequestBody
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.AddresseeID == "" {
		return badRequest(c, "addresseeId is required")
	}

	friendship, err := h.chat.SendFriendRequest(c.UserContext(), claims.UserID, req.AddresseeID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(friendship)
}

// AcceptFriendRequest accepts a pending request addressed to the caller
// and returns the DM conversation created for the new friendship.
func (h *Handlers) AcceptFriendRequest(c *fiber.Ctx) error {
	claims := currentClaims(c)

	friendship, conv, err := h.chat.AcceptFriendRequest(c.UserContext(), c.Params("requesterId"), claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"friendship": friendship, "conversation": conv})
}

// ListFriendships returns accepted friends and pending requests in both
// directions.
func (h *Handlers) ListFriendships(c *fiber.Ctx) error {
	claims := currentClaims(c)
	list, err := h.chat.ListFriendships(c.UserContext(), claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

// RemoveFriendship deletes a friendship in both directions.
func (h *Handlers) RemoveFriendship(c *fiber.Ctx) error {
	claims := currentClaims(c)
	if err := h.chat.RemoveFriendship(c.UserContext(), claims.UserID, c.Params("friendId")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Upload stores an attachment blob and returns its description for use
// in a subsequent message:send.
func (h *Handlers) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}

	file, err := header.Open()
	if err != nil {
		return badRequest(c, "failed to read file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest(c, "failed to read file")
	}

	result, err := h.upload.Upload(c.UserContext(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// ServeFile streams a stored blob back to the client.
func (h *Handlers) ServeFile(c *fiber.Ctx) error {
	data, info, err := h.upload.Fetch(c.UserContext(), c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "File not found",
		})
	}
	c.Set(fiber.HeaderContentType, info.ContentType)
	return c.Send(data)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

// fail maps service errors onto HTTP status codes.
func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error: "invalid_credentials", Message: "Invalid email or password",
		})
	case errors.Is(err, auth.ErrUserExists):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error: "user_exists", Message: "Username or email is already taken",
		})
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, chat.ErrConversationNotFound),
		errors.Is(err, chat.ErrFriendshipNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error: "not_found", Message: err.Error(),
		})
	case errors.Is(err, chat.ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error: "forbidden", Message: err.Error(),
		})
	case errors.Is(err, chat.ErrConversationExists),
		errors.Is(err, chat.ErrAlreadyFriends),
		errors.Is(err, chat.ErrRequestPending):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error: "conflict", Message: err.Error(),
		})
	case errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, chat.ErrInvalidConversationID),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrTextTooLong),
		errors.Is(err, chat.ErrInvalidAttachment),
		errors.Is(err, chat.ErrAttachmentType),
		errors.Is(err, chat.ErrSelfConversation),
		errors.Is(err, chat.ErrGroupTitleRequired),
		errors.Is(err, chat.ErrGroupTooSmall),
		errors.Is(err, chat.ErrSelfFriendRequest),
		errors.Is(err, upload.ErrEmptyFile),
		errors.Is(err, upload.ErrFileTooLarge):
		return badRequest(c, err.Error())
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "server_error", Message: "Internal Server Error",
		})
	}
}
