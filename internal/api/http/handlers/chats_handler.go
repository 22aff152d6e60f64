package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-report-service/internal/api/dto"
	"github.com/spec-kit/incident-report-service/internal/auth"
	"github.com/spec-kit/incident-report-service/internal/domain"
	"github.com/spec-kit/incident-report-service/internal/service"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

// ChatsHandler exposes REST access to support conversations. Live updates go
// over the websocket endpoints; these routes serve one-off snapshots and
// mutations.
type ChatsHandler struct {
	chat *service.ChatService
}

// NewChatsHandler constructs handler.
func NewChatsHandler(chatService *service.ChatService) *ChatsHandler {
	return &ChatsHandler{chat: chatService}
}

// List handles GET /api/chats for the admin inbox: sorted by recency,
// flagged unread.
func (h *ChatsHandler) List(c *fiber.Ctx) error {
	views, err := h.chat.Conversations(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewConversationResponses(views))
}

// Open handles POST /api/chats/:chatID/open.
func (h *ChatsHandler) Open(c *fiber.Ctx) error {
	if err := h.chat.OpenConversation(c.UserContext(), c.Params("chatID")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "conversation opened"})
}

// GetMessages handles GET /api/chats/:chatID/messages.
func (h *ChatsHandler) GetMessages(c *fiber.Ctx) error {
	_, chatID, err := h.authorizeChatAccess(c)
	if err != nil {
		return err
	}

	msgs, err := h.chat.Messages(c.UserContext(), chatID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewMessageResponses(msgs))
}

// SendMessage handles POST /api/chats/:chatID/messages.
func (h *ChatsHandler) SendMessage(c *fiber.Ctx) error {
	principal, chatID, err := h.authorizeChatAccess(c)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var displayName *string
	if principal.User.ID == chatID {
		name := principal.User.FullName()
		displayName = &name
	}

	msg, err := h.chat.SendMessage(c.UserContext(), chatID, principal.User.ID, req.Text, displayName)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewMessageResponse(msg))
}

// MarkRead handles POST /api/chats/:chatID/read.
func (h *ChatsHandler) MarkRead(c *fiber.Ctx) error {
	principal, chatID, err := h.authorizeChatAccess(c)
	if err != nil {
		return err
	}
	if err := h.chat.MarkMessagesRead(c.UserContext(), chatID, principal.User.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "messages marked read"})
}

// authorizeChatAccess restricts regular users to their own conversation;
// the admin reaches any.
func (h *ChatsHandler) authorizeChatAccess(c *fiber.Ctx) (*auth.Principal, string, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, "", apperrors.NewUnauthorized("authentication required")
	}
	chatID := c.Params("chatID")
	if chatID == "" {
		return nil, "", apperrors.NewValidationError("chat id is required", nil)
	}
	if principal.Role != domain.RoleAdmin && principal.User.ID != chatID {
		return nil, "", apperrors.NewForbidden("access denied")
	}
	return principal, chatID, nil
}
