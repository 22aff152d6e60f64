package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-report-service/internal/api/dto"
	"github.com/spec-kit/incident-report-service/internal/service"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

// AssistantHandler exposes the public help-assistant endpoint. Visitors reach
// it before signing up, so it carries no auth.
type AssistantHandler struct {
	assistant *service.AssistantService
}

// NewAssistantHandler constructs handler.
func NewAssistantHandler(assistant *service.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant}
}

// Chat handles POST /api/assistant/chat.
func (h *AssistantHandler) Chat(c *fiber.Ctx) error {
	var req dto.AssistantChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	reply, err := h.assistant.Reply(c.UserContext(), req.Message)
	if err != nil {
		return err
	}
	return c.JSON(dto.AssistantChatResponse{Response: reply})
}
